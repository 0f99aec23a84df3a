package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ppiankov/roomwatch/internal/model"
)

// uniqueViolation is the SQLSTATE for a unique constraint failure
const uniqueViolation = "23505"

const createSeenTable = `
	CREATE TABLE IF NOT EXISTS seen_postings (
		posting_id TEXT PRIMARY KEY,
		first_seen TIMESTAMPTZ NOT NULL,
		url        TEXT NOT NULL DEFAULT '',
		title      TEXT NOT NULL DEFAULT ''
	)
`

const insertSeen = `
	INSERT INTO seen_postings (posting_id, first_seen, url, title)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (posting_id) DO NOTHING
`

const selectSeen = `SELECT EXISTS(SELECT 1 FROM seen_postings WHERE posting_id = $1)`

// pgxPool is the subset of *pgxpool.Pool the store uses
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres records seen postings in the seen_postings table. The primary
// key is the uniqueness guarantee; each Record runs in its own short
// transaction.
type Postgres struct {
	pool pgxPool
	now  func() time.Time
}

// OpenPostgres connects to dsn and makes sure the table exists
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := NewPostgres(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres wraps an existing pool
func NewPostgres(pool pgxPool) *Postgres {
	return &Postgres{pool: pool, now: time.Now}
}

// EnsureSchema creates the seen_postings table if needed
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("database connection not available")
	}
	if _, err := s.pool.Exec(ctx, createSeenTable); err != nil {
		return fmt.Errorf("create seen_postings: %w", err)
	}
	return nil
}

// HasSeen reports whether id is in the table
func (s *Postgres) HasSeen(ctx context.Context, id string) (bool, error) {
	if s.pool == nil {
		return false, errors.New("database connection not available")
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, selectSeen, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check seen posting: %w", err)
	}
	return exists, nil
}

// Record inserts p. An existing row, or a unique violation raised by a
// concurrent insert, yields ErrDuplicate.
func (s *Postgres) Record(ctx context.Context, p model.RawPosting) (model.SeenRecord, error) {
	if s.pool == nil {
		return model.SeenRecord{}, errors.New("database connection not available")
	}

	rec := model.SeenRecord{ID: p.ID, FirstSeen: s.now().UTC()}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.SeenRecord{}, fmt.Errorf("begin: %w", err)
	}

	tag, err := tx.Exec(ctx, insertSeen, rec.ID, rec.FirstSeen, p.URL, p.Title)
	if err != nil {
		_ = tx.Rollback(ctx)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.SeenRecord{}, ErrDuplicate
		}
		return model.SeenRecord{}, fmt.Errorf("insert seen posting: %w", err)
	}

	if tag.RowsAffected() == 0 {
		_ = tx.Rollback(ctx)
		return model.SeenRecord{}, ErrDuplicate
	}

	if err := tx.Commit(ctx); err != nil {
		return model.SeenRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// Close releases the pool
func (s *Postgres) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
