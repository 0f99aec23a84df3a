package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/roomwatch/internal/model"
)

var posting = model.RawPosting{ID: "cl-42", Title: "Sunny room", URL: "https://seattle.craigslist.org/see/roo/cl-42.html"}

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, IsDuplicate(ErrDuplicate))
	assert.True(t, IsDuplicate(errors.Join(errors.New("ctx"), ErrDuplicate)))
	assert.False(t, IsDuplicate(errors.New("boom")))
	assert.False(t, IsDuplicate(nil))
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), Config{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "sqlite"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestOpen_MissingSettings(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "postgres"})
	assert.Error(t, err)

	_, err = Open(context.Background(), Config{Driver: "redis"})
	assert.Error(t, err)
}

func TestMemory_RecordOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	s.now = fixedNow

	seen, err := s.HasSeen(ctx, posting.ID)
	require.NoError(t, err)
	assert.False(t, seen)

	rec, err := s.Record(ctx, posting)
	require.NoError(t, err)
	assert.Equal(t, model.SeenRecord{ID: "cl-42", FirstSeen: fixedNow()}, rec)

	_, err = s.Record(ctx, posting)
	assert.ErrorIs(t, err, ErrDuplicate)

	seen, err = s.HasSeen(ctx, posting.ID)
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, 1, s.Len())
}

func TestMemory_ConcurrentRecordHasOneWinner(t *testing.T) {
	s := NewMemory()

	var wins, dups atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Record(context.Background(), posting)
			switch {
			case err == nil:
				wins.Add(1)
			case IsDuplicate(err):
				dups.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(15), dups.Load())
}

func newMockPostgres(t *testing.T) (pgxmock.PgxPoolIface, *Postgres) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s := NewPostgres(mock)
	s.now = fixedNow
	return mock, s
}

func TestPostgres_RecordInserts(t *testing.T) {
	mock, s := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO seen_postings`).
		WithArgs("cl-42", fixedNow(), posting.URL, posting.Title).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	rec, err := s.Record(context.Background(), posting)
	require.NoError(t, err)
	assert.Equal(t, "cl-42", rec.ID)
	assert.Equal(t, fixedNow(), rec.FirstSeen)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordConflictIsDuplicate(t *testing.T) {
	mock, s := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO seen_postings`).
		WithArgs("cl-42", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectRollback()

	_, err := s.Record(context.Background(), posting)
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordUniqueViolationIsDuplicate(t *testing.T) {
	mock, s := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO seen_postings`).
		WithArgs("cl-42", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	_, err := s.Record(context.Background(), posting)
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordOtherErrorsSurface(t *testing.T) {
	mock, s := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO seen_postings`).
		WithArgs("cl-42", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := s.Record(context.Background(), posting)
	require.Error(t, err)
	assert.False(t, IsDuplicate(err))
	assert.Contains(t, err.Error(), "connection reset")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_HasSeen(t *testing.T) {
	mock, s := newMockPostgres(t)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM seen_postings WHERE posting_id = \$1\)`).
		WithArgs("cl-42").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	seen, err := s.HasSeen(context.Background(), "cl-42")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_EnsureSchema(t *testing.T) {
	mock, s := newMockPostgres(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS seen_postings`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_NilPool(t *testing.T) {
	s := &Postgres{now: fixedNow}

	_, err := s.Record(context.Background(), posting)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection not available")

	_, err = s.HasSeen(context.Background(), "cl-42")
	assert.Error(t, err)
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s := NewRedis(client, "")
	s.now = fixedNow
	t.Cleanup(func() { _ = s.Close() })
	return mr, s
}

func TestRedis_RecordOnce(t *testing.T) {
	ctx := context.Background()
	mr, s := newMiniRedis(t)

	seen, err := s.HasSeen(ctx, "cl-42")
	require.NoError(t, err)
	assert.False(t, seen)

	rec, err := s.Record(ctx, posting)
	require.NoError(t, err)
	assert.Equal(t, fixedNow(), rec.FirstSeen)

	got, err := mr.Get(DefaultKeyPrefix + "cl-42")
	require.NoError(t, err)
	assert.Equal(t, fixedNow().Format(time.RFC3339Nano), got)

	_, err = s.Record(ctx, posting)
	assert.ErrorIs(t, err, ErrDuplicate)

	seen, err = s.HasSeen(ctx, "cl-42")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestRedis_ServerDown(t *testing.T) {
	mr, s := newMiniRedis(t)
	mr.Close()

	_, err := s.Record(context.Background(), posting)
	require.Error(t, err)
	assert.False(t, IsDuplicate(err))
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := OpenRedis(context.Background(), "redis://"+mr.Addr()+"/0", "test:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Record(context.Background(), posting)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:cl-42"))
}
