// Package store remembers which postings have already been consumed.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/roomwatch/internal/model"
)

// ErrDuplicate is returned by Record when the identifier is already stored
var ErrDuplicate = errors.New("posting already recorded")

// Store is an append-only set of consumed posting identifiers.
//
// Record is the authority on "first time seen": when two callers record
// the same identifier concurrently exactly one succeeds and the other
// gets ErrDuplicate. HasSeen is advisory.
type Store interface {
	HasSeen(ctx context.Context, id string) (bool, error)
	Record(ctx context.Context, p model.RawPosting) (model.SeenRecord, error)
	Close() error
}

// IsDuplicate reports whether err means the posting was already recorded
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// Config selects and configures a backend
type Config struct {
	Driver    string `yaml:"driver" mapstructure:"driver"`         // memory, postgres, redis
	DSN       string `yaml:"dsn" mapstructure:"dsn"`               // postgres connection string
	RedisURL  string `yaml:"redis_url" mapstructure:"redis_url"`   // redis://host:port/db
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"` // redis key prefix
}

// Open creates the configured backend
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return NewMemory(), nil

	case "postgres", "postgresql", "pg":
		s, err := OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil

	case "redis":
		s, err := OpenRedis(ctx, cfg.RedisURL, cfg.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown store driver: %s (supported: memory, postgres, redis)", cfg.Driver)
	}
}
