package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ppiankov/roomwatch/internal/model"
)

// DefaultKeyPrefix namespaces seen-posting keys
const DefaultKeyPrefix = "roomwatch:seen:"

// Redis records seen postings as keys written with SETNX, which gives the
// same exactly-one-winner guarantee as a unique index
type Redis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// OpenRedis connects to redisURL and verifies the connection
func OpenRedis(ctx context.Context, redisURL, prefix string) (*Redis, error) {
	if redisURL == "" {
		return nil, errors.New("redis url is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return NewRedis(client, prefix), nil
}

// NewRedis wraps an existing client
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix, now: time.Now}
}

// HasSeen reports whether id's key exists
func (s *Redis) HasSeen(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("check seen posting: %w", err)
	}
	return n > 0, nil
}

// Record sets id's key to the first-seen time unless it already exists
func (s *Redis) Record(ctx context.Context, p model.RawPosting) (model.SeenRecord, error) {
	rec := model.SeenRecord{ID: p.ID, FirstSeen: s.now().UTC()}

	ok, err := s.client.SetNX(ctx, s.key(p.ID), rec.FirstSeen.Format(time.RFC3339Nano), 0).Result()
	if err != nil {
		return model.SeenRecord{}, fmt.Errorf("record seen posting: %w", err)
	}
	if !ok {
		return model.SeenRecord{}, ErrDuplicate
	}
	return rec, nil
}

// Close closes the client
func (s *Redis) Close() error {
	return s.client.Close()
}

func (s *Redis) key(id string) string {
	return s.prefix + id
}
