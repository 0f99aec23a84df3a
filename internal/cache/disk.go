package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ppiankov/roomwatch/internal/model"
)

// Disk persists coordinates in a single JSON file so geocodes survive
// restarts. The file is loaded lazily and rewritten on every Set.
type Disk struct {
	path string
	ttl  time.Duration

	mu      sync.Mutex
	loaded  bool
	entries map[string]diskEntry
}

type diskEntry struct {
	Coord     model.Coordinate `json:"coord"`
	ExpiresAt time.Time        `json:"expires_at,omitempty"`
}

// NewDisk creates a disk cache stored at dir/geocode.json.
// ttl <= 0 keeps entries forever.
func NewDisk(dir string, ttl time.Duration) *Disk {
	return &Disk{
		path: filepath.Join(dir, "geocode.json"),
		ttl:  ttl,
	}
}

// Get returns the cached coordinate for key, dropping it when expired
func (d *Disk) Get(key string) (model.Coordinate, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.load(); err != nil {
		return model.Coordinate{}, false
	}

	e, ok := d.entries[key]
	if !ok {
		return model.Coordinate{}, false
	}
	if !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt) {
		delete(d.entries, key)
		return model.Coordinate{}, false
	}
	return e.Coord, true
}

// Set stores c under key and flushes the file
func (d *Disk) Set(key string, c model.Coordinate) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.load(); err != nil {
		return err
	}

	e := diskEntry{Coord: c}
	if d.ttl > 0 {
		e.ExpiresAt = time.Now().Add(d.ttl)
	}
	d.entries[key] = e

	return d.flush()
}

// Clear removes the cache file
func (d *Disk) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries = make(map[string]diskEntry)
	d.loaded = true
	if err := os.Remove(d.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

func (d *Disk) load() error {
	if d.loaded {
		return nil
	}

	d.entries = make(map[string]diskEntry)
	data, err := os.ReadFile(d.path)
	if errors.Is(err, os.ErrNotExist) {
		d.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cache file: %w", err)
	}

	if err := json.Unmarshal(data, &d.entries); err != nil {
		// A corrupt cache is only a cache; start over
		d.entries = make(map[string]diskEntry)
	}
	d.loaded = true
	return nil
}

func (d *Disk) flush() error {
	data, err := json.Marshal(d.entries)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}
