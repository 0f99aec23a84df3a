package cache

import "github.com/ppiankov/roomwatch/internal/model"

// Layered checks memory first and falls back to disk, promoting disk hits
type Layered struct {
	memory Coordinates
	disk   Coordinates
}

// NewLayered combines a fast and a persistent cache
func NewLayered(memory, disk Coordinates) *Layered {
	return &Layered{memory: memory, disk: disk}
}

// Get returns the coordinate from the first layer that has it
func (l *Layered) Get(key string) (model.Coordinate, bool) {
	if c, ok := l.memory.Get(key); ok {
		return c, true
	}

	if c, ok := l.disk.Get(key); ok {
		_ = l.memory.Set(key, c)
		return c, true
	}

	return model.Coordinate{}, false
}

// Set writes through to both layers
func (l *Layered) Set(key string, c model.Coordinate) error {
	if err := l.memory.Set(key, c); err != nil {
		return err
	}
	return l.disk.Set(key, c)
}

// Clear empties both layers
func (l *Layered) Clear() error {
	_ = l.memory.Clear()
	return l.disk.Clear()
}
