// Package cache keeps geocoding results so repeated location fragments do
// not hit the maps API every polling cycle.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/ppiankov/roomwatch/internal/model"
)

// Coordinates stores resolved coordinates by lookup text
type Coordinates interface {
	Get(key string) (model.Coordinate, bool)
	Set(key string, c model.Coordinate) error
	Clear() error
}

// Key normalizes lookup text into a cache key
func Key(text string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(norm))
	return "roomwatch:geocode:v1:" + hex.EncodeToString(sum[:])
}
