package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NoPrice marks a price that could not be parsed
const NoPrice = -1.0

// ErrNoTimestamp is returned by ParsePosted for an empty timestamp
var ErrNoTimestamp = errors.New("empty timestamp")

// postedLayouts are the timestamp shapes seen in search pages and feeds
var postedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// ParsePrice converts a currency-prefixed price such as "$1,250" to a
// number. Anything unparsable ("contact for price") yields NoPrice.
func ParsePrice(raw string) float64 {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return NoPrice
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return NoPrice
	}
	return v
}

// ParsePosted parses a posting timestamp in any of the known layouts
func ParsePosted(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrNoTimestamp
	}

	for _, layout := range postedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
