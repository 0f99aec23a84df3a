// Package condition decides which enriched postings are worth a
// notification.
package condition

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ppiankov/roomwatch/internal/model"
)

// Condition accepts or rejects a single posting
type Condition interface {
	Name() string
	Check(ctx context.Context, p model.EnrichedPosting) bool
}

// Spec describes a condition in configuration. Only the fields relevant
// to Type are read.
type Spec struct {
	Type string `yaml:"type" mapstructure:"type"`

	// price
	MinPrice      float64 `yaml:"min_price,omitempty" mapstructure:"min_price"`
	MaxPrice      float64 `yaml:"max_price,omitempty" mapstructure:"max_price"`
	RejectUnknown bool    `yaml:"reject_unknown,omitempty" mapstructure:"reject_unknown"`

	// area
	Areas []string `yaml:"areas,omitempty" mapstructure:"areas"`

	// transit
	MaxKm float64 `yaml:"max_km,omitempty" mapstructure:"max_km"`

	// keyword
	Words []string `yaml:"words,omitempty" mapstructure:"words"`

	// commute
	Destination *model.Coordinate `yaml:"destination,omitempty" mapstructure:"destination"`
	Mode        string            `yaml:"mode,omitempty" mapstructure:"mode"`
	MaxMinutes  float64           `yaml:"max_minutes,omitempty" mapstructure:"max_minutes"`

	// prompt
	Prompt string `yaml:"prompt,omitempty" mapstructure:"prompt"`
}

// Deps are the collaborators some condition types need
type Deps struct {
	Travel TravelTimer
	LLM    LLMConfig
}

// Set is an ordered conjunction of conditions
type Set struct {
	conditions []Condition
	deps       Deps
	logger     *slog.Logger
}

// NewSet creates an empty set. An empty set accepts everything.
func NewSet(deps Deps, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	return &Set{deps: deps, logger: logger}
}

// Add appends c. A nil condition is ignored with a warning.
func (s *Set) Add(c Condition) {
	if c == nil {
		s.logger.Warn("ignoring nil condition")
		return
	}
	s.conditions = append(s.conditions, c)
}

// AddSpec builds a condition from configuration and appends it. Unknown
// types and unusable settings are ignored with a warning.
func (s *Set) AddSpec(spec Spec) {
	c, err := s.build(spec)
	if err != nil {
		s.logger.Warn("ignoring condition", "type", spec.Type, "error", err)
		return
	}
	s.Add(c)
}

// Evaluate reports whether every condition accepts p. Conditions run in
// registration order and evaluation stops at the first rejection.
func (s *Set) Evaluate(ctx context.Context, p model.EnrichedPosting) bool {
	for _, c := range s.conditions {
		if !c.Check(ctx, p) {
			s.logger.Debug("posting rejected", "posting_id", p.ID, "condition", c.Name())
			return false
		}
	}
	return true
}

// Len returns the number of registered conditions
func (s *Set) Len() int {
	return len(s.conditions)
}

// Names lists the registered conditions in order
func (s *Set) Names() []string {
	names := make([]string, len(s.conditions))
	for i, c := range s.conditions {
		names[i] = c.Name()
	}
	return names
}

func (s *Set) build(spec Spec) (Condition, error) {
	var (
		c   Condition
		err error
	)
	switch strings.ToLower(strings.TrimSpace(spec.Type)) {
	case "located":
		c = Located{}
	case "price":
		c, err = NewPrice(spec.MinPrice, spec.MaxPrice, spec.RejectUnknown)
	case "area":
		c, err = NewArea(spec.Areas)
	case "transit":
		c = NewTransit(spec.MaxKm)
	case "keyword":
		c, err = NewKeyword(spec.Words)
	case "commute":
		c, err = NewCommute(s.deps.Travel, spec.Destination, spec.Mode, spec.MaxMinutes, s.logger)
	case "prompt":
		c, err = NewPrompt(s.deps.LLM, spec.Prompt, s.logger)
	default:
		err = errUnknownType(spec.Type)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

type errUnknownType string

func (e errUnknownType) Error() string {
	return "unknown condition type: " + string(e)
}
