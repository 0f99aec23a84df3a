// Package config loads roomwatch settings from file, environment and
// flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ppiankov/roomwatch/internal/condition"
	"github.com/ppiankov/roomwatch/internal/model"
	"github.com/ppiankov/roomwatch/internal/notify"
	"github.com/ppiankov/roomwatch/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. ROOMWATCH_SLACK_TOKEN
const EnvPrefix = "ROOMWATCH"

// Config is the complete runtime configuration
type Config struct {
	Site     string        `yaml:"site" mapstructure:"site"`
	Category string        `yaml:"category" mapstructure:"category"`
	Source   string        `yaml:"source" mapstructure:"source"` // html or rss
	Areas    []Area        `yaml:"areas" mapstructure:"areas"`
	Limit    int           `yaml:"limit" mapstructure:"limit"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	Geotag   bool          `yaml:"require_geotag" mapstructure:"require_geotag"` // look up geotags

	Boxes         []model.AreaBox        `yaml:"boxes" mapstructure:"boxes"`
	Stations      []model.TransitStation `yaml:"stations" mapstructure:"stations"`
	MaxTransitKm  float64                `yaml:"max_transit_km" mapstructure:"max_transit_km"`
	Neighborhoods []string               `yaml:"neighborhoods" mapstructure:"neighborhoods"`

	Conditions []condition.Spec `yaml:"conditions" mapstructure:"conditions"`

	Store   store.Config        `yaml:"store" mapstructure:"store"`
	Geocode GeocodeConfig       `yaml:"geocode" mapstructure:"geocode"`
	Slack   notify.SlackConfig  `yaml:"slack" mapstructure:"slack"`
	HTTP    HTTPConfig          `yaml:"http" mapstructure:"http"`
	LLM     condition.LLMConfig `yaml:"llm" mapstructure:"llm"`
	Metrics MetricsConfig       `yaml:"metrics" mapstructure:"metrics"`
	Log     LogConfig           `yaml:"log" mapstructure:"log"`
}

// Area is one search area with its price filters
type Area struct {
	Name     string  `yaml:"name" mapstructure:"name"`
	MinPrice float64 `yaml:"min_price,omitempty" mapstructure:"min_price"`
	MaxPrice float64 `yaml:"max_price,omitempty" mapstructure:"max_price"`
}

// GeocodeConfig configures the maps client and its cache
type GeocodeConfig struct {
	APIKey     string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL    string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RetryCount int           `yaml:"retry_count" mapstructure:"retry_count"`
	Rate       float64       `yaml:"rate" mapstructure:"rate"` // requests per second
	Burst      int           `yaml:"burst" mapstructure:"burst"`
	CacheTTL   time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	CacheDir   string        `yaml:"cache_dir,omitempty" mapstructure:"cache_dir"`
}

// HTTPConfig configures listing fetches
type HTTPConfig struct {
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	Rate          float64       `yaml:"rate" mapstructure:"rate"`
	Burst         int           `yaml:"burst" mapstructure:"burst"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns a configuration for Seattle rooms with conservative
// defaults
func Default() Config {
	return Config{
		Site:     "seattle",
		Category: "roo",
		Source:   "html",
		Areas:    []Area{{Name: "see", MinPrice: 400, MaxPrice: 800}},
		Limit:    20,
		Interval: 20 * time.Minute,
		Geotag:   true,

		MaxTransitKm: 2,
		Conditions:   []condition.Spec{{Type: "located"}},

		Store: store.Config{Driver: "memory"},
		Geocode: GeocodeConfig{
			Timeout:    10 * time.Second,
			RetryCount: 2,
			Rate:       10,
			Burst:      5,
			CacheTTL:   30 * 24 * time.Hour,
		},
		Slack: notify.SlackConfig{
			Channel:   "housing",
			Username:  "pybot",
			IconEmoji: ":robot_face:",
			Timeout:   10 * time.Second,
		},
		HTTP: HTTPConfig{
			UserAgent:     "roomwatch/0.1",
			Timeout:       30 * time.Second,
			MaxBodyBytes:  4 << 20,
			RespectRobots: true,
			Rate:          0.5,
			Burst:         1,
		},
		LLM: condition.LLMConfig{Timeout: 30 * time.Second},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// DefaultDir is ~/.roomwatch
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".roomwatch"), nil
}

// SetDefaults registers scalar defaults and environment bindings on v so
// ROOMWATCH_* variables override nested keys
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("site", d.Site)
	v.SetDefault("category", d.Category)
	v.SetDefault("source", d.Source)
	v.SetDefault("limit", d.Limit)
	v.SetDefault("interval", d.Interval)
	v.SetDefault("require_geotag", d.Geotag)
	v.SetDefault("max_transit_km", d.MaxTransitKm)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.redis_url", "")
	v.SetDefault("store.key_prefix", "")

	v.SetDefault("geocode.api_key", "")
	v.SetDefault("geocode.base_url", "")
	v.SetDefault("geocode.timeout", d.Geocode.Timeout)
	v.SetDefault("geocode.retry_count", d.Geocode.RetryCount)
	v.SetDefault("geocode.rate", d.Geocode.Rate)
	v.SetDefault("geocode.burst", d.Geocode.Burst)
	v.SetDefault("geocode.cache_ttl", d.Geocode.CacheTTL)
	v.SetDefault("geocode.cache_dir", "")

	v.SetDefault("slack.token", "")
	v.SetDefault("slack.webhook_url", "")
	v.SetDefault("slack.channel", d.Slack.Channel)
	v.SetDefault("slack.username", d.Slack.Username)
	v.SetDefault("slack.icon_emoji", d.Slack.IconEmoji)
	v.SetDefault("slack.timeout", d.Slack.Timeout)

	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.max_body_bytes", d.HTTP.MaxBodyBytes)
	v.SetDefault("http.respect_robots", d.HTTP.RespectRobots)
	v.SetDefault("http.rate", d.HTTP.Rate)
	v.SetDefault("http.burst", d.HTTP.Burst)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.timeout", d.LLM.Timeout)

	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// well-known variables used by the upstream SDKs
	_ = v.BindEnv("geocode.api_key", EnvPrefix+"_GEOCODE_API_KEY", "GOOGLE_MAPS_API_KEY")
	_ = v.BindEnv("slack.token", EnvPrefix+"_SLACK_TOKEN", "SLACK_TOKEN")
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("store.dsn", EnvPrefix+"_STORE_DSN", "DATABASE_URL")
}

// LoadDotEnv loads .env files into the environment. Missing files are
// ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load unmarshals v on top of Default and validates the result. Lists
// from the config file replace the defaults.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	// decoding into a non-empty slice merges element by element
	for key, reset := range map[string]func(){
		"areas":         func() { cfg.Areas = nil },
		"conditions":    func() { cfg.Conditions = nil },
		"boxes":         func() { cfg.Boxes = nil },
		"stations":      func() { cfg.Stations = nil },
		"neighborhoods": func() { cfg.Neighborhoods = nil },
	} {
		if v.IsSet(key) {
			reset()
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work
func (c Config) Validate() error {
	if c.Site == "" {
		return errors.New("site is required")
	}
	if c.Category == "" {
		return errors.New("category is required")
	}
	if len(c.Areas) == 0 {
		return errors.New("at least one search area is required")
	}
	for i, a := range c.Areas {
		if a.Name == "" {
			return fmt.Errorf("areas[%d]: name is required", i)
		}
		if a.MinPrice < 0 || a.MaxPrice < 0 {
			return fmt.Errorf("areas[%d]: prices must not be negative", i)
		}
		if a.MaxPrice > 0 && a.MinPrice > a.MaxPrice {
			return fmt.Errorf("areas[%d]: min_price exceeds max_price", i)
		}
	}
	if c.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if c.MaxTransitKm < 0 {
		return errors.New("max_transit_km must not be negative")
	}
	for i, b := range c.Boxes {
		if b.Name == "" {
			return fmt.Errorf("boxes[%d]: name is required", i)
		}
	}
	for i, s := range c.Stations {
		if s.Name == "" {
			return fmt.Errorf("stations[%d]: name is required", i)
		}
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.Geocode.APIKey = mask(c.Geocode.APIKey)
	c.Slack.Token = mask(c.Slack.Token)
	c.Slack.WebhookURL = mask(c.Slack.WebhookURL)
	c.LLM.APIKey = mask(c.LLM.APIKey)
	c.Store.DSN = mask(c.Store.DSN)
	c.Store.RedisURL = mask(c.Store.RedisURL)
	return c
}
