package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppiankov/roomwatch/internal/cache"
	"github.com/ppiankov/roomwatch/internal/condition"
	"github.com/ppiankov/roomwatch/internal/config"
	"github.com/ppiankov/roomwatch/internal/geo"
	"github.com/ppiankov/roomwatch/internal/geocode"
	"github.com/ppiankov/roomwatch/internal/listing"
	"github.com/ppiankov/roomwatch/internal/metrics"
	"github.com/ppiankov/roomwatch/internal/notify"
	"github.com/ppiankov/roomwatch/internal/pipeline"
	"github.com/ppiankov/roomwatch/internal/ratelimit"
	"github.com/ppiankov/roomwatch/internal/store"
)

// app holds the components built from configuration
type app struct {
	pipeline *pipeline.Pipeline
	store    store.Store
	registry *prometheus.Registry
}

func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// newMaps builds the maps client and the cached geocoder in front of it
func newMaps(cfg config.Config, logger *slog.Logger) (*geocode.Client, geo.Geocoder, error) {
	limiter := ratelimit.NewHosts(cfg.Geocode.Rate, cfg.Geocode.Burst)
	client := geocode.NewClient(geocode.Config{
		APIKey:     cfg.Geocode.APIKey,
		BaseURL:    cfg.Geocode.BaseURL,
		Timeout:    cfg.Geocode.Timeout,
		RetryCount: cfg.Geocode.RetryCount,
	}, limiter, logger)

	if cfg.Geocode.APIKey == "" {
		logger.Warn("no geocode.api_key configured; postings without a geotag stay unresolved")
	}

	dir := cfg.Geocode.CacheDir
	if dir == "" {
		base, err := config.DefaultDir()
		if err != nil {
			return nil, nil, err
		}
		dir = filepath.Join(base, "cache")
	}

	layered := cache.NewLayered(cache.NewMemory(cfg.Geocode.CacheTTL), cache.NewDisk(dir, cfg.Geocode.CacheTTL))
	return client, geocode.NewCached(client, layered, logger), nil
}

func newEnricher(cfg config.Config, geocoder geo.Geocoder, logger *slog.Logger) *geo.Enricher {
	return geo.NewEnricher(geocoder, geo.Reference{
		Boxes:         cfg.Boxes,
		Stations:      cfg.Stations,
		MaxTransitKm:  cfg.MaxTransitKm,
		Neighborhoods: cfg.Neighborhoods,
	}, logger)
}

func newConditions(cfg config.Config, travel condition.TravelTimer, logger *slog.Logger) *condition.Set {
	set := condition.NewSet(condition.Deps{Travel: travel, LLM: cfg.LLM}, logger)
	for _, spec := range cfg.Conditions {
		set.AddSpec(spec)
	}
	logger.Debug("conditions registered", "conditions", set.Names())
	return set
}

func newSource(cfg config.Config, logger *slog.Logger) (listing.Source, error) {
	return listing.NewFromConfig(listing.Config{
		Kind:          cfg.Source,
		Site:          cfg.Site,
		Category:      cfg.Category,
		UserAgent:     cfg.HTTP.UserAgent,
		Timeout:       cfg.HTTP.Timeout,
		MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
		RespectRobots: cfg.HTTP.RespectRobots,
	}, ratelimit.NewHosts(cfg.HTTP.Rate, cfg.HTTP.Burst), logger)
}

// newSender returns the Slack sender, or a stdout writer for dry runs and
// when Slack is not configured
func newSender(cfg config.Config, dryRun bool, out io.Writer, logger *slog.Logger) (notify.Sender, error) {
	if dryRun || !cfg.Slack.Enabled() {
		if !dryRun {
			logger.Warn("slack is not configured; printing notifications to stdout")
		}
		return notify.NewWriter(out, logger), nil
	}
	return notify.NewSlack(cfg.Slack)
}

func queries(cfg config.Config) []listing.Query {
	qs := make([]listing.Query, 0, len(cfg.Areas))
	for _, a := range cfg.Areas {
		qs = append(qs, listing.Query{
			Area:      a.Name,
			Limit:     cfg.Limit,
			Sort:      "newest",
			Geotagged: cfg.Geotag,
			MinPrice:  a.MinPrice,
			MaxPrice:  a.MaxPrice,
		})
	}
	return qs
}

// buildApp wires every component of a poll cycle
func buildApp(ctx context.Context, cfg config.Config, dryRun bool, out io.Writer, logger *slog.Logger) (*app, error) {
	source, err := newSource(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("listing source: %w", err)
	}

	maps, geocoder, err := newMaps(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("geocoder: %w", err)
	}

	sender, err := newSender(cfg, dryRun, out, logger)
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	p := pipeline.New(pipeline.Deps{
		Source:   source,
		Store:    st,
		Enricher: newEnricher(cfg, geocoder, logger),
		Filter:   newConditions(cfg, maps, logger),
		Sender:   sender,
		Metrics:  metrics.New(registry),
		Logger:   logger,
	}, queries(cfg), cfg.Slack.Channel)

	return &app{pipeline: p, store: st, registry: registry}, nil
}
