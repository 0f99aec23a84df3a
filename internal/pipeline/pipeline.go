// Package pipeline runs one poll cycle: fetch, deduplicate, enrich,
// filter and notify.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/ppiankov/roomwatch/internal/listing"
	"github.com/ppiankov/roomwatch/internal/metrics"
	"github.com/ppiankov/roomwatch/internal/model"
	"github.com/ppiankov/roomwatch/internal/notify"
	"github.com/ppiankov/roomwatch/internal/store"
)

// Enricher adds location context to a raw posting
type Enricher interface {
	Enrich(ctx context.Context, raw model.RawPosting) model.EnrichedPosting
}

// Filter accepts or rejects an enriched posting
type Filter interface {
	Evaluate(ctx context.Context, p model.EnrichedPosting) bool
}

// Deps are the collaborators of a Pipeline. Metrics and Logger are
// optional.
type Deps struct {
	Source   listing.Source
	Store    store.Store
	Enricher Enricher
	Filter   Filter
	Sender   notify.Sender
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// CycleStats summarizes one cycle
type CycleStats struct {
	Areas      int
	Fetched    int
	Duplicates int
	Skipped    int // malformed postings and store failures
	Accepted   int
	Sent       int
	Failed     int
	Duration   time.Duration
}

// Pipeline processes the configured search areas sequentially
type Pipeline struct {
	source   listing.Source
	store    store.Store
	enricher Enricher
	filter   Filter
	sender   notify.Sender
	metrics  *metrics.Metrics
	logger   *slog.Logger

	queries []listing.Query
	channel string
	now     func() time.Time
}

// New creates a pipeline polling queries and notifying channel
func New(deps Deps, queries []listing.Query, channel string) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:   deps.Source,
		store:    deps.Store,
		enricher: deps.Enricher,
		filter:   deps.Filter,
		sender:   deps.Sender,
		metrics:  deps.Metrics,
		logger:   logger,
		queries:  queries,
		channel:  channel,
		now:      time.Now,
	}
}

// Run fetches every area and returns the postings that are new and pass
// the filter, in area order. Per-area and per-posting failures are logged
// and skipped; the only error is ctx's, returned with whatever was
// accepted before cancellation.
func (p *Pipeline) Run(ctx context.Context) ([]model.EnrichedPosting, error) {
	var stats CycleStats
	return p.run(ctx, &stats)
}

func (p *Pipeline) run(ctx context.Context, stats *CycleStats) ([]model.EnrichedPosting, error) {
	var accepted []model.EnrichedPosting

	for _, q := range p.queries {
		if err := ctx.Err(); err != nil {
			return accepted, err
		}
		stats.Areas++

		// 1. Fetch the newest postings for the area
		raws, err := p.source.Recent(ctx, q)
		if err != nil {
			p.logger.Warn("fetch failed, skipping area", "area", q.Area, "error", err)
			continue
		}
		stats.Fetched += len(raws)
		p.metrics.Fetched(q.Area, len(raws))

		for _, raw := range raws {
			if err := ctx.Err(); err != nil {
				return accepted, err
			}
			if ep, ok := p.process(ctx, q.Area, raw, stats); ok {
				accepted = append(accepted, ep)
			}
		}
	}

	return accepted, nil
}

func (p *Pipeline) process(ctx context.Context, area string, raw model.RawPosting, stats *CycleStats) (model.EnrichedPosting, bool) {
	if raw.ID == "" {
		p.logger.Warn("posting without id, skipping", "area", area, "url", raw.URL)
		stats.Skipped++
		return model.EnrichedPosting{}, false
	}

	// 2. Record first: the store decides which caller sees the posting first
	if _, err := p.store.Record(ctx, raw); err != nil {
		if store.IsDuplicate(err) {
			stats.Duplicates++
			p.metrics.Duplicate(area)
			return model.EnrichedPosting{}, false
		}
		p.logger.Warn("could not record posting, skipping", "posting_id", raw.ID, "error", err)
		stats.Skipped++
		return model.EnrichedPosting{}, false
	}

	// 3. Parse price and time, degrading on failure
	price := model.ParsePrice(raw.Price)
	if price == model.NoPrice {
		p.logger.Warn("unparsable price", "posting_id", raw.ID, "price", raw.Price)
	}
	var postedAt time.Time
	if t, err := model.ParsePosted(raw.Posted); err != nil {
		p.logger.Warn("unparsable posting time", "posting_id", raw.ID, "posted", raw.Posted, "error", err)
	} else {
		postedAt = t
	}

	// 4. Enrich
	ep := p.enricher.Enrich(ctx, raw)
	ep.SearchArea = area
	ep.PriceValue = price
	ep.PostedAt = postedAt

	// 5. Filter
	if !p.filter.Evaluate(ctx, ep) {
		return model.EnrichedPosting{}, false
	}

	stats.Accepted++
	p.metrics.Accepted(area)
	return ep, true
}

// Notify formats and sends each posting. Failures are logged and do not
// stop the remaining sends.
func (p *Pipeline) Notify(ctx context.Context, postings []model.EnrichedPosting) (sent, failed int) {
	for _, ep := range postings {
		if ctx.Err() != nil {
			failed += len(postings) - sent - failed
			return sent, failed
		}
		if err := p.sender.Send(ctx, p.channel, notify.Format(ep)); err != nil {
			p.logger.Warn("notification failed", "posting_id", ep.ID, "error", err)
			p.metrics.Notification("failed")
			failed++
			continue
		}
		p.metrics.Notification("sent")
		sent++
	}
	return sent, failed
}

// Cycle runs one full poll: Run followed by Notify
func (p *Pipeline) Cycle(ctx context.Context) (CycleStats, error) {
	start := p.now()
	var stats CycleStats

	accepted, err := p.run(ctx, &stats)
	stats.Sent, stats.Failed = p.Notify(ctx, accepted)
	stats.Duration = p.now().Sub(start)
	if err != nil {
		return stats, err
	}

	p.metrics.CycleDone(stats.Duration)
	p.logger.Info("cycle finished",
		"areas", stats.Areas,
		"fetched", stats.Fetched,
		"duplicates", stats.Duplicates,
		"accepted", stats.Accepted,
		"sent", stats.Sent,
		"failed", stats.Failed,
		"duration", stats.Duration)
	return stats, nil
}
