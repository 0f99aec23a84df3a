package listing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/ppiankov/roomwatch/internal/model"
	"github.com/ppiankov/roomwatch/internal/ratelimit"
)

var (
	titlePricePattern = regexp.MustCompile(`\s*\$\s*([\d,]+)\s*$`)
	titleHoodPattern  = regexp.MustCompile(`\s*\(([^()]*)\)\s*$`)
)

// Feed reads the RSS rendition of the search results. Titles carry the
// neighborhood and price, e.g. "Sunny room (Capitol Hill) $750".
type Feed struct {
	cfg    Config
	fetch  *fetcher
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewFeed creates an RSS search source
func NewFeed(cfg Config, limiter *ratelimit.Hosts, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		cfg:    cfg,
		fetch:  newFetcher(cfg, limiter, logger),
		parser: gofeed.NewParser(),
		logger: logger,
	}
}

// Recent returns up to q.Limit postings, newest first
func (f *Feed) Recent(ctx context.Context, q Query) ([]model.RawPosting, error) {
	feedURL, err := SearchURL(f.cfg, q, "rss")
	if err != nil {
		return nil, err
	}

	body, err := f.fetch.get(ctx, feedURL, "application/rss+xml, application/rdf+xml, application/xml, text/xml")
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", q.Area, err)
	}

	feed, err := f.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var postings []model.RawPosting
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		p := itemPosting(item)
		if p.ID == "" {
			f.logger.Debug("skipping feed item without id", "link", item.Link)
			continue
		}
		postings = append(postings, p)
		if len(postings) >= q.limit() {
			break
		}
	}
	return postings, nil
}

func itemPosting(item *gofeed.Item) model.RawPosting {
	title, hood, price := splitTitle(item.Title)
	p := model.RawPosting{
		Title: title,
		Price: price,
		Where: hood,
		URL:   item.Link,
	}

	p.ID = idFromURL(item.Link)
	if p.ID == "" {
		p.ID = idFromURL(item.GUID)
	}

	switch {
	case item.PublishedParsed != nil:
		p.Posted = item.PublishedParsed.UTC().Format(time.RFC3339)
	case item.UpdatedParsed != nil:
		p.Posted = item.UpdatedParsed.UTC().Format(time.RFC3339)
	case item.DublinCoreExt != nil && len(item.DublinCoreExt.Date) > 0:
		p.Posted = item.DublinCoreExt.Date[0]
	}

	p.Geotag = extensionCoordinate(item)
	return p
}

// splitTitle peels the trailing price and neighborhood off a feed title
func splitTitle(raw string) (title, hood, price string) {
	title = strings.TrimSpace(strings.ReplaceAll(raw, "&#x0024;", "$"))
	if m := titlePricePattern.FindStringSubmatchIndex(title); m != nil {
		price = "$" + title[m[2]:m[3]]
		title = title[:m[0]]
	}
	if m := titleHoodPattern.FindStringSubmatchIndex(title); m != nil {
		hood = strings.TrimSpace(title[m[2]:m[3]])
		title = title[:m[0]]
	}
	return strings.TrimSpace(title), hood, price
}

// extensionCoordinate reads geo:lat / geo:long when the feed carries them
func extensionCoordinate(item *gofeed.Item) *model.Coordinate {
	geo, ok := item.Extensions["geo"]
	if !ok {
		return nil
	}
	lat, ok := firstExtension(geo, "lat")
	if !ok {
		return nil
	}
	lon, ok := firstExtension(geo, "long")
	if !ok {
		return nil
	}
	return &model.Coordinate{Lat: lat, Lon: lon}
}

func firstExtension(ns map[string][]ext.Extension, name string) (float64, bool) {
	values := ns[name]
	if len(values) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(values[0].Value), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
