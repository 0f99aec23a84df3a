package listing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ppiankov/roomwatch/internal/model"
	"github.com/ppiankov/roomwatch/internal/ratelimit"
)

var postingIDPattern = regexp.MustCompile(`(\d+)\.html`)

// Craigslist scrapes the HTML search results page
type Craigslist struct {
	cfg    Config
	fetch  *fetcher
	logger *slog.Logger
}

// NewCraigslist creates an HTML search source
func NewCraigslist(cfg Config, limiter *ratelimit.Hosts, logger *slog.Logger) *Craigslist {
	if logger == nil {
		logger = slog.Default()
	}
	return &Craigslist{
		cfg:    cfg,
		fetch:  newFetcher(cfg, limiter, logger),
		logger: logger,
	}
}

// Recent returns up to q.Limit postings, newest first
func (c *Craigslist) Recent(ctx context.Context, q Query) ([]model.RawPosting, error) {
	searchURL, err := SearchURL(c.cfg, q, "")
	if err != nil {
		return nil, err
	}

	body, err := c.fetch.get(ctx, searchURL, "text/html,application/xhtml+xml")
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", q.Area, err)
	}

	postings, err := ParseSearchPage(body, c.cfg.baseURL())
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}
	if len(postings) > q.limit() {
		postings = postings[:q.limit()]
	}

	if q.Geotagged {
		for i := range postings {
			if postings[i].HasGeotag() {
				continue
			}
			coord, err := c.geotag(ctx, postings[i].URL)
			if err != nil {
				c.logger.Warn("geotag lookup failed", "id", postings[i].ID, "error", err)
				continue
			}
			postings[i].Geotag = coord
		}
	}

	return postings, nil
}

func (c *Craigslist) geotag(ctx context.Context, postingURL string) (*model.Coordinate, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	body, err := c.fetch.get(ctx, postingURL, "text/html")
	if err != nil {
		return nil, err
	}
	return ParseGeotag(body)
}

// SearchURL builds the newest-first search URL for q. format is appended
// as the format parameter when set.
func SearchURL(cfg Config, q Query, format string) (string, error) {
	if q.Sort != "" && q.Sort != "newest" {
		return "", fmt.Errorf("unsupported sort order: %s", q.Sort)
	}

	path := "/search/" + url.PathEscape(cfg.Category)
	if q.Area != "" {
		path = "/search/" + url.PathEscape(q.Area) + "/" + url.PathEscape(cfg.Category)
	}

	params := url.Values{}
	params.Set("sort", "date")
	if q.MinPrice > 0 {
		params.Set("min_price", strconv.FormatFloat(q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice > 0 {
		params.Set("max_price", strconv.FormatFloat(q.MaxPrice, 'f', -1, 64))
	}
	if format != "" {
		params.Set("format", format)
	}

	return cfg.baseURL() + path + "?" + params.Encode(), nil
}

// ParseSearchPage extracts postings from a search results page. Both the
// result-row layout and the static results layout are understood.
func ParseSearchPage(body []byte, base string) ([]model.RawPosting, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	doc := goquery.NewDocumentFromNode(root)

	var postings []model.RawPosting
	doc.Find("li.result-row").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a.result-title").First()
		p := model.RawPosting{
			Title: strings.TrimSpace(link.Text()),
			URL:   absolute(base, link.AttrOr("href", "")),
			Price: strings.TrimSpace(row.Find(".result-price").First().Text()),
			Where: trimHood(row.Find(".result-hood").First().Text()),
		}
		p.ID = row.AttrOr("data-pid", "")
		if p.ID == "" {
			p.ID = idFromURL(p.URL)
		}
		if dt, ok := row.Find("time.result-date").First().Attr("datetime"); ok {
			p.Posted = dt
		}
		p.Geotag = attrCoordinate(row)
		if p.ID != "" {
			postings = append(postings, p)
		}
	})
	if len(postings) > 0 {
		return postings, nil
	}

	doc.Find("li.cl-static-search-result").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a").First()
		p := model.RawPosting{
			Title: strings.TrimSpace(row.Find(".title").First().Text()),
			URL:   absolute(base, link.AttrOr("href", "")),
			Price: strings.TrimSpace(row.Find(".price").First().Text()),
			Where: strings.TrimSpace(row.Find(".location").First().Text()),
		}
		if p.Title == "" {
			p.Title = row.AttrOr("title", "")
		}
		p.ID = idFromURL(p.URL)
		if p.ID != "" {
			postings = append(postings, p)
		}
	})

	return postings, nil
}

// ParseGeotag reads the map coordinates from a posting page
func ParseGeotag(body []byte) (*model.Coordinate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	coord := attrCoordinate(doc.Find("#map").First())
	if coord == nil {
		return nil, fmt.Errorf("posting has no map")
	}
	return coord, nil
}

func attrCoordinate(s *goquery.Selection) *model.Coordinate {
	latStr, ok := s.Attr("data-latitude")
	if !ok {
		return nil
	}
	lonStr, ok := s.Attr("data-longitude")
	if !ok {
		return nil
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return nil
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return nil
	}
	return &model.Coordinate{Lat: lat, Lon: lon}
}

// trimHood turns " (Capitol Hill)" into "Capitol Hill"
func trimHood(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	return strings.TrimSpace(s)
}

func idFromURL(u string) string {
	m := postingIDPattern.FindStringSubmatch(u)
	if m == nil {
		return ""
	}
	return m[1]
}

func absolute(base, href string) string {
	if href == "" {
		return ""
	}
	b, err := url.Parse(base + "/")
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}
