package listing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ppiankov/roomwatch/internal/ratelimit"
)

// fetcher downloads search and posting pages politely: per-host rate
// limiting, optional robots.txt checks and a body size cap
type fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *ratelimit.Hosts
	robots     *Robots
	logger     *slog.Logger
}

func newFetcher(cfg Config, limiter *ratelimit.Hosts, logger *slog.Logger) *fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "roomwatch/0.1"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 4 << 20
	}
	if limiter == nil {
		limiter = ratelimit.NewHosts(0, 0)
	}
	if logger == nil {
		logger = slog.Default()
	}

	f := &fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
		limiter:   limiter,
		logger:    logger,
	}
	if cfg.RespectRobots {
		f.robots = NewRobots(cfg.UserAgent, cfg.Timeout)
	}
	return f
}

// get returns the body of rawURL
func (f *fetcher) get(ctx context.Context, rawURL string, accept string) ([]byte, error) {
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		if delay > 0 {
			if u, err := url.Parse(rawURL); err == nil {
				f.limiter.SlowDown(u.Host, delay)
			}
		}
	}

	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
