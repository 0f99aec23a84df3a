package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestHosts_BurstPerHost(t *testing.T) {
	h := NewHosts(1, 1)

	if !h.Allow("https://seattle.craigslist.org/search/see/roo") {
		t.Fatal("first request should pass")
	}
	if h.Allow("https://seattle.craigslist.org/search/see/apa") {
		t.Error("second request to the same host should be throttled")
	}
	if !h.Allow("https://maps.googleapis.com/maps/api/geocode/json") {
		t.Error("a different host has its own bucket")
	}
}

func TestHosts_Unlimited(t *testing.T) {
	h := NewHosts(0, 0)
	for i := 0; i < 50; i++ {
		if !h.Allow("https://example.com/") {
			t.Fatalf("request %d throttled with rate limiting disabled", i)
		}
	}
}

func TestHosts_Wait(t *testing.T) {
	h := NewHosts(100, 1)
	ctx := context.Background()

	if err := h.Wait(ctx, "https://example.com/a"); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if err := h.Wait(ctx, "https://example.com/b"); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
}

func TestHosts_WaitCancelled(t *testing.T) {
	h := NewHosts(0.01, 1)
	_ = h.Allow("https://example.com/")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := h.Wait(ctx, "https://example.com/"); err == nil {
		t.Error("expected wait to fail once the context ends")
	}
}

func TestHosts_BadURL(t *testing.T) {
	h := NewHosts(1, 1)
	if err := h.Wait(context.Background(), "::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
	if h.Allow("/relative/path") {
		t.Error("URL without host should not be allowed")
	}
}

func TestHosts_SlowDown(t *testing.T) {
	h := NewHosts(10, 1)
	h.SlowDown("slow.example", time.Hour)

	if !h.Allow("https://slow.example/") {
		t.Fatal("first request should pass")
	}
	if h.Allow("https://slow.example/") {
		t.Error("second request should wait for the crawl delay")
	}
	if got := h.limiter("slow.example").Limit(); got > 1 {
		t.Errorf("expected slowed limit, got %v", got)
	}

	// Never speeds up
	h.SlowDown("slow.example", time.Millisecond)
	if got := h.limiter("slow.example").Limit(); got > 1 {
		t.Errorf("SlowDown raised the limit to %v", got)
	}
}
