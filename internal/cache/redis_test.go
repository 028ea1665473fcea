package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fleetlab/carsim/internal/models"
)

func TestNew_DisabledWithoutURL(t *testing.T) {
	c := New("")
	if c != nil {
		t.Error("expected nil cache when no URL is configured")
	}
}

func TestNew_DisabledOnBadURL(t *testing.T) {
	c := New("not-a-redis-url")
	if c != nil {
		t.Error("expected nil cache for unparseable URL")
	}
}

// A nil cache must absorb every call so callers can stay branch-free.
func TestNilCache_SafeOperations(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	c.EmitSample(models.Position{CarID: "car-1"})
	c.Clear(ctx)
	c.Close()

	if _, ok := c.Latest(ctx, "car-1"); ok {
		t.Error("expected miss from nil cache")
	}
	if _, ok := c.LatestAll(ctx); ok {
		t.Error("expected LatestAll to report unavailable on nil cache")
	}
}

// Integration test (requires running Redis)
func TestCache_Integration(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping integration test")
		return
	}
	c := New(url)
	if c == nil {
		t.Skip("Redis unreachable, skipping integration test")
		return
	}
	defer c.Close()

	ctx := context.Background()
	c.Clear(ctx)

	pos := models.Position{
		CarID:     "integration-car",
		Lng:       -7.5898,
		Lat:       33.5731,
		Heading:   45,
		Progress:  50,
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}
	c.EmitSample(pos)

	got, ok := c.Latest(ctx, "integration-car")
	if !ok {
		t.Fatal("expected cached position after emit")
	}
	if got.CarID != pos.CarID || got.Lng != pos.Lng || got.Lat != pos.Lat {
		t.Errorf("cached position mismatch: got %+v, want %+v", got, pos)
	}

	all, ok := c.LatestAll(ctx)
	if !ok || len(all) == 0 {
		t.Error("expected at least one position from LatestAll")
	}

	c.Clear(ctx)
	if _, ok := c.Latest(ctx, "integration-car"); ok {
		t.Error("expected miss after Clear")
	}
}
