package cache_test

import (
	"testing"
	"time"

	"github.com/AnomFIN/AnomRadar/pkg/cache"
)

type payload struct {
	Records []string `json:"records"`
	Count   int      `json:"count"`
}

func TestCacheRoundTrip(t *testing.T) {
	c, err := cache.New(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}

	stored := payload{Records: []string{"192.0.2.10"}, Count: 1}
	if err := c.Set("dns", "example.fi", stored); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var got payload
	if !c.Get("dns", "example.fi", &got) {
		t.Fatal("expected cache hit")
	}
	if got.Count != 1 || len(got.Records) != 1 || got.Records[0] != "192.0.2.10" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestCacheMiss(t *testing.T) {
	c, err := cache.New(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}

	var got payload
	if c.Get("dns", "missing.fi", &got) {
		t.Error("expected cache miss for unknown target")
	}

	// Same target under a different kind is a separate entry.
	if err := c.Set("dns", "example.fi", payload{Count: 1}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if c.Get("whois", "example.fi", &got) {
		t.Error("expected cache miss for different kind")
	}
}

func TestCacheExpiry(t *testing.T) {
	c, err := cache.New(t.TempDir(), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}

	if err := c.Set("dns", "example.fi", payload{Count: 1}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	var got payload
	if c.Get("dns", "example.fi", &got) {
		t.Error("expected expired entry to miss")
	}
}

func TestCachePurge(t *testing.T) {
	c, err := cache.New(t.TempDir(), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}

	for _, target := range []string{"a.fi", "b.fi", "c.fi"} {
		if err := c.Set("dns", target, payload{Count: 1}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	time.Sleep(30 * time.Millisecond)

	removed, err := c.Purge()
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed entries, got %d", removed)
	}

	// A second purge finds nothing left.
	removed, err = c.Purge()
	if err != nil {
		t.Fatalf("second Purge failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected empty purge, got %d", removed)
	}
}
