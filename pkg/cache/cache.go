// Package cache implements a TTL file cache for probe lookups.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

type entry struct {
	StoredAt time.Time       `json:"stored_at"`
	Payload  json.RawMessage `json:"payload"`
}

// Cache stores JSON payloads as individual files keyed by the SHA-256
// of "kind:target". Entries older than the TTL are treated as absent.
type Cache struct {
	dir string
	ttl time.Duration
}

func New(dir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

func (c *Cache) path(kind, target string) string {
	sum := sha256.Sum256([]byte(kind + ":" + target))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

// Get unmarshals the cached payload into out and reports whether a
// fresh entry existed.
func (c *Cache) Get(kind, target string, out interface{}) bool {
	data, err := os.ReadFile(c.path(kind, target))
	if err != nil {
		return false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return false
	}
	if time.Since(e.StoredAt) > c.ttl {
		return false
	}
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return false
	}
	return true
}

func (c *Cache) Set(kind, target string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	e := entry{
		StoredAt: time.Now(),
		Payload:  raw,
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path(kind, target), data, 0644)
}

// Purge removes expired entries and returns how many were deleted.
func (c *Cache) Purge() (int, error) {
	files, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		full := filepath.Join(c.dir, f.Name())
		data, err := os.ReadFile(full)
		if err != nil {
			continue
		}
		var e entry
		if err := json.Unmarshal(data, &e); err != nil || time.Since(e.StoredAt) > c.ttl {
			if err := os.Remove(full); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
