// Package cache provides the process-wide TTL store shared by every
// adapter operation.
package cache

import (
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/text/cases"
)

// Store is a concurrency-safe key/value store with per-entry expiry.
// Expired entries are never returned.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
}

// Memory is an in-process Store backed by go-cache. Expired entries are
// reported absent on read and swept by a background janitor.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates a Memory store whose janitor runs every cleanup
// interval. A non-positive interval disables the janitor.
func NewMemory(cleanup time.Duration) *Memory {
	return &Memory{c: gocache.New(gocache.NoExpiration, cleanup)}
}

// Get returns the live value stored under key.
func (m *Memory) Get(key string) (any, bool) {
	return m.c.Get(key)
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (m *Memory) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.c.Set(key, value, ttl)
}

// Len returns the number of stored entries, including expired ones the
// janitor has not swept yet.
func (m *Memory) Len() int {
	return m.c.ItemCount()
}

// Lookup reads key from s and asserts it to T.
func Lookup[T any](s Store, key string) (T, bool) {
	var zero T
	v, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Key builds a deterministic cache key from an operation name and its
// parameters. Parameter order, surrounding whitespace and letter case do
// not change the key. Empty values are dropped.
func Key(op string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for k, v := range params {
		if strings.TrimSpace(v) == "" {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)

	// Casers carry state and must not be shared across goroutines.
	fold := cases.Fold()
	var b strings.Builder
	b.WriteString(op)
	for _, k := range names {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fold.String(strings.Join(strings.Fields(params[k]), " ")))
	}
	return b.String()
}
