// Package cache holds the response cache shared by every gateway operation.
//
// Values are JSON-encoded results keyed by the logical request identity (see [Key]).
// Entries expire lazily: a lookup that finds a stale entry drops it and reports a miss.
// There is no background sweeper, so the in-memory tier grows with the set of distinct
// keys until entries are read again after expiry.
package cache

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTTL is the freshness window used when none is configured.
const DefaultTTL = 30 * time.Minute

// Store is a key/value cache of encoded results.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

// Stats reports cache size and lookup counters.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Reporter is implemented by stores that expose [Stats].
type Reporter interface {
	Stats() Stats
}

type entry struct {
	value    []byte
	storedAt time.Time
}

// Memory is an in-process TTL cache.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	hits    atomic.Int64
	misses  atomic.Int64
}

// MemoryOption configures a [Memory] cache.
type MemoryOption func(*Memory)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates an empty cache whose entries stay fresh for ttl.
func NewMemory(ttl time.Duration, opts ...MemoryOption) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory{entries: make(map[string]entry), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the value stored under key if it is still fresh.
//
// An entry older than the TTL is deleted by the lookup that finds it.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	if m.now().Sub(e.storedAt) > m.ttl {
		delete(m.entries, key)
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return e.value, true
}

// Set stores value under key, replacing any previous entry and resetting its age.
func (m *Memory) Set(_ context.Context, key string, value []byte) {
	m.mu.Lock()
	m.entries[key] = entry{value: value, storedAt: m.now()}
	m.mu.Unlock()
}

// Len returns the number of stored entries, stale ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// TTL returns the freshness window.
func (m *Memory) TTL() time.Duration { return m.ttl }

func (m *Memory) Stats() Stats {
	return Stats{Entries: m.Len(), Hits: m.hits.Load(), Misses: m.misses.Load()}
}

// GetJSON reads key from s and decodes a hit into T. Undecodable entries count as a miss.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool) {
	var out T
	data, ok := s.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false
	}
	return out, true
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.Set(ctx, key, data)
	return nil
}

// Key builds a deterministic cache key from an operation tag and its parameters.
//
// Parameters are serialized in key order so map iteration order never matters.
func Key(tag string, params map[string]string) string {
	if len(params) == 0 {
		return tag
	}

	var b strings.Builder
	b.WriteString(tag)
	for i, k := range slices.Sorted(maps.Keys(params)) {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

// IDs canonicalizes an identifier set for use as a key parameter.
//
// The ids are copied and sorted numerically; the caller's slice is left untouched.
func IDs(ids []int64) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
