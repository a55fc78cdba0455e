package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// Redis is a shared cache tier backed by a Redis server.
//
// Entries expire server side through SET EX. Any Redis error degrades to a miss.
type Redis struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *log.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedis connects to the server at url and verifies it with a ping.
func NewRedis(ctx context.Context, url string, ttl time.Duration, logger *log.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis unreachable at %s: %w", opts.Addr, err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl, prefix: "ncx:", logger: logger}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("redis get failed", "key", key, "error", err)
		}
		r.misses.Add(1)
		return nil, false
	}
	r.hits.Add(1)
	return data, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) {
	if err := r.rdb.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		r.logger.Warn("redis set failed", "key", key, "error", err)
	}
}

func (r *Redis) Stats() Stats {
	return Stats{Hits: r.hits.Load(), Misses: r.misses.Load()}
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

// Tiered checks a local [Memory] cache before a shared tier.
//
// A hit in the shared tier repopulates the local one. Writes go to both.
type Tiered struct {
	local  *Memory
	shared Store
	hits   atomic.Int64
	misses atomic.Int64
}

// NewTiered layers local over shared. A nil shared tier leaves only the local cache.
func NewTiered(local *Memory, shared Store) *Tiered {
	return &Tiered{local: local, shared: shared}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := t.local.Get(ctx, key); ok {
		t.hits.Add(1)
		return v, true
	}
	if t.shared != nil {
		if v, ok := t.shared.Get(ctx, key); ok {
			t.local.Set(ctx, key, v)
			t.hits.Add(1)
			return v, true
		}
	}
	t.misses.Add(1)
	return nil, false
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte) {
	t.local.Set(ctx, key, value)
	if t.shared != nil {
		t.shared.Set(ctx, key, value)
	}
}

func (t *Tiered) Stats() Stats {
	return Stats{Entries: t.local.Len(), Hits: t.hits.Load(), Misses: t.misses.Load()}
}

// Close releases the shared tier when it holds resources.
func (t *Tiered) Close() error {
	if c, ok := t.shared.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Open builds the gateway cache: memory only when url is empty, memory over Redis otherwise.
//
// An unreachable Redis is logged and the cache runs memory only.
func Open(ctx context.Context, ttl time.Duration, url string, logger *log.Logger) Store {
	local := NewMemory(ttl)
	if url == "" {
		return local
	}

	r, err := NewRedis(ctx, url, ttl, logger)
	if err != nil {
		logger.Warn("shared cache disabled", "error", err)
		return local
	}
	logger.Info("shared cache connected", "ttl", ttl)
	return NewTiered(local, r)
}
