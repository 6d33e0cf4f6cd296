package cacheinfra

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc read-through value cache.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 64
	NumShards int

	// TTL is the time-to-live for cached entries. Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EarlyRefresh configures early refresh behavior for cached entries.
	// If nil, early refresh is disabled.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage makes the cache remember keys the store did not
	// have, so repeated lookups of an unknown key skip the store.
	MissingRecordStorage bool

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig configures early refresh behavior.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns a Config sized for a single cache instance. Stored
// values never change once written, so early refresh is off by default.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          64,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New() and are not included in the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EarlyRefresh != nil {
		if c.EarlyRefresh.MinAsyncRefreshTime < 0 {
			return &ConfigError{Field: "EarlyRefresh.MinAsyncRefreshTime", Message: "must be non-negative"}
		}
		if c.EarlyRefresh.MaxAsyncRefreshTime < c.EarlyRefresh.MinAsyncRefreshTime {
			return &ConfigError{Field: "EarlyRefresh.MaxAsyncRefreshTime", Message: "must not be lower than MinAsyncRefreshTime"}
		}
		if c.EarlyRefresh.SyncRefreshTime < 0 {
			return &ConfigError{Field: "EarlyRefresh.SyncRefreshTime", Message: "must be non-negative"}
		}
		if c.EarlyRefresh.RetryBaseDelay < 0 {
			return &ConfigError{Field: "EarlyRefresh.RetryBaseDelay", Message: "must be non-negative"}
		}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// FetchFn loads the raw value for a key from the backing store. found is
// false when the store does not hold the key.
type FetchFn func(ctx context.Context) (value []byte, found bool, err error)

// ValueCache is a read-through cache of raw stored values in front of the
// key-value store.
type ValueCache struct {
	client *sturdyc.Client[[]byte]
	name   string
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewValueCache validates cfg and builds a sturdyc client. name labels the
// exported hit and miss counters, which are shared by every cache with the
// same name. Hits and Misses only count this instance.
func NewValueCache(name string, cfg Config) (*ValueCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[[]byte](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &ValueCache{client: client, name: name}, nil
}

// GetOrFetch returns the cached value for key or calls fetch and caches a
// found result. A key the store does not hold comes back as found == false
// with a nil error.
func (c *ValueCache) GetOrFetch(ctx context.Context, key string, fetch FetchFn) ([]byte, bool, error) {
	// early refreshes run fetch in the background
	var fetched atomic.Bool
	value, err := c.client.GetOrFetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		fetched.Store(true)
		raw, found, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, sturdyc.ErrNotFound
		}
		return raw, nil
	})

	if fetched.Load() {
		c.misses.Add(1)
		c.counter("misses").Inc()
	} else {
		c.hits.Add(1)
		c.counter("hits").Inc()
	}

	if errors.Is(err, sturdyc.ErrNotFound) || errors.Is(err, sturdyc.ErrMissingRecord) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return clone(value), true, nil
}

// Delete removes a single entry.
func (c *ValueCache) Delete(key string) {
	c.client.Delete(key)
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (c *ValueCache) DeleteByPrefix(prefix string) {
	for _, key := range c.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			c.client.Delete(key)
		}
	}
}

// Purge removes every entry.
func (c *ValueCache) Purge() {
	c.DeleteByPrefix("")
}

// Hits returns how many lookups on this cache were served without calling
// fetch.
func (c *ValueCache) Hits() uint64 {
	return c.hits.Load()
}

// Misses returns how many lookups on this cache had to call fetch.
func (c *ValueCache) Misses() uint64 {
	return c.misses.Load()
}

func (c *ValueCache) counter(kind string) *metrics.Counter {
	return metrics.GetOrCreateCounter(`callhistory_read_cache_` + kind + `_total{cache="` + c.name + `"}`)
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
