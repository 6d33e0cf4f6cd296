package cacheinfra

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}

	if cfg.NumShards != 64 {
		t.Errorf("expected NumShards to be 64, got %d", cfg.NumShards)
	}

	if cfg.TTL != 5*time.Minute {
		t.Errorf("expected TTL to be 5 minutes, got %v", cfg.TTL)
	}

	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}

	if cfg.MissingRecordStorage {
		t.Error("expected MissingRecordStorage to be false")
	}

	if cfg.EarlyRefresh != nil {
		t.Error("expected EarlyRefresh to be disabled")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Capacity:           100,
			NumShards:          4,
			TTL:                time.Minute,
			EvictionPercentage: 10,
		}
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero capacity", mutate: func(c *Config) { c.Capacity = 0 }, errorMsg: "config error in field Capacity: must be greater than 0"},
		{name: "zero shards", mutate: func(c *Config) { c.NumShards = 0 }, errorMsg: "config error in field NumShards: must be greater than 0"},
		{name: "zero TTL", mutate: func(c *Config) { c.TTL = 0 }, errorMsg: "config error in field TTL: must be greater than 0"},
		{name: "eviction percentage too low", mutate: func(c *Config) { c.EvictionPercentage = 0 }, errorMsg: "must be between 1 and 100"},
		{name: "eviction percentage too high", mutate: func(c *Config) { c.EvictionPercentage = 101 }, errorMsg: "must be between 1 and 100"},
		{
			name: "early refresh window inverted",
			mutate: func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{MinAsyncRefreshTime: time.Minute, MaxAsyncRefreshTime: time.Second}
			},
			errorMsg: "must not be lower than MinAsyncRefreshTime",
		},
		{
			name: "negative retry delay",
			mutate: func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{RetryBaseDelay: -time.Second}
			},
			errorMsg: "config error in field EarlyRefresh.RetryBaseDelay: must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("expected no error but got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("expected *ConfigError, got %T", err)
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	if n := len(DefaultConfig().ToSturdycOptions()); n != 0 {
		t.Errorf("expected no sturdyc options for default config, got %d", n)
	}

	cfg := DefaultConfig()
	cfg.MissingRecordStorage = true
	cfg.EvictionInterval = time.Second
	cfg.EarlyRefresh = &EarlyRefreshConfig{
		MinAsyncRefreshTime: time.Second,
		MaxAsyncRefreshTime: 2 * time.Second,
		SyncRefreshTime:     3 * time.Second,
		RetryBaseDelay:      time.Millisecond,
	}
	if n := len(cfg.ToSturdycOptions()); n != 3 {
		t.Errorf("expected 3 sturdyc options, got %d", n)
	}
}

func TestNewValueCache_InvalidConfig(t *testing.T) {
	cache, err := NewValueCache("invalid", Config{})
	if err == nil {
		t.Fatal("expected error but got none")
	}
	if cache != nil {
		t.Error("expected cache to be nil when error occurs")
	}
}

func newTestCache(t *testing.T, cfg Config) *ValueCache {
	t.Helper()
	cache, err := NewValueCache(t.Name(), cfg)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return cache
}

func TestValueCache_GetOrFetch(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t, Config{Capacity: 100, NumShards: 2, TTL: time.Minute, EvictionPercentage: 10})

	calls := 0
	fetch := func(ctx context.Context) ([]byte, bool, error) {
		calls++
		return []byte("value"), true, nil
	}

	for i := 0; i < 3; i++ {
		value, found, err := cache.GetOrFetch(ctx, "key", fetch)
		if err != nil {
			t.Fatalf("expected no error but got: %v", err)
		}
		if !found || string(value) != "value" {
			t.Fatalf("expected cached value, got %q found=%v", value, found)
		}
	}

	if calls != 1 {
		t.Errorf("expected fetch to be called once, got %d", calls)
	}
	if cache.Misses() != 1 || cache.Hits() != 2 {
		t.Errorf("expected 1 miss and 2 hits, got %d misses and %d hits", cache.Misses(), cache.Hits())
	}
}

func TestValueCache_CountersPerInstance(t *testing.T) {
	ctx := context.Background()
	fetch := func(ctx context.Context) ([]byte, bool, error) {
		return []byte("value"), true, nil
	}

	shared := metrics.GetOrCreateCounter(`callhistory_read_cache_hits_total{cache="` + t.Name() + `"}`)
	before := shared.Get()

	first := newTestCache(t, DefaultConfig())
	second := newTestCache(t, DefaultConfig())

	for i := 0; i < 3; i++ {
		if _, _, err := first.GetOrFetch(ctx, "key", fetch); err != nil {
			t.Fatalf("expected no error but got: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, _, err := second.GetOrFetch(ctx, "key", fetch); err != nil {
			t.Fatalf("expected no error but got: %v", err)
		}
	}

	if first.Hits() != 2 || first.Misses() != 1 {
		t.Errorf("first: expected 2 hits and 1 miss, got %d hits and %d misses", first.Hits(), first.Misses())
	}
	if second.Hits() != 1 || second.Misses() != 1 {
		t.Errorf("second: expected 1 hit and 1 miss, got %d hits and %d misses", second.Hits(), second.Misses())
	}
	if got := shared.Get() - before; got != 3 {
		t.Errorf("expected the exported counter to sum both caches to 3 hits, got %d", got)
	}
}

func TestValueCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t, DefaultConfig())
	fetch := func(ctx context.Context) ([]byte, bool, error) {
		return []byte("abc"), true, nil
	}

	first, _, _ := cache.GetOrFetch(ctx, "key", fetch)
	first[0] = 'X'

	second, _, _ := cache.GetOrFetch(ctx, "key", fetch)
	if string(second) != "abc" {
		t.Errorf("expected cached value to be unaffected, got %q", second)
	}
}

func TestValueCache_Missing(t *testing.T) {
	ctx := context.Background()

	for _, storeMissing := range []bool{false, true} {
		cfg := DefaultConfig()
		cfg.MissingRecordStorage = storeMissing
		cache, err := NewValueCache("missing", cfg)
		if err != nil {
			t.Fatalf("failed to create cache: %v", err)
		}

		calls := 0
		fetch := func(ctx context.Context) ([]byte, bool, error) {
			calls++
			return nil, false, nil
		}

		for i := 0; i < 2; i++ {
			value, found, err := cache.GetOrFetch(ctx, "unknown", fetch)
			if err != nil {
				t.Fatalf("expected a miss without error, got: %v", err)
			}
			if found || value != nil {
				t.Fatalf("expected no value, got %q", value)
			}
		}

		want := 2
		if storeMissing {
			want = 1
		}
		if calls != want {
			t.Errorf("MissingRecordStorage=%v: expected %d fetches, got %d", storeMissing, want, calls)
		}
	}
}

func TestValueCache_FetchError(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t, DefaultConfig())
	fetchErr := errors.New("store down")

	_, found, err := cache.GetOrFetch(ctx, "key", func(ctx context.Context) ([]byte, bool, error) {
		return nil, false, fetchErr
	})
	if err == nil {
		t.Fatal("expected error but got none")
	}
	if found {
		t.Error("expected found to be false on error")
	}

	calls := 0
	value, found, err := cache.GetOrFetch(ctx, "key", func(ctx context.Context) ([]byte, bool, error) {
		calls++
		return []byte("recovered"), true, nil
	})
	if err != nil || !found || string(value) != "recovered" {
		t.Errorf("expected errors not to be cached, got %q found=%v err=%v", value, found, err)
	}
	if calls != 1 {
		t.Errorf("expected fetch after an error, got %d calls", calls)
	}
}

func TestValueCache_Delete(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t, DefaultConfig())

	calls := 0
	fetch := func(ctx context.Context) ([]byte, bool, error) {
		calls++
		return []byte("v"), true, nil
	}

	_, _, _ = cache.GetOrFetch(ctx, "ns:a", fetch)
	_, _, _ = cache.GetOrFetch(ctx, "ns:b", fetch)
	_, _, _ = cache.GetOrFetch(ctx, "other", fetch)

	cache.Delete("other")
	_, _, _ = cache.GetOrFetch(ctx, "other", fetch)
	if calls != 4 {
		t.Errorf("expected refetch after Delete, got %d calls", calls)
	}

	cache.DeleteByPrefix("ns:")
	_, _, _ = cache.GetOrFetch(ctx, "ns:a", fetch)
	_, _, _ = cache.GetOrFetch(ctx, "other", fetch)
	if calls != 5 {
		t.Errorf("expected only prefixed keys to be refetched, got %d calls", calls)
	}

	cache.Purge()
	_, _, _ = cache.GetOrFetch(ctx, "other", fetch)
	if calls != 6 {
		t.Errorf("expected refetch after Purge, got %d calls", calls)
	}
}
