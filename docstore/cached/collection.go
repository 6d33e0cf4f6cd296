package cached

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-call-history/docstore"
	"github.com/goliatone/go-call-history/instrument"
	"github.com/goliatone/go-call-history/internal/cacheinfra"
	goerrors "github.com/goliatone/go-errors"
)

const findPrefix = "Find:"

var _ docstore.Collection = (*Collection)(nil)

// Config exposes the cache settings of a decorated collection.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	// Refresh reloads cached Find results in the background before they
	// expire. Disabled when nil.
	Refresh *RefreshConfig
}

// RefreshConfig sets when a cached Find result is reloaded. Results older
// than a random age between MinAsync and MaxAsync are refreshed in the
// background, results older than Sync are reloaded before returning.
type RefreshConfig struct {
	MinAsync       time.Duration
	MaxAsync       time.Duration
	Sync           time.Duration
	RetryBaseDelay time.Duration
}

// DefaultConfig returns settings sized for one collection.
func DefaultConfig() Config {
	cfg := cacheinfra.DefaultConfig()
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

func (c Config) toInternal() cacheinfra.Config {
	cfg := cacheinfra.DefaultConfig()
	cfg.Capacity = c.Capacity
	cfg.NumShards = c.NumShards
	cfg.TTL = c.TTL
	cfg.EvictionPercentage = c.EvictionPercentage
	if c.Refresh != nil {
		cfg.EarlyRefresh = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.Refresh.MinAsync,
			MaxAsyncRefreshTime: c.Refresh.MaxAsync,
			SyncRefreshTime:     c.Refresh.Sync,
			RetryBaseDelay:      c.Refresh.RetryBaseDelay,
		}
	}
	return cfg
}

// Collection decorates a base collection with a Find cache.
type Collection struct {
	base       docstore.Collection
	cache      *cacheinfra.ValueCache
	serializer instrument.Serializer
	// keys tracks cached keys for prefix invalidation
	keys sync.Map
}

// New wraps base. name labels the cache metrics.
func New(base docstore.Collection, name string, cfg Config) (*Collection, error) {
	if base == nil {
		return nil, goerrors.New("base collection is required", goerrors.CategoryBadInput)
	}
	vc, err := cacheinfra.NewValueCache("docstore:"+name, cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return &Collection{
		base:       base,
		cache:      vc,
		serializer: instrument.NewDefaultSerializer(),
	}, nil
}

// Base returns the decorated collection.
func (c *Collection) Base() docstore.Collection {
	return c.base
}

// Find returns matching documents, from the cache when possible.
func (c *Collection) Find(ctx context.Context, filter docstore.Filter) ([]docstore.Document, error) {
	if bypassed(ctx) {
		return c.base.Find(ctx, filter)
	}

	if filter == nil {
		filter = docstore.Filter{}
	}
	key := c.keyFor(filter)
	c.trackKey(key)

	raw, _, err := c.cache.GetOrFetch(ctx, key, func(ctx context.Context) ([]byte, bool, error) {
		docs, err := c.base.Find(ctx, filter)
		if err != nil {
			return nil, false, err
		}
		if docs == nil {
			docs = []docstore.Document{}
		}
		encoded, err := json.Marshal(docs)
		if err != nil {
			return nil, false, goerrors.Wrap(err, goerrors.CategoryInternal, "encode cached documents")
		}
		return encoded, true, nil
	})
	if err != nil {
		return nil, err
	}
	return docstore.ParseDocuments(raw)
}

// InsertOne inserts through the base collection and invalidates cached reads.
func (c *Collection) InsertOne(ctx context.Context, doc docstore.Document) (any, error) {
	id, err := c.base.InsertOne(ctx, doc)
	if err == nil {
		c.invalidateByPrefix(findPrefix)
	}
	return id, err
}

// UpdateMany updates through the base collection. Cached reads are
// invalidated when at least one document changed.
func (c *Collection) UpdateMany(ctx context.Context, filter docstore.Filter, update docstore.Update) (docstore.UpdateResult, error) {
	res, err := c.base.UpdateMany(ctx, filter, update)
	if err == nil && res.Modified > 0 {
		c.invalidateByPrefix(findPrefix)
	}
	return res, err
}

// Invalidate drops every cached read.
func (c *Collection) Invalidate() {
	c.invalidateByPrefix("")
}

// Hits returns the number of Find calls served from the cache.
func (c *Collection) Hits() uint64 {
	return c.cache.Hits()
}

// Misses returns the number of Find calls that reached the base collection.
func (c *Collection) Misses() uint64 {
	return c.cache.Misses()
}

func (c *Collection) keyFor(filter docstore.Filter) string {
	return findPrefix + c.serializer.SerializeArgs(filter)
}

func (c *Collection) trackKey(key string) {
	c.keys.Store(key, struct{}{})
}

func (c *Collection) invalidateByPrefix(prefix string) {
	c.keys.Range(func(k, _ any) bool {
		if key, ok := k.(string); ok && strings.HasPrefix(key, prefix) {
			c.cache.Delete(key)
			c.keys.Delete(key)
		}
		return true
	})
}
