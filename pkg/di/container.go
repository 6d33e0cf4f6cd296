package di

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-call-history/cache"
	"github.com/goliatone/go-call-history/docstore"
	"github.com/goliatone/go-call-history/docstore/cached"
	"github.com/goliatone/go-call-history/docstore/mongostore"
	"github.com/goliatone/go-call-history/docstore/sqlstore"
	"github.com/goliatone/go-call-history/kv"
	"github.com/goliatone/go-call-history/kv/memory"
	"github.com/goliatone/go-call-history/kv/redisstore"
	goerrors "github.com/goliatone/go-errors"
)

// Key-value backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Document backends.
const (
	DocumentsSQL   = "sql"
	DocumentsMongo = "mongo"
)

// Config selects and configures every backend the container builds.
type Config struct {
	// Store is StoreMemory or StoreRedis.
	Store string
	Redis redisstore.Config
	Cache cache.Config
	// Documents is DocumentsSQL or DocumentsMongo.
	Documents string
	SQL       sqlstore.Config
	Mongo     mongostore.Config
	// DocumentCache caches Find results per collection. Disabled when nil.
	DocumentCache *cached.Config
}

// DefaultConfig uses the in-memory key-value store and an in-memory SQLite
// document store.
func DefaultConfig() Config {
	return Config{
		Store:     StoreMemory,
		Redis:     redisstore.DefaultConfig(),
		Cache:     cache.DefaultConfig(),
		Documents: DocumentsSQL,
		SQL:       sqlstore.DefaultConfig(),
		Mongo:     mongostore.DefaultConfig(),
	}
}

// Validate checks the backend selection and the settings of the selected
// backends.
func (c Config) Validate() error {
	if err := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&c,
			validation.Field(&c.Store, validation.Required, validation.In(StoreMemory, StoreRedis)),
			validation.Field(&c.Documents, validation.Required, validation.In(DocumentsSQL, DocumentsMongo)),
		)
	}, "invalid container config"); err != nil {
		return err
	}

	if c.Store == StoreRedis && c.Redis.Addr == "" {
		return goerrors.New("redis address is required", goerrors.CategoryValidation).
			WithTextCode("CONTAINER_REDIS_ADDR")
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if c.DocumentCache != nil {
		if err := c.DocumentCache.Validate(); err != nil {
			return err
		}
	}
	switch c.Documents {
	case DocumentsSQL:
		return c.SQL.Validate()
	default:
		return c.Mongo.Validate()
	}
}

// Option customizes a Container.
type Option func(*Container)

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStore replaces the configured key-value backend. The container takes
// ownership and closes it.
func WithStore(store kv.Store) Option {
	return func(c *Container) {
		c.store = store
	}
}

// WithCacheOptions forwards options to cache.New.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(c *Container) {
		c.cacheOpts = append(c.cacheOpts, opts...)
	}
}

// Container owns the key-value store, the instrumented cache and the
// document store. The cache and the document store are built on first use
// since building the cache flushes the key-value store.
type Container struct {
	config    Config
	logger    *slog.Logger
	store     kv.Store
	cacheOpts []cache.Option

	mu          sync.Mutex
	cache       *cache.Cache
	sql         *sqlstore.Store
	mongo       *mongostore.Store
	collections map[string]docstore.Collection
}

// NewContainer validates config and connects the key-value store.
func NewContainer(ctx context.Context, config Config, opts ...Option) (*Container, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		config:      config,
		logger:      slog.Default(),
		collections: make(map[string]docstore.Collection),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.store == nil {
		switch config.Store {
		case StoreRedis:
			c.store = redisstore.New(config.Redis)
		default:
			c.store = memory.New()
		}
	}

	if err := c.store.Ping(ctx); err != nil {
		_ = c.store.Close()
		return nil, err
	}

	c.logger.Debug("container ready", "store", config.Store, "documents", config.Documents)
	return c, nil
}

// NewContainerWithDefaults creates a container from DefaultConfig.
func NewContainerWithDefaults(ctx context.Context, opts ...Option) (*Container, error) {
	return NewContainer(ctx, DefaultConfig(), opts...)
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() Config {
	return c.config
}

// Store returns the key-value store.
func (c *Container) Store() kv.Store {
	return c.store
}

// Cache returns the instrumented cache, creating it on the first call.
func (c *Container) Cache(ctx context.Context) (*cache.Cache, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache != nil {
		return c.cache, nil
	}

	opts := append([]cache.Option{cache.WithLogger(c.logger)}, c.cacheOpts...)
	instance, err := cache.New(ctx, c.store, c.config.Cache, opts...)
	if err != nil {
		return nil, err
	}
	c.cache = instance
	return instance, nil
}

// Collection returns the named collection of the configured document store,
// opening the store on the first call. With DocumentCache set the collection
// is wrapped by a cached.Collection shared by every caller.
func (c *Container) Collection(ctx context.Context, name string) (docstore.Collection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if coll, ok := c.collections[name]; ok {
		return coll, nil
	}

	base, err := c.baseCollection(ctx, name)
	if err != nil {
		return nil, err
	}

	var coll docstore.Collection = base
	if c.config.DocumentCache != nil {
		decorated, err := cached.New(base, name, *c.config.DocumentCache)
		if err != nil {
			return nil, err
		}
		coll = decorated
	}
	c.collections[name] = coll
	return coll, nil
}

func (c *Container) baseCollection(ctx context.Context, name string) (docstore.Collection, error) {
	switch c.config.Documents {
	case DocumentsMongo:
		if c.mongo == nil {
			store, err := mongostore.Open(ctx, c.config.Mongo)
			if err != nil {
				return nil, err
			}
			c.mongo = store
		}
		return c.mongo.Collection(name), nil
	default:
		if c.sql == nil {
			store, err := sqlstore.Open(ctx, c.config.SQL, sqlstore.WithLogger(c.logger))
			if err != nil {
				return nil, err
			}
			c.sql = store
		}
		return c.sql.Collection(name), nil
	}
}

// Close releases every backend the container opened.
func (c *Container) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	clear(c.collections)
	if c.sql != nil {
		errs = append(errs, c.sql.Close())
		c.sql = nil
	}
	if c.mongo != nil {
		errs = append(errs, c.mongo.Close(ctx))
		c.mongo = nil
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
	}
	return errors.Join(errs...)
}
