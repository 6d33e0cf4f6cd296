package cache

import (
	"context"
	"io"
	"log/slog"

	"github.com/goliatone/go-call-history/instrument"
	"github.com/goliatone/go-call-history/internal/cacheinfra"
	"github.com/goliatone/go-call-history/kv"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// StoreIdentity is the operation identity under which Store calls are counted
// and logged.
const StoreIdentity = "Cache.Store"

// Option customizes a Cache.
type Option func(*options)

type options struct {
	logger *slog.Logger
	keyGen func() string
}

// WithLogger sets the logger used by the cache and its instrumentation.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithKeyGenerator replaces the UUIDv4 key generator.
func WithKeyGenerator(gen func() string) Option {
	return func(o *options) {
		if gen != nil {
			o.keyGen = gen
		}
	}
}

// Cache stores opaque values under generated keys. Every Store call is
// counted and logged by the embedded Instrumenter; reads are not.
type Cache struct {
	store     kv.Store
	instr     *instrument.Instrumenter
	storeOp   instrument.Operation[any, string]
	readCache *cacheinfra.ValueCache
	keyGen    func() string
}

// New validates cfg, flushes store and returns a Cache bound to it.
//
// The flush removes every key of the store's selected database, not only keys
// written by a previous Cache. Point the cache at a dedicated database.
func New(ctx context.Context, store kv.Store, cfg Config, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, goerrors.New("cache requires a store", goerrors.CategoryBadInput)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: slog.Default(), keyGen: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}

	instr, err := instrument.New(store, cfg.instrumentConfig(), instrument.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	c := &Cache{
		store:  store,
		instr:  instr,
		keyGen: o.keyGen,
	}

	if cfg.ReadThrough != nil {
		readCache, err := cacheinfra.NewValueCache(StoreIdentity, cfg.ReadThrough.toInternal())
		if err != nil {
			return nil, err
		}
		c.readCache = readCache
	}

	if err := store.FlushDB(ctx); err != nil {
		return nil, err
	}
	o.logger.Debug("cache store flushed", "namespace", cfg.Namespace)

	storeOp, err := instrument.Instrument(instr, instrument.NewOperation(StoreIdentity, c.put))
	if err != nil {
		return nil, err
	}
	c.storeOp = storeOp

	return c, nil
}

// Store writes value under a new random key and returns the key. value must
// be a string, a []byte, an integer or a float.
func (c *Cache) Store(ctx context.Context, value any) (string, error) {
	if _, err := encodeValue(value); err != nil {
		return "", err
	}
	return c.storeOp.Call(ctx, value)
}

// put is the raw operation wrapped by the instrumentation.
func (c *Cache) put(ctx context.Context, value any) (string, error) {
	raw, err := encodeValue(value)
	if err != nil {
		return "", err
	}
	key := c.keyGen()
	if err := c.store.Set(ctx, key, raw); err != nil {
		return "", err
	}
	return key, nil
}

// Retrieve reads the value stored under key. With a nil decode the raw bytes
// are returned. ok is false when the key does not exist; that is not an
// error. Decoder failures are returned as is and should wrap ErrDecode.
func (c *Cache) Retrieve(ctx context.Context, key string, decode Decoder) (any, bool, error) {
	raw, ok, err := c.get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	if decode == nil {
		return raw, true, nil
	}
	value, err := decode(raw)
	if err != nil {
		return nil, true, err
	}
	return value, true, nil
}

// RetrieveAs is the typed form of Retrieve.
func RetrieveAs[T any](ctx context.Context, c *Cache, key string, decode func([]byte) (T, error)) (T, bool, error) {
	var zero T

	raw, ok, err := c.get(ctx, key)
	if err != nil || !ok {
		return zero, ok, err
	}
	if decode == nil {
		if v, isT := any(raw).(T); isT {
			return v, true, nil
		}
		return zero, true, ErrDecode
	}
	value, err := decode(raw)
	if err != nil {
		return zero, true, err
	}
	return value, true, nil
}

// GetString returns the value under key as UTF-8 text.
func (c *Cache) GetString(ctx context.Context, key string) (string, bool, error) {
	return RetrieveAs(ctx, c, key, DecodeString)
}

// GetInt returns the value under key parsed as a base 10 integer.
func (c *Cache) GetInt(ctx context.Context, key string) (int64, bool, error) {
	return RetrieveAs(ctx, c, key, DecodeInt)
}

// GetFloat returns the value under key parsed as a float.
func (c *Cache) GetFloat(ctx context.Context, key string) (float64, bool, error) {
	return RetrieveAs(ctx, c, key, DecodeFloat)
}

// GetFloat32 returns the value under key parsed at float32 precision.
func (c *Cache) GetFloat32(ctx context.Context, key string) (float32, bool, error) {
	return RetrieveAs(ctx, c, key, DecodeFloat32)
}

// GetBytes returns the raw value under key.
func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	return RetrieveAs(ctx, c, key, DecodeBytes)
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.readCache == nil {
		return c.store.Get(ctx, key)
	}
	return c.readCache.GetOrFetch(ctx, key, func(ctx context.Context) ([]byte, bool, error) {
		return c.store.Get(ctx, key)
	})
}

// StoreOperation returns the instrumented Store operation, for Replay and
// Trace on any Instrumenter sharing this store and namespace.
func (c *Cache) StoreOperation() instrument.Named {
	return c.storeOp
}

// Instrumenter returns the Instrumenter that records Store calls.
func (c *Cache) Instrumenter() *instrument.Instrumenter {
	return c.instr
}

// Trace returns the recorded history of Store.
func (c *Cache) Trace(ctx context.Context) (instrument.Trace, error) {
	return c.instr.Trace(ctx, c.storeOp)
}

// Replay writes the history of Store to w.
func (c *Cache) Replay(ctx context.Context, w io.Writer) error {
	return c.instr.Replay(ctx, c.storeOp, w)
}
