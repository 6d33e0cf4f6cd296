// Package cache provides a minimal value cache over a kv.Store whose writes
// are counted and logged by the instrument package.
//
// # Overview
//
// Cache.Store writes a string, a []byte or a number under a fresh UUIDv4 key
// and returns the key. Each call goes through instrument.Instrument under the
// identity "Cache.Store", so the store ends up holding:
//
//	Cache.Store            number of Store calls
//	Cache.Store:inputs     ("foo"), (42), (b"\x00\x01"), ...
//	Cache.Store:outputs    the generated keys
//
// Retrieval is not instrumented:
//
//	c, err := cache.New(ctx, store, cache.DefaultConfig())
//	key, err := c.Store(ctx, 42)
//	n, ok, err := c.GetInt(ctx, key) // 42, true, nil
//	_, ok, err = c.GetInt(ctx, "unknown") // 0, false, nil
//	_ = c.Replay(ctx, os.Stdout)
//
// A missing key is reported through ok, never through a default value or an
// error. A value that exists but does not decode returns an error wrapping
// ErrDecode.
//
// # Flush on construction
//
// New calls FlushDB on the store. Every key of the selected database is
// removed, including keys that were not written by a Cache. Give the cache its
// own Redis database.
//
// # Read-through cache
//
// Stored values are never updated, so Config.ReadThrough can put a process
// local sturdyc cache in front of Retrieve. It is off by default. Missing keys
// are only remembered when ReadThroughConfig.MissingRecordStorage is set.
// A flush issued by another process is not seen by this cache.
package cache
