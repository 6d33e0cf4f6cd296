// Package kv defines the key-value contract used by the call instrumentation
// layer and the instrumented cache.
//
// The contract is intentionally small and mirrors the handful of Redis commands
// the cache needs:
//
//   - Incr: atomic counter increment (call counters)
//   - RPush / LRange: append-only lists (input and output logs)
//   - Get / Set: opaque stored values
//   - FlushDB: database wide reset
//
// Each method is expected to be atomic for a single key. No backend offers
// atomicity across keys, so a counter and its two logs can be observed in
// intermediate states by concurrent readers.
//
// # Backends
//
//   - kv/memory: process local store built on xsync.MapOf, used by tests and demos
//   - kv/redisstore: go-redis v9 client, the production backend
//
// # Errors
//
// Backends report type mismatches with ErrWrongType and non integer counters with
// ErrNotInteger. Connectivity problems are wrapped with Unavailable so callers can
// test them with IsUnavailable regardless of the backend. Any other refusal from
// a reachable server is wrapped with Rejected.
package kv
