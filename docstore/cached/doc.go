// Package cached decorates a docstore.Collection with a process local cache
// for Find.
//
// # Overview
//
// The decorator intercepts Find and serves repeated queries from a sturdyc
// cache keyed by the serialized filter. InsertOne and UpdateMany pass through
// to the base collection and invalidate every cached Find result of the
// decorated collection once they succeed.
//
//	base := store.Collection("school")
//	coll, err := cached.New(base, "school", cached.DefaultConfig())
//
//	docs, err := coll.Find(ctx, docstore.Filter{"name": "UCSF"}) // base
//	docs, err = coll.Find(ctx, docstore.Filter{"name": "UCSF"})  // cache
//
// # Caching Behavior
//
//  1. Serialize the filter into a key prefixed with "Find:"
//  2. On a hit, decode and return the cached documents
//  3. On a miss, call the base collection and cache its JSON encoding
//
// Cached results are JSON round-tripped: integral numbers come back as int64
// and values without a JSON form (such as a Mongo ObjectID) come back in
// their JSON representation. Errors are never cached.
//
// Writes made by another process, or directly on the base collection, are not
// observed until the entry expires. Use Bypass on the context to force a read
// from the base collection.
package cached
