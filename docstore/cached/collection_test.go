package cached

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-call-history/docstore"
	"github.com/goliatone/go-call-history/docstore/sqlstore"
)

// countingCollection records calls before delegating to a real collection.
type countingCollection struct {
	mu    sync.Mutex
	calls []string
	base  docstore.Collection
	err   error
}

func (m *countingCollection) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, method)
}

func (m *countingCollection) count(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (m *countingCollection) Find(ctx context.Context, filter docstore.Filter) ([]docstore.Document, error) {
	m.record("Find")
	if m.err != nil {
		return nil, m.err
	}
	return m.base.Find(ctx, filter)
}

func (m *countingCollection) InsertOne(ctx context.Context, doc docstore.Document) (any, error) {
	m.record("InsertOne")
	return m.base.InsertOne(ctx, doc)
}

func (m *countingCollection) UpdateMany(ctx context.Context, filter docstore.Filter, update docstore.Update) (docstore.UpdateResult, error) {
	m.record("UpdateMany")
	return m.base.UpdateMany(ctx, filter, update)
}

func newTestCollection(t *testing.T) (*Collection, *countingCollection) {
	t.Helper()
	store, err := sqlstore.Open(context.Background(), sqlstore.DefaultConfig(),
		sqlstore.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	base := &countingCollection{base: store.Collection("school")}
	coll, err := New(base, t.Name(), DefaultConfig())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return coll, base
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, "x", DefaultConfig()); err == nil {
		t.Error("Expected error for nil base collection")
	}

	cfg := DefaultConfig()
	cfg.Capacity = 0
	if _, err := New(&countingCollection{}, "x", cfg); err == nil {
		t.Error("Expected error for invalid config")
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject a zero capacity")
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig() should be valid: %v", err)
	}
}

func TestConfig_Refresh(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Refresh = &RefreshConfig{
		MinAsync:       time.Second,
		MaxAsync:       2 * time.Second,
		Sync:           time.Minute,
		RetryBaseDelay: time.Millisecond,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	internal := cfg.toInternal()
	if internal.EarlyRefresh == nil {
		t.Fatal("Expected early refresh to be enabled")
	}
	if internal.EarlyRefresh.MinAsyncRefreshTime != time.Second ||
		internal.EarlyRefresh.MaxAsyncRefreshTime != 2*time.Second ||
		internal.EarlyRefresh.SyncRefreshTime != time.Minute ||
		internal.EarlyRefresh.RetryBaseDelay != time.Millisecond {
		t.Errorf("Unexpected early refresh settings: %+v", *internal.EarlyRefresh)
	}
	if n := len(internal.ToSturdycOptions()); n != 1 {
		t.Errorf("Expected 1 sturdyc option, got %d", n)
	}
	if DefaultConfig().toInternal().EarlyRefresh != nil {
		t.Error("Expected refresh to be disabled by default")
	}

	base := &countingCollection{}
	if _, err := New(base, t.Name(), cfg); err != nil {
		t.Errorf("New() with refresh failed: %v", err)
	}

	cfg.Refresh = &RefreshConfig{MinAsync: time.Minute, MaxAsync: time.Second}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject MaxAsync below MinAsync")
	}
	if _, err := New(base, t.Name(), cfg); err == nil {
		t.Error("New() should reject an invalid refresh window")
	}
}

func TestFind_CachesByFilter(t *testing.T) {
	ctx := context.Background()
	coll, base := newTestCollection(t)

	for _, name := range []string{"UCSF", "UCLA"} {
		if _, err := base.base.InsertOne(ctx, docstore.Document{"name": name, "rank": 1}); err != nil {
			t.Fatalf("InsertOne() failed: %v", err)
		}
	}

	filter := docstore.Filter{"name": "UCSF"}
	for i := 0; i < 3; i++ {
		docs, err := coll.Find(ctx, filter)
		if err != nil {
			t.Fatalf("Find() failed: %v", err)
		}
		if len(docs) != 1 || docs[0]["name"] != "UCSF" {
			t.Fatalf("Unexpected documents: %v", docs)
		}
		if docs[0]["rank"] != int64(1) {
			t.Errorf("Expected rank int64(1), got %T %v", docs[0]["rank"], docs[0]["rank"])
		}
	}
	if got := base.count("Find"); got != 1 {
		t.Errorf("Expected 1 base Find, got %d", got)
	}
	if coll.Hits() != 2 || coll.Misses() != 1 {
		t.Errorf("Expected 2 hits and 1 miss, got %d and %d", coll.Hits(), coll.Misses())
	}

	// an equal filter reuses the entry, nil and empty filters share one
	if _, err := coll.Find(ctx, docstore.Filter{"name": "UCSF"}); err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if _, err := coll.Find(ctx, nil); err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if _, err := coll.Find(ctx, docstore.Filter{}); err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if got := base.count("Find"); got != 2 {
		t.Errorf("Expected 2 base Finds, got %d", got)
	}
}

func TestFind_ResultsAreIndependent(t *testing.T) {
	ctx := context.Background()
	coll, base := newTestCollection(t)

	if _, err := base.base.InsertOne(ctx, docstore.Document{"name": "UCSF"}); err != nil {
		t.Fatalf("InsertOne() failed: %v", err)
	}

	first, _ := coll.Find(ctx, nil)
	first[0]["name"] = "changed"

	second, err := coll.Find(ctx, nil)
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if second[0]["name"] != "UCSF" {
		t.Errorf("Cached documents were mutated through a previous result: %v", second[0])
	}
}

func TestFind_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	coll, base := newTestCollection(t)

	boom := errors.New("boom")
	base.err = boom
	if _, err := coll.Find(ctx, nil); !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	base.err = nil
	docs, err := coll.Find(ctx, nil)
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Errorf("Expected an empty result, got %v", docs)
	}
	if got := base.count("Find"); got != 2 {
		t.Errorf("Expected 2 base Finds, got %d", got)
	}
}

func TestWrites_Invalidate(t *testing.T) {
	ctx := context.Background()
	coll, base := newTestCollection(t)

	if _, err := coll.InsertOne(ctx, docstore.Document{"name": "UCSF"}); err != nil {
		t.Fatalf("InsertOne() failed: %v", err)
	}
	docs, _ := coll.Find(ctx, nil)
	if len(docs) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(docs))
	}

	if _, err := coll.InsertOne(ctx, docstore.Document{"name": "UCLA"}); err != nil {
		t.Fatalf("InsertOne() failed: %v", err)
	}
	docs, _ = coll.Find(ctx, nil)
	if len(docs) != 2 {
		t.Fatalf("Expected insert to invalidate, got %d documents", len(docs))
	}

	update := docstore.Update{"$set": map[string]any{"topics": []string{"AI"}}}
	if _, err := coll.UpdateMany(ctx, docstore.Filter{"name": "UCLA"}, update); err != nil {
		t.Fatalf("UpdateMany() failed: %v", err)
	}
	docs, _ = coll.Find(ctx, docstore.Filter{"topics": "AI"})
	if len(docs) != 1 {
		t.Fatalf("Expected 1 document with topic AI, got %d", len(docs))
	}

	finds := base.count("Find")
	// an update that changes nothing keeps the cache
	if _, err := coll.UpdateMany(ctx, docstore.Filter{"name": "UCLA"}, update); err != nil {
		t.Fatalf("UpdateMany() failed: %v", err)
	}
	if _, err := coll.Find(ctx, docstore.Filter{"topics": "AI"}); err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if got := base.count("Find"); got != finds {
		t.Errorf("Expected no extra base Find, got %d more", got-finds)
	}
}

func TestInvalidateAndBypass(t *testing.T) {
	ctx := context.Background()
	coll, base := newTestCollection(t)

	if _, err := coll.Find(ctx, nil); err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	// written behind the decorator's back
	if _, err := base.base.InsertOne(ctx, docstore.Document{"name": "UCSF"}); err != nil {
		t.Fatalf("InsertOne() failed: %v", err)
	}

	docs, _ := coll.Find(ctx, nil)
	if len(docs) != 0 {
		t.Fatalf("Expected the stale cached result, got %d documents", len(docs))
	}

	docs, _ = coll.Find(Bypass(ctx), nil)
	if len(docs) != 1 {
		t.Fatalf("Expected Bypass to read the base collection, got %d documents", len(docs))
	}

	coll.Invalidate()
	docs, _ = coll.Find(ctx, nil)
	if len(docs) != 1 {
		t.Fatalf("Expected Invalidate to drop the cached result, got %d documents", len(docs))
	}
}
