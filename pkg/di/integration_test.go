package di

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-call-history/cache"
	"github.com/goliatone/go-call-history/docstore"
	"github.com/goliatone/go-call-history/pkg/testsupport"
	"github.com/goliatone/go-call-history/schools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisContainer(t *testing.T) *Container {
	t.Helper()
	mr := testsupport.Redis(t)

	config := DefaultConfig()
	config.Store = StoreRedis
	config.Redis.Addr = mr.Addr()
	config.Cache.Namespace = "integration"

	container, err := NewContainer(context.Background(), config, WithLogger(discardLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(context.Background()) })
	return container
}

func TestEndToEndCacheFlow(t *testing.T) {
	ctx := context.Background()
	container := newRedisContainer(t)

	c, err := container.Cache(ctx)
	require.NoError(t, err)

	keys := make(map[string]any)
	for _, v := range []any{"foo", 42, []byte("bar"), 3.5} {
		key, err := c.Store(ctx, v)
		require.NoError(t, err)
		keys[key] = v
	}

	for key, v := range keys {
		switch want := v.(type) {
		case string:
			got, ok, err := c.GetString(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, want, got)
		case int:
			got, ok, err := c.GetInt(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, int64(want), got)
		case []byte:
			got, ok, err := c.GetBytes(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, want, got)
		case float64:
			got, ok, err := c.GetFloat(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, want, got)
		}
	}

	trace, err := c.Trace(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), trace.Count)
	assert.Len(t, trace.Calls, 4)

	var buf bytes.Buffer
	require.NoError(t, c.Replay(ctx, &buf))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 5)
	assert.Equal(t, "Cache.Store was called 4 times:", lines[0])
}

func TestConcurrentStore(t *testing.T) {
	ctx := context.Background()
	container := newRedisContainer(t)

	c, err := container.Cache(ctx)
	require.NoError(t, err)

	const numGoroutines = 20
	const operationsPerGoroutine = 10

	var wg sync.WaitGroup
	errs := make(chan error, numGoroutines*operationsPerGoroutine)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := 0; j < operationsPerGoroutine; j++ {
				value := fmt.Sprintf("worker-%d-%d", workerID, j)
				key, err := c.Store(ctx, value)
				if err != nil {
					errs <- err
					continue
				}
				got, ok, err := c.GetString(ctx, key)
				if err != nil || !ok || got != value {
					errs <- fmt.Errorf("worker %d op %d: got %q, %v, %v", workerID, j, got, ok, err)
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	trace, err := c.Trace(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(numGoroutines*operationsPerGoroutine), trace.Count)
	assert.Len(t, trace.Calls, numGoroutines*operationsPerGoroutine)
}

func TestReadThroughIntegration(t *testing.T) {
	ctx := context.Background()
	mr := testsupport.Redis(t)

	config := DefaultConfig()
	config.Store = StoreRedis
	config.Redis.Addr = mr.Addr()
	config.Cache.ReadThrough = cache.DefaultReadThroughConfig()

	container, err := NewContainer(ctx, config, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer container.Close(ctx)

	c, err := container.Cache(ctx)
	require.NoError(t, err)

	key, err := c.Store(ctx, "cached")
	require.NoError(t, err)

	got, ok, err := c.GetString(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cached", got)

	// values are immutable, the second read is served locally
	mr.Del(key)
	got, ok, err = c.GetString(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cached", got)
}

func TestSchoolsIntegration(t *testing.T) {
	ctx := context.Background()
	container := newRedisContainer(t)

	coll, err := container.Collection(ctx, "school")
	require.NoError(t, err)

	for _, doc := range []docstore.Document{
		{"name": "Holberton school"},
		{"name": "UCSF", "topics": []string{"Algo"}},
	} {
		_, err := schools.InsertSchool(ctx, coll, doc)
		require.NoError(t, err)
	}

	_, err = schools.UpdateTopics(ctx, coll, "Holberton school", []string{"Algo", "C"})
	require.NoError(t, err)

	docs, err := schools.SchoolsByTopic(ctx, coll, "Algo")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	all, err := schools.ListAll(ctx, coll)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
