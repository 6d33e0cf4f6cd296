package memory

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/goliatone/go-call-history/kv"
	"github.com/puzpuzpuz/xsync/v3"
)

var _ kv.Store = (*Store)(nil)

var errClosed = errors.New("memory store is closed")

type entryKind uint8

const (
	kindValue entryKind = iota + 1
	kindList
)

// entry is never mutated in place; Compute swaps in a fresh copy so readers
// holding an older entry keep a consistent view.
type entry struct {
	kind  entryKind
	value []byte
	list  [][]byte
}

// Store is an in-process kv.Store. Per key atomicity comes from
// xsync.MapOf.Compute, which locks the key's bucket while the update runs.
type Store struct {
	data   *xsync.MapOf[string, entry]
	closed atomic.Bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: xsync.NewMapOf[string, entry]()}
}

func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}

	var (
		next   int64
		result error
	)
	s.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
		if !loaded {
			next = 1
			return entry{kind: kindValue, value: []byte("1")}, false
		}
		if old.kind != kindValue {
			result = kv.ErrWrongType
			return old, false
		}
		current, err := strconv.ParseInt(string(old.value), 10, 64)
		if err != nil {
			result = kv.ErrNotInteger
			return old, false
		}
		next = current + 1
		return entry{kind: kindValue, value: []byte(strconv.FormatInt(next, 10))}, false
	})
	if result != nil {
		return 0, result
	}
	return next, nil
}

func (s *Store) RPush(ctx context.Context, key string, value []byte) (int64, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}

	var (
		length int64
		result error
	)
	s.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
		if loaded && old.kind != kindList {
			result = kv.ErrWrongType
			return old, false
		}
		list := make([][]byte, len(old.list), len(old.list)+1)
		copy(list, old.list)
		list = append(list, clone(value))
		length = int64(len(list))
		return entry{kind: kindList, list: list}, false
	})
	if result != nil {
		return 0, result
	}
	return length, nil
}

func (s *Store) LRange(ctx context.Context, key string) ([][]byte, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	e, ok := s.data.Load(key)
	if !ok {
		return [][]byte{}, nil
	}
	if e.kind != kindList {
		return nil, kv.ErrWrongType
	}

	out := make([][]byte, len(e.list))
	for i, item := range e.list {
		out[i] = clone(item)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.check(ctx); err != nil {
		return nil, false, err
	}

	e, ok := s.data.Load(key)
	if !ok {
		return nil, false, nil
	}
	if e.kind != kindValue {
		return nil, false, kv.ErrWrongType
	}
	return clone(e.value), true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.data.Store(key, entry{kind: kindValue, value: clone(value)})
	return nil
}

func (s *Store) FlushDB(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.data.Clear()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.check(ctx)
}

// Close marks the store as unreachable. Every later call fails with an
// unavailable error, which makes Close handy for simulating an outage in tests.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

// Len returns the number of keys currently held.
func (s *Store) Len() int {
	return s.data.Size()
}

func (s *Store) check(ctx context.Context) error {
	if s.closed.Load() {
		return kv.Unavailable(errClosed, "memory store")
	}
	if err := ctx.Err(); err != nil {
		return kv.Unavailable(err, "memory store")
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
