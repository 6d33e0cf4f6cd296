package kv

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// Store is the minimal key-value contract consumed by the instrumentation layer
// and the cache. Every method must be atomic for its key; nothing is promised
// across keys.
type Store interface {
	// Incr increments the integer stored at key by one and returns the new value.
	// A missing key counts as zero.
	Incr(ctx context.Context, key string) (int64, error)
	// RPush appends value to the end of the list at key and returns the new length.
	RPush(ctx context.Context, key string, value []byte) (int64, error)
	// LRange returns the whole list at key, oldest entry first.
	// A missing key yields an empty list.
	LRange(ctx context.Context, key string) ([][]byte, error)
	// Get returns the value for key. found is false when the key does not exist.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// FlushDB removes every key from the selected database.
	FlushDB(ctx context.Context) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the backend resources.
	Close() error
}

const (
	TextCodeWrongType   = "KV_WRONG_TYPE"
	TextCodeNotInteger  = "KV_NOT_INTEGER"
	TextCodeUnavailable = "KV_UNAVAILABLE"
	TextCodeRejected    = "KV_REJECTED"
)

var (
	// ErrWrongType is returned when an operation targets a key holding another kind of value.
	ErrWrongType = goerrors.New("operation against a key holding the wrong kind of value", goerrors.CategoryConflict).
			WithTextCode(TextCodeWrongType)

	// ErrNotInteger is returned by Incr when the current value is not a base 10 integer.
	ErrNotInteger = goerrors.New("value is not an integer or out of range", goerrors.CategoryBadInput).
			WithTextCode(TextCodeNotInteger)
)

// Unavailable wraps a backend failure that means the store could not be reached.
func Unavailable(err error, message string) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryExternal, message).WithTextCode(TextCodeUnavailable)
}

// IsUnavailable reports whether err was produced by Unavailable.
func IsUnavailable(err error) bool {
	var e *goerrors.Error
	if goerrors.As(err, &e) {
		return e.TextCode == TextCodeUnavailable
	}
	return false
}

// Rejected wraps an error reply from a reachable backend that no other
// sentinel describes, such as an out of memory refusal.
func Rejected(err error, message string) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryOperation, message).WithTextCode(TextCodeRejected)
}

// IsRejected reports whether err was produced by Rejected.
func IsRejected(err error) bool {
	var e *goerrors.Error
	if goerrors.As(err, &e) {
		return e.TextCode == TextCodeRejected
	}
	return false
}
