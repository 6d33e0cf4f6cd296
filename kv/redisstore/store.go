package redisstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-call-history/kv"
	"github.com/redis/go-redis/v9"
)

var _ kv.Store = (*Store)(nil)

// Config holds the connection settings for a single Redis node.
type Config struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig targets a local Redis on the default port and database 0.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store adapts a go-redis client to kv.Store.
type Store struct {
	client redis.UniversalClient
}

// New opens a client for cfg. The connection is established lazily, call Ping
// to fail fast.
func New(cfg Config) *Store {
	return NewFromClient(redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}))
}

// NewFromClient wraps an existing client. Closing the Store closes the client.
func NewFromClient(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, mapError(err, "redis INCR")
	}
	return n, nil
}

func (s *Store) RPush(ctx context.Context, key string, value []byte) (int64, error) {
	n, err := s.client.RPush(ctx, key, value).Result()
	if err != nil {
		return 0, mapError(err, "redis RPUSH")
	}
	return n, nil
}

func (s *Store) LRange(ctx context.Context, key string) ([][]byte, error) {
	items, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, mapError(err, "redis LRANGE")
	}
	out := make([][]byte, len(items))
	for i, item := range items {
		out[i] = []byte(item)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapError(err, "redis GET")
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return mapError(err, "redis SET")
	}
	return nil
}

func (s *Store) FlushDB(ctx context.Context) error {
	if err := s.client.FlushDB(ctx).Err(); err != nil {
		return mapError(err, "redis FLUSHDB")
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return mapError(err, "redis PING")
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// mapError translates server replies into kv sentinels. Other replies are
// rejections. Anything that is not a Redis reply (dial, timeout, closed pool)
// is treated as the store being unreachable.
func mapError(err error, op string) error {
	var replyErr redis.Error
	if !errors.As(err, &replyErr) {
		return kv.Unavailable(err, op)
	}

	msg := replyErr.Error()
	switch {
	case strings.HasPrefix(msg, "WRONGTYPE"):
		return kv.ErrWrongType
	case strings.Contains(msg, "not an integer"):
		return kv.ErrNotInteger
	default:
		return kv.Rejected(err, op)
	}
}
