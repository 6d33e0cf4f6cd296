package cache

import (
	"time"

	"github.com/goliatone/go-call-history/instrument"
	"github.com/goliatone/go-call-history/internal/cacheinfra"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	// Namespace prefixes the instrumentation keys (counter and logs). Stored
	// values always live under their bare UUID key.
	Namespace string
	// FailurePolicy decides what Store does when the instrumentation writes
	// fail. Defaults to instrument.PolicySwallow.
	FailurePolicy instrument.FailurePolicy
	// ReadThrough enables a process local cache in front of Retrieve.
	// Disabled when nil.
	ReadThrough *ReadThroughConfig
}

// ReadThroughConfig mirrors the underlying sturdyc options.
type ReadThroughConfig struct {
	Capacity             int
	NumShards            int
	TTL                  time.Duration
	EvictionPercentage   int
	MissingRecordStorage bool
	EvictionInterval     time.Duration
}

// DefaultConfig returns a Config with swallowed instrumentation failures and
// no read-through cache.
func DefaultConfig() Config {
	return Config{FailurePolicy: instrument.PolicySwallow}
}

// DefaultReadThroughConfig returns sturdyc settings sized for one cache.
func DefaultReadThroughConfig() *ReadThroughConfig {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if err := c.instrumentConfig().Validate(); err != nil {
		return err
	}
	if c.ReadThrough != nil {
		return c.ReadThrough.toInternal().Validate()
	}
	return nil
}

func (c Config) instrumentConfig() instrument.Config {
	return instrument.Config{
		Namespace:     c.Namespace,
		FailurePolicy: c.FailurePolicy,
	}
}

func (c ReadThroughConfig) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		TTL:                  c.TTL,
		EvictionPercentage:   c.EvictionPercentage,
		MissingRecordStorage: c.MissingRecordStorage,
		EvictionInterval:     c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) *ReadThroughConfig {
	return &ReadThroughConfig{
		Capacity:             cfg.Capacity,
		NumShards:            cfg.NumShards,
		TTL:                  cfg.TTL,
		EvictionPercentage:   cfg.EvictionPercentage,
		MissingRecordStorage: cfg.MissingRecordStorage,
		EvictionInterval:     cfg.EvictionInterval,
	}
}
