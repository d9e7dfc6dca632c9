package cache

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/goliatone/go-adapter-cache/internal/cacheinfra"
)

// Config exposes cache configuration options for consumers of the cache package.
//
// The sturdyc settings size the lookup cache used for member resolution. The
// adapter partitions are unbounded and only shrink on Clear or when a scope
// goes away.
type Config struct {
	Capacity           int                 `toml:"capacity"`
	NumShards          int                 `toml:"num_shards"`
	TTL                time.Duration       `toml:"ttl"`
	EvictionPercentage int                 `toml:"eviction_percentage"`
	EarlyRefresh       *EarlyRefreshConfig `toml:"early_refresh"`
	EvictionInterval   time.Duration       `toml:"eviction_interval"`

	// AllowPrivate lets handles reach unexported members.
	AllowPrivate bool `toml:"allow_private"`

	// Disabled swaps in the noop manager and service.
	Disabled bool `toml:"disabled"`
}

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration `toml:"min_async_refresh_time"`
	MaxAsyncRefreshTime time.Duration `toml:"max_async_refresh_time"`
	SyncRefreshTime     time.Duration `toml:"sync_refresh_time"`
	RetryBaseDelay      time.Duration `toml:"retry_base_delay"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	cfg := convertFromInternal(cacheinfra.DefaultConfig())
	cfg.AllowPrivate = true
	return cfg
}

// LoadConfig reads a TOML file on top of DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("cannot read cache config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewCacheService constructs the default cache service implementation using the provided configuration.
func NewCacheService(cfg Config) (CacheService, error) {
	if cfg.Disabled {
		return NewNoopCacheService(), nil
	}
	svc, err := cacheinfra.NewSturdycService(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (c Config) toInternal() cacheinfra.Config {
	var early *cacheinfra.EarlyRefreshConfig
	if c.EarlyRefresh != nil {
		early = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}

	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EarlyRefresh:       early,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	var early *EarlyRefreshConfig
	if cfg.EarlyRefresh != nil {
		early = &EarlyRefreshConfig{
			MinAsyncRefreshTime: cfg.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: cfg.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     cfg.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      cfg.EarlyRefresh.RetryBaseDelay,
		}
	}

	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EarlyRefresh:       early,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
