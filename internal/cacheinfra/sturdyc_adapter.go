package cacheinfra

import (
	"context"
	"reflect"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc backed lookup cache. Resolved
// members and reconstructed closures are kept here; adapters themselves live in
// the lifetime partitions and are never subject to TTL eviction.
type Config struct {
	// Capacity is the maximum number of entries. Must be greater than 0.
	Capacity int

	// NumShards is the number of cache shards. Must be greater than 0.
	NumShards int

	// TTL is the time-to-live for cached entries. Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage is the share of entries evicted when the cache is full.
	// Must be between 1 and 100.
	EvictionPercentage int

	// EarlyRefresh enables background refreshes. Nil disables them.
	EarlyRefresh *EarlyRefreshConfig

	// EvictionInterval sets how often expired entries are swept. Zero uses the
	// sturdyc default.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig mirrors sturdyc.WithEarlyRefreshes.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns the defaults used by the lookup cache.
func DefaultConfig() Config {
	return Config{
		Capacity:           4096,
		NumShards:          64,
		TTL:                30 * time.Minute,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the optional settings to sturdyc options. Capacity,
// NumShards, TTL and EvictionPercentage go straight to sturdyc.New.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Capacity,
			validation.Required.Error("must be greater than 0"),
			validation.Min(1).Error("must be greater than 0"),
		),
		validation.Field(&c.NumShards,
			validation.Required.Error("must be greater than 0"),
			validation.Min(1).Error("must be greater than 0"),
		),
		validation.Field(&c.TTL,
			validation.Required.Error("must be greater than 0"),
			validation.Min(time.Duration(1)).Error("must be greater than 0"),
		),
		validation.Field(&c.EvictionPercentage,
			validation.Required.Error("must be between 1 and 100"),
			validation.Min(1).Error("must be between 1 and 100"),
			validation.Max(100).Error("must be between 1 and 100"),
		),
		validation.Field(&c.EvictionInterval,
			validation.Min(time.Duration(0)).Error("must be non-negative"),
		),
		validation.Field(&c.EarlyRefresh),
	)
	if err != nil {
		return errors.FromOzzoValidation(err, "invalid cache config")
	}
	return nil
}

// Validate checks that every refresh duration is non-negative.
func (c EarlyRefreshConfig) Validate() error {
	nonNegative := validation.Min(time.Duration(0)).Error("must be non-negative")
	return validation.ValidateStruct(&c,
		validation.Field(&c.MinAsyncRefreshTime, nonNegative),
		validation.Field(&c.MaxAsyncRefreshTime, nonNegative),
		validation.Field(&c.SyncRefreshTime, nonNegative),
		validation.Field(&c.RetryBaseDelay, nonNegative),
	)
}

// ConfigError reports an invalid argument handed to the service.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// SturdycService wraps a sturdyc client.
type SturdycService struct {
	client *sturdyc.Client[any]
}

// NewSturdycService validates cfg and builds a sturdyc client from it.
func NewSturdycService(cfg Config) (*SturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycService{client: client}, nil
}

// validateFetchFn checks that fetchFn has the shape func(context.Context) (T, error).
func validateFetchFn(fetchFn any) error {
	if fetchFn == nil {
		return &ConfigError{Field: "fetchFn", Message: "cannot be nil"}
	}

	fnType := reflect.TypeOf(fetchFn)
	if fnType.Kind() != reflect.Func {
		return &ConfigError{Field: "fetchFn", Message: "must be a function"}
	}

	if fnType.NumIn() != 1 || fnType.NumOut() != 2 {
		return &ConfigError{Field: "fetchFn", Message: "must have signature func(context.Context) (T, error)"}
	}

	if !fnType.In(0).Implements(reflect.TypeFor[context.Context]()) {
		return &ConfigError{Field: "fetchFn", Message: "first parameter must be context.Context"}
	}

	if !fnType.Out(1).Implements(reflect.TypeFor[error]()) {
		return &ConfigError{Field: "fetchFn", Message: "second return value must be error"}
	}

	return nil
}

// GetOrFetch returns the value stored under key, calling fetchFn on a miss.
// Failed fetches are not stored.
func (s *SturdycService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	return s.client.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return callFetchFunctionWithReflection(ctx, fetchFn)
	})
}

// callFetchFunctionWithReflection calls a fetchFn already checked by
// validateFetchFn.
func callFetchFunctionWithReflection(ctx context.Context, fetchFn any) (any, error) {
	if fn, ok := fetchFn.(func(context.Context) (any, error)); ok {
		return fn(ctx)
	}

	results := reflect.ValueOf(fetchFn).Call([]reflect.Value{reflect.ValueOf(ctx)})

	var result any
	if rv := results[0]; rv.IsValid() && rv.CanInterface() {
		result = rv.Interface()
	}

	var err error
	if ev := results[1]; ev.IsValid() && !ev.IsNil() {
		err = ev.Interface().(error)
	}

	return result, err
}

// Delete removes a single entry.
func (s *SturdycService) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *SturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// Clear removes every entry.
func (s *SturdycService) Clear(ctx context.Context) error {
	for _, key := range s.client.ScanKeys() {
		s.client.Delete(key)
	}
	return nil
}

// Len returns the number of stored entries.
func (s *SturdycService) Len() int {
	return len(s.client.ScanKeys())
}
