package cacheinfra

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 4096 {
		t.Errorf("expected Capacity to be 4096, got %d", cfg.Capacity)
	}
	if cfg.NumShards != 64 {
		t.Errorf("expected NumShards to be 64, got %d", cfg.NumShards)
	}
	if cfg.TTL != 30*time.Minute {
		t.Errorf("expected TTL to be 30 minutes, got %v", cfg.TTL)
	}
	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}
	if cfg.EarlyRefresh != nil {
		t.Error("expected EarlyRefresh to be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func(mut func(*Config)) Config {
		cfg := Config{
			Capacity:           1000,
			NumShards:          16,
			TTL:                5 * time.Minute,
			EvictionPercentage: 10,
		}
		if mut != nil {
			mut(&cfg)
		}
		return cfg
	}

	tests := []struct {
		name      string
		cfg       Config
		wantError bool
		errorMsg  string
	}{
		{
			name: "valid config",
			cfg:  valid(nil),
		},
		{
			name:      "invalid capacity - zero",
			cfg:       valid(func(c *Config) { c.Capacity = 0 }),
			wantError: true,
			errorMsg:  "Capacity: must be greater than 0",
		},
		{
			name:      "invalid capacity - negative",
			cfg:       valid(func(c *Config) { c.Capacity = -5 }),
			wantError: true,
			errorMsg:  "Capacity: must be greater than 0",
		},
		{
			name:      "invalid num shards - zero",
			cfg:       valid(func(c *Config) { c.NumShards = 0 }),
			wantError: true,
			errorMsg:  "NumShards: must be greater than 0",
		},
		{
			name:      "invalid TTL - zero",
			cfg:       valid(func(c *Config) { c.TTL = 0 }),
			wantError: true,
			errorMsg:  "TTL: must be greater than 0",
		},
		{
			name:      "invalid eviction percentage - too high",
			cfg:       valid(func(c *Config) { c.EvictionPercentage = 101 }),
			wantError: true,
			errorMsg:  "EvictionPercentage: must be between 1 and 100",
		},
		{
			name:      "invalid eviction interval",
			cfg:       valid(func(c *Config) { c.EvictionInterval = -time.Second }),
			wantError: true,
			errorMsg:  "EvictionInterval: must be non-negative",
		},
		{
			name: "invalid early refresh",
			cfg: valid(func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{
					MinAsyncRefreshTime: -1 * time.Second,
					MaxAsyncRefreshTime: 20 * time.Second,
					SyncRefreshTime:     30 * time.Second,
					RetryBaseDelay:      100 * time.Millisecond,
				}
			}),
			wantError: true,
			errorMsg:  "EarlyRefresh.MinAsyncRefreshTime: must be non-negative",
		},
		{
			name: "valid early refresh",
			cfg: valid(func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{
					MinAsyncRefreshTime: 10 * time.Second,
					MaxAsyncRefreshTime: 20 * time.Second,
					SyncRefreshTime:     30 * time.Second,
					RetryBaseDelay:      100 * time.Millisecond,
				}
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !tt.wantError {
				if err != nil {
					t.Errorf("expected no error but got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	minimal := DefaultConfig()
	if got := len(minimal.ToSturdycOptions()); got != 0 {
		t.Errorf("expected no sturdyc options for default config, got %d", got)
	}

	full := DefaultConfig()
	full.EvictionInterval = time.Minute
	full.EarlyRefresh = &EarlyRefreshConfig{
		MinAsyncRefreshTime: time.Second,
		MaxAsyncRefreshTime: 2 * time.Second,
		SyncRefreshTime:     3 * time.Second,
		RetryBaseDelay:      time.Millisecond,
	}
	if got := len(full.ToSturdycOptions()); got != 2 {
		t.Errorf("expected 2 sturdyc options, got %d", got)
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "TestField", Message: "test message"}

	expected := "config error in field TestField: test message"
	if err.Error() != expected {
		t.Errorf("expected error message %q, got %q", expected, err.Error())
	}
}

func TestNewSturdycService(t *testing.T) {
	service, err := NewSturdycService(DefaultConfig())
	if err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}
	if service == nil {
		t.Fatal("expected service to be non-nil")
	}

	bad := DefaultConfig()
	bad.TTL = 0
	service, err = NewSturdycService(bad)
	if err == nil {
		t.Fatal("expected error for zero TTL")
	}
	if service != nil {
		t.Error("expected service to be nil when error occurs")
	}
}

func newTestService(t *testing.T) *SturdycService {
	t.Helper()
	service, err := NewSturdycService(Config{
		Capacity:           100,
		NumShards:          2,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func TestSturdycService_GetOrFetch(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	t.Run("cache miss then hit", func(t *testing.T) {
		calls := 0
		fetchFn := func(ctx context.Context) (any, error) {
			calls++
			return "value", nil
		}

		for range 3 {
			result, err := service.GetOrFetch(ctx, "hit-key", fetchFn)
			if err != nil {
				t.Fatalf("expected no error but got: %v", err)
			}
			if result != "value" {
				t.Errorf("expected value, got %v", result)
			}
		}
		if calls != 1 {
			t.Errorf("expected 1 fetch, got %d", calls)
		}
	})

	t.Run("failed fetch is not stored", func(t *testing.T) {
		calls := 0
		fetchFn := func(ctx context.Context) (any, error) {
			calls++
			return nil, errors.New("fetch failed")
		}

		for range 2 {
			if _, err := service.GetOrFetch(ctx, "error-key", fetchFn); err == nil {
				t.Error("expected error but got none")
			}
		}
		if calls != 2 {
			t.Errorf("expected every call to fetch again, got %d fetches", calls)
		}
	})

	t.Run("typed fetch function", func(t *testing.T) {
		fetchFn := func(ctx context.Context) (int, error) { return 42, nil }

		result, err := service.GetOrFetch(ctx, "typed-key", fetchFn)
		if err != nil {
			t.Fatalf("expected no error but got: %v", err)
		}
		if result != 42 {
			t.Errorf("expected 42, got %v", result)
		}
	})

	invalid := []struct {
		name    string
		fetchFn any
		message string
	}{
		{name: "nil", fetchFn: nil, message: "cannot be nil"},
		{name: "not a function", fetchFn: "nope", message: "must be a function"},
		{name: "no parameters", fetchFn: func() (any, error) { return nil, nil }, message: "must have signature func(context.Context) (T, error)"},
		{name: "wrong parameter", fetchFn: func(string) (any, error) { return nil, nil }, message: "first parameter must be context.Context"},
		{name: "wrong result", fetchFn: func(context.Context) (any, string) { return nil, "" }, message: "second return value must be error"},
	}
	for _, tt := range invalid {
		t.Run("invalid "+tt.name, func(t *testing.T) {
			result, err := service.GetOrFetch(ctx, "invalid-key", tt.fetchFn)
			if result != nil {
				t.Errorf("expected nil result but got: %v", result)
			}
			var configErr *ConfigError
			if !errors.As(err, &configErr) {
				t.Fatalf("expected ConfigError but got: %T", err)
			}
			if configErr.Field != "fetchFn" || configErr.Message != tt.message {
				t.Errorf("unexpected error %v", configErr)
			}
		})
	}
}

func TestSturdycService_DeleteAndClear(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	fetch := func(v string) func(context.Context) (any, error) {
		return func(context.Context) (any, error) { return v, nil }
	}

	for _, k := range []string{"member:a", "member:b", "closure:a"} {
		if _, err := service.GetOrFetch(ctx, k, fetch(k)); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}
	if service.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", service.Len())
	}

	if err := service.Delete(ctx, "member:a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if service.Len() != 2 {
		t.Errorf("expected 2 entries after delete, got %d", service.Len())
	}

	if err := service.DeleteByPrefix(ctx, "member:"); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	if service.Len() != 1 {
		t.Errorf("expected 1 entry after prefix delete, got %d", service.Len())
	}

	if err := service.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if service.Len() != 0 {
		t.Errorf("expected no entries after clear, got %d", service.Len())
	}

	result, err := service.GetOrFetch(ctx, "member:a", fetch("fresh"))
	if err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	if result != "fresh" {
		t.Errorf("expected a fresh fetch after clear, got %v", result)
	}
}
