package di

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/goliatone/go-adapter-cache/cache"
	"github.com/goliatone/go-adapter-cache/pkg/testsupport"
	"github.com/goliatone/go-adapter-cache/scope"
	"github.com/goliatone/go-adapter-cache/synth"
)

func TestNewContainer(t *testing.T) {
	config := cache.Config{
		Capacity:           1000,
		NumShards:          16,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EarlyRefresh: &cache.EarlyRefreshConfig{
			MinAsyncRefreshTime: 10 * time.Second,
			MaxAsyncRefreshTime: 20 * time.Second,
			SyncRefreshTime:     30 * time.Second,
			RetryBaseDelay:      100 * time.Millisecond,
		},
		AllowPrivate: true,
	}

	container, err := NewContainer(config)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	if container.CacheService() == nil {
		t.Error("Container should have a non-nil cache service")
	}
	if container.Factory() == nil || container.Registry() == nil || container.Manager() == nil {
		t.Error("Container should wire factory, registry and manager")
	}
	if container.Classifier().Home() != scope.System() {
		t.Errorf("expected the system scope as default home, got %s", container.Classifier().Home())
	}

	stored := container.Config()
	if stored.Capacity != config.Capacity || stored.TTL != config.TTL {
		t.Errorf("unexpected stored config %+v", stored)
	}
}

func TestNewContainerWithDefaults(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	config := container.Config()
	defaults := cache.DefaultConfig()
	if config.Capacity != defaults.Capacity || config.TTL != defaults.TTL {
		t.Errorf("expected default config, got %+v", config)
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	invalid := cache.Config{
		Capacity:           0,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}

	if _, err := NewContainer(invalid); err == nil {
		t.Error("NewContainer() should fail with invalid config")
	}
}

func TestNewContainerFromFile(t *testing.T) {
	path := testsupport.WriteFixture(t, "cache.toml", `
capacity = 64
num_shards = 4
ttl = "2m"
allow_private = false
`)

	container, err := NewContainerFromFile(path)
	if err != nil {
		t.Fatalf("NewContainerFromFile() failed: %v", err)
	}
	if got := container.Config(); got.Capacity != 64 || got.TTL != 2*time.Minute || got.AllowPrivate {
		t.Errorf("unexpected config %+v", got)
	}

	if _, err := NewContainerFromFile(testsupport.FixturePath("missing.toml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestContainer_AllowPrivate(t *testing.T) {
	tests := []struct {
		name       string
		allow      bool
		wantAccess bool
	}{
		{"allowed", true, false},
		{"denied", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scope.New("private", nil)
			defer s.Close()
			fx := testsupport.MustDefineFixtures(t, s)

			config := cache.DefaultConfig()
			config.AllowPrivate = tt.allow
			container, err := NewContainer(config)
			if err != nil {
				t.Fatalf("NewContainer: %v", err)
			}

			_, err = container.Wrap(fx.Secret, cache.NewKey(fx.Supplier, testsupport.NewInstanceTester("x")))
			if got := synth.IsAccess(err); got != tt.wantAccess {
				t.Errorf("expected access error %t, got %v", tt.wantAccess, err)
			}
		})
	}
}

func TestContainer_Disabled(t *testing.T) {
	s := scope.New("disabled", nil)
	defer s.Close()
	fx := testsupport.MustDefineFixtures(t, s)

	counter := testsupport.NewCountingSynthesizer(nil)
	config := cache.DefaultConfig()
	config.Disabled = true
	container, err := NewContainer(config, WithSynthesizer(counter))
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}

	for range 3 {
		if _, err := container.WrapType(fx.StaticGreeting, fx.Supplier); err != nil {
			t.Fatalf("WrapType: %v", err)
		}
	}
	if counter.Calls() != 3 {
		t.Errorf("expected every call to synthesize with caching disabled, got %d", counter.Calls())
	}
	if stats := container.Stats(); stats != (cache.Stats{}) {
		t.Errorf("expected empty stats, got %+v", stats)
	}
}

func TestContainer_WrapHandle(t *testing.T) {
	s := scope.New("handles", nil)
	defer s.Close()
	fx := testsupport.MustDefineFixtures(t, s)

	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults: %v", err)
	}

	h, err := synth.NewHandle(testsupport.Shout)
	if err != nil {
		t.Fatalf("NewHandle: %v", err)
	}
	a, err := container.WrapHandle(h, cache.NewKey(fx.Supplier, "hey"))
	if err != nil {
		t.Fatalf("WrapHandle: %v", err)
	}
	if got := a.Interface().(testsupport.Supplier).Get(); got != "HEY!" {
		t.Errorf("expected HEY!, got %q", got)
	}
	if stats := container.Stats(); stats.HandleWrappers != 1 {
		t.Errorf("expected one handle wrapper, got %+v", stats)
	}
	runtime.KeepAlive(h)
	runtime.KeepAlive(a)
}

func TestContainer_ClearCaches(t *testing.T) {
	s := scope.New("clear", nil)
	defer s.Close()
	fx := testsupport.MustDefineFixtures(t, s)

	counter := testsupport.NewCountingSynthesizer(nil)
	container, err := NewContainerWithDefaults(WithSynthesizer(counter), WithSerialSynthesizer(counter))
	if err != nil {
		t.Fatalf("NewContainerWithDefaults: %v", err)
	}
	ctx := context.Background()

	if _, err := container.WrapType(fx.StaticGreeting, fx.Supplier); err != nil {
		t.Fatalf("WrapType: %v", err)
	}
	if err := container.ClearCaches(ctx); err != nil {
		t.Fatalf("ClearCaches: %v", err)
	}
	if _, err := container.WrapType(fx.StaticGreeting, fx.Supplier); err != nil {
		t.Fatalf("WrapType: %v", err)
	}
	if counter.Calls() != 2 {
		t.Errorf("expected exactly one synthesis after clear, got %d total", counter.Calls())
	}
}
