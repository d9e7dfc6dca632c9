package di

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-adapter-cache/cache"
	"github.com/goliatone/go-adapter-cache/pkg/testsupport"
	"github.com/goliatone/go-adapter-cache/scope"
	"github.com/goliatone/go-adapter-cache/serialization"
	"github.com/goliatone/go-adapter-cache/synth"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		runtime.GC()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// TestEndToEndAdapterFlow wraps, serializes, restores and clears through the
// container, the way an embedding application would.
func TestEndToEndAdapterFlow(t *testing.T) {
	home := scope.New("app", nil)
	defer home.Close()
	fx := testsupport.MustDefineFixtures(t, home)

	counter := testsupport.NewCountingSynthesizer(nil)
	container, err := NewContainerWithDefaults(
		WithHome(home),
		WithSynthesizer(counter),
		WithSerialSynthesizer(counter),
	)
	if err != nil {
		t.Fatalf("Failed to create DI container: %v", err)
	}
	ctx := context.Background()
	tester := testsupport.NewInstanceTester("good day")

	// Phase 1: first request synthesizes
	key := cache.NewKeyBuilder(fx.Supplier).Capture(tester).Serializable(true).Build()
	a, err := container.Wrap(fx.GetGreeting, key)
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	if got := a.Interface().(testsupport.Supplier).Get(); got != "good day" {
		t.Errorf("expected %q, got %q", "good day", got)
	}

	// Phase 2: an equal key built elsewhere hits the cache
	other := cache.NewKeyBuilder(fx.Supplier).Serializable(true).Capture(tester).Build()
	again, err := container.Wrap(fx.GetGreeting, other)
	if err != nil {
		t.Fatalf("second Wrap failed: %v", err)
	}
	if again != a || counter.Calls() != 1 {
		t.Errorf("expected a cache hit, got %d syntheses", counter.Calls())
	}

	// Phase 3: the home scope is immortal, its entries live in the shared partition
	if stats := container.Stats(); stats.ImmortalEntries == 0 || stats.EphemeralScopes != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}

	// Phase 4: reconstruct in process, then serialize and restore. Equal
	// content resolves to the adapter already cached.
	form, _ := a.SerialForm()
	reconstructed, err := container.Reconstruct(ctx, form)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if reconstructed != a {
		t.Error("expected in-process reconstruction to return the cached adapter")
	}

	codec, err := serialization.NewCBORCodec()
	if err != nil {
		t.Fatalf("NewCBORCodec: %v", err)
	}
	data, err := container.Registry().Encode(codec, a)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	restored, err := container.Registry().Restore(ctx, codec, data)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := restored.Interface().(testsupport.Supplier).Get(); got != "good day" {
		t.Errorf("expected the restored adapter to greet, got %q", got)
	}
	if restored != a || counter.Calls() != 1 {
		t.Errorf("expected the restored payload to reuse the adapter, got %d syntheses", counter.Calls())
	}

	// Phase 5: clear, then exactly one new synthesis
	if err := container.ClearCaches(ctx); err != nil {
		t.Fatalf("ClearCaches: %v", err)
	}
	before := counter.Calls()
	fresh, err := container.Wrap(fx.GetGreeting, key)
	if err != nil {
		t.Fatalf("Wrap after clear: %v", err)
	}
	if _, err := container.Wrap(fx.GetGreeting, key); err != nil {
		t.Fatalf("Wrap after clear: %v", err)
	}
	runtime.KeepAlive(fresh)
	if got := counter.Calls() - before; got != 1 {
		t.Errorf("expected one synthesis after clear, got %d", got)
	}
}

// TestPluginScopeLifecycle checks that a plugin scope gets its own partition
// and that closing it drops the partition.
func TestPluginScopeLifecycle(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("Failed to create DI container: %v", err)
	}

	plugin := scope.New("plugin", nil)
	fx := testsupport.MustDefineFixtures(t, plugin)

	a, err := container.WrapType(fx.StaticGreeting, fx.Supplier)
	if err != nil {
		t.Fatalf("WrapType: %v", err)
	}
	if stats := container.Stats(); stats.EphemeralScopes != 1 || stats.EphemeralEntries == 0 {
		t.Errorf("expected one populated plugin partition, got %+v", stats)
	}

	plugin.Close()
	if stats := container.Stats(); stats.EphemeralScopes != 0 {
		t.Errorf("expected the partition to go with the scope, got %+v", stats)
	}
	if got := a.Interface().(testsupport.Supplier).Get(); got != "hello" {
		t.Errorf("expected adapters to outlive the partition, got %q", got)
	}
}

// TestUnreachablePluginScopeIsCollected checks that caching alone never keeps
// a plugin scope alive.
func TestUnreachablePluginScopeIsCollected(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("Failed to create DI container: %v", err)
	}

	func() {
		plugin := scope.New("transient-plugin", nil)
		fx := testsupport.MustDefineFixtures(t, plugin)
		if _, err := container.Wrap(fx.GetGreeting, cache.NewKey(fx.Supplier, testsupport.NewInstanceTester("x"))); err != nil {
			t.Fatalf("Wrap: %v", err)
		}
	}()

	waitFor(t, "the plugin partition to be collected", func() bool {
		return container.Stats().EphemeralScopes == 0
	})
}

// TestUnreferencedAdaptersReleaseCaptures checks that an immortal partition
// does not keep captured receivers alive once their adapters are unreachable.
func TestUnreferencedAdaptersReleaseCaptures(t *testing.T) {
	home := scope.New("release", nil)
	defer home.Close()
	fx := testsupport.MustDefineFixtures(t, home)

	container, err := NewContainerWithDefaults(WithHome(home))
	if err != nil {
		t.Fatalf("Failed to create DI container: %v", err)
	}

	const n = 200
	var collected atomic.Int32
	for i := range n {
		tester := testsupport.NewInstanceTester(fmt.Sprintf("tester-%d", i))
		runtime.AddCleanup(tester, func(c *atomic.Int32) { c.Add(1) }, &collected)
		if _, err := container.Wrap(fx.GetGreeting, cache.NewKey(fx.Supplier, tester)); err != nil {
			t.Fatalf("Wrap: %v", err)
		}
	}

	waitFor(t, "captured receivers to be collected", func() bool {
		return collected.Load() == n && container.Stats().ImmortalEntries < n
	})
}

// TestErrorPropagation checks that each error kind reaches the caller and
// nothing is cached on failure.
func TestErrorPropagation(t *testing.T) {
	s := scope.New("errors", nil)
	defer s.Close()
	fx := testsupport.MustDefineFixtures(t, s)

	counter := testsupport.NewCountingSynthesizer(nil)
	config := cache.DefaultConfig()
	config.AllowPrivate = false
	container, err := NewContainer(config, WithHome(s), WithSynthesizer(counter), WithSerialSynthesizer(counter))
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		name  string
		call  func() error
		check func(error) bool
	}{
		{"shape", func() error {
			_, err := container.WrapType(fx.StaticGreeting, fx.Accessor)
			return err
		}, synth.IsInterfaceShape},
		{"invalid capture", func() error {
			_, err := container.Wrap(fx.GetGreeting, cache.NewKey(fx.Supplier, 42))
			return err
		}, synth.IsInvalidCapture},
		{"access", func() error {
			_, err := container.Wrap(fx.Secret, cache.NewKey(fx.Supplier, testsupport.NewInstanceTester("x")))
			return err
		}, synth.IsAccess},
		{"member not found", func() error {
			_, err := container.Reconstruct(ctx, synth.SerializedClosure{
				InterfaceType: fx.Supplier.Name(),
				Impl:          scope.MemberRef{Type: fx.Tester.Name(), Name: "Missing", Signature: "func() string"},
			})
			return err
		}, synth.IsMemberNotFound},
		{"synthesis", func() error {
			_, err := container.WrapType(fx.Shout, fx.Supplier)
			return err
		}, synth.IsSynthesis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 2 {
				if err := tt.call(); !tt.check(err) {
					t.Fatalf("unexpected error %v", err)
				}
			}
		})
	}

	// Only the synthesis case reaches the synthesizer, once per attempt.
	if calls := counter.Calls(); calls != 2 {
		t.Errorf("expected 2 synthesis attempts, got %d", calls)
	}
}
