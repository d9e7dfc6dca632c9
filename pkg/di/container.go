package di

import (
	"context"

	"github.com/goliatone/go-adapter-cache/adapter"
	"github.com/goliatone/go-adapter-cache/cache"
	"github.com/goliatone/go-adapter-cache/scope"
	"github.com/goliatone/go-adapter-cache/serialization"
	"github.com/goliatone/go-adapter-cache/synth"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("adaptercache.di")

// Container wires the adapter caching components together.
// It owns one classifier, cache manager, factory and serialization registry,
// all built from a single cache.Config.
type Container struct {
	config     cache.Config
	classifier *scope.Classifier
	manager    cache.CacheManager
	factory    *adapter.Factory
	lookups    cache.CacheService
	registry   *serialization.Registry
}

type options struct {
	home        *scope.Scope
	synthesizer synth.Synthesizer
	serial      synth.Synthesizer
	resolver    synth.HandleResolver
}

// Option customizes the components a Container builds.
type Option func(*options)

// WithHome sets the scope the caches are defined in. The home scope and its
// ancestors are immortal and serialized names are resolved in it.
func WithHome(s *scope.Scope) Option {
	return func(o *options) { o.home = s }
}

// WithSynthesizer replaces the default synthesizer.
func WithSynthesizer(s synth.Synthesizer) Option {
	return func(o *options) { o.synthesizer = s }
}

// WithSerialSynthesizer replaces the privileged synthesizer used for
// serializable adapters.
func WithSerialSynthesizer(s synth.Synthesizer) Option {
	return func(o *options) { o.serial = s }
}

// WithResolver replaces the handle resolver. It takes precedence over
// Config.AllowPrivate.
func WithResolver(r synth.HandleResolver) Option {
	return func(o *options) { o.resolver = r }
}

// NewContainer creates a new container from config.
// With config.Disabled set, the manager and lookup cache are noops.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	lookups, err := cache.NewCacheService(config)
	if err != nil {
		return nil, err
	}

	classifier := scope.NewClassifier(o.home)

	var manager cache.CacheManager
	if config.Disabled {
		manager = cache.NewNoopCacheManager()
	} else {
		manager = cache.NewCacheManager(classifier)
	}

	factory := adapter.New(manager,
		adapter.WithAllowPrivate(config.AllowPrivate),
		adapter.WithSynthesizer(o.synthesizer),
		adapter.WithSerialSynthesizer(o.serial),
		adapter.WithResolver(o.resolver),
	)

	registry := serialization.NewRegistry(classifier.Home(), factory,
		serialization.WithLookupCache(lookups))

	log.Info("container ready", "home", classifier.Home().String(), "disabled", config.Disabled)

	return &Container{
		config:     config,
		classifier: classifier,
		manager:    manager,
		factory:    factory,
		lookups:    lookups,
		registry:   registry,
	}, nil
}

// NewContainerWithDefaults creates a new container using cache.DefaultConfig.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// NewContainerFromFile loads a TOML config from path and creates a container.
func NewContainerFromFile(path string, opts ...Option) (*Container, error) {
	config, err := cache.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return NewContainer(config, opts...)
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() cache.Config { return c.config }

// Classifier returns the scope lifetime classifier.
func (c *Container) Classifier() *scope.Classifier { return c.classifier }

// Manager returns the lifetime-scoped cache manager.
func (c *Container) Manager() cache.CacheManager { return c.manager }

// Factory returns the adapter factory.
func (c *Container) Factory() *adapter.Factory { return c.factory }

// Registry returns the serialization registry.
func (c *Container) Registry() *serialization.Registry { return c.registry }

// CacheService returns the lookup cache shared with the registry.
func (c *Container) CacheService() cache.CacheService { return c.lookups }

// Wrap returns the adapter of m for key.
func (c *Container) Wrap(m *scope.Member, key cache.Key) (*synth.Adapter, error) {
	return c.factory.Wrap(m, key)
}

// WrapType returns the non-capturing adapter of m for iface.
func (c *Container) WrapType(m *scope.Member, iface *scope.Type) (*synth.Adapter, error) {
	return c.factory.WrapType(m, iface)
}

// WrapHandle returns the adapter of h for key.
func (c *Container) WrapHandle(h *synth.Handle, key cache.Key) (*synth.Adapter, error) {
	return c.factory.WrapHandle(h, key)
}

// Reconstruct rebuilds a serializable adapter from its serial form.
func (c *Container) Reconstruct(ctx context.Context, closure synth.SerializedClosure) (*synth.Adapter, error) {
	return c.registry.Reconstruct(ctx, closure)
}

// ClearCaches empties the adapter partitions and the registry lookups.
func (c *Container) ClearCaches(ctx context.Context) error {
	c.factory.ClearCaches()
	return c.registry.Clear(ctx)
}

// Stats returns the current partition sizes.
func (c *Container) Stats() cache.Stats {
	return c.manager.Stats()
}
