package cache

import (
	"github.com/goliatone/go-adapter-cache/internal/cacheinfra"
	"github.com/goliatone/go-adapter-cache/scope"
	"github.com/goliatone/go-adapter-cache/synth"
)

// Stats is a snapshot of the cache partitions.
type Stats struct {
	ImmortalEntries  int
	EphemeralScopes  int
	EphemeralEntries int
	UntrackedEntries int
	HandleWrappers   int
}

// CacheManager memoizes interface descriptors, handles and adapters. Every
// lookup takes a load function that runs only on a miss; a failed load stores
// nothing, so the next lookup tries again.
type CacheManager interface {
	Descriptor(t *scope.Type, load func() (*synth.InterfaceDescriptor, error)) (*synth.InterfaceDescriptor, error)
	Handle(m *scope.Member, load func() (*synth.Handle, error)) (*synth.Handle, error)
	Adapter(m *scope.Member, key Key, load func() (*synth.Adapter, error)) (*synth.Adapter, error)
	HandleAdapter(h *synth.Handle, key Key, load func() (*synth.Adapter, error)) (*synth.Adapter, error)
	Clear()
	Stats() Stats
}

type lifetimeManager struct {
	cache *cacheinfra.LifetimeCache
}

// NewCacheManager returns a manager that partitions entries by the lifetime of
// their declaring scope, as labelled by classifier. A nil classifier treats the
// system scope as home.
func NewCacheManager(classifier *scope.Classifier) CacheManager {
	return &lifetimeManager{cache: cacheinfra.NewLifetimeCache(classifier)}
}

func (m *lifetimeManager) Descriptor(t *scope.Type, load func() (*synth.InterfaceDescriptor, error)) (*synth.InterfaceDescriptor, error) {
	return m.cache.Descriptor(t, load)
}

func (m *lifetimeManager) Handle(member *scope.Member, load func() (*synth.Handle, error)) (*synth.Handle, error) {
	return m.cache.Handle(member, load)
}

func (m *lifetimeManager) Adapter(member *scope.Member, key Key, load func() (*synth.Adapter, error)) (*synth.Adapter, error) {
	return m.cache.Adapter(member, key.Fingerprint(), load)
}

func (m *lifetimeManager) HandleAdapter(h *synth.Handle, key Key, load func() (*synth.Adapter, error)) (*synth.Adapter, error) {
	return m.cache.HandleAdapter(h, key.Fingerprint(), load)
}

func (m *lifetimeManager) Clear() {
	m.cache.Clear()
}

func (m *lifetimeManager) Stats() Stats {
	st := m.cache.Stats()
	return Stats{
		ImmortalEntries:  st.ImmortalEntries,
		EphemeralScopes:  st.EphemeralScopes,
		EphemeralEntries: st.EphemeralEntries,
		UntrackedEntries: st.UntrackedEntries,
		HandleWrappers:   st.HandleWrappers,
	}
}

type noopManager struct{}

// NewNoopCacheManager returns a manager that stores nothing: every lookup runs
// its load function.
func NewNoopCacheManager() CacheManager {
	return noopManager{}
}

func (noopManager) Descriptor(_ *scope.Type, load func() (*synth.InterfaceDescriptor, error)) (*synth.InterfaceDescriptor, error) {
	return load()
}

func (noopManager) Handle(_ *scope.Member, load func() (*synth.Handle, error)) (*synth.Handle, error) {
	return load()
}

func (noopManager) Adapter(_ *scope.Member, _ Key, load func() (*synth.Adapter, error)) (*synth.Adapter, error) {
	return load()
}

func (noopManager) HandleAdapter(_ *synth.Handle, _ Key, load func() (*synth.Adapter, error)) (*synth.Adapter, error) {
	return load()
}

func (noopManager) Clear() {}

func (noopManager) Stats() Stats { return Stats{} }
