package cacheinfra

import (
	"github.com/goliatone/go-adapter-cache/scope"
	"github.com/goliatone/go-adapter-cache/synth"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("adaptercache.cacheinfra")

// Stats is a snapshot of the partition sizes.
type Stats struct {
	ImmortalEntries  int
	EphemeralScopes  int
	EphemeralEntries int
	UntrackedEntries int
	HandleWrappers   int
}

// LifetimeCache routes every lookup to the partition matching the lifetime of
// the declaring scope:
//
//   - types of immortal scopes share one partition that lives as long as the cache
//   - each ephemeral scope gets its own partition, weakly keyed by the scope and
//     dropped when the scope is closed or collected
//   - hidden types, which no scope retains, go to a standalone partition
//
// Adapters built from raw handles are kept in a separate map weakly keyed by
// the handle.
type LifetimeCache struct {
	classifier *scope.Classifier
	immortal   *ScopeCache
	ephemeral  *WeakMap[scope.Scope, *ScopeCache]
	untracked  *ScopeCache
	handles    *WeakMap[synth.Handle, *AdapterMap]
}

// NewLifetimeCache returns an empty cache using classifier for routing.
func NewLifetimeCache(classifier *scope.Classifier) *LifetimeCache {
	if classifier == nil {
		classifier = scope.NewClassifier(nil)
	}
	return &LifetimeCache{
		classifier: classifier,
		immortal:   NewScopeCache(),
		ephemeral:  NewWeakMap[scope.Scope, *ScopeCache](),
		untracked:  NewScopeCache(),
		handles:    NewWeakMap[synth.Handle, *AdapterMap](),
	}
}

// Classifier returns the classifier used for routing.
func (c *LifetimeCache) Classifier() *scope.Classifier { return c.classifier }

// Partition returns the partition that owns t.
func (c *LifetimeCache) Partition(t *scope.Type) *ScopeCache {
	if t.Hidden() {
		return c.untracked
	}
	s := t.Scope()
	if c.classifier.Classify(s) == scope.Immortal {
		return c.immortal
	}

	pc, loaded, _ := c.ephemeral.LoadOrTryCompute(s, func() (*ScopeCache, error) {
		return NewScopeCache(), nil
	})
	if !loaded {
		name := s.String()
		s.OnClose(func() {
			c.ephemeral.Delete(s)
			log.Debug("scope partition dropped", "scope", name)
		})
	}
	return pc
}

// Descriptor returns the cached descriptor of t, calling load on a miss.
func (c *LifetimeCache) Descriptor(t *scope.Type, load func() (*synth.InterfaceDescriptor, error)) (*synth.InterfaceDescriptor, error) {
	return c.Partition(t).Descriptor(t, load)
}

// Handle returns the cached handle of m, calling load on a miss.
func (c *LifetimeCache) Handle(m *scope.Member, load func() (*synth.Handle, error)) (*synth.Handle, error) {
	return c.Partition(m.Declaring()).Handle(m, load)
}

// Adapter returns the cached adapter of m for the key fingerprint, calling load
// on a miss.
func (c *LifetimeCache) Adapter(m *scope.Member, fingerprint string, load func() (*synth.Adapter, error)) (*synth.Adapter, error) {
	return c.Partition(m.Declaring()).Adapter(m, fingerprint, load)
}

// HandleAdapter returns the cached adapter of h for the key fingerprint,
// calling load on a miss.
func (c *LifetimeCache) HandleAdapter(h *synth.Handle, fingerprint string, load func() (*synth.Adapter, error)) (*synth.Adapter, error) {
	byKey, _, err := c.handles.LoadOrTryCompute(h, func() (*AdapterMap, error) {
		return newAdapterMap(), nil
	})
	if err != nil {
		return nil, err
	}
	return byKey.LoadOrCompute(fingerprint, load)
}

// Clear empties every partition. Adapters already handed out keep working.
func (c *LifetimeCache) Clear() {
	c.immortal.Clear()
	c.ephemeral.Range(func(pc *ScopeCache) bool {
		pc.Clear()
		return true
	})
	c.untracked.Clear()
	c.handles.Clear()
	log.Info("adapter caches cleared")
}

// Stats returns the current partition sizes.
func (c *LifetimeCache) Stats() Stats {
	st := Stats{
		ImmortalEntries:  c.immortal.Entries(),
		EphemeralScopes:  c.ephemeral.Len(),
		UntrackedEntries: c.untracked.Entries(),
	}
	c.ephemeral.Range(func(pc *ScopeCache) bool {
		st.EphemeralEntries += pc.Entries()
		return true
	})
	c.handles.Range(func(byKey *AdapterMap) bool {
		st.HandleWrappers += byKey.Size()
		return true
	})
	return st
}
