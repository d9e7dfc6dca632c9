package cacheinfra

import (
	"fmt"
	"runtime"
	"weak"

	"github.com/cespare/xxhash/v2"
	"github.com/goliatone/go-adapter-cache/scope"
	"github.com/goliatone/go-adapter-cache/synth"
	"github.com/puzpuzpuz/xsync/v3"
)

// AdapterMap holds the adapters built for one implementation, keyed by the
// fingerprint of their cache key. Adapters are held weakly: once no caller
// references an adapter, its entry and the values it captured can be collected.
type AdapterMap struct {
	entries *xsync.MapOf[string, weak.Pointer[synth.Adapter]]
}

func newAdapterMap() *AdapterMap {
	return &AdapterMap{
		entries: xsync.NewMapOfWithHasher[string, weak.Pointer[synth.Adapter]](func(key string, seed uint64) uint64 {
			return xxhash.Sum64String(key) ^ seed
		}),
	}
}

// LoadOrCompute returns the live adapter stored for fingerprint or builds it
// with load. Concurrent callers for the same fingerprint wait for a single
// load. A failed load stores nothing.
func (m *AdapterMap) LoadOrCompute(fingerprint string, load func() (*synth.Adapter, error)) (*synth.Adapter, error) {
	var (
		a   *synth.Adapter
		err error
	)
	m.entries.Compute(fingerprint, func(old weak.Pointer[synth.Adapter], loaded bool) (weak.Pointer[synth.Adapter], bool) {
		if loaded {
			if a = old.Value(); a != nil {
				return old, false
			}
		}
		a, err = guard(load)
		if err != nil || a == nil {
			return old, true
		}
		wp := weak.Make(a)
		runtime.AddCleanup(a, m.evict, adapterEntry{fingerprint: fingerprint, ref: wp})
		return wp, false
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Size returns the number of entries, including ones whose adapter was
// collected but not yet evicted.
func (m *AdapterMap) Size() int { return m.entries.Size() }

type adapterEntry struct {
	fingerprint string
	ref         weak.Pointer[synth.Adapter]
}

// evict drops the entry of a collected adapter unless it was replaced since.
func (m *AdapterMap) evict(e adapterEntry) {
	m.entries.Compute(e.fingerprint, func(cur weak.Pointer[synth.Adapter], loaded bool) (weak.Pointer[synth.Adapter], bool) {
		return cur, !loaded || cur == e.ref
	})
}

// ScopeCache is the cache state of one partition: interface descriptors by
// type, handles by member and adapters by member then key. Keys are held weakly
// so a partition never keeps its scope alive.
type ScopeCache struct {
	descriptors *WeakMap[scope.Type, *synth.InterfaceDescriptor]
	handles     *WeakMap[scope.Member, *synth.Handle]
	adapters    *WeakMap[scope.Member, *AdapterMap]
}

// NewScopeCache returns an empty partition.
func NewScopeCache() *ScopeCache {
	return &ScopeCache{
		descriptors: NewWeakMap[scope.Type, *synth.InterfaceDescriptor](),
		handles:     NewWeakMap[scope.Member, *synth.Handle](),
		adapters:    NewWeakMap[scope.Member, *AdapterMap](),
	}
}

// Descriptor returns the descriptor of t, calling load on a miss.
func (c *ScopeCache) Descriptor(t *scope.Type, load func() (*synth.InterfaceDescriptor, error)) (*synth.InterfaceDescriptor, error) {
	d, _, err := c.descriptors.LoadOrTryCompute(t, load)
	return d, err
}

// Handle returns the handle of m, calling load on a miss.
func (c *ScopeCache) Handle(m *scope.Member, load func() (*synth.Handle, error)) (*synth.Handle, error) {
	h, _, err := c.handles.LoadOrTryCompute(m, load)
	return h, err
}

// Adapter returns the adapter of m for the key fingerprint, calling load on a miss.
func (c *ScopeCache) Adapter(m *scope.Member, fingerprint string, load func() (*synth.Adapter, error)) (*synth.Adapter, error) {
	byKey, _, err := c.adapters.LoadOrTryCompute(m, func() (*AdapterMap, error) {
		return newAdapterMap(), nil
	})
	if err != nil {
		return nil, err
	}
	return byKey.LoadOrCompute(fingerprint, load)
}

// Entries returns the number of cached descriptors, handles and adapters.
func (c *ScopeCache) Entries() int {
	n := c.descriptors.Len() + c.handles.Len()
	c.adapters.Range(func(byKey *AdapterMap) bool {
		n += byKey.Size()
		return true
	})
	return n
}

// Clear empties every map of the partition.
func (c *ScopeCache) Clear() {
	c.descriptors.Clear()
	c.handles.Clear()
	c.adapters.Clear()
}

// guard runs load, turning a panic into a synthesis error so the map
// computing the value is left usable and nothing is stored.
func guard[V any](load func() (V, error)) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero V
			v = zero
			err = synth.WrapSynthesisError(fmt.Errorf("panic: %v", r), "cache load panicked")
			log.Warning("recovered panic in cache load", "panic", fmt.Sprint(r))
		}
	}()
	return load()
}
