package cacheinfra

import (
	"runtime"
	"weak"

	"github.com/puzpuzpuz/xsync/v3"
)

// WeakMap maps *K to V without keeping the keys alive. An entry disappears once
// its key is collected. Values must not reference their key, directly or not,
// or the key stays reachable through the map and is never collected.
type WeakMap[K any, V any] struct {
	entries *xsync.MapOf[weak.Pointer[K], *weakEntry[V]]
}

type weakEntry[V any] struct {
	value   V
	cleanup runtime.Cleanup
}

// NewWeakMap returns an empty map.
func NewWeakMap[K any, V any]() *WeakMap[K, V] {
	return &WeakMap[K, V]{
		entries: xsync.NewMapOf[weak.Pointer[K], *weakEntry[V]](),
	}
}

// Load returns the value stored for key.
func (m *WeakMap[K, V]) Load(key *K) (V, bool) {
	var zero V
	if key == nil {
		return zero, false
	}
	e, ok := m.entries.Load(weak.Make(key))
	if !ok {
		return zero, false
	}
	return e.value, true
}

// LoadOrTryCompute returns the value stored for key or computes and stores it.
// Concurrent callers for the same key wait for a single computation. A failed
// or panicking computation stores nothing.
func (m *WeakMap[K, V]) LoadOrTryCompute(key *K, compute func() (V, error)) (V, bool, error) {
	var zero V
	if key == nil {
		return zero, false, &ConfigError{Field: "key", Message: "cannot be nil"}
	}

	wp := weak.Make(key)
	var err error
	e, loaded := m.entries.LoadOrTryCompute(wp, func() (*weakEntry[V], bool) {
		v, cerr := guard(compute)
		if cerr != nil {
			err = cerr
			return nil, true
		}
		e := &weakEntry[V]{value: v}
		e.cleanup = runtime.AddCleanup(key, m.evict, wp)
		return e, false
	})
	if err != nil {
		return zero, false, err
	}
	return e.value, loaded, nil
}

// Delete removes the entry for key.
func (m *WeakMap[K, V]) Delete(key *K) {
	if key == nil {
		return
	}
	if e, ok := m.entries.LoadAndDelete(weak.Make(key)); ok {
		e.cleanup.Stop()
	}
}

// Range calls fn for every live entry until fn returns false.
func (m *WeakMap[K, V]) Range(fn func(V) bool) {
	m.entries.Range(func(_ weak.Pointer[K], e *weakEntry[V]) bool {
		return fn(e.value)
	})
}

// Len returns the number of entries.
func (m *WeakMap[K, V]) Len() int {
	return m.entries.Size()
}

// Clear removes every entry.
func (m *WeakMap[K, V]) Clear() {
	m.entries.Range(func(wp weak.Pointer[K], e *weakEntry[V]) bool {
		if _, ok := m.entries.LoadAndDelete(wp); ok {
			e.cleanup.Stop()
		}
		return true
	})
}

func (m *WeakMap[K, V]) evict(wp weak.Pointer[K]) {
	m.entries.Delete(wp)
}
