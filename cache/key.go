package cache

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/goliatone/go-adapter-cache/scope"
)

var keySerializer = NewDefaultKeySerializer()

// Key is the parameter key of an adapter request: the target interface, the
// serializable flag, marker and bridge types, and the captured values. Keys are
// immutable; two keys with the same fingerprint select the same adapter.
type Key struct {
	iface        *scope.Type
	serializable bool
	markers      []reflect.Type
	bridges      []reflect.Type
	captured     []any
	fingerprint  string
}

// NewKey returns a plain key capturing values.
func NewKey(iface *scope.Type, captured ...any) Key {
	return NewKeyBuilder(iface).Capture(captured...).Build()
}

// Interface returns the target interface type.
func (k Key) Interface() *scope.Type { return k.iface }

// Serializable reports whether the adapter must carry a serial form.
func (k Key) Serializable() bool { return k.serializable }

// Markers returns the extra marker interface types.
func (k Key) Markers() []reflect.Type { return slices.Clone(k.markers) }

// Bridges returns the extra func signatures the adapter must answer to.
func (k Key) Bridges() []reflect.Type { return slices.Clone(k.bridges) }

// Captured returns a copy of the captured values.
func (k Key) Captured() []any { return slices.Clone(k.captured) }

// CaptureCount returns the number of captured values.
func (k Key) CaptureCount() int { return len(k.captured) }

// Extended reports whether the key asks for anything beyond a plain adapter.
func (k Key) Extended() bool {
	return k.serializable || len(k.markers) > 0 || len(k.bridges) > 0
}

// Fingerprint returns the stable string form used as the cache key.
func (k Key) Fingerprint() string { return k.fingerprint }

// Hash returns the xxhash of the fingerprint.
func (k Key) Hash() uint64 { return xxhash.Sum64String(k.fingerprint) }

func (k Key) String() string {
	name := "<nil>"
	if k.iface != nil {
		name = k.iface.Name()
	}
	return fmt.Sprintf("key(%s, captures=%d, serializable=%t)", name, len(k.captured), k.serializable)
}

// KeyBuilder assembles a Key.
type KeyBuilder struct {
	key Key
}

// NewKeyBuilder starts a key for the target interface iface.
func NewKeyBuilder(iface *scope.Type) *KeyBuilder {
	return &KeyBuilder{key: Key{iface: iface}}
}

// Capture appends captured values.
func (b *KeyBuilder) Capture(values ...any) *KeyBuilder {
	b.key.captured = append(b.key.captured, values...)
	return b
}

// Serializable sets the serializable flag.
func (b *KeyBuilder) Serializable(serializable bool) *KeyBuilder {
	b.key.serializable = serializable
	return b
}

// Markers appends marker interface types.
func (b *KeyBuilder) Markers(types ...reflect.Type) *KeyBuilder {
	b.key.markers = append(b.key.markers, types...)
	return b
}

// Bridges appends bridge func types.
func (b *KeyBuilder) Bridges(types ...reflect.Type) *KeyBuilder {
	b.key.bridges = append(b.key.bridges, types...)
	return b
}

// Build freezes the key and computes its fingerprint.
func (b *KeyBuilder) Build() Key {
	k := Key{
		iface:        b.key.iface,
		serializable: b.key.serializable,
		markers:      slices.Clone(b.key.markers),
		bridges:      slices.Clone(b.key.bridges),
		captured:     slices.Clone(b.key.captured),
	}

	name := "<nil>"
	if k.iface != nil {
		name = k.iface.Name() + "@" + k.iface.Scope().String()
	}
	prefix := []string{
		name,
		fmt.Sprintf("serializable=%t", k.serializable),
		"markers=" + strings.Join(sortedNames(k.markers), ","),
		"bridges=" + strings.Join(sortedNames(k.bridges), ","),
		fmt.Sprintf("captures=%d", len(k.captured)),
	}
	k.fingerprint = keySerializer.SerializeKey(strings.Join(prefix, KeySeparator), k.captured...)
	return k
}
