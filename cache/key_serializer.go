package cache

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// maxDepth bounds recursion through self-referencing slices and interfaces.
const maxDepth = 32

// defaultKeySerializer renders captured values into a stable string. Values with
// reference semantics (pointers, maps, chans, funcs) are rendered by identity so
// two distinct receivers never share an adapter; everything else is rendered by
// content. Every token carries its type so 1 and "1" never collide.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey builds a key from a prefix and the values that follow it.
func (s *defaultKeySerializer) SerializeKey(prefix string, args ...any) string {
	if len(args) == 0 {
		return prefix
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, prefix)
	for _, arg := range args {
		parts = append(parts, s.serializeValue(reflect.ValueOf(arg), 0))
	}

	return strings.Join(parts, KeySeparator)
}

func (s *defaultKeySerializer) serializeValue(rv reflect.Value, depth int) string {
	if !rv.IsValid() {
		return "nil"
	}
	if depth > maxDepth {
		return "depth:" + rv.Type().String()
	}

	rt := rv.Type()
	switch rt.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan, reflect.Func:
		if rv.IsNil() {
			return fmt.Sprintf("%s(nil)", rt)
		}
		return fmt.Sprintf("%s(%#x)", rt, rv.Pointer())
	case reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem(), depth+1)
	case reflect.Slice:
		if rv.IsNil() {
			return fmt.Sprintf("%s(nil)", rt)
		}
		return s.serializeSequence(rv, depth)
	case reflect.Array:
		return s.serializeSequence(rv, depth)
	case reflect.Struct:
		return s.serializeStruct(rv, depth)
	case reflect.String:
		return fmt.Sprintf("%s(%q)", rt, rv.String())
	case reflect.Bool:
		return fmt.Sprintf("%s(%t)", rt, rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%s(%d)", rt, rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return fmt.Sprintf("%s(%d)", rt, rv.Uint())
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%s(%v)", rt, rv.Float())
	case reflect.Complex64, reflect.Complex128:
		return fmt.Sprintf("%s(%v)", rt, rv.Complex())
	}

	return fmt.Sprintf("%s(?)", rt)
}

func (s *defaultKeySerializer) serializeSequence(rv reflect.Value, depth int) string {
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = s.serializeValue(rv.Index(i), depth+1)
	}
	return fmt.Sprintf("%s{%s}", rv.Type(), strings.Join(parts, ","))
}

// serializeStruct includes unexported fields: they take part in equality of
// the captured value.
func (s *defaultKeySerializer) serializeStruct(rv reflect.Value, depth int) string {
	rt := rv.Type()
	parts := make([]string, rt.NumField())
	for i := range parts {
		parts[i] = rt.Field(i).Name + ":" + s.serializeValue(rv.Field(i), depth+1)
	}
	return fmt.Sprintf("%s{%s}", rt, strings.Join(parts, ","))
}

// sortedNames renders reflect types as sorted names, for order-insensitive
// key segments.
func sortedNames(types []reflect.Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	slices.Sort(names)
	return names
}
