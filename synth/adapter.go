package synth

import (
	"reflect"
	"slices"
)

// Adapter is a constructed value of a caller-chosen target type whose single
// method forwards to a bound implementation.
type Adapter struct {
	value   reflect.Value
	markers []reflect.Type
	bridges map[reflect.Type]reflect.Value
	closure *SerializedClosure
}

// Interface returns the adapter as a value of the target type.
func (a *Adapter) Interface() any { return a.value.Interface() }

// Value returns the adapter as a reflect.Value of the target type.
func (a *Adapter) Value() reflect.Value { return a.value }

// Type returns the target type.
func (a *Adapter) Type() reflect.Type { return a.value.Type() }

// Markers returns the marker types the adapter was built with.
func (a *Adapter) Markers() []reflect.Type { return slices.Clone(a.markers) }

// Implements reports whether t is the target type or one of the markers.
func (a *Adapter) Implements(t reflect.Type) bool {
	return t == a.value.Type() || slices.Contains(a.markers, t)
}

// Bridge returns the adapter viewed through one of its bridge signatures.
func (a *Adapter) Bridge(t reflect.Type) (any, bool) {
	v, ok := a.bridges[t]
	if !ok {
		return nil, false
	}
	return v.Interface(), true
}

// Serializable reports whether the adapter carries a serial form.
func (a *Adapter) Serializable() bool { return a.closure != nil }

// SerialForm returns a copy of the adapter's serialized closure.
func (a *Adapter) SerialForm() (SerializedClosure, bool) {
	if a.closure == nil {
		return SerializedClosure{}, false
	}
	c := *a.closure
	c.CapturedArgs = slices.Clone(a.closure.CapturedArgs)
	return c, true
}
