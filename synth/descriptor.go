package synth

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-adapter-cache/scope"
)

// InterfaceDescriptor is the single-method shape of a target type. It is immutable
// and holds no reference to the scope that declared the type.
type InterfaceDescriptor struct {
	Interface  reflect.Type
	Name       string
	MethodName string
	Method     Signature
	bind       scope.Binder
}

// NewInterfaceDescriptor builds a descriptor. bind may be nil for func targets.
func NewInterfaceDescriptor(iface reflect.Type, name, method string, sig Signature, bind scope.Binder) *InterfaceDescriptor {
	return &InterfaceDescriptor{
		Interface:  iface,
		Name:       name,
		MethodName: method,
		Method:     sig,
		bind:       bind,
	}
}

// NonCapturing returns the zero-capture construction signature.
func (d *InterfaceDescriptor) NonCapturing() ConstructionSignature {
	return ConstructionSignature{Interface: d}
}

// Bindable reports whether a func of the method's shape can be turned into a
// value of the target type.
func (d *InterfaceDescriptor) Bindable() bool {
	if d.bind != nil {
		return true
	}
	return d.Interface.Kind() == reflect.Func
}

// Bind turns fn into a value of the target type.
func (d *InterfaceDescriptor) Bind(fn reflect.Value) (reflect.Value, error) {
	if d.bind != nil {
		return d.bind(fn)
	}
	if d.Interface.Kind() != reflect.Func {
		return reflect.Value{}, fmt.Errorf("no binder registered for %s", d.Name)
	}
	if !fn.Type().ConvertibleTo(d.Interface) {
		return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", fn.Type(), d.Interface)
	}
	return fn.Convert(d.Interface), nil
}

func (d *InterfaceDescriptor) String() string {
	return fmt.Sprintf("%s.%s%s", d.Name, d.MethodName, d.Method.String()[len("func"):])
}
