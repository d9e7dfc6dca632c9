package synth

import (
	"reflect"
	"strings"
)

// Signature is a func shape: parameter and result types plus the variadic flag.
type Signature struct {
	In       []reflect.Type
	Out      []reflect.Type
	Variadic bool
}

// SignatureOf returns the signature of a func type.
func SignatureOf(ft reflect.Type) Signature {
	sig := Signature{
		In:       make([]reflect.Type, ft.NumIn()),
		Out:      make([]reflect.Type, ft.NumOut()),
		Variadic: ft.IsVariadic(),
	}
	for i := range sig.In {
		sig.In[i] = ft.In(i)
	}
	for i := range sig.Out {
		sig.Out[i] = ft.Out(i)
	}
	return sig
}

// Arity returns the number of parameters.
func (s Signature) Arity() int { return len(s.In) }

// FuncType returns the unnamed func type with this signature.
func (s Signature) FuncType() reflect.Type {
	return reflect.FuncOf(s.In, s.Out, s.Variadic)
}

// DropLeading returns the signature without its first n parameters, bounded by
// the arity.
func (s Signature) DropLeading(n int) Signature {
	if n > len(s.In) {
		n = len(s.In)
	}
	if n < 0 {
		n = 0
	}
	return Signature{
		In:       append([]reflect.Type(nil), s.In[n:]...),
		Out:      append([]reflect.Type(nil), s.Out...),
		Variadic: s.Variadic && n < len(s.In),
	}
}

func (s Signature) String() string {
	return s.FuncType().String()
}

// ConstructionSignature is the shape of an adapter's construction entry point:
// it takes the capture types and yields the target interface.
type ConstructionSignature struct {
	Interface *InterfaceDescriptor
	Captures  []reflect.Type
}

func (c ConstructionSignature) String() string {
	parts := make([]string, len(c.Captures))
	for i, t := range c.Captures {
		parts[i] = t.String()
	}
	name := "<nil>"
	if c.Interface != nil {
		name = c.Interface.Interface.String()
	}
	return "func(" + strings.Join(parts, ", ") + ") " + name
}
