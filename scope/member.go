package scope

import (
	"fmt"
	"reflect"
)

// ConstructorName is the reserved member name that denotes a constructor.
const ConstructorName = "<init>"

// Kind classifies a member.
type Kind uint8

const (
	KindFunction Kind = iota + 1
	KindMethod
	KindConstructor
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindMethod:
		return "method"
	case KindConstructor:
		return "constructor"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MemberRef identifies a member by declaring type name, member name and signature.
// It is comparable and carries no references into a scope.
type MemberRef struct {
	Type      string `cbor:"type" msgpack:"type"`
	Name      string `cbor:"name" msgpack:"name"`
	Signature string `cbor:"signature" msgpack:"signature"`
}

func (r MemberRef) String() string {
	return r.Type + "." + r.Name + r.Signature
}

// Member is one concrete function, method or constructor of a Type.
// Members are interned: for a declaring type there is one *Member per
// (name, signature) pair, so pointer identity is a valid map key.
type Member struct {
	declaring *Type
	name      string
	kind      Kind
	fn        reflect.Value
	exported  bool
}

// Declaring returns the type that owns the member.
func (m *Member) Declaring() *Type { return m.declaring }

// Name returns the member name; constructors use ConstructorName.
func (m *Member) Name() string { return m.name }

// Kind returns the member kind.
func (m *Member) Kind() Kind { return m.kind }

// Func returns the implementing func value. For methods the receiver is the
// first parameter.
func (m *Member) Func() reflect.Value { return m.fn }

// Exported reports whether the member is visible outside its package.
func (m *Member) Exported() bool { return m.exported }

// Signature returns the implementation's func type in string form.
func (m *Member) Signature() string { return m.fn.Type().String() }

// Static reports whether the member needs no receiver.
func (m *Member) Static() bool { return m.kind != KindMethod }

// Receiver returns the receiver type of an instance method.
func (m *Member) Receiver() (reflect.Type, bool) {
	if m.kind != KindMethod {
		return nil, false
	}
	return m.fn.Type().In(0), true
}

// Ref returns the member's serializable reference.
func (m *Member) Ref() MemberRef {
	return MemberRef{Type: m.declaring.name, Name: m.name, Signature: m.Signature()}
}

func (m *Member) String() string { return m.Ref().String() }
