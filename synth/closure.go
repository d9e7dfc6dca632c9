package synth

import "github.com/goliatone/go-adapter-cache/scope"

// SerializedClosure is the serial form of a serializable adapter: the
// implementation triple, the nominal target type and the ordered captured
// arguments.
type SerializedClosure struct {
	InterfaceType      string          `cbor:"interface_type" msgpack:"interface_type"`
	InterfaceMethod    string          `cbor:"interface_method" msgpack:"interface_method"`
	InterfaceSignature string          `cbor:"interface_signature" msgpack:"interface_signature"`
	ImplKind           scope.Kind      `cbor:"impl_kind" msgpack:"impl_kind"`
	Impl               scope.MemberRef `cbor:"impl" msgpack:"impl"`
	CapturedArgs       []any           `cbor:"captured_args" msgpack:"captured_args"`
}

// Ref returns the implementation triple.
func (c SerializedClosure) Ref() scope.MemberRef { return c.Impl }
