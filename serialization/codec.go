package serialization

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/goliatone/go-adapter-cache/scope"
	"github.com/goliatone/go-adapter-cache/synth"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns serialized closures into bytes and back. Captured arguments are
// kept raw by Unmarshal; Registry.Decode types them against the resolved
// implementation.
type Codec interface {
	Name() string
	Marshal(c synth.SerializedClosure) ([]byte, error)
	Unmarshal(data []byte) (*Envelope, error)
}

// Envelope is a decoded closure whose captured arguments are still encoded.
type Envelope struct {
	Closure synth.SerializedClosure
	args    [][]byte
	decode  func(data []byte, dst any) error
}

// Args returns the number of captured arguments.
func (e *Envelope) Args() int { return len(e.args) }

// DecodeArg decodes captured argument i as a value of type t. A nil t decodes
// into an untyped value.
func (e *Envelope) DecodeArg(i int, t reflect.Type) (any, error) {
	if i < 0 || i >= len(e.args) {
		return nil, fmt.Errorf("captured argument %d out of range", i)
	}
	if t == nil {
		var v any
		if err := e.decode(e.args[i], &v); err != nil {
			return nil, fmt.Errorf("captured argument %d: %w", i, err)
		}
		return v, nil
	}
	dst := reflect.New(t)
	if err := e.decode(e.args[i], dst.Interface()); err != nil {
		return nil, fmt.Errorf("captured argument %d as %s: %w", i, t, err)
	}
	return dst.Elem().Interface(), nil
}

type cborClosure struct {
	InterfaceType      string            `cbor:"interface_type"`
	InterfaceMethod    string            `cbor:"interface_method"`
	InterfaceSignature string            `cbor:"interface_signature"`
	ImplKind           scope.Kind        `cbor:"impl_kind"`
	Impl               scope.MemberRef   `cbor:"impl"`
	CapturedArgs       []cbor.RawMessage `cbor:"captured_args"`
}

type cborCodec struct {
	enc cbor.EncMode
}

// NewCBORCodec returns a codec using canonical CBOR, so equal closures encode
// to equal bytes.
func NewCBORCodec() (Codec, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("serialization: cbor enc mode: %w", err)
	}
	return cborCodec{enc: em}, nil
}

func (cborCodec) Name() string { return "cbor" }

func (c cborCodec) Marshal(closure synth.SerializedClosure) ([]byte, error) {
	return c.enc.Marshal(closure)
}

func (cborCodec) Unmarshal(data []byte) (*Envelope, error) {
	var w cborClosure
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("serialization: unmarshal cbor closure: %w", err)
	}
	env := &Envelope{
		Closure: synth.SerializedClosure{
			InterfaceType:      w.InterfaceType,
			InterfaceMethod:    w.InterfaceMethod,
			InterfaceSignature: w.InterfaceSignature,
			ImplKind:           w.ImplKind,
			Impl:               w.Impl,
		},
		decode: cbor.Unmarshal,
	}
	for _, raw := range w.CapturedArgs {
		env.args = append(env.args, raw)
	}
	return env, nil
}

type msgpackClosure struct {
	InterfaceType      string               `msgpack:"interface_type"`
	InterfaceMethod    string               `msgpack:"interface_method"`
	InterfaceSignature string               `msgpack:"interface_signature"`
	ImplKind           scope.Kind           `msgpack:"impl_kind"`
	Impl               scope.MemberRef      `msgpack:"impl"`
	CapturedArgs       []msgpack.RawMessage `msgpack:"captured_args"`
}

type msgpackCodec struct{}

// NewMsgpackCodec returns a MessagePack codec.
func NewMsgpackCodec() Codec {
	return msgpackCodec{}
}

func (msgpackCodec) Name() string { return "msgpack" }

func (msgpackCodec) Marshal(closure synth.SerializedClosure) ([]byte, error) {
	return msgpack.Marshal(closure)
}

func (msgpackCodec) Unmarshal(data []byte) (*Envelope, error) {
	var w msgpackClosure
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("serialization: unmarshal msgpack closure: %w", err)
	}
	env := &Envelope{
		Closure: synth.SerializedClosure{
			InterfaceType:      w.InterfaceType,
			InterfaceMethod:    w.InterfaceMethod,
			InterfaceSignature: w.InterfaceSignature,
			ImplKind:           w.ImplKind,
			Impl:               w.Impl,
		},
		decode: msgpack.Unmarshal,
	}
	for _, raw := range w.CapturedArgs {
		env.args = append(env.args, raw)
	}
	return env, nil
}
