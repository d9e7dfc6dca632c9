package synth

import (
	"reflect"
	"strings"
)

// Flags selects the optional features of an extended synthesis request.
type Flags uint8

const (
	FlagSerializable Flags = 1 << iota
	FlagMarkers
	FlagBridges
)

func (f Flags) Has(flag Flags) bool { return f&flag != 0 }

func (f Flags) String() string {
	var parts []string
	if f.Has(FlagSerializable) {
		parts = append(parts, "serializable")
	}
	if f.Has(FlagMarkers) {
		parts = append(parts, "markers")
	}
	if f.Has(FlagBridges) {
		parts = append(parts, "bridges")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Request carries the core synthesis arguments.
//
// Factory is the construction signature, Descriptor the target method's
// signature, Handle the implementation and Invocation the residual
// implementation signature left once the captures are bound.
type Request struct {
	MethodName string
	Factory    ConstructionSignature
	Descriptor Signature
	Handle     *Handle
	Invocation Signature
}

// ExtendedRequest adds a flag word plus optional markers and bridge signatures.
type ExtendedRequest struct {
	Request
	Flags   Flags
	Markers []reflect.Type
	Bridges []Signature
}

// Site is a synthesized construction entry point. Construct takes the captured
// values in factory signature order and returns a fresh adapter.
type Site interface {
	Construct(captures []reflect.Value) (*Adapter, error)
}

// Synthesizer generates construction sites. Implementations are expensive to
// call relative to a cache lookup; callers are expected to cache the sites they
// get back.
type Synthesizer interface {
	Synthesize(req Request) (Site, error)
	SynthesizeExtended(req ExtendedRequest) (Site, error)
}
