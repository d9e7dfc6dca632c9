package synth

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-adapter-cache/scope"
)

// Handle is a bound invocable reference to one function, method or constructor.
// Handles resolved from a member remember the member reference so serializable
// adapters can describe their implementation; handles built from a raw func
// cannot.
type Handle struct {
	fn     reflect.Value
	sig    Signature
	ref    scope.MemberRef
	kind   scope.Kind
	direct bool
}

// NewHandle wraps a raw func value.
func NewHandle(fn any) (*Handle, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("handle: %T is not a func", fn)
	}
	return &Handle{fn: v, sig: SignatureOf(v.Type())}, nil
}

// Signature returns the implementation signature.
func (h *Handle) Signature() Signature { return h.sig }

// Ref returns the member the handle was resolved from.
func (h *Handle) Ref() (scope.MemberRef, scope.Kind, bool) {
	return h.ref, h.kind, h.direct
}

// Invoke calls the handle. For variadic implementations the final argument is
// passed as a slice.
func (h *Handle) Invoke(args []reflect.Value) []reflect.Value {
	return h.invoker()(args)
}

// invoker returns the call function without retaining h, so adapters built
// from a handle do not keep the handle reachable.
func (h *Handle) invoker() func([]reflect.Value) []reflect.Value {
	if h.sig.Variadic {
		return h.fn.CallSlice
	}
	return h.fn.Call
}

func (h *Handle) String() string {
	if h.direct {
		return h.ref.String()
	}
	return "handle" + h.sig.String()[len("func"):]
}

// HandleResolver turns a member into a bound handle.
type HandleResolver interface {
	ResolveHandle(m *scope.Member) (*Handle, error)
}

type reflectResolver struct {
	allowPrivate bool
}

// NewReflectResolver returns a resolver backed by the member's func value.
// With allowPrivate set, unexported members are reachable (maximal override).
func NewReflectResolver(allowPrivate bool) HandleResolver {
	return reflectResolver{allowPrivate: allowPrivate}
}

func (r reflectResolver) ResolveHandle(m *scope.Member) (*Handle, error) {
	fn := m.Func()
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, NewAccessError(m.String(), "no implementation")
	}
	if !m.Exported() && !r.allowPrivate {
		return nil, NewAccessError(m.String(), "member is unexported and private access is disabled")
	}
	if !fn.CanInterface() {
		return nil, NewAccessError(m.String(), "implementation was obtained through an unexported field")
	}
	return &Handle{
		fn:     fn,
		sig:    SignatureOf(fn.Type()),
		ref:    m.Ref(),
		kind:   m.Kind(),
		direct: true,
	}, nil
}
