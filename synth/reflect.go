package synth

import (
	"fmt"
	"reflect"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("adaptercache.synth")

// Option configures the reflect synthesizer.
type Option func(*reflectSynthesizer)

// WithPrivilegedLookup allows the synthesizer to produce serializable adapters.
func WithPrivilegedLookup() Option {
	return func(s *reflectSynthesizer) {
		s.privileged = true
	}
}

type reflectSynthesizer struct {
	privileged bool
}

// NewReflectSynthesizer returns a Synthesizer that builds adapters with
// reflect.MakeFunc.
func NewReflectSynthesizer(opts ...Option) Synthesizer {
	s := &reflectSynthesizer{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *reflectSynthesizer) Synthesize(req Request) (Site, error) {
	return s.SynthesizeExtended(ExtendedRequest{Request: req})
}

func (s *reflectSynthesizer) SynthesizeExtended(req ExtendedRequest) (Site, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	site := &reflectSite{
		method:     req.MethodName,
		factory:    req.Factory,
		descriptor: req.Descriptor,
		impl:       req.Handle.Signature(),
		invoke:     req.Handle.invoker(),
	}
	if req.Flags.Has(FlagMarkers) {
		site.markers = append([]reflect.Type(nil), req.Markers...)
	}
	if req.Flags.Has(FlagBridges) {
		site.bridges = append([]Signature(nil), req.Bridges...)
	}
	if req.Flags.Has(FlagSerializable) {
		ref, kind, _ := req.Handle.Ref()
		site.closure = &SerializedClosure{
			InterfaceType:      req.Factory.Interface.Name,
			InterfaceMethod:    req.MethodName,
			InterfaceSignature: req.Descriptor.String(),
			ImplKind:           kind,
			Impl:               ref,
		}
	}

	log.Debug("adapter synthesized", "factory", req.Factory.String(), "impl", req.Handle.String(), "flags", req.Flags.String())
	return site, nil
}

func (s *reflectSynthesizer) validate(req ExtendedRequest) error {
	if req.Factory.Interface == nil {
		return fmt.Errorf("synthesize: missing target interface")
	}
	if !req.Factory.Interface.Bindable() {
		return fmt.Errorf("synthesize: %s has no binder", req.Factory.Interface.Name)
	}
	if req.Handle == nil {
		return fmt.Errorf("synthesize: missing implementation handle")
	}
	if req.Flags.Has(FlagSerializable) {
		if !s.privileged {
			return fmt.Errorf("synthesize: serializable adapters need privileged lookup")
		}
		if _, _, direct := req.Handle.Ref(); !direct {
			return fmt.Errorf("synthesize: serializable adapters need a member handle, got %s", req.Handle)
		}
	}

	impl := req.Handle.Signature()
	captures := req.Factory.Captures
	if len(captures)+req.Invocation.Arity() != impl.Arity() {
		return fmt.Errorf("synthesize: %d captures and %d parameters do not match %s",
			len(captures), req.Invocation.Arity(), impl)
	}
	for i, ct := range captures {
		if !compatible(ct, impl.In[i]) {
			return fmt.Errorf("synthesize: capture %d: %s is not usable as %s", i, ct, impl.In[i])
		}
	}
	for i, pt := range req.Invocation.In {
		if pt != impl.In[len(captures)+i] {
			return fmt.Errorf("synthesize: invocation parameter %d: %s does not match %s",
				i, pt, impl.In[len(captures)+i])
		}
	}
	if err := checkCallable(req.Descriptor, req.Invocation, impl.Out); err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	if req.Flags.Has(FlagBridges) {
		for _, b := range req.Bridges {
			if err := checkCallable(b, req.Descriptor, req.Descriptor.Out); err != nil {
				return fmt.Errorf("synthesize: bridge %s: %w", b, err)
			}
		}
	}
	return nil
}

// checkCallable reports whether a func of shape outer can forward its arguments
// to inner and return the results produced as results.
func checkCallable(outer, inner Signature, results []reflect.Type) error {
	if outer.Arity() != inner.Arity() {
		return fmt.Errorf("%s takes %d parameters, %s takes %d", outer, outer.Arity(), inner, inner.Arity())
	}
	for i := range outer.In {
		if !compatible(outer.In[i], inner.In[i]) {
			return fmt.Errorf("parameter %d: %s is not usable as %s", i, outer.In[i], inner.In[i])
		}
	}
	if len(outer.Out) == 0 {
		return nil
	}
	if len(outer.Out) != len(results) {
		return fmt.Errorf("%s returns %d values, implementation returns %d", outer, len(outer.Out), len(results))
	}
	for i := range outer.Out {
		if !compatible(results[i], outer.Out[i]) {
			return fmt.Errorf("result %d: %s is not usable as %s", i, results[i], outer.Out[i])
		}
	}
	return nil
}

// reflectSite keeps copies of the request parts it needs rather than the
// request itself; the handle must stay collectable.
type reflectSite struct {
	method     string
	factory    ConstructionSignature
	descriptor Signature
	impl       Signature
	invoke     func([]reflect.Value) []reflect.Value
	markers    []reflect.Type
	bridges    []Signature
	closure    *SerializedClosure
}

func (s *reflectSite) Construct(captures []reflect.Value) (*Adapter, error) {
	if len(captures) != len(s.factory.Captures) {
		return nil, fmt.Errorf("construct %s: got %d captures", s.factory, len(captures))
	}

	bound := make([]reflect.Value, len(captures))
	for i, c := range captures {
		v, err := coerce(c, s.factory.Captures[i])
		if err == nil {
			v, err = coerce(v, s.impl.In[i])
		}
		if err != nil {
			return nil, fmt.Errorf("construct %s: capture %d: %w", s.factory, i, err)
		}
		bound[i] = v
	}

	fn := reflect.MakeFunc(s.descriptor.FuncType(), s.forward(bound))
	value, err := s.factory.Interface.Bind(fn)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", s.factory, err)
	}

	adapter := &Adapter{value: value, markers: s.markers}
	if len(s.bridges) > 0 {
		adapter.bridges = make(map[reflect.Type]reflect.Value, len(s.bridges))
		for _, b := range s.bridges {
			adapter.bridges[b.FuncType()] = reflect.MakeFunc(b.FuncType(), bridge(fn, s.descriptor, b))
		}
	}
	if s.closure != nil {
		c := *s.closure
		c.CapturedArgs = make([]any, len(captures))
		for i, v := range captures {
			if v.IsValid() && v.CanInterface() {
				c.CapturedArgs[i] = v.Interface()
			}
		}
		adapter.closure = &c
	}
	return adapter, nil
}

// forward returns the body of the adapter method: bound captures first, then the
// call arguments, then the implementation's results converted to the method's.
func (s *reflectSite) forward(bound []reflect.Value) func([]reflect.Value) []reflect.Value {
	method, in, out, invoke := s.method, s.impl.In, s.descriptor.Out, s.invoke
	return func(args []reflect.Value) []reflect.Value {
		full := make([]reflect.Value, 0, len(bound)+len(args))
		full = append(full, bound...)
		for i, a := range args {
			v, err := coerce(a, in[len(bound)+i])
			if err != nil {
				panic(fmt.Errorf("%s: argument %d: %w", method, i, err))
			}
			full = append(full, v)
		}
		results := invoke(full)
		if len(out) == 0 {
			return nil
		}
		converted := make([]reflect.Value, len(out))
		for i, r := range results {
			v, err := coerce(r, out[i])
			if err != nil {
				panic(fmt.Errorf("%s: result %d: %w", method, i, err))
			}
			converted[i] = v
		}
		return converted
	}
}

func bridge(target reflect.Value, to, from Signature) func([]reflect.Value) []reflect.Value {
	return func(args []reflect.Value) []reflect.Value {
		in := make([]reflect.Value, len(args))
		for i, a := range args {
			v, err := coerce(a, to.In[i])
			if err != nil {
				panic(fmt.Errorf("bridge %s: argument %d: %w", from, i, err))
			}
			in[i] = v
		}
		var results []reflect.Value
		if to.Variadic {
			results = target.CallSlice(in)
		} else {
			results = target.Call(in)
		}
		if len(from.Out) == 0 {
			return nil
		}
		out := make([]reflect.Value, len(from.Out))
		for i, r := range results {
			v, err := coerce(r, from.Out[i])
			if err != nil {
				panic(fmt.Errorf("bridge %s: result %d: %w", from, i, err))
			}
			out[i] = v
		}
		return out
	}
}

// compatible reports whether a value of type from may be passed where to is
// expected. Interface sources are checked again when the value is known.
func compatible(from, to reflect.Type) bool {
	switch {
	case from == to, from.AssignableTo(to):
		return true
	case from.Kind() == reflect.Interface:
		return true
	default:
		return sameClass(from, to) && from.ConvertibleTo(to)
	}
}

func coerce(v reflect.Value, to reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		if nilable(to) {
			return reflect.Zero(to), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not usable as %s", to)
	}
	from := v.Type()
	switch {
	case from == to:
		return v, nil
	case from.AssignableTo(to):
		out := reflect.New(to).Elem()
		out.Set(v)
		return out, nil
	case from.Kind() == reflect.Interface:
		if v.IsNil() {
			return coerce(reflect.Value{}, to)
		}
		return coerce(v.Elem(), to)
	case sameClass(from, to) && from.ConvertibleTo(to):
		return v.Convert(to), nil
	}
	return reflect.Value{}, fmt.Errorf("%s is not usable as %s", from, to)
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

type kindClass uint8

const (
	classOther kindClass = iota
	classBool
	classSigned
	classUnsigned
	classFloat
	classComplex
	classString
)

func classOf(k reflect.Kind) kindClass {
	switch k {
	case reflect.Bool:
		return classBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return classSigned
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return classUnsigned
	case reflect.Float32, reflect.Float64:
		return classFloat
	case reflect.Complex64, reflect.Complex128:
		return classComplex
	case reflect.String:
		return classString
	}
	return classOther
}

// sameClass limits implicit conversions to values of the same basic family, so
// an int never silently becomes a string.
func sameClass(a, b reflect.Type) bool {
	ca := classOf(a.Kind())
	return ca != classOther && ca == classOf(b.Kind())
}

// IsBasic reports whether t is a bool, numeric or string kind.
func IsBasic(t reflect.Type) bool {
	return classOf(t.Kind()) != classOther
}

// SameFamily reports whether a and b are basic kinds of the same family, such as
// two signed integers.
func SameFamily(a, b reflect.Type) bool {
	return sameClass(a, b)
}
