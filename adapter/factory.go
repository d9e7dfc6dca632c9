package adapter

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-adapter-cache/cache"
	"github.com/goliatone/go-adapter-cache/scope"
	"github.com/goliatone/go-adapter-cache/synth"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("adaptercache.adapter")

// funcMethodName is the method name reported for func target types.
const funcMethodName = "call"

// Factory builds functional adapters and memoizes them through a CacheManager.
type Factory struct {
	manager     cache.CacheManager
	synthesizer synth.Synthesizer
	serial      synth.Synthesizer
	resolver    synth.HandleResolver
}

// Option configures a Factory.
type Option func(*Factory)

// WithSynthesizer replaces the synthesizer used for plain and extended requests.
func WithSynthesizer(s synth.Synthesizer) Option {
	return func(f *Factory) {
		if s != nil {
			f.synthesizer = s
		}
	}
}

// WithSerialSynthesizer replaces the privileged synthesizer used for
// serializable adapters.
func WithSerialSynthesizer(s synth.Synthesizer) Option {
	return func(f *Factory) {
		if s != nil {
			f.serial = s
		}
	}
}

// WithResolver replaces the handle resolver.
func WithResolver(r synth.HandleResolver) Option {
	return func(f *Factory) {
		if r != nil {
			f.resolver = r
		}
	}
}

// WithAllowPrivate sets whether handles may reach unexported members.
func WithAllowPrivate(allow bool) Option {
	return func(f *Factory) {
		f.resolver = synth.NewReflectResolver(allow)
	}
}

// New creates a Factory over manager. A nil manager gets a lifetime manager
// homed in the system scope.
func New(manager cache.CacheManager, opts ...Option) *Factory {
	if manager == nil {
		manager = cache.NewCacheManager(nil)
	}
	f := &Factory{
		manager:     manager,
		synthesizer: synth.NewReflectSynthesizer(),
		serial:      synth.NewReflectSynthesizer(synth.WithPrivilegedLookup()),
		resolver:    synth.NewReflectResolver(true),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Manager returns the cache manager.
func (f *Factory) Manager() cache.CacheManager { return f.manager }

// Describe returns the cached single-method descriptor of t.
func (f *Factory) Describe(t *scope.Type) (*synth.InterfaceDescriptor, error) {
	if t == nil {
		return nil, synth.NewInterfaceShapeError("<nil>", 0)
	}
	return f.manager.Descriptor(t, func() (*synth.InterfaceDescriptor, error) {
		return describe(t)
	})
}

func describe(t *scope.Type) (*synth.InterfaceDescriptor, error) {
	rt := t.Reflect()
	switch rt.Kind() {
	case reflect.Interface:
		if n := rt.NumMethod(); n != 1 {
			return nil, synth.NewInterfaceShapeError(t.Name(), n)
		}
		m := rt.Method(0)
		return synth.NewInterfaceDescriptor(rt, t.Name(), m.Name, synth.SignatureOf(m.Type), t.Binder()), nil
	case reflect.Func:
		return synth.NewInterfaceDescriptor(rt, t.Name(), funcMethodName, synth.SignatureOf(rt), t.Binder()), nil
	}
	return nil, synth.NewInterfaceShapeError(t.Name(), 0)
}

// Wrap returns the adapter of m for key, synthesizing it on the first request.
func (f *Factory) Wrap(m *scope.Member, key cache.Key) (*synth.Adapter, error) {
	if m == nil {
		return nil, synth.WrapSynthesisError(fmt.Errorf("nil member"), "wrap")
	}
	desc, err := f.Describe(key.Interface())
	if err != nil {
		return nil, err
	}
	return f.manager.Adapter(m, key, func() (*synth.Adapter, error) {
		return f.wrapMember(m, desc, key)
	})
}

// WrapType returns the non-capturing adapter of m for the target type iface.
func (f *Factory) WrapType(m *scope.Member, iface *scope.Type) (*synth.Adapter, error) {
	return f.Wrap(m, cache.NewKey(iface))
}

// WrapHandle returns the adapter of an already resolved handle for key.
func (f *Factory) WrapHandle(h *synth.Handle, key cache.Key) (*synth.Adapter, error) {
	if h == nil {
		return nil, synth.WrapSynthesisError(fmt.Errorf("nil handle"), "wrap handle")
	}
	desc, err := f.Describe(key.Interface())
	if err != nil {
		return nil, err
	}
	return f.manager.HandleAdapter(h, key, func() (*synth.Adapter, error) {
		captures := key.Captured()
		if _, kind, ok := h.Ref(); ok && kind == scope.KindMethod && h.Signature().Arity() > 0 {
			if err := checkReceiver(h.String(), h.Signature().In[0], captures); err != nil {
				return nil, err
			}
		}
		return f.synthesize(h, desc, key, captures)
	})
}

// ClearCaches empties every cache partition. Adapters already returned keep
// working.
func (f *Factory) ClearCaches() {
	f.manager.Clear()
}

func (f *Factory) wrapMember(m *scope.Member, desc *synth.InterfaceDescriptor, key cache.Key) (*synth.Adapter, error) {
	captures := key.Captured()
	if recv, ok := m.Receiver(); ok {
		if err := checkReceiver(m.String(), recv, captures); err != nil {
			return nil, err
		}
	}

	h, err := f.manager.Handle(m, func() (*synth.Handle, error) {
		return f.resolver.ResolveHandle(m)
	})
	if err != nil {
		return nil, err
	}
	return f.synthesize(h, desc, key, captures)
}

// checkReceiver verifies that the first captured value, when present, can be
// the receiver of an instance method. With no captures the receiver comes from
// the adapter's first argument.
func checkReceiver(member string, recv reflect.Type, captures []any) error {
	if len(captures) == 0 {
		return nil
	}
	first := captures[0]
	meta := map[string]any{"member": member, "receiver": recv.String()}
	if first == nil {
		return synth.NewInvalidCaptureError(
			fmt.Sprintf("%s: receiver is nil, expected %s", member, recv), meta)
	}
	if got := reflect.TypeOf(first); !got.AssignableTo(recv) {
		meta["captured"] = got.String()
		return synth.NewInvalidCaptureError(
			fmt.Sprintf("%s: receiver is %s, expected %s", member, got, recv), meta)
	}
	return nil
}

func (f *Factory) synthesize(h *synth.Handle, desc *synth.InterfaceDescriptor, key cache.Key, captures []any) (*synth.Adapter, error) {
	impl := h.Signature()
	captures, err := collapseVariadic(impl, captures)
	if err != nil {
		return nil, err
	}
	if len(captures) > impl.Arity() {
		return nil, synth.WrapSynthesisError(
			fmt.Errorf("%d captures for %d parameters", len(captures), impl.Arity()),
			fmt.Sprintf("cannot synthesize %s for %s", desc.Name, h))
	}
	residual := impl.DropLeading(len(captures))

	types, err := factoryTypes(impl, captures)
	if err != nil {
		return nil, err
	}

	req := synth.Request{
		MethodName: desc.MethodName,
		Factory:    synth.ConstructionSignature{Interface: desc, Captures: types},
		Descriptor: desc.Method,
		Handle:     h,
		Invocation: residual,
	}

	var site synth.Site
	if key.Extended() {
		site, err = f.synthesizeExtended(req, key)
	} else {
		site, err = f.synthesizer.Synthesize(req)
	}
	if err != nil {
		return nil, synth.WrapSynthesisError(err, fmt.Sprintf("cannot synthesize %s for %s", desc.Name, h))
	}

	values := make([]reflect.Value, len(captures))
	for i, c := range captures {
		values[i] = reflect.ValueOf(c)
	}
	a, err := site.Construct(values)
	if err != nil {
		return nil, synth.WrapSynthesisError(err, fmt.Sprintf("cannot construct %s for %s", desc.Name, h))
	}

	log.Debug("adapter built", "interface", desc.Name, "impl", h.String(), "captures", len(captures))
	return a, nil
}

func (f *Factory) synthesizeExtended(req synth.Request, key cache.Key) (synth.Site, error) {
	ext := synth.ExtendedRequest{Request: req}
	if markers := key.Markers(); len(markers) > 0 {
		ext.Flags |= synth.FlagMarkers
		ext.Markers = markers
	}
	if bridges := key.Bridges(); len(bridges) > 0 {
		ext.Flags |= synth.FlagBridges
		for _, b := range bridges {
			if b.Kind() != reflect.Func {
				return nil, fmt.Errorf("bridge %s is not a func type", b)
			}
			ext.Bridges = append(ext.Bridges, synth.SignatureOf(b))
		}
	}
	if key.Serializable() {
		ext.Flags |= synth.FlagSerializable
		return f.serial.SynthesizeExtended(ext)
	}
	return f.synthesizer.SynthesizeExtended(ext)
}

// factoryTypes picks the construction signature types: the declared parameter
// type for basic kinds and nil captures, the runtime type otherwise.
func factoryTypes(impl synth.Signature, captures []any) ([]reflect.Type, error) {
	types := make([]reflect.Type, len(captures))
	for i, c := range captures {
		var declared reflect.Type
		if i < impl.Arity() {
			declared = impl.In[i]
		}
		if declared != nil && !fits(c, declared) {
			got := "nil"
			if c != nil {
				got = reflect.TypeOf(c).String()
			}
			return nil, synth.NewInvalidCaptureError(
				fmt.Sprintf("capture %d is %s, expected %s", i, got, declared),
				map[string]any{"index": i, "expected": declared.String(), "captured": got})
		}
		switch {
		case declared != nil && synth.IsBasic(declared):
			types[i] = declared
		case c == nil && declared != nil:
			types[i] = declared
		case c == nil:
			types[i] = reflect.TypeFor[any]()
		default:
			types[i] = reflect.TypeOf(c)
		}
	}
	return types, nil
}

// fits reports whether captured value c can be bound to a parameter of type
// declared, converting between basic kinds of the same family.
func fits(c any, declared reflect.Type) bool {
	if c == nil {
		return nilable(declared)
	}
	got := reflect.TypeOf(c)
	if got.AssignableTo(declared) {
		return true
	}
	return synth.SameFamily(got, declared) && got.ConvertibleTo(declared)
}
