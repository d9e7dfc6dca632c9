package scope

import (
	"fmt"
	"go/token"
	"reflect"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// Binder turns a func value shaped like an interface's single method into a value
// of that interface type.
type Binder func(fn reflect.Value) (reflect.Value, error)

type memberKey struct {
	name string
	sig  reflect.Type
}

// Type is a reflect.Type owned by a Scope. It interns the members declared on it,
// so a given (name, signature) pair always maps to the same *Member.
type Type struct {
	rt      reflect.Type
	name    string
	scope   *Scope
	hidden  bool
	members *xsync.MapOf[memberKey, *Member]
	bind    atomic.Pointer[Binder]
}

func newType(rt reflect.Type, s *Scope, hidden bool) *Type {
	return &Type{
		rt:      rt,
		name:    TypeName(rt),
		scope:   s,
		hidden:  hidden,
		members: xsync.NewMapOf[memberKey, *Member](),
	}
}

// Reflect returns the underlying reflect.Type.
func (t *Type) Reflect() reflect.Type { return t.rt }

// Name returns the registered type name.
func (t *Type) Name() string { return t.name }

// Scope returns the declaring scope.
func (t *Type) Scope() *Scope { return t.scope }

// Hidden reports whether the type is untracked by its scope.
func (t *Type) Hidden() bool { return t.hidden }

// Binder returns the interface binder, or nil when none was registered.
func (t *Type) Binder() Binder {
	if b := t.bind.Load(); b != nil {
		return *b
	}
	return nil
}

func (t *Type) String() string { return t.name }

// DefineInterface defines the interface type I in s and registers adapt as the way
// to build an I out of a func of type F.
func DefineInterface[I any, F any](s *Scope, adapt func(F) I) *Type {
	t := s.Define(reflect.TypeFor[I]())
	if err := BindInterface(t, adapt); err != nil {
		panic(err)
	}
	return t
}

// BindInterface registers adapt as t's binder. t must wrap the interface type I.
func BindInterface[I any, F any](t *Type, adapt func(F) I) error {
	it := reflect.TypeFor[I]()
	ft := reflect.TypeFor[F]()
	if t.rt != it {
		return fmt.Errorf("bind %s: type is %s", it, t.rt)
	}
	if it.Kind() != reflect.Interface {
		return fmt.Errorf("bind %s: not an interface type", it)
	}
	if ft.Kind() != reflect.Func {
		return fmt.Errorf("bind %s: %s is not a func type", it, ft)
	}
	var b Binder = func(fn reflect.Value) (reflect.Value, error) {
		if !fn.Type().ConvertibleTo(ft) {
			return reflect.Value{}, fmt.Errorf("bind %s: cannot use %s as %s", it, fn.Type(), ft)
		}
		bound := any(adapt(fn.Convert(ft).Interface().(F)))
		if bound == nil {
			return reflect.Value{}, fmt.Errorf("bind %s: binder returned nil", it)
		}
		out := reflect.New(it).Elem()
		out.Set(reflect.ValueOf(bound))
		return out, nil
	}
	t.bind.Store(&b)
	return nil
}

// Method returns the exported method name of the type as a method expression,
// receiver first. Pointer-receiver methods are found through *T.
func (t *Type) Method(name string) (*Member, error) {
	m, ok := t.rt.MethodByName(name)
	if !ok && t.rt.Kind() != reflect.Pointer && t.rt.Kind() != reflect.Interface {
		m, ok = reflect.PointerTo(t.rt).MethodByName(name)
	}
	if !ok {
		return nil, fmt.Errorf("method %s.%s: %w", t.name, name, ErrNotFound)
	}
	return t.intern(name, KindMethod, m.Func, true), nil
}

// DefineFunc declares fn as a static function of the type.
func (t *Type) DefineFunc(name string, fn any) (*Member, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("define %s.%s: %T is not a func", t.name, name, fn)
	}
	return t.intern(name, KindFunction, v, token.IsExported(name)), nil
}

// DefineMethod declares fn as an instance method given as a method expression:
// its first parameter must be the receiver, T or *T. Unexported methods are
// declared this way since reflect cannot reach them.
func (t *Type) DefineMethod(name string, fn any) (*Member, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("define %s.%s: %T is not a func", t.name, name, fn)
	}
	ft := v.Type()
	if ft.NumIn() == 0 || !t.isReceiver(ft.In(0)) {
		return nil, fmt.Errorf("define %s.%s: first parameter must be the receiver", t.name, name)
	}
	return t.intern(name, KindMethod, v, token.IsExported(name)), nil
}

// DefineConstructor declares fn as a constructor; its first result must be T or *T.
func (t *Type) DefineConstructor(fn any) (*Member, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("define %s constructor: %T is not a func", t.name, fn)
	}
	ft := v.Type()
	if ft.NumOut() == 0 || !t.isReceiver(ft.Out(0)) {
		return nil, fmt.Errorf("define %s constructor: first result must be %s", t.name, t.name)
	}
	return t.intern(ConstructorName, KindConstructor, v, true), nil
}

// FindMember resolves a member by name and signature string. Exported methods
// that were never requested are resolved on demand.
func (t *Type) FindMember(name, signature string) (*Member, error) {
	var found *Member
	t.members.Range(func(k memberKey, m *Member) bool {
		if k.name == name && m.Signature() == signature {
			found = m
			return false
		}
		return true
	})
	if found != nil {
		return found, nil
	}
	if name != ConstructorName {
		if m, err := t.Method(name); err == nil && m.Signature() == signature {
			return m, nil
		}
	}
	return nil, fmt.Errorf("member %s.%s%s: %w", t.name, name, signature, ErrNotFound)
}

// Members returns the number of interned members.
func (t *Type) Members() int {
	return t.members.Size()
}

func (t *Type) isReceiver(rt reflect.Type) bool {
	if rt == t.rt {
		return true
	}
	return rt.Kind() == reflect.Pointer && rt.Elem() == t.rt
}

func (t *Type) intern(name string, kind Kind, fn reflect.Value, exported bool) *Member {
	m, _ := t.members.LoadOrCompute(memberKey{name: name, sig: fn.Type()}, func() *Member {
		return &Member{declaring: t, name: name, kind: kind, fn: fn, exported: exported}
	})
	return m
}
