package scope

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("adaptercache.scope")

// ErrNotFound is returned when a type or member lookup has no match.
var ErrNotFound = errors.New("scope: not found")

// Scope is a loading scope: it defines a set of types that share one reclaim lifetime.
// Types defined through Define are retained by the scope until it is closed or
// becomes unreachable; hidden types are never retained.
type Scope struct {
	id     uuid.UUID
	name   string
	parent *Scope
	types  *xsync.MapOf[string, *Type]

	mu       sync.Mutex
	closed   bool
	teardown []func()
}

var (
	bootstrap = newScope("bootstrap", nil)
	platform  = newScope("platform", bootstrap)
	system    = newScope("system", platform)
)

// Bootstrap returns the deepest built-in scope. It has no parent.
func Bootstrap() *Scope { return bootstrap }

// Platform returns the platform scope, a child of Bootstrap.
func Platform() *Scope { return platform }

// System returns the system scope, a child of Platform. It is the default parent
// for scopes created by New.
func System() *Scope { return system }

// New creates a scope with the given parent. A nil parent means System.
func New(name string, parent *Scope) *Scope {
	if parent == nil {
		parent = system
	}
	s := newScope(name, parent)
	log.Debug("scope created", "scope", s.String(), "parent", parent.String())
	return s
}

func newScope(name string, parent *Scope) *Scope {
	return &Scope{
		id:     uuid.New(),
		name:   name,
		parent: parent,
		types:  xsync.NewMapOf[string, *Type](),
	}
}

// ID returns the scope's unique identity.
func (s *Scope) ID() uuid.UUID { return s.id }

// Name returns the human readable scope name.
func (s *Scope) Name() string { return s.name }

// Parent returns the parent scope, or nil for Bootstrap.
func (s *Scope) Parent() *Scope { return s.parent }

func (s *Scope) String() string {
	return fmt.Sprintf("%s#%s", s.name, s.id.String()[:8])
}

// Define interns rt in this scope and returns its Type. Defining the same
// reflect.Type twice returns the same *Type.
func (s *Scope) Define(rt reflect.Type) *Type {
	if s.Closed() {
		log.Warning("define on closed scope, type will not be retained", "scope", s.String(), "type", TypeName(rt))
		return newType(rt, s, true)
	}
	t, _ := s.types.LoadOrCompute(TypeName(rt), func() *Type {
		return newType(rt, s, false)
	})
	return t
}

// DefineHidden creates a type owned by this scope but not retained by it, the
// analogue of an anonymous or hidden class. Each call returns a new *Type.
func (s *Scope) DefineHidden(rt reflect.Type) *Type {
	return newType(rt, s, true)
}

// FindType resolves a type name, asking the parent chain before this scope.
func (s *Scope) FindType(name string) (*Type, error) {
	if s.parent != nil {
		if t, err := s.parent.FindType(name); err == nil {
			return t, nil
		}
	}
	if t, ok := s.types.Load(name); ok {
		return t, nil
	}
	return nil, fmt.Errorf("type %q in %s: %w", name, s, ErrNotFound)
}

// Types returns the number of types retained by this scope.
func (s *Scope) Types() int {
	return s.types.Size()
}

// OnClose registers fn to run when the scope is closed. If the scope is already
// closed fn runs immediately.
func (s *Scope) OnClose(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.teardown = append(s.teardown, fn)
	s.mu.Unlock()
}

// Close tears the scope down: teardown hooks run once and retained types are
// dropped. Anchor scopes cannot be closed.
func (s *Scope) Close() {
	if s == bootstrap || s == platform || s == system {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	hooks := s.teardown
	s.teardown = nil
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	s.types.Clear()
	log.Debug("scope closed", "scope", s.String(), "hooks", len(hooks))
}

// Closed reports whether Close has been called.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// TypeName returns the name a type is registered under: the package-qualified
// name for named types, the reflect string form otherwise.
func TypeName(rt reflect.Type) string {
	if rt == nil {
		return "nil"
	}
	if rt.Kind() == reflect.Pointer && rt.Name() == "" {
		return "*" + TypeName(rt.Elem())
	}
	if rt.Name() != "" && rt.PkgPath() != "" {
		return rt.PkgPath() + "." + rt.Name()
	}
	return rt.String()
}
