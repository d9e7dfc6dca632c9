package testsupport

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/goliatone/go-adapter-cache/scope"
)

// Supplier is a single-method target with no parameters.
type Supplier interface {
	Get() string
}

type SupplierFunc func() string

func (f SupplierFunc) Get() string { return f() }

// Greeter is a single-method target taking one argument.
type Greeter interface {
	Greet(name string) string
}

type GreeterFunc func(name string) string

func (f GreeterFunc) Greet(name string) string { return f(name) }

// TesterFactory is a target for constructor adapters.
type TesterFactory interface {
	Create(greeting string) *InstanceTester
}

type TesterFactoryFunc func(greeting string) *InstanceTester

func (f TesterFactoryFunc) Create(greeting string) *InstanceTester { return f(greeting) }

// Accessor has two methods and is never a valid target.
type Accessor interface {
	Get() string
	Set(v string)
}

// Transform is a func target type.
type Transform func(s string) string

// InstanceTester is the receiver type used by instance method fixtures.
type InstanceTester struct {
	Greeting string `cbor:"greeting" msgpack:"greeting"`
}

func NewInstanceTester(greeting string) *InstanceTester {
	return &InstanceTester{Greeting: greeting}
}

func (t *InstanceTester) GetGreetingFromInstance() string { return t.Greeting }

func (t *InstanceTester) GreetWith(name string) string { return t.Greeting + ", " + name }

func (t *InstanceTester) secret() string { return "secret:" + t.Greeting }

// Helpers declares the static function fixtures.
type Helpers struct{}

func StaticGreeting() string { return "hello" }

func Shout(s string) string { return strings.ToUpper(s) + "!" }

func Repeat(s string, n int) string { return strings.Repeat(s, n) }

func Label(prefix string, n int64) string { return prefix + strconv.FormatInt(n, 10) }

// Describe renders its arguments; rest shows how trailing captures were collected.
func Describe(a, b string, rest []any) string {
	return fmt.Sprintf("%s|%s|%d:%v", a, b, len(rest), rest)
}

func DescribeVariadic(a, b string, rest ...any) string {
	return Describe(a, b, rest)
}

func Sum(base int, rest []int) int {
	for _, n := range rest {
		base += n
	}
	return base
}

// Fixtures holds the types and members of the fixture domain declared in one scope.
type Fixtures struct {
	Scope *scope.Scope

	Supplier      *scope.Type
	Greeter       *scope.Type
	TesterFactory *scope.Type
	Accessor      *scope.Type
	Transform     *scope.Type
	Tester        *scope.Type
	Helpers       *scope.Type

	GetGreeting      *scope.Member
	GreetWith        *scope.Member
	Secret           *scope.Member
	Constructor      *scope.Member
	StaticGreeting   *scope.Member
	Shout            *scope.Member
	Repeat           *scope.Member
	Label            *scope.Member
	Describe         *scope.Member
	DescribeVariadic *scope.Member
	Sum              *scope.Member
}

// DefineFixtures declares the fixture domain in s.
func DefineFixtures(s *scope.Scope) (*Fixtures, error) {
	f := &Fixtures{
		Scope:         s,
		Supplier:      scope.DefineInterface(s, func(fn SupplierFunc) Supplier { return fn }),
		Greeter:       scope.DefineInterface(s, func(fn GreeterFunc) Greeter { return fn }),
		TesterFactory: scope.DefineInterface(s, func(fn TesterFactoryFunc) TesterFactory { return fn }),
		Accessor:      s.Define(reflect.TypeFor[Accessor]()),
		Transform:     s.Define(reflect.TypeFor[Transform]()),
		Tester:        s.Define(reflect.TypeFor[InstanceTester]()),
		Helpers:       s.Define(reflect.TypeFor[Helpers]()),
	}

	var err error
	define := func(dst **scope.Member, m *scope.Member, e error) {
		if err == nil {
			*dst, err = m, e
		}
	}
	m, e := f.Tester.Method("GetGreetingFromInstance")
	define(&f.GetGreeting, m, e)
	m, e = f.Tester.Method("GreetWith")
	define(&f.GreetWith, m, e)
	m, e = f.Tester.DefineMethod("secret", (*InstanceTester).secret)
	define(&f.Secret, m, e)
	m, e = f.Tester.DefineConstructor(NewInstanceTester)
	define(&f.Constructor, m, e)

	funcs := []struct {
		dst  **scope.Member
		name string
		fn   any
	}{
		{&f.StaticGreeting, "StaticGreeting", StaticGreeting},
		{&f.Shout, "Shout", Shout},
		{&f.Repeat, "Repeat", Repeat},
		{&f.Label, "Label", Label},
		{&f.Describe, "Describe", Describe},
		{&f.DescribeVariadic, "DescribeVariadic", DescribeVariadic},
		{&f.Sum, "Sum", Sum},
	}
	for _, fn := range funcs {
		m, e := f.Helpers.DefineFunc(fn.name, fn.fn)
		define(fn.dst, m, e)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// MustDefineFixtures declares the fixture domain in s or fails the test.
func MustDefineFixtures(t testing.TB, s *scope.Scope) *Fixtures {
	t.Helper()

	f, err := DefineFixtures(s)
	if err != nil {
		t.Fatalf("failed to define fixtures: %v", err)
	}
	return f
}
