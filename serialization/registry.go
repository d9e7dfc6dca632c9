package serialization

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"weak"

	"github.com/fxamacker/cbor/v2"
	"github.com/goliatone/go-adapter-cache/adapter"
	"github.com/goliatone/go-adapter-cache/cache"
	"github.com/goliatone/go-adapter-cache/scope"
	"github.com/goliatone/go-adapter-cache/synth"
	"github.com/goliatone/go-errors"
	"github.com/tliron/commonlog"
	hex "github.com/tmthrgd/go-hex"
)

var log = commonlog.GetLogger("adaptercache.serialization")

const (
	methodPrefix  = "method"
	typePrefix    = "type"
	closurePrefix = "closure"
)

// prefixDeleter is implemented by lookup caches that can drop a key range.
type prefixDeleter interface {
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// Registry resolves serialized closures back into adapters. Lookups are
// cached in a CacheService of their own, apart from the lifetime partitions
// of the factory's manager. Resolved types and members are held weakly so
// the registry never keeps a scope alive.
type Registry struct {
	home    *scope.Scope
	factory *adapter.Factory
	lookups cache.CacheService
	content cbor.EncMode
}

// Option configures a Registry.
type Option func(*Registry)

// WithLookupCache sets the cache used for member, type and closure lookups.
func WithLookupCache(svc cache.CacheService) Option {
	return func(r *Registry) {
		if svc != nil {
			r.lookups = svc
		}
	}
}

// NewRegistry creates a registry resolving names in home. A nil home means
// scope.System and a nil factory gets a default one.
func NewRegistry(home *scope.Scope, factory *adapter.Factory, opts ...Option) *Registry {
	if home == nil {
		home = scope.System()
	}
	if factory == nil {
		factory = adapter.New(nil)
	}
	r := &Registry{home: home, factory: factory}
	for _, opt := range opts {
		opt(r)
	}
	if r.lookups == nil {
		svc, err := cache.NewCacheService(cache.DefaultConfig())
		if err != nil {
			log.Warning("falling back to uncached lookups", "error", err)
			svc = cache.NewNoopCacheService()
		}
		r.lookups = svc
	}
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		log.Warning("closures will be cached by reference", "error", err)
	} else {
		r.content = em
	}
	return r
}

// Home returns the scope names are resolved in.
func (r *Registry) Home() *scope.Scope { return r.home }

// ResolveMethod returns the member named by ref. The constructor name
// scope.ConstructorName selects the type's constructor.
func (r *Registry) ResolveMethod(ctx context.Context, ref scope.MemberRef) (*scope.Member, error) {
	m, err := lookupWeak(ctx, r.lookups, r.key(methodPrefix, ref.String()), func() (*scope.Member, error) {
		t, err := r.home.FindType(ref.Type)
		if err != nil {
			return nil, err
		}
		return t.FindMember(ref.Name, ref.Signature)
	})
	if err != nil {
		return nil, synth.NewMemberNotFoundError(ref.String(), err)
	}
	return m, nil
}

// ResolveType returns the type registered under name.
func (r *Registry) ResolveType(ctx context.Context, name string) (*scope.Type, error) {
	t, err := lookupWeak(ctx, r.lookups, r.key(typePrefix, name), func() (*scope.Type, error) {
		return r.home.FindType(name)
	})
	if err != nil {
		return nil, synth.NewMemberNotFoundError(name, err)
	}
	return t, nil
}

// Reconstruct rebuilds the adapter described by c: the implementation is
// resolved, the target type is checked against the recorded method and the
// captured arguments become a serializable key. Closures with equal content
// resolve to the same adapter, even when their captured pointers differ.
func (r *Registry) Reconstruct(ctx context.Context, c synth.SerializedClosure) (*synth.Adapter, error) {
	m, err := r.ResolveMethod(ctx, c.Impl)
	if err != nil {
		return nil, err
	}
	if m.Kind() != c.ImplKind {
		return nil, synth.NewMemberNotFoundError(c.Impl.String(),
			fmt.Errorf("recorded as a %s, resolved to a %s", c.ImplKind, m.Kind()))
	}

	iface, err := r.ResolveType(ctx, c.InterfaceType)
	if err != nil {
		return nil, err
	}
	desc, err := r.factory.Describe(iface)
	if err != nil {
		return nil, err
	}
	if desc.MethodName != c.InterfaceMethod ||
		(c.InterfaceSignature != "" && desc.Method.String() != c.InterfaceSignature) {
		return nil, synth.NewMemberNotFoundError(
			c.InterfaceType+"."+c.InterfaceMethod+strings.TrimPrefix(c.InterfaceSignature, "func"),
			fmt.Errorf("target type declares %s", desc))
	}

	key := cache.NewKeyBuilder(iface).Capture(c.CapturedArgs...).Serializable(true).Build()
	return cache.GetOrFetch(ctx, r.lookups, r.key(closurePrefix, c.Impl.String(), r.contentKey(c, key)),
		func(ctx context.Context) (*synth.Adapter, error) {
			log.Debug("reconstructing closure", "impl", c.Impl.String(), "interface", c.InterfaceType)
			return r.factory.Wrap(m, key)
		})
}

// Decode reads a closure written by codec. Captured arguments are decoded as
// the implementation's parameter types.
func (r *Registry) Decode(ctx context.Context, codec Codec, data []byte) (synth.SerializedClosure, error) {
	env, err := codec.Unmarshal(data)
	if err != nil {
		return synth.SerializedClosure{}, errors.Wrap(err, errors.CategoryBadInput, "cannot decode closure")
	}
	c := env.Closure

	m, err := r.ResolveMethod(ctx, c.Impl)
	if err != nil {
		return synth.SerializedClosure{}, err
	}
	in := synth.SignatureOf(m.Func().Type()).In

	c.CapturedArgs = make([]any, env.Args())
	for i := range c.CapturedArgs {
		var t reflect.Type
		if i < len(in) {
			t = in[i]
		}
		v, err := env.DecodeArg(i, t)
		if err != nil {
			return synth.SerializedClosure{}, errors.Wrap(err, errors.CategoryBadInput,
				fmt.Sprintf("cannot decode captured arguments of %s", c.Impl))
		}
		c.CapturedArgs[i] = v
	}
	return c, nil
}

// Restore decodes data with codec and reconstructs the adapter.
func (r *Registry) Restore(ctx context.Context, codec Codec, data []byte) (*synth.Adapter, error) {
	c, err := r.Decode(ctx, codec, data)
	if err != nil {
		return nil, err
	}
	return r.Reconstruct(ctx, c)
}

// Encode writes the serial form of a with codec.
func (r *Registry) Encode(codec Codec, a *synth.Adapter) ([]byte, error) {
	c, ok := a.SerialForm()
	if !ok {
		return nil, errors.New(fmt.Sprintf("adapter for %s is not serializable", a.Type()), errors.CategoryBadInput)
	}
	return codec.Marshal(c)
}

// Evict drops the cached resolution of ref and every closure built on it.
func (r *Registry) Evict(ctx context.Context, ref scope.MemberRef) error {
	if err := r.lookups.Delete(ctx, r.key(methodPrefix, ref.String())); err != nil {
		return err
	}
	if d, ok := r.lookups.(prefixDeleter); ok {
		return d.DeleteByPrefix(ctx, r.key(closurePrefix, ref.String())+cache.KeySeparator)
	}
	return r.lookups.Clear(ctx)
}

// Clear drops every cached lookup.
func (r *Registry) Clear(ctx context.Context) error {
	return r.lookups.Clear(ctx)
}

// contentKey identifies c by value. Captured pointers are encoded as what they
// point to, so payloads decoded apart share a key. Closures canonical CBOR
// cannot encode fall back to the key fingerprint.
func (r *Registry) contentKey(c synth.SerializedClosure, key cache.Key) string {
	if r.content != nil {
		if data, err := r.content.Marshal(c); err == nil {
			return hex.EncodeToString(data)
		}
	}
	return key.Fingerprint()
}

func (r *Registry) key(parts ...string) string {
	return strings.Join(append([]string{parts[0], r.home.String()}, parts[1:]...), cache.KeySeparator)
}

// lookupWeak caches a weak pointer to the value find returns. An entry whose
// value was collected is dropped and looked up again.
func lookupWeak[T any](ctx context.Context, svc cache.CacheService, key string, find func() (*T, error)) (*T, error) {
	var found *T
	wp, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) (weak.Pointer[T], error) {
		v, err := find()
		if err != nil {
			return weak.Pointer[T]{}, err
		}
		found = v
		return weak.Make(v), nil
	})
	if err != nil {
		return nil, err
	}
	if v := wp.Value(); v != nil {
		return v, nil
	}
	if found != nil {
		return found, nil
	}

	if err := svc.Delete(ctx, key); err != nil {
		return nil, err
	}
	return find()
}
