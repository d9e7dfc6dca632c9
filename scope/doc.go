// Package scope models loading scopes, the types they own and the members
// declared on those types.
//
// A Scope groups types that share one reclaim lifetime. Three anchor scopes exist
// for the whole process (Bootstrap, Platform and System); every other scope is
// created with New and may later be closed or simply dropped.
//
//	plugin := scope.New("plugin", nil)
//	greeter := plugin.Define(reflect.TypeFor[Greeter]())
//	hello, _ := greeter.DefineFunc("Hello", Hello)
//
// Members are interned by their declaring Type, so two lookups of the same
// (name, signature) pair return the same *Member and pointer identity can be
// used as a map key.
//
// A Classifier decides whether a scope outlives a cache (Immortal) or may become
// unreachable first (Ephemeral).
package scope
