// Package adapter turns a function, method or constructor into a value of a
// single-method target type.
//
// A Factory resolves the member to a handle, matches any captured values
// against the leading parameters, asks a synth.Synthesizer for a construction
// site and constructs the adapter. Every step is memoized through a
// cache.CacheManager, so a given member and key synthesize once:
//
//	f := adapter.New(cache.NewCacheManager(scope.NewClassifier(home)))
//
//	// static function, no captures
//	a, err := f.WrapType(helloMember, supplierType)
//
//	// instance method with a captured receiver
//	a, err = f.Wrap(getGreeting, cache.NewKey(supplierType, tester))
//	greeting := a.Interface().(Supplier).Get()
//
// When the implementation ends in a slice parameter and more values are
// captured than there are leading parameters, the trailing captures are
// collected into that slice.
//
// Capture problems are reported before any synthesis is attempted, as errors
// in the synth.CategoryInvalidCapture category. Errors are never cached.
package adapter
