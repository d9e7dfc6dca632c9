// Package serialization rebuilds serializable adapters from their serial form.
//
// A serializable adapter records the member it forwards to as a
// scope.MemberRef triple, the name and method of its target type, and its
// captured arguments. Registry.Reconstruct resolves that record in a home
// scope and hands it back to the adapter factory with a serializable key, so
// reconstructing a closure twice yields the cached adapter.
//
// Codecs move closures across process boundaries:
//
//	codec, _ := serialization.NewCBORCodec()
//	data, err := registry.Encode(codec, a)
//	...
//	restored, err := registry.Restore(ctx, codec, data)
//
// Decoding types each captured argument with the matching parameter of the
// resolved implementation. References the home scope cannot resolve fail with
// synth.CategoryMemberNotFound.
package serialization
