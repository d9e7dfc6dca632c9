// Package synth builds functional adapters: values of a single-method target
// type whose method forwards to a bound implementation, optionally with leading
// arguments captured at construction time.
//
// A Synthesizer turns a Request into a Site. The site is the construction entry
// point; calling Construct with the captured values yields one Adapter. Sites
// are pure and may be invoked any number of times.
//
// Errors returned by this package are categorized go-errors values so callers
// can tell shape, capture, access, lookup and synthesis failures apart:
//
//	if synth.IsInvalidCapture(err) {
//		// the receiver did not match the declaring type
//	}
package synth
