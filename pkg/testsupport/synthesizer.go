package testsupport

import (
	"sync/atomic"
	"time"

	"github.com/goliatone/go-adapter-cache/synth"
)

// CountingSynthesizer wraps a Synthesizer and counts the requests that reach it.
// Delay, when set, is slept before every request so concurrent callers overlap.
type CountingSynthesizer struct {
	next     synth.Synthesizer
	Delay    time.Duration
	plain    atomic.Int64
	extended atomic.Int64
	last     atomic.Pointer[synth.ExtendedRequest]
}

// NewCountingSynthesizer wraps next. A nil next wraps the reflect synthesizer
// with privileged lookup enabled.
func NewCountingSynthesizer(next synth.Synthesizer) *CountingSynthesizer {
	if next == nil {
		next = synth.NewReflectSynthesizer(synth.WithPrivilegedLookup())
	}
	return &CountingSynthesizer{next: next}
}

func (c *CountingSynthesizer) Synthesize(req synth.Request) (synth.Site, error) {
	c.plain.Add(1)
	c.last.Store(&synth.ExtendedRequest{Request: req})
	c.wait()
	return c.next.Synthesize(req)
}

func (c *CountingSynthesizer) SynthesizeExtended(req synth.ExtendedRequest) (synth.Site, error) {
	c.extended.Add(1)
	c.last.Store(&req)
	c.wait()
	return c.next.SynthesizeExtended(req)
}

// Calls returns the total number of requests.
func (c *CountingSynthesizer) Calls() int64 {
	return c.plain.Load() + c.extended.Load()
}

// ExtendedCalls returns the number of extended requests.
func (c *CountingSynthesizer) ExtendedCalls() int64 {
	return c.extended.Load()
}

// Last returns the most recent request, plain requests wrapped with no flags.
func (c *CountingSynthesizer) Last() (synth.ExtendedRequest, bool) {
	if r := c.last.Load(); r != nil {
		return *r, true
	}
	return synth.ExtendedRequest{}, false
}

// Reset zeroes the counters.
func (c *CountingSynthesizer) Reset() {
	c.plain.Store(0)
	c.extended.Store(0)
	c.last.Store(nil)
}

func (c *CountingSynthesizer) wait() {
	if c.Delay > 0 {
		time.Sleep(c.Delay)
	}
}
