package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-adapter-cache/scope"
	"github.com/goliatone/go-adapter-cache/synth"
)

func TestLoadFixture(t *testing.T) {
	path := WriteFixture(t, "test.txt", "test fixture content")

	result := LoadFixture(t, path)
	if string(result) != "test fixture content" {
		t.Errorf("expected fixture content, got %q", result)
	}
}

func TestCompareWithGolden_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golden", "out.golden")

	CompareWithGolden(t, path, []byte("first"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected golden file to be created: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("expected %q, got %q", "first", data)
	}

	CompareWithGolden(t, path, []byte("first"))
}

func TestWireGolden_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wire.golden")
	wire := []byte{0xa6, 0x6d, 0x69, 0x6e, 0x74, 0x65, 0x72, 0x66, 0x61, 0x63, 0x65, 0x00, 0xff, 0x10, 0x20, 0x30, 0x40, 0x50}

	CompareWireGolden(t, path, wire)

	if got := DecodeWireGolden(t, path); !bytes.Equal(got, wire) {
		t.Errorf("expected %x, got %x", wire, got)
	}
}

func TestPaths(t *testing.T) {
	if got := FixturePath("a.toml"); got != filepath.Join("testdata", "a.toml") {
		t.Errorf("unexpected fixture path %s", got)
	}
	if got := GoldenPath("a.golden"); got != filepath.Join("testdata", "golden", "a.golden") {
		t.Errorf("unexpected golden path %s", got)
	}
}

func TestDefineFixtures(t *testing.T) {
	s := scope.New("fixtures", nil)
	defer s.Close()

	f := MustDefineFixtures(t, s)

	if f.GetGreeting.Kind() != scope.KindMethod {
		t.Errorf("expected a method, got %s", f.GetGreeting.Kind())
	}
	if f.Secret.Exported() {
		t.Error("expected secret to be unexported")
	}
	if f.Constructor.Kind() != scope.KindConstructor {
		t.Errorf("expected a constructor, got %s", f.Constructor.Kind())
	}
	if f.Supplier.Binder() == nil {
		t.Error("expected the supplier interface to have a binder")
	}

	again := MustDefineFixtures(t, s)
	if again.GetGreeting != f.GetGreeting || again.Tester != f.Tester {
		t.Error("expected members and types to be interned")
	}
}

func TestCountingSynthesizer(t *testing.T) {
	c := NewCountingSynthesizer(nil)

	if _, ok := c.Last(); ok {
		t.Error("expected no request yet")
	}

	_, _ = c.Synthesize(synth.Request{})
	_, _ = c.SynthesizeExtended(synth.ExtendedRequest{Flags: synth.FlagMarkers})

	if c.Calls() != 2 || c.ExtendedCalls() != 1 {
		t.Errorf("unexpected counts %d %d", c.Calls(), c.ExtendedCalls())
	}
	last, ok := c.Last()
	if !ok || !last.Flags.Has(synth.FlagMarkers) {
		t.Errorf("unexpected last request %+v", last)
	}

	c.Reset()
	if c.Calls() != 0 {
		t.Errorf("expected counters reset, got %d", c.Calls())
	}
}
