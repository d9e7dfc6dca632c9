package testsupport

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// WriteFixture writes content to name inside a fresh temp directory and
// returns the full path. Used for TOML configs.
func WriteFixture(t testing.TB, name string, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
	return path
}

// WriteGolden writes test output to a golden file.
func WriteGolden(t testing.TB, path string, data []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write golden file to %s: %v", path, err)
	}
}

// CompareWithGolden compares actual data with the golden file at path.
// If the golden file doesn't exist, it creates one with the actual data.
func CompareWithGolden(t testing.TB, path string, actual []byte) {
	t.Helper()

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Logf("golden file %s does not exist, creating it", path)
			WriteGolden(t, path, actual)
			return
		}
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if string(actual) != string(expected) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
}

// CompareWireGolden compares binary wire output against a hex dump golden file.
func CompareWireGolden(t testing.TB, path string, wire []byte) {
	t.Helper()
	CompareWithGolden(t, path, []byte(hex.Dump(wire)))
}

// DecodeWireGolden reads back the bytes of a hex dump written by
// CompareWireGolden.
func DecodeWireGolden(t testing.TB, path string) []byte {
	t.Helper()

	var out []byte
	for _, line := range strings.Split(string(LoadFixture(t, path)), "\n") {
		// hex.Dump lines: 8 offset chars, two spaces, 16 space separated bytes, then the ASCII column.
		if len(line) < 10 {
			continue
		}
		body := line[10:]
		if i := strings.Index(body, "|"); i >= 0 {
			body = body[:i]
		}
		b, err := hex.DecodeString(strings.Join(strings.Fields(body), ""))
		if err != nil {
			t.Fatalf("bad golden line %q: %v", line, err)
		}
		out = append(out, b...)
	}
	return out
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath constructs a path to a golden file relative to the testdata directory.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}
