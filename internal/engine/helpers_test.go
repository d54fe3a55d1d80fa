package engine

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func testRequest() *Request {
	return &Request{
		Sample: Sample{Name: "BiPh3", ResonantFrequency: 83.56e6},
		Pulse: PulseArray{
			Amplitude: []float64{1, 1, 0, 0},
			Phase:     []float64{0, 0, 0, 0},
			DwellTime: 1e-7,
		},
		Params: Params{NumberIsochromats: 10, Averages: 4},
	}
}

// writeFakeEngine writes an executable shell script that consumes stdin and
// prints body. exitCode != 0 makes the script fail after writing to stderr.
func writeFakeEngine(t *testing.T, body string, exitCode int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-engine.sh")

	script := "#!/bin/sh\ncat > \"$(dirname \"$0\")/request.json\"\n"
	if exitCode != 0 {
		script += "echo 'simulation diverged' >&2\nexit " + strconv.Itoa(exitCode) + "\n"
	} else {
		script += "cat <<'JSON'\n" + body + "\nJSON\n"
	}

	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake engine: %v", err)
	}
	return path
}
