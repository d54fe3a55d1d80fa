package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteOutputJSON(t *testing.T) {
	plainOutput(t)

	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, map[string]int{"runs": 4}))
	require.Equal(t, "{\n  \"runs\": 4\n}\n", buf.String())
}

func TestWriteOutputJSONLSplitsSlices(t *testing.T) {
	plainOutput(t)
	jsonlOutput = true

	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, []sequenceInfo{{Name: "FID", Events: 3}, {Name: "SE", Events: 5}}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"name":"FID"`)
	require.Contains(t, lines[1], `"name":"SE"`)
}

func TestRenderSummaryWithoutColor(t *testing.T) {
	plainOutput(t)

	out := renderSummary("FID", [][2]string{{"Runs", "4"}, {"Resonance", "83.56 MHz"}})
	require.Equal(t, "FID\nRuns:      4\nResonance: 83.56 MHz", out)
}
