package cli

import (
	"testing"

	"github.com/nqrduck/quacksim/internal/sequence"
	"github.com/stretchr/testify/require"
)

// plainOutput disables color and JSON modes for the duration of a test.
func plainOutput(t *testing.T) {
	t.Helper()
	prevColor, prevJSON, prevJSONL := noColor, jsonOutput, jsonlOutput
	noColor, jsonOutput, jsonlOutput = true, false, false
	t.Cleanup(func() {
		noColor, jsonOutput, jsonlOutput = prevColor, prevJSON, prevJSONL
	})
}

func fidSequence(t *testing.T) *sequence.Sequence {
	t.Helper()
	seq := sequence.New("FID")
	require.NoError(t, seq.AddPulseEvent("tx", "3u", 100, 0, sequence.RectFunction{}))
	require.NoError(t, seq.AddBlankEvent("blank", "5u"))
	require.NoError(t, seq.AddReadoutEvent("rx", "100u", 0))
	return seq
}
