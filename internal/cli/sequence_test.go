package cli

import (
	"testing"

	"github.com/nqrduck/quacksim/internal/sequence"
	"github.com/stretchr/testify/require"
)

func TestFilterSequences(t *testing.T) {
	items := []*sequence.Sequence{
		{Name: "FID", Tags: []string{"basic"}},
		{Name: "SE", Tags: []string{"echo"}},
		{Name: "SEPC", Tags: []string{"echo", "phase-cycling"}},
		{Name: "custom", Tags: nil},
	}

	tests := []struct {
		name     string
		tags     []string
		expected int
	}{
		{"no filter", nil, 4},
		{"filter echo", []string{"echo"}, 2},
		{"case insensitive", []string{"BASIC"}, 1},
		{"filter multiple", []string{"basic", "phase-cycling"}, 2},
		{"filter nonexistent", []string{"nonexistent"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := filterSequences(items, tt.tags)
			if len(result) != tt.expected {
				t.Errorf("filterSequences() = %d items, want %d", len(result), tt.expected)
			}
		})
	}
}

func TestDescribeSequence(t *testing.T) {
	seq := fidSequence(t)

	info := describeSequence(seq)
	require.Equal(t, "FID", info.Name)
	require.Equal(t, "builtin", info.Source)
	require.Equal(t, 3, info.Events)
	require.InDelta(t, 108e-6, info.Length, 1e-12)
}

func TestDescribeEventRow(t *testing.T) {
	seq := fidSequence(t)
	require.NoError(t, seq.SetTxPhaseCycles("tx", 4))

	pulse := describeEventRow(seq.Events[0])
	require.Equal(t, "100", pulse[2])
	require.Equal(t, "rect", pulse[4])
	require.Equal(t, "4 (group 0)", pulse[5])
	require.Equal(t, "off", pulse[6])

	blank := describeEventRow(seq.Events[1])
	require.Equal(t, "-", blank[4])

	readout := describeEventRow(seq.Events[2])
	require.Equal(t, "on 0°", readout[6])
}
