package cli

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"
)

func TestWriteTableAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	err := writeTable(&buf, []string{"NAME", "RUNS"}, [][]string{
		{"FID", "1"},
		{"SEPC", "4"},
	})
	require.NoError(t, err)
	require.Equal(t, "NAME  RUNS\nFID   1\nSEPC  4\n", buf.String())
}

func TestWriteTableIgnoresStyling(t *testing.T) {
	styled := lipgloss.NewStyle().Bold(true).Render("OK")

	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, []string{"STATUS", "SEQ"}, [][]string{{styled, "FID"}}))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	require.Equal(t, 8, lipgloss.Width(string(lines[1]))-len("FID"))
}
