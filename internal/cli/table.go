package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const tablePadding = 2

// writeTable aligns columns by visible width, so colored cells line up.
func writeTable(out io.Writer, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))
	measure := func(row []string) {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	measure(headers)
	for _, row := range rows {
		measure(row)
	}

	line := func(row []string) error {
		var b strings.Builder
		for i, cell := range row {
			b.WriteString(cell)
			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+tablePadding))
			}
		}
		_, err := fmt.Fprintln(out, b.String())
		return err
	}

	if len(headers) > 0 {
		if err := line(headers); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := line(row); err != nil {
			return err
		}
	}
	return nil
}

func formatYesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
