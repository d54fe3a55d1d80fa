package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ANSI colors.
const (
	colorRed     = "1"
	colorGreen   = "2"
	colorYellow  = "3"
	colorMagenta = "5"
	colorCyan    = "6"
	colorMuted   = "8"
)

var colorEnabledFunc = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func colorEnabled() bool {
	if noColor || IsJSONOutput() || IsJSONLOutput() {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return colorEnabledFunc()
}

func colorize(text, color string) string {
	if !colorEnabled() || text == "" {
		return text
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(text)
}

func bold(text string) string {
	if !colorEnabled() {
		return text
	}
	return lipgloss.NewStyle().Bold(true).Render(text)
}

// renderSummary lays out key/value pairs under a title, boxed on color
// terminals.
func renderSummary(title string, pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		width = max(width, len(p[0]))
	}

	lines := make([]string, 0, len(pairs)+1)
	lines = append(lines, bold(title))
	for _, p := range pairs {
		key := p[0] + ":" + strings.Repeat(" ", width-len(p[0]))
		lines = append(lines, colorize(key, colorMuted)+" "+p[1])
	}
	body := strings.Join(lines, "\n")

	if !colorEnabled() {
		return body
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(colorCyan)).
		Padding(0, 1).
		Render(body)
}
