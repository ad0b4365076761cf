package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/webmproject/presubmit/internal/model"
)

var (
	colorRed    = lipgloss.Color("#ff5555")
	colorGreen  = lipgloss.Color("#50fa7b")
	colorYellow = lipgloss.Color("#f1fa8c")
	colorDim    = lipgloss.Color("#6272a4")
	colorFg     = lipgloss.Color("#f8f8f2")
)

var (
	fileStyle    = lipgloss.NewStyle().Foreground(colorFg).Bold(true)
	lineStyle    = lipgloss.NewStyle().Foreground(colorDim).Width(5).Align(lipgloss.Right)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorYellow)
	checkStyle   = lipgloss.NewStyle().Foreground(colorDim)
	passStyle    = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
)

// Text writes diagnostics grouped by file, in the order files first appear,
// followed by a one-line summary. Styling is applied only when color is set.
func Text(w io.Writer, v *model.Verdict, color bool) error {
	paint := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	groups := v.ByFile()
	for _, file := range fileOrder(v.Diagnostics) {
		header := file
		if header == "" {
			header = "(change)"
		}
		b.WriteString(paint(fileStyle, header))
		b.WriteByte('\n')

		for _, d := range groups[file] {
			line := ""
			if d.Line > 0 {
				line = fmt.Sprintf("%d", d.Line)
			}
			sev := paint(warningStyle, fmt.Sprintf("%-7s", d.Severity))
			if d.Severity == model.SeverityError {
				sev = paint(errorStyle, fmt.Sprintf("%-7s", d.Severity))
			}
			fmt.Fprintf(&b, "%s  %s  %s %s\n",
				paint(lineStyle, fmt.Sprintf("%5s", line)), sev, d.Message,
				paint(checkStyle, "["+d.Check+"]"))
		}
		b.WriteByte('\n')
	}

	if v.Passed {
		b.WriteString(paint(passStyle, v.Summary()))
	} else {
		b.WriteString(paint(failStyle, v.Summary()))
	}
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}

func fileOrder(diags []model.Diagnostic) []string {
	seen := make(map[string]bool)
	var order []string
	for _, d := range diags {
		if !seen[d.File] {
			seen[d.File] = true
			order = append(order, d.File)
		}
	}
	return order
}
