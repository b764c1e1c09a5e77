package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Terminal styles.
var (
	Accent  = color.New(color.FgBlue)
	Muted   = color.New(color.FgHiBlack)
	Command = color.New(color.FgWhite)
	Good    = color.New(color.FgGreen)
	Bad     = color.New(color.FgRed)
	Heading = color.New(color.FgHiGreen, color.Bold)
)

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return Accent.Sprint(s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return Muted.Sprint(s) }

// RenderCommand returns s styled as a command name.
func RenderCommand(s string) string { return Command.Sprint(s) }

// ForceNoColor disables color output globally.
func ForceNoColor() {
	color.NoColor = true
}

// Setup enables or disables color according to ShouldUseColor.
func Setup() {
	color.NoColor = !ShouldUseColor()
}

// Section writes a bold heading followed by a blank line.
func Section(w io.Writer, title string) {
	fmt.Fprintf(w, "%s\n\n", Heading.Sprint(title))
}

// StatusIcon returns a check or cross.
func StatusIcon(ok bool) string {
	if ok {
		return Good.Sprint("✓")
	}
	return Bad.Sprint("✗")
}

// Table writes an aligned table with a muted header row. Nothing is written
// for an empty table except the empty marker.
func Table(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, Muted.Sprint("  (none)"))
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var header, sep strings.Builder
	header.WriteString("  ")
	sep.WriteString("  ")
	for i, h := range headers {
		fmt.Fprintf(&header, "%-*s  ", widths[i], h)
		sep.WriteString(strings.Repeat("─", widths[i]) + "  ")
	}
	fmt.Fprintln(w, Muted.Sprint(strings.TrimRight(header.String(), " ")))
	fmt.Fprintln(w, Muted.Sprint(strings.TrimRight(sep.String(), " ")))

	for _, row := range rows {
		var line strings.Builder
		line.WriteString("  ")
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(&line, "%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
	}
}
