package main

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/convoql/internal/engine"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

const maxCellWidth = 40

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

// renderResult prints rows as a fixed-width table, truncating long cells and
// capping display at maxRows with a footer noting hidden rows.
func renderResult(res engine.Result, maxRows int) string {
	if len(res.Rows) == 0 {
		return "No results found.\n"
	}
	if len(res.Columns) == 0 {
		return "No results found.\n"
	}

	display := res.Rows
	hidden := 0
	if maxRows > 0 && len(display) > maxRows {
		hidden = len(display) - maxRows
		display = display[:maxRows]
	}

	cells := make([][]string, len(display))
	widths := make([]int, len(res.Columns))
	for i, col := range res.Columns {
		widths[i] = utf8.RuneCountInString(col)
	}
	for r, row := range display {
		cells[r] = make([]string, len(res.Columns))
		for c, col := range res.Columns {
			cell := formatCell(row[col])
			cells[r][c] = cell
			if w := utf8.RuneCountInString(cell); w > widths[c] {
				widths[c] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(vals []string) {
		for i, v := range vals {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(v)
			b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(v)))
		}
		b.WriteString("\n")
	}

	writeRow(res.Columns)
	seps := make([]string, len(res.Columns))
	for i, w := range widths {
		seps[i] = strings.Repeat("-", w)
	}
	writeRow(seps)
	for _, row := range cells {
		writeRow(row)
	}

	b.WriteString(fmt.Sprintf("\n%d row(s)", len(res.Rows)))
	if hidden > 0 {
		b.WriteString(fmt.Sprintf(", showing first %d", len(display)))
	}
	b.WriteString("\n")
	return b.String()
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	s := fmt.Sprintf("%v", v)
	if utf8.RuneCountInString(s) > maxCellWidth {
		runes := []rune(s)
		s = string(runes[:maxCellWidth-3]) + "..."
	}
	return s
}
