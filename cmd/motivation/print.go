package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// printTable writes a boxed table. Widths are measured in terminal cells so
// non-ASCII quotes line up.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := range headers {
			if i < len(row) {
				widths[i] = max(widths[i], lipgloss.Width(row[i]))
			}
		}
	}

	parts := make([]string, len(widths))
	for i, wd := range widths {
		parts[i] = strings.Repeat("-", wd)
	}
	sep := "+-" + strings.Join(parts, "-+-") + "-+\n"

	line := func(cells []string) {
		padded := make([]string, len(widths))
		for i, wd := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			padded[i] = pad(cell, wd)
		}
		fmt.Fprint(w, "| "+strings.Join(padded, " | ")+" |\n")
	}

	fmt.Fprint(w, sep)
	line(headers)
	fmt.Fprint(w, sep)
	for _, row := range rows {
		line(row)
	}
	fmt.Fprint(w, sep)
}

func pad(s string, w int) string {
	if n := lipgloss.Width(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}
