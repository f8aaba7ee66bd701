package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// overlayAt draws top over base with its upper-left corner at cell (x, y).
// Both are line grids; base is padded to width so the right-hand remainder
// of each covered row survives.
func overlayAt(base, top string, x, y, width, height int) string {
	baseLines := splitLines(base)
	for len(baseLines) < height {
		baseLines = append(baseLines, "")
	}
	topLines := splitLines(top)
	topWidth := maxLineWidth(topLines)

	for i, line := range topLines {
		row := y + i
		if row < 0 || row >= len(baseLines) || row >= height {
			continue
		}
		target := padRight(baseLines[row], width)
		left := ansi.Truncate(target, x, "")
		if w := ansi.StringWidth(left); w < x {
			left += strings.Repeat(" ", x-w)
		}

		line = padRight(line, topWidth)
		pos := x + ansi.StringWidth(line)
		right := ""
		if width > pos {
			right = ansi.TruncateLeft(target, pos, "")
			if gap := width - pos - ansi.StringWidth(right); gap > 0 {
				right = strings.Repeat(" ", gap) + right
			}
		}
		baseLines[row] = left + line + right
	}
	return strings.Join(baseLines, "\n")
}

// overlayCenter draws top centered over base, shifted down and right by
// offset cells.
func overlayCenter(base, top string, offset, width, height int) string {
	lines := splitLines(top)
	x := (width-maxLineWidth(lines))/2 + offset
	y := (height-len(lines))/2 + offset
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return overlayAt(base, top, x, y, width, height)
}

func splitLines(s string) []string {
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}

func maxLineWidth(lines []string) int {
	m := 0
	for _, line := range lines {
		if w := ansi.StringWidth(line); w > m {
			m = w
		}
	}
	return m
}

func padRight(s string, width int) string {
	if width <= 0 {
		return s
	}
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
