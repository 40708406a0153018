package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table is a plain column layout for list commands.
type Table struct {
	// RightAlign marks the columns, by index, rendered flush right.
	RightAlign map[int]bool
	Headers    []string
	Rows       [][]string
}

// AddRow appends a row of cells.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render lays the table out with every column as wide as its widest cell.
func (t *Table) Render() string {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	render := func(style lipgloss.Style, cells []string) string {
		out := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			s := style.Width(widths[i] + style.GetHorizontalPadding())
			if t.RightAlign[i] {
				s = s.Align(lipgloss.Right)
			}
			out[i] = s.Render(cell)
		}
		return strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, out...), " ")
	}

	lines := make([]string, 0, len(t.Rows)+1)
	lines = append(lines, render(TableHeaderStyle, t.Headers))
	for _, row := range t.Rows {
		lines = append(lines, render(TableCellStyle, row))
	}
	return strings.Join(lines, "\n")
}
