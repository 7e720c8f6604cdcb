package calendar

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	weekdayLabels = [Rows]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

	labelStyle = lipgloss.NewStyle().Width(4).Foreground(lipgloss.Color("241"))
	emptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	titleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)
)

const cellWidth = 2

// RenderTerminal draws the grid as colored blocks, two columns per cell.
func RenderTerminal(g Grid, title string) string {
	var out strings.Builder

	if title != "" {
		out.WriteString(titleStyle.Render(title))
		out.WriteString("\n")
	}

	out.WriteString(labelStyle.Render(""))
	for _, m := range g.Months {
		out.WriteString(lipgloss.NewStyle().Width(m.Span * cellWidth).Render(m.Name))
	}
	out.WriteString("\n")

	for r, row := range g.Rows {
		out.WriteString(labelStyle.Render(weekdayLabels[r]))
		for _, cell := range row {
			if cell.Color == nil {
				out.WriteString(emptyStyle.Render("··"))
				continue
			}
			out.WriteString(
				lipgloss.NewStyle().
					Background(lipgloss.Color(cell.Color.Hex())).
					Render(strings.Repeat(" ", cellWidth)),
			)
		}
		out.WriteString("\n")
	}

	return out.String()
}
