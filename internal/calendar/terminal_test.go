package calendar

import (
	"strings"
	"testing"

	"filmpalette-backend/internal/diary"

	"github.com/stretchr/testify/require"
)

func TestRenderTerminal(t *testing.T) {
	grid, err := Layout(map[diary.DayOfYear]diary.Color{
		*day(1, 1): diary.MustParseHex("#ff0000"),
	}, 2023)
	require.NoError(t, err)

	out := RenderTerminal(grid, "2023")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Contains(t, out, "Jan")
	require.Contains(t, out, "Dec")
	require.Contains(t, out, "Sat")
	// title, blank margin, month header, seven weekday rows
	require.Len(t, lines, 10)
}
