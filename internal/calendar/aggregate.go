package calendar

import "filmpalette-backend/internal/diary"

// AverageColor is the per-channel floor mean of colors, ok is false when colors is empty.
func AverageColor(colors []diary.Color) (avg diary.Color, ok bool) {
	if len(colors) == 0 {
		return diary.Color{}, false
	}

	var r, g, b int
	for _, c := range colors {
		r += int(c.R)
		g += int(c.G)
		b += int(c.B)
	}
	n := len(colors)
	return diary.Color{
		R: uint8(r / n),
		G: uint8(g / n),
		B: uint8(b / n),
	}, true
}

// Aggregate groups resolved colors by (month, day) and averages each group.
// Entries without a viewing date or without a color contribute nothing, and
// days that end up with no colors are absent from the result.
func Aggregate(entries []diary.ColoredEntry) map[diary.DayOfYear]diary.Color {
	groups := map[diary.DayOfYear][]diary.Color{}
	for _, e := range entries {
		if e.ViewingDate == nil || e.DominantColor == nil {
			continue
		}
		groups[*e.ViewingDate] = append(groups[*e.ViewingDate], *e.DominantColor)
	}

	out := make(map[diary.DayOfYear]diary.Color, len(groups))
	for day, colors := range groups {
		avg, ok := AverageColor(colors)
		if !ok {
			continue
		}
		out[day] = avg
	}
	return out
}
