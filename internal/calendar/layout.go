package calendar

import (
	"errors"
	"fmt"
	"time"

	"filmpalette-backend/internal/diary"
)

var ErrInvalidYear = errors.New("year must be a positive integer")

// EmptyFill is the near-transparent fill of a day nobody watched anything on.
const EmptyFill = "rgba(0, 0, 0, 0.05)"

// Rows is the number of weekday rows in a grid, Sunday first.
const Rows = 7

var monthNames = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// column spans of the month header row, they add up to 52 regardless of the year
var monthSpans = [...]int{4, 4, 4, 5, 4, 4, 5, 4, 4, 5, 4, 5}

func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// WeekColumns is 53 for leap years and 52 otherwise. This is not the ISO week
// count of the year, the grid keeps this rule so renders stay comparable.
func WeekColumns(year int) int {
	if IsLeapYear(year) {
		return 53
	}
	return 52
}

type Cell struct {
	Date time.Time
	// Color is nil for empty days.
	Color *diary.Color
}

// Fill is the CSS fill of the cell.
func (c Cell) Fill() string {
	if c.Color == nil {
		return EmptyFill
	}
	return c.Color.Hex()
}

// Title is the tooltip of the cell, e.g. "Mon Apr 22 2024".
func (c Cell) Title() string {
	return c.Date.Format("Mon Jan 02 2006")
}

type MonthHeader struct {
	Name string
	Span int
}

// Grid is a weekday x week layout of a year, Rows[r][c] is the r-th weekday of the c-th week.
type Grid struct {
	Year         int
	Weeks        int
	StartWeekday time.Weekday
	Months       []MonthHeader
	Rows         [Rows][]Cell
}

// Cell returns the cell at (row, col).
func (g Grid) Cell(row, col int) Cell {
	return g.Rows[row][col]
}

// Find returns the position of the cell holding date.
func (g Grid) Find(date time.Time) (row, col int, ok bool) {
	y, m, d := date.Date()
	for r := range g.Rows {
		for c, cell := range g.Rows[r] {
			cy, cm, cd := cell.Date.Date()
			if cy == y && cm == m && cd == d {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

// Layout places year on a 7 x WeekColumns(year) grid. Cell (r, c) holds
// January 1 + (c*7 + r - weekday(January 1)) days, so the first column starts on
// the Sunday on or before January 1 and leading/trailing cells spill into the
// neighbouring years. Colors are looked up by month and day only.
func Layout(aggregates map[diary.DayOfYear]diary.Color, year int) (Grid, error) {
	if year <= 0 {
		return Grid{}, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	startWeekday := start.Weekday()
	weeks := WeekColumns(year)

	grid := Grid{
		Year:         year,
		Weeks:        weeks,
		StartWeekday: startWeekday,
		Months:       make([]MonthHeader, len(monthNames)),
	}
	for i, name := range monthNames {
		grid.Months[i] = MonthHeader{Name: name, Span: monthSpans[i]}
	}

	for r := 0; r < Rows; r++ {
		grid.Rows[r] = make([]Cell, weeks)
		for c := 0; c < weeks; c++ {
			date := start.AddDate(0, 0, c*7+r-int(startWeekday))
			cell := Cell{Date: date}
			if color, ok := aggregates[diary.DayOfYearOf(date)]; ok {
				cell.Color = &color
			}
			grid.Rows[r][c] = cell
		}
	}

	return grid, nil
}
