// Package diary holds the data model shared by the scraping, palette and calendar packages.
package diary

import (
	"fmt"
	"strings"
	"time"
)

var daysInMonth = [...]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// DayOfYear is a (month, day) pair without a year. February 29 is accepted
// since the listing never tells us which year a date belongs to.
type DayOfYear struct {
	Month time.Month
	Day   int
}

// NewDayOfYear validates month and day.
func NewDayOfYear(month, day int) (DayOfYear, error) {
	d := DayOfYear{Month: time.Month(month), Day: day}
	if !d.Valid() {
		return DayOfYear{}, fmt.Errorf("invalid day of year %02d/%02d", month, day)
	}
	return d, nil
}

// DayOfYearOf drops the year of t.
func DayOfYearOf(t time.Time) DayOfYear {
	return DayOfYear{Month: t.Month(), Day: t.Day()}
}

func (d DayOfYear) Valid() bool {
	if d.Month < time.January || d.Month > time.December {
		return false
	}
	return d.Day >= 1 && d.Day <= daysInMonth[d.Month-1]
}

// In places the day in a concrete year, ok is false for Feb 29 outside leap years.
func (d DayOfYear) In(year int, loc *time.Location) (time.Time, bool) {
	t := time.Date(year, d.Month, d.Day, 0, 0, 0, 0, loc)
	return t, t.Month() == d.Month && t.Day() == d.Day
}

// String renders the day as MM/DD.
func (d DayOfYear) String() string {
	return fmt.Sprintf("%02d/%02d", int(d.Month), d.Day)
}

func (d DayOfYear) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Mode selects which fields an entry must carry to survive extraction.
type Mode int

const (
	// ModeDay requires a poster and a viewing date.
	ModeDay Mode = iota
	// ModeFilm requires a poster and a film name.
	ModeFilm
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "day":
		return ModeDay, nil
	case "film":
		return ModeFilm, nil
	}
	return ModeDay, fmt.Errorf("unknown mode %q, expected \"day\" or \"film\"", s)
}

func (m Mode) String() string {
	if m == ModeFilm {
		return "film"
	}
	return "day"
}

// Entry is one viewing taken from the diary listing.
type Entry struct {
	PosterRef   string
	ViewingDate *DayOfYear
	// FilmName is empty when the listing did not expose one.
	FilmName string

	// Page and Row locate the entry in the listing, both 1-indexed.
	Page int
	Row  int
}

// ColoredEntry is an Entry with the dominant color of its poster, DominantColor
// is nil if the color could not be resolved.
type ColoredEntry struct {
	Entry
	DominantColor *Color
}
