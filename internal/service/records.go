package service

import (
	"filmpalette-backend/internal/calendar"
	"filmpalette-backend/internal/diary"
)

// DayRecord is a /scrape row in day mode.
type DayRecord struct {
	ViewingDate   string       `json:"viewingDate"`
	DominantColor *diary.Color `json:"dominantColor"`
}

// FilmRecord is a /scrape row in film mode.
type FilmRecord struct {
	FilmName      string       `json:"filmName"`
	DominantColor *diary.Color `json:"dominantColor"`
}

func DayRecords(entries []diary.ColoredEntry) []DayRecord {
	out := make([]DayRecord, 0, len(entries))
	for _, e := range entries {
		if e.ViewingDate == nil {
			continue
		}
		out = append(out, DayRecord{
			ViewingDate:   e.ViewingDate.String(),
			DominantColor: e.DominantColor,
		})
	}
	return out
}

func FilmRecords(entries []diary.ColoredEntry) []FilmRecord {
	out := make([]FilmRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, FilmRecord{
			FilmName:      e.FilmName,
			DominantColor: e.DominantColor,
		})
	}
	return out
}

// Records renders entries in the shape of the given mode.
func Records(entries []diary.ColoredEntry, mode diary.Mode) any {
	if mode == diary.ModeFilm {
		return FilmRecords(entries)
	}
	return DayRecords(entries)
}

type FailureRecord struct {
	Kind  string `json:"kind"`
	Page  int    `json:"page"`
	Row   int    `json:"row"`
	Ref   string `json:"ref,omitempty"`
	Error string `json:"error,omitempty"`
}

func FailureRecords(log diary.FailureLog) []FailureRecord {
	out := make([]FailureRecord, 0, len(log))
	for _, f := range log {
		rec := FailureRecord{
			Kind: f.Kind.String(),
			Page: f.Page,
			Row:  f.Row,
			Ref:  f.Ref,
		}
		if f.Err != nil {
			rec.Error = f.Err.Error()
		}
		out = append(out, rec)
	}
	return out
}

type MonthRecord struct {
	Name string `json:"name"`
	Span int    `json:"span"`
}

type CellRecord struct {
	Date  string `json:"date"`
	Title string `json:"title"`
	// Color is a hex color or the empty fill.
	Color string `json:"color"`
	Empty bool   `json:"empty"`
}

type CalendarRecord struct {
	Year         int            `json:"year"`
	Weeks        int            `json:"weeks"`
	StartWeekday int            `json:"startWeekday"`
	Months       []MonthRecord  `json:"months"`
	Rows         [][]CellRecord `json:"rows"`
}

func NewCalendarRecord(g calendar.Grid) CalendarRecord {
	rec := CalendarRecord{
		Year:         g.Year,
		Weeks:        g.Weeks,
		StartWeekday: int(g.StartWeekday),
		Months:       make([]MonthRecord, 0, len(g.Months)),
		Rows:         make([][]CellRecord, 0, len(g.Rows)),
	}
	for _, m := range g.Months {
		rec.Months = append(rec.Months, MonthRecord{Name: m.Name, Span: m.Span})
	}
	for _, row := range g.Rows {
		cells := make([]CellRecord, 0, len(row))
		for _, c := range row {
			cells = append(cells, CellRecord{
				Date:  c.Date.Format("2006-01-02"),
				Title: c.Title(),
				Color: c.Fill(),
				Empty: c.Color == nil,
			})
		}
		rec.Rows = append(rec.Rows, cells)
	}
	return rec
}
