package calendar

import (
	"bytes"
	"fmt"
	"time"

	"filmpalette-backend/internal/diary"

	"github.com/emersion/go-ical"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

const (
	icsProdID = "-//filmpalette//diary export//EN"
	icsDomain = "filmpalette"
	// RFC 7986 COLOR only takes CSS3 color names
	icsPropColor = "COLOR"
	// exact hex value of the day
	icsPropHexColor = "X-FILMPALETTE-COLOR"
)

// CSSColorName returns the CSS3 color keyword closest to c.
func CSSColorName(c diary.Color) string {
	target := c.Colorful()

	best := ""
	bestDistance := 0.0
	for _, name := range colornames.Names {
		rgba := colornames.Map[name]
		candidate := colorful.Color{
			R: float64(rgba.R) / 255,
			G: float64(rgba.G) / 255,
			B: float64(rgba.B) / 255,
		}
		d := target.DistanceCIEDE2000(candidate)
		if best == "" || d < bestDistance {
			best = name
			bestDistance = d
		}
	}
	return best
}

// ExportICS renders every dated entry as an all-day event in year. Feb 29
// entries are skipped outside leap years.
func ExportICS(entries []diary.ColoredEntry, year int, calName string, now time.Time) ([]byte, error) {
	if year <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icsProdID)
	cal.Props.SetText("X-WR-CALNAME", calName)

	stamp := ical.NewProp(ical.PropDateTimeStamp)
	stamp.SetDateTime(now.UTC())

	for _, e := range entries {
		if e.ViewingDate == nil {
			continue
		}
		date, ok := e.ViewingDate.In(year, time.UTC)
		if !ok {
			continue
		}

		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, fmt.Sprintf(
			"%04d%02d%02d-p%d-r%d@%s",
			year, int(date.Month()), date.Day(), e.Page, e.Row, icsDomain,
		))
		event.Props.Set(stamp)

		summary := e.FilmName
		if summary == "" {
			summary = "Film"
		}
		event.Props.SetText(ical.PropSummary, summary)

		start := ical.NewProp(ical.PropDateTimeStart)
		start.SetDate(date)
		event.Props.Set(start)

		if e.DominantColor != nil {
			event.Props.SetText(icsPropColor, CSSColorName(*e.DominantColor))
			event.Props.SetText(icsPropHexColor, e.DominantColor.Hex())
		}
		if e.PosterRef != "" {
			event.Props.SetText(ical.PropURL, e.PosterRef)
		}

		cal.Children = append(cal.Children, event.Component)
	}

	if len(cal.Children) == 0 {
		// the encoder refuses calendars without components
		return []byte(fmt.Sprintf(emptyCalendar, icsProdID, calName)), nil
	}

	var buf bytes.Buffer
	err := ical.NewEncoder(&buf).Encode(cal)
	if err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

const emptyCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:%s\r\nX-WR-CALNAME:%s\r\nEND:VCALENDAR\r\n"
