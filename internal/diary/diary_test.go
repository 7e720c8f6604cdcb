package diary

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewDayOfYear(t *testing.T) {
	table := []struct {
		month, day int
		valid      bool
	}{
		{month: 4, day: 22, valid: true},
		{month: 2, day: 29, valid: true},
		{month: 2, day: 30, valid: false},
		{month: 4, day: 31, valid: false},
		{month: 12, day: 31, valid: true},
		{month: 13, day: 1, valid: false},
		{month: 0, day: 1, valid: false},
		{month: 1, day: 0, valid: false},
	}

	for _, row := range table {
		d, err := NewDayOfYear(row.month, row.day)
		if !row.valid {
			require.Error(t, err, "%02d/%02d", row.month, row.day)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, time.Month(row.month), d.Month)
		require.Equal(t, row.day, d.Day)
	}
}

func TestDayOfYearIn(t *testing.T) {
	leapDay := DayOfYear{Month: time.February, Day: 29}

	_, ok := leapDay.In(2023, time.UTC)
	require.False(t, ok)

	date, ok := leapDay.In(2024, time.UTC)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), date)

	require.Equal(t, "04/22", DayOfYearOf(time.Date(1999, 4, 22, 13, 0, 0, 0, time.UTC)).String())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	require.Equal(t, ModeDay, m)

	m, err = ParseMode(" Film ")
	require.NoError(t, err)
	require.Equal(t, ModeFilm, m)

	_, err = ParseMode("week")
	require.Error(t, err)
}

func TestColorHex(t *testing.T) {
	c, err := ParseHex("#7F007F")
	require.NoError(t, err)
	require.Equal(t, Color{R: 0x7f, G: 0x00, B: 0x7f}, c)
	require.Equal(t, "#7f007f", c.Hex())
	require.EqualValues(t, 0x7f007f, c.Packed())

	_, err = ParseHex("red")
	require.Error(t, err)
}

func TestColorJSON(t *testing.T) {
	type record struct {
		DominantColor *Color `json:"dominantColor"`
	}

	out, err := json.Marshal([]record{
		{DominantColor: &Color{R: 255}},
		{},
	})
	require.NoError(t, err)
	require.JSONEq(t, `[{"dominantColor":"#ff0000"},{"dominantColor":null}]`, string(out))

	var decoded []record
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Equal(t, Color{R: 255}, *decoded[0].DominantColor)
	require.Nil(t, decoded[1].DominantColor)
}

func TestFailureLog(t *testing.T) {
	cause := errors.New("404 Not Found")
	log := FailureLog{
		{Kind: FailureImageFetch, Page: 1, Row: 2, Ref: "https://a.ltrbxd.com/x.jpg", Err: cause},
		{Kind: FailureMalformedDate, Page: 2, Row: 1, Ref: "/user/films/diary/"},
		{Kind: FailureImageFetch, Page: 3, Row: 1},
	}

	require.Equal(t, 2, log.Count(FailureImageFetch))
	require.Equal(t, 0, log.Count(FailureEmptyPalette))
	require.ErrorIs(t, log[0], cause)
	require.Contains(t, log[0].Error(), "image-fetch (page 1, row 2)")
}
