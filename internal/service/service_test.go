package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"filmpalette-backend/internal/calendar"
	"filmpalette-backend/internal/components/chrono"
	"filmpalette-backend/internal/components/telemetry"
	"filmpalette-backend/internal/diary"
	"filmpalette-backend/internal/palette"
	"filmpalette-backend/internal/scrapers/letterboxd"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, c color.NRGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 6, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 6; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func diaryRow(username string, year int, day, name, poster string) string {
	return fmt.Sprintf(
		`<tr class="diary-entry-row">`+
			`<td class="td-day diary-day"><a href="/%s/films/diary/for/%d/%s/">%s</a></td>`+
			`<td class="td-film-details"><div class="poster film-poster"><img class="image" alt="%s" src="%s"></div>`+
			`<h3 class="headline-3"><a href="/film/x/">%s</a></h3></td></tr>`,
		username, year, day, day[3:], name, poster, name,
	)
}

func diaryPage(rows ...string) string {
	return `<html><body><table><tbody>` + strings.Join(rows, "") + `</tbody></table></body></html>`
}

// fixtureSite serves the diary of "someone" for 2024, a broken listing for
// "broken" and a slow one for "slow".
type fixtureSite struct {
	*httptest.Server

	mu        sync.Mutex
	diaryHits int
}

func (f *fixtureSite) hits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.diaryHits
}

func newFixtureSite(t *testing.T) *fixtureSite {
	red := solidPNG(t, color.NRGBA{R: 255, A: 255})
	blue := solidPNG(t, color.NRGBA{B: 255, A: 255})

	pages := map[string]string{
		"/someone/films/diary/for/2024/page/1/": diaryPage(
			diaryRow("someone", 2024, "04/22", "Red Desert", "/posters/red.png"),
			diaryRow("someone", 2024, "04/22", "Blue Velvet", "/posters/blue.png"),
			diaryRow("someone", 2024, "04/21", "Lost Poster", "/posters/missing.png"),
		),
		"/someone/films/diary/for/2024/page/2/": diaryPage(
			diaryRow("someone", 2024, "01/01", "Three Colours: Red", "/posters/red.png"),
		),
	}

	f := &fixtureSite{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posters/red.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write(red)
	})
	mux.HandleFunc("GET /posters/blue.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write(blue)
	})
	mux.HandleFunc("GET /{username}/films/diary/for/{year}/page/{page}/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.diaryHits++
		f.mu.Unlock()

		switch r.PathValue("username") {
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
			return
		case "slow":
			select {
			case <-time.After(300 * time.Millisecond):
			case <-r.Context().Done():
			}
		}

		html, ok := pages[r.URL.Path]
		if !ok {
			html = diaryPage()
		}
		w.Write([]byte(html))
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func newTestService(t *testing.T, site *fixtureSite, timeout time.Duration) (*Service, *httptest.Server) {
	rec := telemetry.NewRecorderAPI()
	browser, err := letterboxd.NewBrowser(letterboxd.BrowserOptions{
		BaseUrl:   site.URL,
		Timeout:   5 * time.Second,
		Telemetry: rec,
	})
	require.NoError(t, err)
	t.Cleanup(browser.Close)

	svc := New(Options{
		Browser: browser,
		Resolver: palette.NewResolver(palette.ResolverOptions{
			Transport: browser.Transport(),
			Telemetry: rec,
		}),
		SettleAttempts: 1,
		RequestTimeout: timeout,
		AllowedOrigins: []string{"https://palette.example"},
		Time:           chrono.FixedTime(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		Telemetry:      rec,
	})

	handler, err := svc.Handler()
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return svc, srv
}

func get(t *testing.T, srv *httptest.Server, path string, query url.Values) (int, []byte) {
	res, err := srv.Client().Get(srv.URL + path + "?" + query.Encode())
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, body
}

func TestParseRequest(t *testing.T) {
	table := []struct {
		query    string
		expected Request
		invalid  bool
	}{
		{query: "username=someone&year=2024", expected: Request{Username: "someone", Year: 2024, Mode: diary.ModeDay}},
		{query: "nickname=someone&year=2023&mode=film", expected: Request{Username: "someone", Year: 2023, Mode: diary.ModeFilm}},
		{query: "username=someone&year=abc", invalid: true},
		{query: "username=someone&year=0", invalid: true},
		{query: "username=someone&year=-1", invalid: true},
		{query: "username=someone", invalid: true},
		{query: "year=2024", invalid: true},
		{query: "username=someone&year=2024&mode=week", invalid: true},
	}

	for _, row := range table {
		query, err := url.ParseQuery(row.query)
		require.NoError(t, err)

		req, err := ParseRequest(query)
		if row.invalid {
			require.ErrorIs(t, err, ErrInvalidInput, row.query)
			continue
		}
		require.NoError(t, err, row.query)
		require.Equal(t, row.expected, req)
	}
}

func TestScrapeDayMode(t *testing.T) {
	site := newFixtureSite(t)
	_, srv := newTestService(t, site, 5*time.Second)

	status, body := get(t, srv, "/scrape", url.Values{"username": {"someone"}, "year": {"2024"}})
	require.Equal(t, http.StatusOK, status, string(body))
	require.JSONEq(t, `[
		{"viewingDate": "04/22", "dominantColor": "#ff0000"},
		{"viewingDate": "04/22", "dominantColor": "#0000ff"},
		{"viewingDate": "04/21", "dominantColor": null},
		{"viewingDate": "01/01", "dominantColor": "#ff0000"}
	]`, string(body))
	// two pages with entries plus the terminating one
	require.Equal(t, 3, site.hits())
}

func TestScrapeFilmMode(t *testing.T) {
	site := newFixtureSite(t)
	_, srv := newTestService(t, site, 5*time.Second)

	status, body := get(t, srv, "/scrape", url.Values{"nickname": {"someone"}, "year": {"2024"}, "mode": {"film"}})
	require.Equal(t, http.StatusOK, status, string(body))

	var records []FilmRecord
	require.NoError(t, json.Unmarshal(body, &records))
	require.Len(t, records, 4)
	require.Equal(t, "Red Desert", records[0].FilmName)
	require.Equal(t, "Three Colours: Red", records[3].FilmName)
	require.Nil(t, records[2].DominantColor)
}

func TestScrapeRejectsInvalidInput(t *testing.T) {
	site := newFixtureSite(t)
	_, srv := newTestService(t, site, 5*time.Second)

	for _, query := range []url.Values{
		{"username": {"someone"}, "year": {"abc"}},
		{"username": {"someone"}, "year": {"0"}},
		{"username": {"someone"}, "year": {"-2024"}},
		{"year": {"2024"}},
	} {
		status, body := get(t, srv, "/scrape", query)
		require.Equal(t, http.StatusBadRequest, status, query.Encode())

		var errBody map[string]string
		require.NoError(t, json.Unmarshal(body, &errBody))
		require.NotEmpty(t, errBody["error"])
	}
	require.Zero(t, site.hits())
}

func TestScrapeNavigationError(t *testing.T) {
	site := newFixtureSite(t)
	_, srv := newTestService(t, site, 5*time.Second)

	status, body := get(t, srv, "/scrape", url.Values{"username": {"broken"}, "year": {"2024"}})
	require.Equal(t, http.StatusBadGateway, status)
	require.JSONEq(t, `{"error": "could not load the diary listing"}`, string(body))
}

func TestScrapeTimeout(t *testing.T) {
	site := newFixtureSite(t)
	_, srv := newTestService(t, site, 50*time.Millisecond)

	status, _ := get(t, srv, "/scrape", url.Values{"username": {"slow"}, "year": {"2024"}})
	require.Equal(t, http.StatusGatewayTimeout, status)
}

func TestCalendar(t *testing.T) {
	site := newFixtureSite(t)
	_, srv := newTestService(t, site, 5*time.Second)

	status, body := get(t, srv, "/calendar", url.Values{"username": {"someone"}, "year": {"2024"}})
	require.Equal(t, http.StatusOK, status, string(body))

	var cal CalendarRecord
	require.NoError(t, json.Unmarshal(body, &cal))
	require.Equal(t, 53, cal.Weeks)
	require.Equal(t, 1, cal.StartWeekday)
	require.Len(t, cal.Rows, 7)
	require.Len(t, cal.Months, 12)

	colored := map[string]string{}
	for _, row := range cal.Rows {
		require.Len(t, row, 53)
		for _, cell := range row {
			if cell.Empty {
				require.Equal(t, calendar.EmptyFill, cell.Color)
				continue
			}
			colored[cell.Date] = cell.Color
		}
	}
	require.Equal(t, map[string]string{
		"2024-04-22": "#7f007f",
		"2024-01-01": "#ff0000",
	}, colored)
}

func TestCalendarICS(t *testing.T) {
	site := newFixtureSite(t)
	_, srv := newTestService(t, site, 5*time.Second)

	status, body := get(t, srv, "/calendar.ics", url.Values{"username": {"someone"}, "year": {"2024"}})
	require.Equal(t, http.StatusOK, status, string(body))

	ics := string(body)
	require.True(t, strings.HasPrefix(ics, "BEGIN:VCALENDAR"))
	require.Equal(t, 4, strings.Count(ics, "BEGIN:VEVENT"))
	require.Contains(t, ics, "DTSTART;VALUE=DATE:20240422")
	require.Contains(t, ics, "SUMMARY:Blue Velvet")
}

func TestConnectScrape(t *testing.T) {
	site := newFixtureSite(t)
	_, srv := newTestService(t, site, 5*time.Second)

	client := connect.NewClient[ScrapeRequest, ScrapeResponse](
		srv.Client(),
		srv.URL+ScrapeProcedure,
		connect.WithCodec(JSONCodec{}),
	)

	res, err := client.CallUnary(context.Background(), connect.NewRequest(&ScrapeRequest{
		Username: "someone",
		Year:     2024,
	}))
	require.NoError(t, err)
	require.Equal(t, "day", res.Msg.Mode)
	require.Equal(t, 3, res.Msg.Pages)
	require.Len(t, res.Msg.Days, 4)
	require.NotEmpty(t, res.Msg.RunId)
	require.Len(t, res.Msg.Failures, 1)
	require.Equal(t, "image-fetch", res.Msg.Failures[0].Kind)
	require.Equal(t, 3, res.Msg.Failures[0].Row)

	_, err = client.CallUnary(context.Background(), connect.NewRequest(&ScrapeRequest{
		Username: "someone",
		Year:     0,
	}))
	require.Error(t, err)
	require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = client.CallUnary(context.Background(), connect.NewRequest(&ScrapeRequest{
		Username: "broken",
		Year:     2024,
	}))
	require.Equal(t, connect.CodeUnavailable, connect.CodeOf(err))
}

func TestCORSAndStatic(t *testing.T) {
	site := newFixtureSite(t)
	_, srv := newTestService(t, site, 5*time.Second)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/scrape", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://palette.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	require.Equal(t, "https://palette.example", res.Header.Get("Access-Control-Allow-Origin"))
	require.Zero(t, site.hits())

	status, body := get(t, srv, "/", url.Values{})
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, string(body), "<title>filmpalette</title>")
}

func TestCORSOrigins(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	table := []struct {
		name     string
		allowed  []string
		origin   string
		expected string
	}{
		{name: "listed", allowed: []string{"https://a.example", "https://b.example"}, origin: "https://b.example", expected: "https://b.example"},
		{name: "unlisted", allowed: []string{"https://a.example"}, origin: "https://evil.example", expected: ""},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://any.example", expected: "*"},
		{name: "unset", allowed: nil, origin: "https://any.example", expected: "*"},
	}
	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/scrape", nil)
			req.Header.Set("Origin", row.origin)
			rec := httptest.NewRecorder()
			withCORS(row.allowed, ok).ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			require.Equal(t, row.expected, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}

	req := httptest.NewRequest(http.MethodOptions, ScrapeProcedure, nil)
	req.Header.Set("Origin", "https://a.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, Connect-Protocol-Version")
	rec := httptest.NewRecorder()
	withCORS([]string{"https://a.example"}, ok).ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://a.example", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "POST", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestStatusOf(t *testing.T) {
	table := []struct {
		err    error
		status int
	}{
		{err: fmt.Errorf("%w: year", ErrInvalidInput), status: http.StatusBadRequest},
		{err: fmt.Errorf("wrap: %w", calendar.ErrInvalidYear), status: http.StatusBadRequest},
		{err: fmt.Errorf("%w: get /x: 500", letterboxd.ErrNavigation), status: http.StatusBadGateway},
		{err: fmt.Errorf("%w: %w", context.DeadlineExceeded, letterboxd.ErrNavigation), status: http.StatusGatewayTimeout},
		{err: io.ErrUnexpectedEOF, status: http.StatusInternalServerError},
	}
	for _, row := range table {
		require.Equal(t, row.status, StatusOf(row.err), row.err.Error())
	}
}
