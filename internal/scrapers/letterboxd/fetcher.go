package letterboxd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"filmpalette-backend/internal/components/assert"
	"filmpalette-backend/internal/components/telemetry"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_fetcher_settle  = "page_fetcher.settle"
	report_fetcher_hydrate = "page_fetcher.hydrate"
)

const (
	// server-rendered pages are complete on the first load, reloading is opt-in
	DefaultSettleAttempts = 1
	DefaultSettleInterval = time.Second
)

const (
	rowSelector     = "tr.diary-entry-row"
	detailsSelector = "td.td-film-details"
	posterSelector  = "div.poster"
)

type FetcherOptions struct {
	Username string
	Year     int
	// SettleAttempts is how many times a page is loaded at most while its row
	// count keeps growing.
	SettleAttempts int
	SettleInterval time.Duration
	Telemetry      telemetry.API
}

// RawEntry is a single listing row as it was found on a page.
type RawEntry struct {
	Page int
	Row  int
	// Selection is the row element.
	Selection *goquery.Selection
	PageUrl   *url.URL
	// HydratedPoster is the poster url resolved from a lazy placeholder, if any.
	HydratedPoster string
}

type Page struct {
	Number int
	Url    *url.URL
	Rows   []RawEntry
}

// PageFetcher loads diary pages of a single (username, year) listing.
type PageFetcher struct {
	browser        *Browser
	username       string
	year           int
	settleAttempts int
	settleInterval time.Duration
	tel            telemetry.API
}

func NewPageFetcher(browser *Browser, opts FetcherOptions) (*PageFetcher, error) {
	assert.NotNil(browser, "browser")
	assert.NotNil(opts.Telemetry, "telemetry")

	if strings.TrimSpace(opts.Username) == "" {
		return nil, errors.New("username must not be empty")
	}
	if opts.Year <= 0 {
		return nil, fmt.Errorf("year must be a positive integer, got %d", opts.Year)
	}

	attempts := opts.SettleAttempts
	if attempts <= 0 {
		attempts = DefaultSettleAttempts
	}
	interval := opts.SettleInterval
	if interval < 0 {
		interval = 0
	}

	return &PageFetcher{
		browser:        browser,
		username:       opts.Username,
		year:           opts.Year,
		settleAttempts: attempts,
		settleInterval: interval,
		tel:            telemetry.NewScopedAPI("letterboxd", opts.Telemetry),
	}, nil
}

// DiaryPath is the path of a diary page, pages start at 1.
func DiaryPath(username string, year, page int) string {
	return fmt.Sprintf("/%s/films/diary/for/%d/page/%d/", url.PathEscape(username), year, page)
}

// Fetch loads a page and waits for its row count to settle, then hydrates lazy
// posters. Any navigation error is returned wrapping ErrNavigation.
func (f *PageFetcher) Fetch(ctx context.Context, page int) (Page, error) {
	path := DiaryPath(f.username, f.year, page)

	doc, err := f.browser.Navigate(ctx, path)
	if err != nil {
		return Page{}, err
	}
	rows := findRows(doc)

	for attempt := 1; attempt < f.settleAttempts; attempt++ {
		err := sleep(ctx, f.settleInterval)
		if err != nil {
			return Page{}, fmt.Errorf("%w: %w", ErrNavigation, err)
		}
		next, err := f.browser.Navigate(ctx, path)
		if err != nil {
			return Page{}, err
		}
		nextRows := findRows(next)
		if nextRows.Length() <= rows.Length() {
			break
		}
		f.tel.ReportDebug(report_fetcher_settle, path, rows.Length(), nextRows.Length())
		doc = next
		rows = nextRows
	}

	result := Page{Number: page, Url: doc.Url}
	rows.Each(func(i int, row *goquery.Selection) {
		result.Rows = append(result.Rows, RawEntry{
			Page:      page,
			Row:       i + 1,
			Selection: row,
			PageUrl:   doc.Url,
		})
	})

	for i := range result.Rows {
		f.hydrate(ctx, &result.Rows[i])
	}

	return result, nil
}

func findRows(doc *goquery.Document) *goquery.Selection {
	rows := doc.Find(rowSelector)
	if rows.Length() > 0 {
		return rows
	}
	return doc.Find(detailsSelector).Closest("tr")
}

// hydrate resolves the poster of a row whose image is still a placeholder.
func (f *PageFetcher) hydrate(ctx context.Context, raw *RawEntry) {
	if posterFromImage(raw.Selection, raw.PageUrl) != "" {
		return
	}
	poster := raw.Selection.Find(posterSelector).First()
	if poster.Length() == 0 {
		return
	}

	fragmentPath := poster.AttrOr("data-poster-url", "")
	if fragmentPath == "" {
		slug := poster.AttrOr("data-film-slug", "")
		if slug == "" {
			return
		}
		fragmentPath = fmt.Sprintf("/ajax/poster/film/%s/std/70x105/", url.PathEscape(slug))
	}

	fragment, err := f.browser.Navigate(ctx, fragmentPath)
	if err != nil {
		f.tel.ReportWarning(report_fetcher_hydrate, raw.Page, raw.Row, err)
		return
	}
	raw.HydratedPoster = posterFromImage(fragment.Selection, fragment.Url)
	if raw.HydratedPoster == "" {
		f.tel.ReportWarning(report_fetcher_hydrate, raw.Page, raw.Row, "fragment has no poster", fragmentPath)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
