// Package service runs the scrape pipeline for a request and exposes it over
// HTTP and Connect.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"filmpalette-backend/internal/calendar"
	"filmpalette-backend/internal/components/assert"
	"filmpalette-backend/internal/components/chrono"
	"filmpalette-backend/internal/components/telemetry"
	"filmpalette-backend/internal/diary"
	"filmpalette-backend/internal/palette"
	"filmpalette-backend/internal/scrapers/letterboxd"

	"github.com/google/uuid"
)

const (
	report_scrape_start  = "scrape.start"
	report_scrape_failed = "scrape.failed"
	report_scrape_done   = "scrape.done"
	report_scrape_skips  = "scrape.skipped-entries"
)

// ErrInvalidInput is returned for requests that are rejected before any
// network access.
var ErrInvalidInput = errors.New("invalid input")

// Request identifies a listing and how to read it.
type Request struct {
	Username string
	Year     int
	Mode     diary.Mode
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if r.Year <= 0 {
		return fmt.Errorf("%w: year must be a positive integer", ErrInvalidInput)
	}
	return nil
}

// ParseRequest reads username (or nickname), year and mode from a query string.
func ParseRequest(query url.Values) (Request, error) {
	username := query.Get("username")
	if username == "" {
		username = query.Get("nickname")
	}

	yearStr := strings.TrimSpace(query.Get("year"))
	if yearStr == "" {
		return Request{}, fmt.Errorf("%w: year is required", ErrInvalidInput)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return Request{}, fmt.Errorf("%w: year %q is not an integer", ErrInvalidInput, yearStr)
	}

	mode, err := diary.ParseMode(query.Get("mode"))
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	req := Request{
		Username: strings.TrimSpace(username),
		Year:     year,
		Mode:     mode,
	}
	return req, req.Validate()
}

// Result is the outcome of a single run.
type Result struct {
	RunId    string
	Request  Request
	Entries  []diary.ColoredEntry
	Failures diary.FailureLog
	Pages    int
}

type Options struct {
	Browser  *letterboxd.Browser
	Resolver *palette.Resolver

	SettleAttempts int
	SettleInterval time.Duration
	// RequestTimeout bounds a whole run, 0 leaves it to the caller's ctx.
	RequestTimeout time.Duration
	MaxPages       int
	AllowedOrigins []string

	Time      chrono.TimeAPI
	Telemetry telemetry.API
}

type Service struct {
	browser  *letterboxd.Browser
	resolver *palette.Resolver

	settleAttempts int
	settleInterval time.Duration
	requestTimeout time.Duration
	maxPages       int
	allowedOrigins []string

	time chrono.TimeAPI
	tel  telemetry.API
}

func New(opts Options) *Service {
	assert.NotNil(opts.Browser, "browser")
	assert.NotNil(opts.Resolver, "resolver")
	assert.NotNil(opts.Telemetry, "telemetry")

	s := &Service{
		browser:        opts.Browser,
		resolver:       opts.Resolver,
		settleAttempts: opts.SettleAttempts,
		settleInterval: opts.SettleInterval,
		requestTimeout: opts.RequestTimeout,
		maxPages:       opts.MaxPages,
		allowedOrigins: opts.AllowedOrigins,
		time:           opts.Time,
		tel:            telemetry.NewScopedAPI("service", opts.Telemetry),
	}
	if s.time == nil {
		s.time = chrono.NewStandardTime()
	}
	return s
}

// Scrape collects every entry of the listing and resolves its colors. Any page
// failure fails the run, no partial result is returned.
func (s *Service) Scrape(ctx context.Context, req Request) (Result, error) {
	err := req.Validate()
	if err != nil {
		return Result{}, err
	}

	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	runId := uuid.NewString()
	s.tel.ReportDebug(report_scrape_start, runId, req.Username, req.Year, req.Mode.String())

	fetcher, err := letterboxd.NewPageFetcher(s.browser, letterboxd.FetcherOptions{
		Username:       req.Username,
		Year:           req.Year,
		SettleAttempts: s.settleAttempts,
		SettleInterval: s.settleInterval,
		Telemetry:      s.tel,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	collection, err := letterboxd.Collect(ctx, fetcher, letterboxd.CollectOptions{
		Mode:      req.Mode,
		MaxPages:  s.maxPages,
		Telemetry: s.tel,
	})
	if err != nil {
		ctxErr := ctx.Err()
		if ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		s.tel.ReportWarning(report_scrape_failed, runId, err)
		return Result{}, err
	}

	entries, failures := s.resolver.ResolveAll(ctx, collection.Entries)
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.tel.ReportWarning(report_scrape_failed, runId, ctxErr)
		return Result{}, fmt.Errorf("resolve colors: %w", ctxErr)
	}

	result := Result{
		RunId:    runId,
		Request:  req,
		Entries:  entries,
		Failures: append(collection.Failures, failures...),
		Pages:    collection.Pages,
	}
	if len(result.Failures) > 0 {
		s.tel.ReportWarning(report_scrape_skips, runId, len(result.Failures))
	}
	s.tel.ReportDebug(report_scrape_done, runId, len(entries), result.Pages)
	return result, nil
}

// Calendar scrapes the listing by day and lays the day colors out on the grid
// of the requested year.
func (s *Service) Calendar(ctx context.Context, req Request) (calendar.Grid, Result, error) {
	req.Mode = diary.ModeDay
	result, err := s.Scrape(ctx, req)
	if err != nil {
		return calendar.Grid{}, Result{}, err
	}
	grid, err := calendar.Layout(calendar.Aggregate(result.Entries), req.Year)
	if err != nil {
		return calendar.Grid{}, Result{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return grid, result, nil
}

// ICS scrapes the listing by day and exports it as an iCalendar file.
func (s *Service) ICS(ctx context.Context, req Request) ([]byte, error) {
	req.Mode = diary.ModeDay
	result, err := s.Scrape(ctx, req)
	if err != nil {
		return nil, err
	}
	calName := fmt.Sprintf("%s's %d diary", req.Username, req.Year)
	return calendar.ExportICS(result.Entries, req.Year, calName, s.time.Now())
}
