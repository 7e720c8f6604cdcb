package letterboxd

import (
	"context"
	"fmt"

	"filmpalette-backend/internal/components/assert"
	"filmpalette-backend/internal/components/telemetry"
	"filmpalette-backend/internal/diary"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_collect_page    = "collect.page"
	report_collect_entry   = "collect.entry"
	report_collect_entries = "collect.entries"
)

// Fetcher loads one page of a listing.
type Fetcher interface {
	Fetch(ctx context.Context, page int) (Page, error)
}

type CollectOptions struct {
	Mode diary.Mode
	// MaxPages > 0 stops after that many pages even if they all had entries.
	MaxPages  int
	Telemetry telemetry.API
}

type Collection struct {
	Entries  []diary.Entry
	Failures diary.FailureLog
	// Pages is the number of pages fetched, including the terminating one.
	Pages int
}

var tracer = telemetry.Tracer("filmpalette/letterboxd")

// Collect walks the listing from page 1 and stops at the first page that yields
// no entries. A page that fails to load fails the whole collection, no partial
// result is returned.
func Collect(ctx context.Context, fetcher Fetcher, opts CollectOptions) (Collection, error) {
	assert.NotNil(fetcher, "fetcher")
	assert.NotNil(opts.Telemetry, "telemetry")

	tel := telemetry.NewScopedAPI("letterboxd", opts.Telemetry)

	ctx, span := tracer.Start(ctx, "letterboxd.Collect", trace.WithAttributes(
		attribute.String("mode", opts.Mode.String()),
	))
	defer span.End()

	meter := telemetry.Meter("filmpalette/letterboxd")
	pagesCounter, _ := meter.Int64Counter("letterboxd.pages_fetched")
	entriesCounter, _ := meter.Int64Counter("letterboxd.entries_extracted")

	var result Collection
	for page := 1; opts.MaxPages <= 0 || page <= opts.MaxPages; page++ {
		fetched, err := fetcher.Fetch(ctx, page)
		if err != nil {
			tel.ReportWarning(report_collect_page, page, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "page fetch failed")
			return Collection{}, fmt.Errorf("collect page %d: %w", page, err)
		}
		result.Pages++
		pagesCounter.Add(ctx, 1)

		extracted := 0
		for _, raw := range fetched.Rows {
			entry, failure := Extract(raw, opts.Mode)
			if failure != nil {
				tel.ReportDebug(report_collect_entry, failure.Error())
				result.Failures = append(result.Failures, *failure)
				continue
			}
			result.Entries = append(result.Entries, entry)
			extracted++
		}
		entriesCounter.Add(ctx, int64(extracted))

		if extracted == 0 {
			break
		}
	}

	tel.ReportCount(report_collect_entries, int64(len(result.Entries)))
	span.SetAttributes(
		attribute.Int("pages", result.Pages),
		attribute.Int("entries", len(result.Entries)),
		attribute.Int("failures", len(result.Failures)),
	)
	return result, nil
}
