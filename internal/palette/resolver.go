package palette

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"filmpalette-backend/internal/components/assert"
	"filmpalette-backend/internal/components/telemetry"
	"filmpalette-backend/internal/diary"
	"filmpalette-backend/pkg/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	report_resolve_fetch  = "resolve.fetch"
	report_resolve_decode = "resolve.decode"
	report_resolve_empty  = "resolve.empty-palette"
	report_resolve_panic  = "resolve.panic"
	report_resolve_all    = "resolve-all"
)

const (
	DefaultConcurrency = 4
	// DefaultMaxPosterBytes caps the size of a downloaded poster.
	DefaultMaxPosterBytes = 8 << 20
)

type ResolverOptions struct {
	// Transport is shared with the page fetcher, nil uses http.DefaultTransport.
	Transport   http.RoundTripper
	UserAgent   string
	Timeout     time.Duration
	Concurrency int
	// MaxPosterBytes <= 0 uses DefaultMaxPosterBytes.
	MaxPosterBytes int
	// Dump receives every poster exchange when set.
	Dump      restyutil.Output
	Telemetry telemetry.API
}

// Resolver turns poster references into dominant colors. It never returns an
// error, every problem becomes a Failure and a nil color.
type Resolver struct {
	http        *resty.Client
	concurrency int
	tel         telemetry.API

	tracer   trace.Tracer
	resolved metric.Int64Counter
	failed   metric.Int64Counter
}

func NewResolver(opts ResolverOptions) *Resolver {
	assert.NotNil(opts.Telemetry, "telemetry")

	tel := telemetry.NewScopedAPI("palette", opts.Telemetry)

	httpClient := resty.New()
	if opts.Transport != nil {
		httpClient.SetTransport(opts.Transport)
	}
	if opts.UserAgent != "" {
		httpClient.SetHeader("user-agent", opts.UserAgent)
	}
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	} else {
		httpClient.SetTimeout(time.Second * 30)
	}
	maxPosterBytes := opts.MaxPosterBytes
	if maxPosterBytes <= 0 {
		maxPosterBytes = DefaultMaxPosterBytes
	}
	httpClient.SetResponseBodyLimit(maxPosterBytes)
	telemetry.InstrumentResty(httpClient, tel)
	restyutil.InstrumentClient(httpClient, "poster", telemetry.Tracer("filmpalette/palette"), opts.Dump)

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	meter := telemetry.Meter("filmpalette/palette")
	resolved, _ := meter.Int64Counter("palette.resolved")
	failed, _ := meter.Int64Counter("palette.failed")

	return &Resolver{
		http:        httpClient,
		concurrency: concurrency,
		tel:         tel,
		tracer:      telemetry.Tracer("filmpalette/palette"),
		resolved:    resolved,
		failed:      failed,
	}
}

// Resolve fetches the poster at ref and returns its dominant color. The
// returned failure carries only Kind, Ref and Err.
func (r *Resolver) Resolve(ctx context.Context, ref string) (color *diary.Color, failure *diary.Failure) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		r.tel.ReportBroken(report_resolve_panic, ref, p)
		color = nil
		failure = &diary.Failure{
			Kind: diary.FailureImageDecode,
			Ref:  ref,
			Err:  fmt.Errorf("panic: %v", p),
		}
	}()

	if ref == "" {
		return nil, &diary.Failure{
			Kind: diary.FailureImageFetch,
			Err:  errors.New("empty poster reference"),
		}
	}

	res, err := r.http.R().
		SetContext(ctx).
		Get(ref)
	if err == nil && !res.IsSuccess() {
		err = fmt.Errorf("unexpected status %s", res.Status())
	}
	if err != nil {
		r.tel.ReportWarning(report_resolve_fetch, ref, err)
		return nil, &diary.Failure{Kind: diary.FailureImageFetch, Ref: ref, Err: err}
	}

	img, _, err := Decode(res.Body())
	if err != nil {
		r.tel.ReportWarning(report_resolve_decode, ref, err)
		return nil, &diary.Failure{Kind: diary.FailureImageDecode, Ref: ref, Err: err}
	}

	c, ok := Dominant(img)
	if !ok {
		r.tel.ReportDebug(report_resolve_empty, ref)
		return nil, &diary.Failure{Kind: diary.FailureEmptyPalette, Ref: ref}
	}
	return &c, nil
}

// ResolveAll resolves every entry with bounded parallelism. The result is
// aligned with entries, failures are ordered by entry.
func (r *Resolver) ResolveAll(ctx context.Context, entries []diary.Entry) ([]diary.ColoredEntry, diary.FailureLog) {
	ctx, span := r.tracer.Start(ctx, "palette.ResolveAll", trace.WithAttributes(
		attribute.Int("entries", len(entries)),
		attribute.Int("concurrency", r.concurrency),
	))
	defer span.End()

	out := make([]diary.ColoredEntry, len(entries))
	failures := make([]*diary.Failure, len(entries))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, e := range entries {
		g.Go(func() error {
			color, failure := r.Resolve(ctx, e.PosterRef)
			out[i] = diary.ColoredEntry{Entry: e, DominantColor: color}
			if failure != nil {
				failure.Page = e.Page
				failure.Row = e.Row
				failures[i] = failure
			}
			return nil
		})
	}
	_ = g.Wait()

	var log diary.FailureLog
	for _, f := range failures {
		if f != nil {
			log = append(log, *f)
		}
	}

	resolved := int64(len(entries) - len(log))
	r.resolved.Add(ctx, resolved)
	r.failed.Add(ctx, int64(len(log)))
	r.tel.ReportCount(report_resolve_all, resolved)
	span.SetAttributes(attribute.Int("failures", len(log)))

	return out, log
}
