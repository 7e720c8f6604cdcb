package letterboxd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"filmpalette-backend/internal/components/assert"
	"filmpalette-backend/internal/components/telemetry"
	"filmpalette-backend/pkg/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_browser_navigate  = "browser.navigate"
	report_browser_not_found = "browser.not-found"
)

const (
	DefaultBaseUrl   = "https://letterboxd.com"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

// ErrNavigation is returned when a page could not be loaded.
var ErrNavigation = errors.New("navigation failed")

type BrowserOptions struct {
	BaseUrl string
	// RequestsPerSecond <= 0 disables rate limiting.
	RequestsPerSecond float64
	Timeout           time.Duration
	UserAgent         string
	// Dump receives every page exchange when set.
	Dump      restyutil.Output
	Telemetry telemetry.API
}

// Browser is the long-lived handle every page navigation goes through. Only one
// navigation runs at a time.
type Browser struct {
	BaseUrl *url.URL
	Http    *resty.Client

	mu  sync.Mutex
	tel telemetry.API
}

func NewBrowser(opts BrowserOptions) (*Browser, error) {
	assert.NotNil(opts.Telemetry, "telemetry")

	tel := telemetry.NewScopedAPI("letterboxd", opts.Telemetry)

	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	parsedBaseUrl, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	} else {
		httpClient.SetTimeout(time.Second * 30)
	}

	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		// burst >= rate so no request is ever dropped
		burst = max(1, int(opts.RequestsPerSecond))
	}
	rateLimiter := rate.NewLimiter(limit, burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)
	restyutil.InstrumentClient(httpClient, "page", telemetry.Tracer("filmpalette/letterboxd"), opts.Dump)

	return &Browser{
		BaseUrl: parsedBaseUrl,
		Http:    httpClient,
		tel:     tel,
	}, nil
}

// Transport is the round tripper pages are fetched with, poster downloads
// reuse it so they share connections and the bypass headers.
func (b *Browser) Transport() http.RoundTripper {
	return b.Http.GetClient().Transport
}

// Navigate loads path (relative to the base url) and parses it. The document's
// Url is the final url after redirects. A 404 is a loaded page like any other,
// transport errors and other unsuccessful statuses wrap ErrNavigation.
func (b *Browser) Navigate(ctx context.Context, path string) (*goquery.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	res, err := b.Http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		b.tel.ReportWarning(report_browser_navigate, path, err)
		return nil, fmt.Errorf("%w: get %s: %w", ErrNavigation, path, err)
	}
	if res.StatusCode() == http.StatusNotFound {
		b.tel.ReportDebug(report_browser_not_found, path)
	} else if !res.IsSuccess() {
		err := fmt.Errorf("%w: get %s: unexpected status %s", ErrNavigation, path, res.Status())
		b.tel.ReportWarning(report_browser_navigate, err)
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		b.tel.ReportBroken(report_browser_navigate, fmt.Errorf("parse %s: %w", path, err))
		return nil, fmt.Errorf("%w: parse %s: %w", ErrNavigation, path, err)
	}
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		doc.Url = res.RawResponse.Request.URL
	} else {
		doc.Url = b.BaseUrl.JoinPath(path)
	}
	return doc, nil
}

// Close releases idle connections, the browser must not be used afterwards.
func (b *Browser) Close() {
	b.Http.GetClient().CloseIdleConnections()
}
