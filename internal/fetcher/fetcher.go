package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/vlr-matches/internal/logger"
)

const (
	DefaultDelay   = 1000 * time.Millisecond
	DefaultTimeout = 10 * time.Second
	UserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Cause classifies a fetch failure
type Cause string

const (
	CauseTimeout   Cause = "timeout"
	CauseStatus    Cause = "status"
	CauseTransport Cause = "transport"
	CauseParse     Cause = "parse"
	CauseCanceled  Cause = "canceled"
)

// FetchError is returned for every failed fetch
type FetchError struct {
	URL        string
	Cause      Cause
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Cause == CauseStatus {
		return fmt.Sprintf("fetching %s: unexpected status code: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %s: %v", e.URL, e.Cause, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher performs delayed GET requests with browser-like headers
type Fetcher struct {
	client  *http.Client
	delay   time.Duration
	sleep   func(context.Context, time.Duration) error
	log     *logger.Logger
	metrics *logger.Metrics
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithDelay sets the pause applied before every request
func WithDelay(d time.Duration) Option {
	return func(f *Fetcher) { f.delay = d }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.client.Timeout = d }
}

// WithLogger sets the logger used for fetch failures
func WithLogger(l *logger.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// WithMetrics sets the metrics tracker; the package default is used otherwise
func WithMetrics(m *logger.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// New creates a Fetcher with the default delay and timeout
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		delay: DefaultDelay,
		sleep: sleepContext,
		log:   logger.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Delay returns the configured pause between requests
func (f *Fetcher) Delay() time.Duration {
	return f.delay
}

// Fetch waits the configured delay, then GETs url and parses the body as HTML
func (f *Fetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	if err := f.sleep(ctx, f.delay); err != nil {
		return nil, f.fail(&FetchError{URL: url, Cause: CauseCanceled, Err: err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, f.fail(&FetchError{URL: url, Cause: CauseTransport, Err: fmt.Errorf("creating request: %w", err)})
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")

	f.incr("fetch.requests")
	start := time.Now()

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.fail(&FetchError{URL: url, Cause: classify(err), Err: err})
	}
	defer resp.Body.Close()

	f.timing("fetch.latency", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, f.fail(&FetchError{URL: url, Cause: CauseStatus, StatusCode: resp.StatusCode})
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		cause := CauseParse
		if classify(err) == CauseTimeout {
			cause = CauseTimeout
		}
		return nil, f.fail(&FetchError{URL: url, Cause: cause, Err: fmt.Errorf("parsing HTML: %w", err)})
	}

	return doc, nil
}

func (f *Fetcher) fail(err *FetchError) error {
	f.incr("fetch.errors")
	f.log.Warn("Fetch failed", logger.Fields{
		"url":    err.URL,
		"cause":  string(err.Cause),
		"status": err.StatusCode,
	})
	return err
}

func (f *Fetcher) incr(name string) {
	if f.metrics != nil {
		f.metrics.IncrCounter(name)
		return
	}
	logger.IncrCounter(name)
}

func (f *Fetcher) timing(name string, d time.Duration) {
	if f.metrics != nil {
		f.metrics.RecordTiming(name, d)
		return
	}
	logger.RecordTiming(name, d)
}

func classify(err error) Cause {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return CauseCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return CauseTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return CauseTimeout
	default:
		return CauseTransport
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
