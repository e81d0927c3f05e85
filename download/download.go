// Package download fetches image bytes over HTTP with bounded retries,
// progress reporting, in-flight deduplication, and bounded concurrency.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/corymoss/imagecache/dedup"
	"github.com/corymoss/imagecache/limiter"
)

// DefaultRetryDelay is the base delay for the exponential backoff sequence
// (d, 2d, 4d, ...).
const DefaultRetryDelay = 500 * time.Millisecond

// DefaultMaxRetries is the number of retries attempted after the initial
// request, so a downloader with the default settings makes at most
// DefaultMaxRetries+1 attempts.
const DefaultMaxRetries = 3

// DefaultTimeout bounds a single HTTP round trip.
const DefaultTimeout = 30 * time.Second

// ProgressFunc receives a monotonically non-decreasing fraction in [0, 1]
// as a download proceeds. It is called from the goroutine performing the
// download and must not block.
type ProgressFunc func(fraction float64)

// Downloader fetches image bytes over HTTP. It deduplicates concurrent
// requests for the same URL and bounds overall concurrency, so it is safe
// to call Fetch far more often than the network should actually be hit.
type Downloader struct {
	client     *http.Client
	retryDelay time.Duration
	maxRetries int
	headers    http.Header
	dedup      *dedup.Group
	limiter    *limiter.Limiter
	logger     *slog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient overrides the *http.Client used for requests. The client's
// Timeout, if set, still applies per request; WithTimeout is usually the
// simpler knob.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) {
		if c != nil {
			d.client = c
		}
	}
}

// WithTimeout bounds a single HTTP round trip, retries included per attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		if timeout > 0 {
			d.client.Timeout = timeout
		}
	}
}

// WithRetryDelay sets the base delay of the exponential backoff sequence.
func WithRetryDelay(delay time.Duration) Option {
	return func(d *Downloader) {
		if delay > 0 {
			d.retryDelay = delay
		}
	}
}

// WithMaxRetries sets how many retries are attempted after the initial
// request. 0 disables retries.
func WithMaxRetries(n int) Option {
	return func(d *Downloader) {
		if n >= 0 {
			d.maxRetries = n
		}
	}
}

// WithHeader adds a header sent with every request, e.g. a User-Agent.
func WithHeader(key, value string) Option {
	return func(d *Downloader) {
		d.headers.Set(key, value)
	}
}

// WithConcurrency bounds the number of downloads in flight at once.
func WithConcurrency(n int) Option {
	return func(d *Downloader) {
		d.limiter = limiter.New(n)
	}
}

// WithLogger sets the logger used for diagnostic messages. A nil logger, or
// never calling this option, disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(d *Downloader) {
		d.logger = l
	}
}

// New creates a Downloader with the given options applied over sane
// defaults.
func New(opts ...Option) *Downloader {
	d := &Downloader{
		client:     &http.Client{Timeout: DefaultTimeout},
		retryDelay: DefaultRetryDelay,
		maxRetries: DefaultMaxRetries,
		headers:    make(http.Header),
		dedup:      &dedup.Group{},
		limiter:    limiter.New(limiter.DefaultMaxConcurrent),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Downloader) log() *slog.Logger {
	if d.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.logger
}

// Fetch retrieves the bytes at url, deduplicating concurrent callers for the
// same URL and reporting progress via onProgress, which may be nil.
//
// Retries follow an exponential backoff (retryDelay, 2*retryDelay,
// 4*retryDelay, ...) up to maxRetries additional attempts. HTTP responses
// in the 4xx range are not retried, except 408 Request Timeout and 429 Too
// Many Requests, which are treated like transient failures.
func (d *Downloader) Fetch(ctx context.Context, url string, onProgress ProgressFunc) ([]byte, error) {
	if onProgress != nil {
		// The shared fetch may outlive this caller; stop reporting to its
		// sink once Fetch has returned.
		var mu sync.Mutex
		returned := false
		report := onProgress
		onProgress = func(f float64) {
			mu.Lock()
			defer mu.Unlock()
			if !returned {
				report(f)
			}
		}
		defer func() { mu.Lock(); returned = true; mu.Unlock() }()
	}
	fetch := func(ctx context.Context) ([]byte, error) {
		return d.limiter.Run(ctx, func() ([]byte, error) {
			return d.fetchWithRetry(ctx, url, onProgress)
		})
	}
	data, err := d.dedup.Run(ctx, url, fetch)
	switch {
	case errors.Is(err, dedup.ErrCancelled):
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return data, err
}

// CancelFetch force-cancels the in-flight fetch for url, if any.
func (d *Downloader) CancelFetch(url string) {
	d.dedup.Cancel(url)
}

// CancelAllFetches force-cancels every in-flight fetch.
func (d *Downloader) CancelAllFetches() {
	d.dedup.CancelAll()
}

func (d *Downloader) fetchWithRetry(ctx context.Context, url string, onProgress ProgressFunc) ([]byte, error) {
	var result []byte

	base := backoff.NewExponentialBackOff()
	base.InitialInterval = d.retryDelay
	base.Multiplier = 2
	base.RandomizationFactor = 0
	base.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(base, uint64(d.maxRetries)), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		data, err := d.attemptOnce(ctx, url, onProgress)
		if err == nil {
			result = data
			return nil
		}

		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return backoff.Permanent(err)
		}
		d.log().Warn("download attempt failed, retrying", "url", url, "attempt", attempt, "error", err)
		return err
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, classify(err)
	}
	return result, nil
}

func (d *Downloader) attemptOnce(ctx context.Context, url string, onProgress ProgressFunc) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknown, err)
	}
	for k := range d.headers {
		req.Header.Set(k, d.headers.Get(k))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{Status: resp.StatusCode}
	}

	return readWithProgress(resp.Body, resp.ContentLength, onProgress)
}

func readWithProgress(body io.Reader, contentLength int64, onProgress ProgressFunc) ([]byte, error) {
	buf := make([]byte, 0, initialBufferSize(contentLength))
	chunk := make([]byte, 32*1024)
	var read int64

	emit := func() {
		if onProgress == nil {
			return
		}
		if contentLength > 0 {
			onProgress(clamp01(float64(read) / float64(contentLength)))
		}
	}

	for {
		n, err := body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			read += int64(n)
			emit()
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
		}
	}
	if onProgress != nil && contentLength > 0 {
		onProgress(1)
	}
	return buf, nil
}

func initialBufferSize(contentLength int64) int64 {
	if contentLength > 0 {
		return contentLength
	}
	return 64 * 1024
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// classify normalizes an error surfaced by the retry loop into one of the
// package's sentinel kinds when it isn't already one.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return err
	}
	if errors.Is(err, ErrNetworkFailure) || errors.Is(err, ErrUnknown) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnknown, err)
}
