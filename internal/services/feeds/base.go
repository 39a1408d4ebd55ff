package feeds

import (
	"context"
	"errors"
	"fmt"
	"time"

	xhttp "SignalSmith/pkg/http"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// HTTPServiceBase is the shared foundation of the feed clients: one pkg/http client,
// a client-side rate limiter and exponential backoff on transient failures.
type HTTPServiceBase struct {
	baseURL    string
	client     *xhttp.Client
	limiter    *rate.Limiter
	maxElapsed time.Duration
}

// BaseOption configures HTTPServiceBase.
type BaseOption func(*HTTPServiceBase)

// WithClient replaces the HTTP client, e.g. with one pointed at an httptest server.
func WithClient(c *xhttp.Client) BaseOption {
	return func(b *HTTPServiceBase) {
		b.client = c
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables limiting.
func WithRateLimit(rps float64, burst int) BaseOption {
	return func(b *HTTPServiceBase) {
		if rps <= 0 {
			b.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxElapsed bounds the total time spent retrying one call.
func WithMaxElapsed(d time.Duration) BaseOption {
	return func(b *HTTPServiceBase) {
		b.maxElapsed = d
	}
}

// NewHTTPServiceBase builds a base for baseURL with the given request timeout.
func NewHTTPServiceBase(baseURL string, timeout time.Duration, opts ...BaseOption) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b := &HTTPServiceBase{
		baseURL:    baseURL,
		client:     xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithUserAgent("signalsmith/1.0")),
		maxElapsed: 3 * timeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// GetJSON issues a GET to path under baseURL and decodes the JSON body into dest.
// 4xx responses other than 429 are not retried.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, query map[string][]string, headers map[string]string, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("feed http client not initialized")
	}

	op := func() error {
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
			}
		}
		err := b.client.GetJSON(ctx, &xhttp.RequestOptions{
			URL:         b.baseURL + path,
			Headers:     headers,
			QueryParams: query,
		}, dest)
		if err == nil {
			return nil
		}
		var se *xhttp.StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = 200 * time.Millisecond
	strategy.MaxElapsedTime = b.maxElapsed

	if err := backoff.Retry(op, backoff.WithContext(strategy, ctx)); err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	return nil
}
