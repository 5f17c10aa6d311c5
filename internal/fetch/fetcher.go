// Package fetch implements the HTTP fetcher collaborator named in spec.md
// §1: a bounded single-URL fetch with timeout, stable User-Agent, and
// redirect following, wrapped in a circuit breaker so repeated upstream
// failures surface as CollaboratorUnavailable rather than retry storms.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sony/gobreaker"
)

const defaultUserAgent = "JobOps/1.0 (+personal job-application pipeline)"

// Result is a fetched page's outcome, including enough signal for the JD
// Resolver's low-quality classifier.
type Result struct {
	StatusCode int
	FinalURL   string
	Body       []byte
	Headers    http.Header
}

// Fetcher fetches a single URL with bounded timeout and redirect following.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Result, error)
}

// CollyFetcher is the Fetcher collaborator's concrete implementation. It
// deliberately only uses colly's single-request collector — not its
// link-following/queueing crawl engine, which has no caller in this domain.
type CollyFetcher struct {
	timeout      time.Duration
	maxRedirects int
	breaker      *gobreaker.CircuitBreaker
}

// NewCollyFetcher builds a Fetcher with the given bounded timeout (default
// 3.5s per spec.md §5) and a circuit breaker tripping after repeated
// consecutive failures.
func NewCollyFetcher(timeout time.Duration, maxRedirects int) *CollyFetcher {
	if timeout <= 0 {
		timeout = 3500 * time.Millisecond
	}
	if maxRedirects <= 0 {
		maxRedirects = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "fetcher",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &CollyFetcher{timeout: timeout, maxRedirects: maxRedirects, breaker: breaker}
}

// Fetch retrieves rawURL, following redirects up to maxRedirects, honoring
// ctx cancellation and the configured timeout.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	out, err := f.breaker.Execute(func() (any, error) {
		return f.doFetch(ctx, rawURL)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("fetcher circuit open: %w", err)
		}
		return nil, err
	}
	return out.(*Result), nil
}

func (f *CollyFetcher) doFetch(ctx context.Context, rawURL string) (*Result, error) {
	deadline := time.Now().Add(f.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c := colly.NewCollector(
		colly.UserAgent(defaultUserAgent),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.SetRequestTimeout(time.Until(deadline))
	c.RedirectHandler(func(req *http.Request, via []*http.Request) error {
		if len(via) >= f.maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	})

	var result Result
	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.Headers = http.Header(r.Headers.Clone())
		result.Body = append([]byte(nil), r.Body...)
		if req := r.Request; req != nil && req.URL != nil {
			result.FinalURL = req.URL.String()
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
		if r != nil {
			result.StatusCode = r.StatusCode
		}
	})

	if err := c.Visit(rawURL); err != nil && fetchErr == nil {
		fetchErr = err
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, fetchErr)
	}
	if result.FinalURL == "" {
		result.FinalURL = rawURL
	}
	return &result, nil
}

// drain is a defensive helper kept for callers reading raw http.Response
// bodies directly (e.g. in tests) rather than via colly's buffered body.
func drain(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

// State reports the fetcher's circuit breaker state for /health, mirroring
// llm.BreakerClient.State().
func (f *CollyFetcher) State() string {
	return f.breaker.State().String()
}
