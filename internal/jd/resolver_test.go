package jd

import (
	"context"
	"net/http"
	"testing"

	"github.com/mkochhar/jobops/internal/fetch"
	"github.com/mkochhar/jobops/internal/models"
)

type stubFetcher struct {
	result *fetch.Result
	err    error
}

func (s stubFetcher) Fetch(ctx context.Context, rawURL string) (*fetch.Result, error) {
	return s.result, s.err
}

func TestResolveFetchedGoodJD(t *testing.T) {
	body := `<html><body><article><p>We are looking for a Senior Engineer. Responsibilities: build things. Requirements: 5 years experience. ` +
		`You will own the roadmap and ship features. Must have Go experience. Nice to have Rust. This description repeats enough real ` +
		`sentences to clear the two hundred character minimum window threshold used by the resolver's dense text extractor for testing.</p></article></body></html>`

	f := stubFetcher{result: &fetch.Result{StatusCode: 200, Body: []byte(body), Headers: http.Header{}}}
	r := NewResolver(f)

	res := r.Resolve(context.Background(), "https://example.com/job/1", "", "")
	if res.FetchStatus != models.FetchStatusOK {
		t.Fatalf("expected fetch_status=ok, got %s", res.FetchStatus)
	}
	if res.JDSource != models.JDSourceFetched {
		t.Fatalf("expected jd_source=fetched, got %s", res.JDSource)
	}
	if res.JDTextClean == "" {
		t.Fatalf("expected non-empty cleaned JD text")
	}
}

func TestResolveBlockedFallsBackToEmail(t *testing.T) {
	blocked := `<html><body>Checking your browser before accessing. cf-browser-verification</body></html>`
	f := stubFetcher{result: &fetch.Result{StatusCode: 200, Body: []byte(blocked), Headers: http.Header{}}}
	r := NewResolver(f)

	emailText := "We are hiring a backend engineer. Responsibilities include owning services end to end. " +
		"Requirements: strong Go skills and five years of experience building distributed systems at scale."

	res := r.Resolve(context.Background(), "https://example.com/job/2", emailText, "")
	if res.FetchStatus != models.FetchStatusBlocked {
		t.Fatalf("expected fetch_status=blocked, got %s", res.FetchStatus)
	}
	if res.JDSource != models.JDSourceEmail {
		t.Fatalf("expected jd_source=email fallback, got %s", res.JDSource)
	}
}

func TestResolveNoUsableContent(t *testing.T) {
	f := stubFetcher{err: context.DeadlineExceeded}
	r := NewResolver(f)

	res := r.Resolve(context.Background(), "https://example.com/job/3", "", "")
	if res.JDSource != models.JDSourceNone {
		t.Fatalf("expected jd_source=none, got %s", res.JDSource)
	}
	if res.JDTextClean != "" {
		t.Fatalf("expected empty JD text")
	}
}
