// Package jd implements the JD Resolver (C2): fetch+clean a job description
// from its source URL, or derive it from an inbound email body, emitting
// fetch_status and jd_confidence per spec.md §4.2.
package jd

import (
	"bytes"
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	readability "github.com/go-shiori/go-readability"

	"github.com/mkochhar/jobops/internal/fetch"
	"github.com/mkochhar/jobops/internal/models"
)

// Resolution is the JD Resolver's output contract from spec.md §4.2.
type Resolution struct {
	JDTextClean string
	JDSource    models.JDSource
	FetchStatus models.FetchStatus
	Confidence  models.JDConfidence
	Debug       map[string]any
}

const minExtractedWindowChars = 200

var hiringSignalWords = []string{"responsibilities", "requirements", "qualifications", "you will", "you'll", "we are looking for", "must have", "nice to have"}

// Resolver resolves a job URL (or email fallback) into cleaned JD text.
type Resolver struct {
	fetcher Fetcher
}

// Fetcher is the narrow interface the resolver needs from internal/fetch.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Result, error)
}

// NewResolver builds a Resolver around the given Fetcher collaborator.
func NewResolver(fetcher Fetcher) *Resolver {
	return &Resolver{fetcher: fetcher}
}

// Resolve implements spec.md §4.2's algorithm.
func (r *Resolver) Resolve(ctx context.Context, jobURL, emailText, emailHTML string) Resolution {
	debug := map[string]any{}

	if jobURL != "" && r.fetcher != nil {
		res, err := r.fetcher.Fetch(ctx, jobURL)
		if err == nil {
			lowQuality := isLowQualityJD(res.StatusCode, res.Headers, string(res.Body))
			if lowQuality.Blocked {
				debug["block_reason"] = lowQuality.Reason
				debug["block_signal"] = string(lowQuality.Signal)
				return r.fallbackToEmail(emailText, emailHTML, models.FetchStatusBlocked, debug)
			}

			cleaned := extractDenseWindow(string(res.Body))
			if len(cleaned) >= minExtractedWindowChars {
				return Resolution{
					JDTextClean: cleaned,
					JDSource:    models.JDSourceFetched,
					FetchStatus: models.FetchStatusOK,
					Confidence:  confidenceFor(cleaned),
					Debug:       debug,
				}
			}
			debug["fetch_short_window"] = len(cleaned)
		} else {
			debug["fetch_error"] = err.Error()
		}
		return r.fallbackToEmail(emailText, emailHTML, models.FetchStatusFailed, debug)
	}

	return r.fallbackToEmail(emailText, emailHTML, models.FetchStatusFailed, debug)
}

func (r *Resolver) fallbackToEmail(emailText, emailHTML string, fetchStatus models.FetchStatus, debug map[string]any) Resolution {
	var cleaned string
	switch {
	case emailHTML != "":
		cleaned = cleanHTMLToText(emailHTML)
	case emailText != "":
		cleaned = collapseWhitespace(html.UnescapeString(emailText))
	}

	if len(cleaned) >= minExtractedWindowChars {
		return Resolution{
			JDTextClean: cleaned,
			JDSource:    models.JDSourceEmail,
			FetchStatus: fetchStatus,
			Confidence:  confidenceFor(cleaned),
			Debug:       debug,
		}
	}

	return Resolution{
		JDTextClean: "",
		JDSource:    models.JDSourceNone,
		FetchStatus: fetchStatus,
		Confidence:  models.ConfidenceLow,
		Debug:       debug,
	}
}

// cleanHTMLToText converts an HTML fragment to clean text via
// html-to-markdown, stripping markdown syntax noise for storage as plain JD
// text (email bodies rarely carry JD-relevant markdown semantics).
func cleanHTMLToText(htmlBody string) string {
	md, err := htmltomarkdown.ConvertString(htmlBody)
	if err != nil || strings.TrimSpace(md) == "" {
		return extractDenseWindow(htmlBody)
	}
	return collapseWhitespace(stripMarkdownSyntax(md))
}

var mdSyntaxRegex = regexp.MustCompile(`[#*_\x60>\-]{1,3}`)

func stripMarkdownSyntax(md string) string {
	return mdSyntaxRegex.ReplaceAllString(md, " ")
}

// extractDenseWindow implements spec.md §4.2 steps 2-3: strip script/style,
// normalize block breaks to newlines, decode entities, collapse whitespace,
// then pick the largest dense text window via a readability pass, falling
// back to a goquery paragraph-density scorer if readability can't parse.
func extractDenseWindow(rawHTML string) string {
	if article, err := readability.FromReader(strings.NewReader(rawHTML), nil); err == nil {
		text := collapseWhitespace(article.TextContent)
		if len(text) >= minExtractedWindowChars {
			return text
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(rawHTML)))
	if err != nil {
		return collapseWhitespace(stripHTML(rawHTML))
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find("br").Each(func(_ int, s *goquery.Selection) { s.ReplaceWithHtml("\n") })

	best := ""
	doc.Find("div, article, section, main").Each(func(_ int, s *goquery.Selection) {
		text := collapseWhitespace(s.Text())
		if len(text) > len(best) {
			best = text
		}
	})
	if len(best) < minExtractedWindowChars {
		best = collapseWhitespace(doc.Text())
	}
	return best
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(html.UnescapeString(s), " "))
}

// confidenceFor implements spec.md §4.2's confidence tie-breaks.
func confidenceFor(text string) models.JDConfidence {
	lower := strings.ToLower(text)
	signalCount := 0
	for _, w := range hiringSignalWords {
		if strings.Contains(lower, w) {
			signalCount++
		}
	}

	switch {
	case len(text) >= 600 && signalCount >= 3:
		return models.ConfidenceHigh
	case len(text) >= 300:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
