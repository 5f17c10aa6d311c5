package adapters

import (
	"html"
	"regexp"
	"time"

	"github.com/mkochhar/jobops/internal/models"
)

var urlRegex = regexp.MustCompile(`https?://[^\s"'<>]+`)

// Email extracts job URLs from a plain-text and/or HTML email body and
// carries the email as passthrough context for the JD Resolver (C2), per
// spec.md §4.3.
func Email(subject, from, text, htmlBody string, now time.Time) []models.CandidateEnvelope {
	urls := make(map[string]bool)
	for _, u := range urlRegex.FindAllString(text, -1) {
		urls[u] = true
	}
	for _, u := range urlRegex.FindAllString(html.UnescapeString(htmlBody), -1) {
		urls[u] = true
	}

	envelopes := make([]models.CandidateEnvelope, 0, len(urls))
	for u := range urls {
		envelopes = append(envelopes, models.CandidateEnvelope{
			Source:          models.SourceEmail,
			RawURL:          u,
			CanonicalJob:    models.CanonicalJob{JobURL: u},
			EmailSubject:    subject,
			EmailFrom:       from,
			EmailText:       text,
			EmailHTML:       htmlBody,
			IngestTimestamp: now,
		})
	}
	return envelopes
}
