package adapters

import (
	"time"

	"github.com/mkochhar/jobops/internal/models"
)

// Manual maps raw pasted URLs to one envelope per URL, per spec.md §4.3.
func Manual(rawURLs []string, now time.Time) []models.CandidateEnvelope {
	envelopes := make([]models.CandidateEnvelope, 0, len(rawURLs))
	for _, u := range rawURLs {
		if u == "" {
			continue
		}
		envelopes = append(envelopes, models.CandidateEnvelope{
			Source:          models.SourceManual,
			RawURL:          u,
			CanonicalJob:    models.CanonicalJob{JobURL: u},
			IngestTimestamp: now,
		})
	}
	return envelopes
}
