// Package adapters implements the Source Adapters (C3): mapping
// source-specific payloads (manual paste, email poll, RSS feeds, chat
// webhooks) to canonical CandidateEnvelope records, per spec.md §4.3.
package adapters

import "github.com/mkochhar/jobops/internal/models"

// CheckHealth computes a batch's source health per spec.md §4.3: status
// healthy|degraded|failing with a deterministic reason code.
func CheckHealth(envelopes []models.CandidateEnvelope) models.SourceHealth {
	total := len(envelopes)
	if total == 0 {
		return models.SourceHealth{Status: models.HealthFailing, Reason: "no_candidates", TotalEnvelopes: 0, ValidEnvelopes: 0}
	}

	valid := 0
	withURL := 0
	for _, e := range envelopes {
		if e.CanonicalJob.JobURL != "" {
			withURL++
		}
		if isValidEnvelope(e) {
			valid++
		}
	}

	if withURL == 0 {
		return models.SourceHealth{Status: models.HealthFailing, Reason: "no_canonical_job_urls", TotalEnvelopes: total, ValidEnvelopes: valid}
	}
	if valid == 0 {
		return models.SourceHealth{Status: models.HealthFailing, Reason: "no_valid_candidates", TotalEnvelopes: total, ValidEnvelopes: valid}
	}

	ratio := float64(valid) / float64(total)
	if ratio < 0.5 {
		return models.SourceHealth{Status: models.HealthDegraded, Reason: "low_valid_ratio", TotalEnvelopes: total, ValidEnvelopes: valid}
	}

	return models.SourceHealth{Status: models.HealthHealthy, TotalEnvelopes: total, ValidEnvelopes: valid}
}

func isValidEnvelope(e models.CandidateEnvelope) bool {
	return e.CanonicalJob.JobURL != "" || e.RawURL != ""
}
