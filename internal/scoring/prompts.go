package scoring

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mkochhar/jobops/internal/models"
)

const extractSystemPrompt = `You are a job description extraction engine. Read the job description text and
return ONLY a single JSON object matching this exact shape, with no prose, no markdown fences:
{"role_title":"","company":"","location":"","seniority":"","work_mode":"",
 "experience_min_years":null,"experience_max_years":null,
 "must_have_keywords":[],"nice_to_have_keywords":[],"reject_keywords":[]}
Leave a field empty string/null/[] if it cannot be determined from the text. Never invent facts.`

// extractUserPrompt builds the AI extract stage's user message from raw JD text.
func extractUserPrompt(jdText string) string {
	return "Job description:\n\n" + jdText
}

// ExtractedFields is the AI extract stage's strict-JSON response shape.
type ExtractedFields struct {
	RoleTitle          string   `json:"role_title"`
	Company            string   `json:"company"`
	Location           string   `json:"location"`
	Seniority          string   `json:"seniority"`
	WorkMode           string   `json:"work_mode"`
	ExperienceMinYears *int     `json:"experience_min_years"`
	ExperienceMaxYears *int     `json:"experience_max_years"`
	MustHaveKeywords   []string `json:"must_have_keywords"`
	NiceToHaveKeywords []string `json:"nice_to_have_keywords"`
	RejectKeywords     []string `json:"reject_keywords"`
}

func parseExtractedFields(jsonText string) (*ExtractedFields, error) {
	var f ExtractedFields
	if err := json.Unmarshal([]byte(stripJSONFences(jsonText)), &f); err != nil {
		return nil, fmt.Errorf("parse ai extract response: %w", err)
	}
	return &f, nil
}

const reasonSystemPrompt = `You are a job-fit scoring engine for a single job seeker. You are given one job
description and a list of candidate targets (scoring rubrics), each with must-have, nice-to-have, and reject
keyword bags. Judge how well the job matches each target and pick the best one. Return ONLY a single JSON object,
no prose, no markdown fences:
{"primary_target_id":"","score_must":0,"score_nice":0,"final_score":0,
 "reject_triggered":0,"reason_top_matches":"","potential_contacts":[]}
score_must and score_nice are each in [0,100] reflecting the fraction of that target's keyword bag the job
evidently satisfies. final_score must equal clip(w_must*score_must + w_nice*score_nice - reject_penalty, 0, 100)
using the weights given below; reject_penalty is 100 if reject_triggered is 1, else 0. potential_contacts is a
list of recruiter/hiring-manager names or emails mentioned in the text, each {"name":"","company":"","email":"","linkedin_url":""}.`

// reasonUserPrompt builds the AI reason stage's user message.
func reasonUserPrompt(jdText string, targets []*models.Target, weightMust, weightNice float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Weights: w_must=%.2f, w_nice=%.2f\n\n", weightMust, weightNice)
	b.WriteString("Candidate targets:\n")
	for _, t := range targets {
		fmt.Fprintf(&b, "- id=%s name=%q primary_role=%q must=%v nice=%v reject=%v\n",
			t.ID, t.Name, t.PrimaryRole, t.MustKeywords, t.NiceKeywords, t.RejectKeywords)
	}
	b.WriteString("\nJob description:\n\n")
	b.WriteString(jdText)
	return b.String()
}

// potentialContact is one recruiter/hiring-manager mention the AI reason
// stage extracted from the JD text.
type potentialContact struct {
	Name        string `json:"name"`
	Company     string `json:"company"`
	Email       string `json:"email"`
	LinkedInURL string `json:"linkedin_url"`
}

// reasonResult is the AI reason stage's strict-JSON response shape.
type reasonResult struct {
	PrimaryTargetID    string              `json:"primary_target_id"`
	ScoreMust          float64             `json:"score_must"`
	ScoreNice          float64             `json:"score_nice"`
	FinalScore         float64             `json:"final_score"`
	RejectTriggered    int                 `json:"reject_triggered"`
	ReasonTopMatches   string              `json:"reason_top_matches"`
	PotentialContacts  []potentialContact  `json:"potential_contacts"`
}

func parseReasonResult(jsonText string) (*reasonResult, error) {
	var r reasonResult
	if err := json.Unmarshal([]byte(stripJSONFences(jsonText)), &r); err != nil {
		return nil, fmt.Errorf("parse ai reason response: %w", err)
	}
	return &r, nil
}

// stripJSONFences tolerates a model wrapping its JSON in ```json fences
// despite being told not to.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
