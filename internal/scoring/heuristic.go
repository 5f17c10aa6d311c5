package scoring

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/mkochhar/jobops/internal/models"
)

// heuristicResult is the deterministic gate's verdict, before any AI call.
type heuristicResult struct {
	Passed  bool
	Reasons []string
}

// runHeuristicGate implements spec.md §4.5 stage 1: a synchronous,
// deterministic pass/reject decision made without any LLM call.
func runHeuristicGate(jdText string, targets []*models.Target, minJDChars, minTargetSignal int) heuristicResult {
	var reasons []string

	if len(jdText) < minJDChars {
		reasons = append(reasons, fmt.Sprintf("jd_too_short:%d", len(jdText)))
	}

	signal := targetSignalScore(jdText, targets)
	if signal < minTargetSignal {
		reasons = append(reasons, fmt.Sprintf("target_signal_too_low:%d", signal))
	}

	for _, kw := range rejectKeywordUnion(targets) {
		if containsWord(jdText, kw) {
			reasons = append(reasons, "blocked_keyword:"+kw)
		}
	}

	return heuristicResult{Passed: len(reasons) == 0, Reasons: reasons}
}

// targetSignalScore counts case-insensitive word-boundary matches of the
// union of every active target's must+nice keywords against the JD text.
func targetSignalScore(jdText string, targets []*models.Target) int {
	count := 0
	for _, kw := range mustNiceKeywordUnion(targets) {
		if containsWord(jdText, kw) {
			count++
		}
	}
	return count
}

func mustNiceKeywordUnion(targets []*models.Target) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range targets {
		for _, kw := range append(append([]string{}, t.MustKeywords...), t.NiceKeywords...) {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			out = append(out, kw)
		}
	}
	return out
}

func rejectKeywordUnion(targets []*models.Target) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range targets {
		for _, kw := range t.RejectKeywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			out = append(out, kw)
		}
	}
	return out
}

var (
	wordBoundaryMu    sync.Mutex
	wordBoundaryCache = map[string]*regexp.Regexp{}
)

// containsWord reports a case-insensitive, word-boundary-respecting match of
// kw within text, so "go" does not match inside "google".
func containsWord(text, kw string) bool {
	wordBoundaryMu.Lock()
	re, ok := wordBoundaryCache[kw]
	if !ok {
		re = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		wordBoundaryCache[kw] = re
	}
	wordBoundaryMu.Unlock()
	return re.MatchString(text)
}
