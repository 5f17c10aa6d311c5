package jd

import (
	"net/http"
	"regexp"
	"strings"
)

// lowQualitySignal classifies why a fetched page was judged unusable as a JD.
type lowQualitySignal string

const (
	signalNone             lowQualitySignal = "none"
	signalCloudflare       lowQualitySignal = "cloudflare"
	signalCaptcha          lowQualitySignal = "captcha"
	signalAccessDenied     lowQualitySignal = "access_denied"
	signalRateLimited      lowQualitySignal = "rate_limited"
	signalEmptyContent     lowQualitySignal = "empty_content"
	signalJavaScriptNeeded lowQualitySignal = "javascript_required"
)

// lowQualityResult is the isLowQualityJd_ classifier's verdict.
type lowQualityResult struct {
	Blocked    bool
	Signal     lowQualitySignal
	Confidence int
	Reason     string
}

var cloudflarePatterns = []string{
	"cf-browser-verification", "challenge-platform", "cf_chl_opt", "_cf_chl",
	"checking your browser", "please wait... | cloudflare", "just a moment...",
	"attention required! | cloudflare", "ray id:",
}

var captchaPatterns = []string{
	"g-recaptcha", "grecaptcha", "h-captcha", "hcaptcha", "data-sitekey",
	"captcha-container", "turnstile", "cf-turnstile",
}

var accessDeniedPatterns = []string{
	"access denied", "access to this page has been denied", "you don't have permission",
	"request blocked", "forbidden", "bot detected", "automated access",
	"please verify you are human", "are you a robot", "prove you're not a robot",
}

var jsRequiredPatterns = []string{
	"enable javascript", "javascript is required", "requires javascript",
	"please enable javascript", "this site requires javascript", "<noscript>",
}

var spaRootPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<div\s+id=["']root["']\s*>\s*</div>`),
	regexp.MustCompile(`(?i)<div\s+id=["']app["']\s*>\s*</div>`),
	regexp.MustCompile(`(?i)<app-root\s*>\s*</app-root>`),
	regexp.MustCompile(`(?i)<div\s+id=["']__next["']\s*>\s*</div>`),
	regexp.MustCompile(`(?i)<div\s+id=["']__nuxt["']\s*>\s*</div>`),
}

var htmlTagRegex = regexp.MustCompile(`(?s)<[^>]+>`)
var scriptRegex = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
var styleRegex = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
var noscriptRegex = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
var whitespaceRegex = regexp.MustCompile(`\s+`)
var linkTagRegex = regexp.MustCompile(`(?i)<a[\s>]`)

// isLowQualityJD is the deterministic classifier from spec.md §4.2 step 4:
// shell markers (cookie walls, captcha, "enable javascript", privacy
// notices) or too-thin content flip fetch_status=blocked, jd_confidence=low.
//
// Adapted from a bot/low-quality detector keyed on the same signal taxonomy
// (Cloudflare challenge pages, captcha walls, access-denied pages,
// JS-required shells, low text-to-markup ratio).
func isLowQualityJD(statusCode int, headers http.Header, body string) lowQualityResult {
	if r := checkStatusCode(statusCode); r.Blocked {
		return r
	}
	if r := checkHeaders(headers); r.Blocked {
		return r
	}
	return checkBodyContent(body)
}

func checkStatusCode(statusCode int) lowQualityResult {
	switch statusCode {
	case http.StatusForbidden:
		return lowQualityResult{Blocked: true, Signal: signalAccessDenied, Confidence: 90, Reason: "HTTP 403 Forbidden"}
	case http.StatusServiceUnavailable:
		return lowQualityResult{Blocked: true, Signal: signalCloudflare, Confidence: 70, Reason: "HTTP 503 (commonly a Cloudflare challenge)"}
	case http.StatusTooManyRequests:
		return lowQualityResult{Blocked: true, Signal: signalRateLimited, Confidence: 95, Reason: "HTTP 429 rate limited"}
	}
	return lowQualityResult{}
}

func checkHeaders(headers http.Header) lowQualityResult {
	if headers == nil {
		return lowQualityResult{}
	}
	if headers.Get("cf-ray") != "" && strings.EqualFold(headers.Get("cf-mitigated"), "challenge") {
		return lowQualityResult{Blocked: true, Signal: signalCloudflare, Confidence: 95, Reason: "cf-mitigated: challenge header present"}
	}
	return lowQualityResult{}
}

func checkBodyContent(body string) lowQualityResult {
	if strings.TrimSpace(body) == "" {
		return lowQualityResult{Blocked: true, Signal: signalEmptyContent, Confidence: 80, Reason: "empty response body"}
	}

	lower := strings.ToLower(body)

	for _, p := range cloudflarePatterns {
		if strings.Contains(lower, p) {
			return lowQualityResult{Blocked: true, Signal: signalCloudflare, Confidence: 90, Reason: "Cloudflare challenge marker: " + p}
		}
	}
	for _, p := range captchaPatterns {
		if strings.Contains(lower, p) {
			return lowQualityResult{Blocked: true, Signal: signalCaptcha, Confidence: 90, Reason: "captcha marker: " + p}
		}
	}
	for _, p := range accessDeniedPatterns {
		if strings.Contains(lower, p) {
			return lowQualityResult{Blocked: true, Signal: signalAccessDenied, Confidence: 85, Reason: "access-denied marker: " + p}
		}
	}
	for _, p := range jsRequiredPatterns {
		if strings.Contains(lower, p) {
			return lowQualityResult{Blocked: true, Signal: signalJavaScriptNeeded, Confidence: 85, Reason: "javascript-required marker: " + p}
		}
	}
	for _, re := range spaRootPatterns {
		if re.MatchString(body) {
			return lowQualityResult{Blocked: true, Signal: signalJavaScriptNeeded, Confidence: 90, Reason: "empty SPA root element"}
		}
	}

	if r := checkTextContentRatio(body); r.Blocked {
		return r
	}

	textOnly := stripHTML(body)
	if len(textOnly) < 120 {
		return lowQualityResult{Blocked: true, Signal: signalEmptyContent, Confidence: 60, Reason: "too little text content after stripping markup"}
	}

	return lowQualityResult{}
}

func checkTextContentRatio(content string) lowQualityResult {
	text := stripHTML(content)
	textLength := len(text)
	htmlLength := len(content)
	linkCount := len(linkTagRegex.FindAllString(content, -1))

	if textLength < 500 && linkCount > 5 && textLength < 300 {
		return lowQualityResult{Blocked: true, Signal: signalJavaScriptNeeded, Confidence: 75, Reason: "short text dominated by navigation/footer links"}
	}
	if htmlLength > 1000 && float64(textLength)/float64(htmlLength) < 0.02 {
		return lowQualityResult{Blocked: true, Signal: signalJavaScriptNeeded, Confidence: 70, Reason: "low text-to-markup ratio"}
	}
	return lowQualityResult{}
}

func stripHTML(body string) string {
	s := scriptRegex.ReplaceAllString(body, " ")
	s = styleRegex.ReplaceAllString(s, " ")
	s = noscriptRegex.ReplaceAllString(s, " ")
	s = htmlTagRegex.ReplaceAllString(s, " ")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
