// Package canonical implements the Canonicalizer (C1): pure, I/O-free
// normalization of a raw job URL into a canonical form plus its stable
// job_key, per spec.md §4.1.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Result is the outcome of Canonicalize: either ignored, or a canonical job.
type Result struct {
	Ignored      bool
	JobURL       string
	JobKey       string
	SourceDomain string
	ExternalID   string
}

// trackingParamAllowlist are the only query parameters a generic host keeps.
var trackingParamAllowlist = map[string]bool{
	"id": true, "jobid": true, "job_id": true, "ref": true,
}

var linkedinViewRe = regexp.MustCompile(`^/jobs/view/(\d+)/?$`)
var iimjobsRe = regexp.MustCompile(`^/j/([a-z0-9-]+)-(\d+)\.html$`)
var naukriRe = regexp.MustCompile(`job-listings-([a-z0-9-]+)-(\d+)$`)

// AllowGenericHosts, when non-nil, restricts which unrecognized hosts are
// accepted via the generic rule instead of being ignored. A nil/empty set
// means "generic rule applies to any host not explicitly ignored".
type AllowGenericHosts map[string]bool

// Canonicalize normalizes a raw URL per spec.md §4.1's host-family rules.
func Canonicalize(rawURL string, allowGeneric AllowGenericHosts) Result {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return Result{Ignored: true}
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")

	switch {
	case host == "linkedin.com":
		if m := linkedinViewRe.FindStringSubmatch(u.Path); m != nil {
			id := m[1]
			canon := fmt.Sprintf("https://www.linkedin.com/jobs/view/%s/", id)
			return buildResult(canon, "linkedin.com", id)
		}
		return Result{Ignored: true}

	case host == "iimjobs.com":
		if m := iimjobsRe.FindStringSubmatch(u.Path); m != nil {
			slug, id := m[1], m[2]
			canon := fmt.Sprintf("https://www.iimjobs.com/j/%s-%s.html", slug, id)
			return buildResult(canon, "iimjobs.com", id)
		}
		return Result{Ignored: true}

	case host == "naukri.com":
		if m := naukriRe.FindStringSubmatch(u.Path); m != nil {
			id := m[2]
			canon := "https://www.naukri.com" + u.Path
			return buildResult(canon, "naukri.com", id)
		}
		return Result{Ignored: true}

	default:
		if len(allowGeneric) > 0 && !allowGeneric[host] {
			return Result{Ignored: true}
		}
		canon := genericCanonicalize(u, host)
		return buildResult(canon, host, "")
	}
}

// genericCanonicalize strips tracking query params (allowlist only), drops
// the fragment, lowercases the host, and trims a trailing slash.
func genericCanonicalize(u *url.URL, host string) string {
	q := u.Query()
	kept := url.Values{}
	for k, v := range q {
		if trackingParamAllowlist[strings.ToLower(k)] {
			kept[k] = v
		}
	}

	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}

	path := strings.TrimSuffix(u.Path, "/")

	out := &url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     path,
		RawQuery: kept.Encode(),
	}
	return out.String()
}

func buildResult(canonicalURL, sourceDomain, externalID string) Result {
	return Result{
		JobURL:       canonicalURL,
		JobKey:       JobKey(canonicalURL),
		SourceDomain: sourceDomain,
		ExternalID:   externalID,
	}
}

// JobKey derives the stable identifier for a canonical URL: the lowercased
// hex of a truncated SHA-256 digest (128 bits is ample for collision
// avoidance at this scale, per spec.md §4.1).
func JobKey(canonicalURL string) string {
	sum := sha256.Sum256([]byte(canonicalURL))
	return hex.EncodeToString(sum[:16])
}

// ParseNumericID parses s as a base-10 int64, reporting whether it is purely
// numeric. No host rule in this package calls it.
func ParseNumericID(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
