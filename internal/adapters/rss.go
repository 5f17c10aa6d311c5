package adapters

import (
	"encoding/xml"
	"net/url"
	"strings"
	"time"

	"github.com/mkochhar/jobops/internal/models"
)

// rssFeed and atomFeed are the two feed shapes spec.md §4.3 names.
// There is no feed-parsing library anywhere in the retrieval pack, so this
// adapter decodes both formats directly with the standard library.
type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	Summary string `xml:"description"`
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
	Links   []struct {
		Href string `xml:"href,attr"`
		Rel  string `xml:"rel,attr"`
	} `xml:"link"`
}

// wrapperRedirectParams are common link-shortener/tracking redirect params
// an RSS item's <link> may carry instead of the direct job URL.
var wrapperRedirectParams = []string{"url", "q", "redirect", "u"}

const maxRedirectUnwraps = 3

// ParseRSS decodes an RSS 2.0 or Atom feed body into CandidateEnvelopes,
// following common wrapper-redirect params and applying allow/block keyword
// filters against title||summary, per spec.md §4.3.
func ParseRSS(body []byte, allowKeywords, blockKeywords []string, now time.Time) []models.CandidateEnvelope {
	if items, ok := tryParseRSS2(body); ok {
		return buildEnvelopes(items, allowKeywords, blockKeywords, now)
	}
	if items, ok := tryParseAtom(body); ok {
		return buildEnvelopes(items, allowKeywords, blockKeywords, now)
	}
	return nil
}

type feedItem struct {
	title   string
	summary string
	link    string
}

func tryParseRSS2(body []byte) ([]feedItem, bool) {
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil || len(feed.Channel.Items) == 0 {
		return nil, false
	}
	items := make([]feedItem, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		items = append(items, feedItem{title: it.Title, summary: it.Summary, link: it.Link})
	}
	return items, true
}

func tryParseAtom(body []byte) ([]feedItem, bool) {
	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil || len(feed.Entries) == 0 {
		return nil, false
	}
	items := make([]feedItem, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		link := ""
		for _, l := range e.Links {
			if l.Rel == "" || l.Rel == "alternate" {
				link = l.Href
				break
			}
		}
		items = append(items, feedItem{title: e.Title, summary: e.Summary, link: link})
	}
	return items, true
}

func buildEnvelopes(items []feedItem, allowKeywords, blockKeywords []string, now time.Time) []models.CandidateEnvelope {
	envelopes := make([]models.CandidateEnvelope, 0, len(items))
	for _, it := range items {
		if it.link == "" {
			continue
		}
		haystack := strings.ToLower(it.title + " " + it.summary)
		if !passesKeywordFilters(haystack, allowKeywords, blockKeywords) {
			continue
		}

		link := unwrapRedirect(it.link)
		envelopes = append(envelopes, models.CandidateEnvelope{
			Source:          models.SourceRSS,
			RawURL:          link,
			CanonicalJob:    models.CanonicalJob{Title: it.title, Description: it.summary, JobURL: link},
			IngestTimestamp: now,
		})
	}
	return envelopes
}

func passesKeywordFilters(haystack string, allow, block []string) bool {
	for _, kw := range block {
		if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
			return false
		}
	}
	if len(allow) == 0 {
		return true
	}
	for _, kw := range allow {
		if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// unwrapRedirect follows common wrapper-redirect query params up to a
// bounded budget, e.g. a tracking link whose ?url=<actual> points at the
// real posting.
func unwrapRedirect(link string) string {
	current := link
	for i := 0; i < maxRedirectUnwraps; i++ {
		u, err := url.Parse(current)
		if err != nil {
			return current
		}
		q := u.Query()
		next := ""
		for _, p := range wrapperRedirectParams {
			if v := q.Get(p); v != "" {
				next = v
				break
			}
		}
		if next == "" {
			return current
		}
		decoded, err := url.QueryUnescape(next)
		if err != nil {
			return current
		}
		current = decoded
	}
	return current
}
