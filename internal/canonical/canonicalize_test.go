package canonical

import "testing"

func TestCanonicalizeLinkedIn(t *testing.T) {
	r1 := Canonicalize("https://www.linkedin.com/jobs/view/1234567890/?utm=x", nil)
	r2 := Canonicalize("https://linkedin.com/jobs/view/1234567890", nil)

	if r1.Ignored || r2.Ignored {
		t.Fatalf("expected both urls accepted, got r1.Ignored=%v r2.Ignored=%v", r1.Ignored, r2.Ignored)
	}
	if r1.JobKey != r2.JobKey {
		t.Fatalf("expected equal job_key for equivalent urls, got %s vs %s", r1.JobKey, r2.JobKey)
	}
	if r1.JobURL != "https://www.linkedin.com/jobs/view/1234567890/" {
		t.Fatalf("unexpected canonical url: %s", r1.JobURL)
	}
}

func TestCanonicalizeUnknownHostIgnored(t *testing.T) {
	r := Canonicalize("https://random-blog.example.com/post/1", nil)
	if !r.Ignored {
		t.Fatalf("expected unknown host to be ignored")
	}
}

func TestCanonicalizeGenericStripsTracking(t *testing.T) {
	allow := AllowGenericHosts{"jobs.example.com": true}
	r := Canonicalize("https://jobs.example.com/posting/42?utm_source=x&id=42", allow)
	if r.Ignored {
		t.Fatalf("expected generic host to be accepted")
	}
	if r.JobURL != "https://jobs.example.com/posting/42?id=42" {
		t.Fatalf("unexpected canonical url: %s", r.JobURL)
	}
}

func TestJobKeyDeterministic(t *testing.T) {
	k1 := JobKey("https://example.com/a")
	k2 := JobKey("https://example.com/a")
	if k1 != k2 {
		t.Fatalf("expected deterministic job_key")
	}
	if len(k1) != 32 {
		t.Fatalf("expected 16-byte hex job_key (32 chars), got %d", len(k1))
	}
}
