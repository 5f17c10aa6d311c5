package adapters

import (
	"net/http"
	"regexp"
	"time"

	svix "github.com/svix/svix-webhooks/go"

	"github.com/mkochhar/jobops/internal/models"
)

var messageURLRegex = regexp.MustCompile(`https?://[^\s]+`)

// ChatMessage is one inbound chat-webhook message (e.g. WhatsApp/Telegram
// relay), possibly carrying a media attachment instead of a URL.
type ChatMessage struct {
	MessageID string
	Text      string
	MediaMIME string
	Caption   string
}

// ChatVerifier verifies inbound webhook signatures using the same
// HMAC-over-timestamp-and-body scheme the teacher uses for outbound webhook
// delivery signing, repurposed here for inbound verification.
type ChatVerifier struct {
	webhook *svix.Webhook
}

// NewChatVerifier builds a verifier from the shared webhook secret.
func NewChatVerifier(secret string) (*ChatVerifier, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, err
	}
	return &ChatVerifier{webhook: wh}, nil
}

// Verify checks the inbound request's signature headers against the body.
func (v *ChatVerifier) Verify(headers http.Header, body []byte) error {
	return v.webhook.Verify(body, headers)
}

// Chat maps an inbound chat message to a CandidateEnvelope per spec.md
// §4.3: extract a URL from the text, or — if absent and media is present —
// emit a synthetic whatsapp://<message_id> job URL and record the media's
// MIME type and caption on the envelope. The media itself is not queued for
// OCR or read anywhere here.
func Chat(msg ChatMessage, now time.Time) models.CandidateEnvelope {
	if u := messageURLRegex.FindString(msg.Text); u != "" {
		return models.CandidateEnvelope{
			Source:          models.SourceChat,
			RawURL:          u,
			CanonicalJob:    models.CanonicalJob{JobURL: u},
			IngestTimestamp: now,
		}
	}

	if msg.MediaMIME != "" {
		syntheticURL := "whatsapp://" + msg.MessageID
		return models.CandidateEnvelope{
			Source:          models.SourceChat,
			RawURL:          syntheticURL,
			CanonicalJob:    models.CanonicalJob{JobURL: syntheticURL},
			MediaMimeType:   msg.MediaMIME,
			MediaCaption:    msg.Caption,
			IngestTimestamp: now,
		}
	}

	return models.CandidateEnvelope{
		Source:          models.SourceChat,
		IngestTimestamp: now,
	}
}
