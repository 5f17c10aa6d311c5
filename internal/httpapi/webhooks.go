package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/mkochhar/jobops/internal/adapters"
	"github.com/mkochhar/jobops/internal/apperr"
	"github.com/mkochhar/jobops/internal/models"
)

// chatWebhookBody is the inbound relay's JSON shape for one chat message.
type chatWebhookBody struct {
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
	MediaMIME string `json:"media_mime,omitempty"`
	Caption   string `json:"caption,omitempty"`
}

// newChatWebhookHandler registers the supplemented /webhooks/chat route
// (spec.md's overview names chat/WhatsApp as an ingest source; §6's route
// table doesn't enumerate a webhook endpoint for it, so this fills that
// gap). Signature-verified like the teacher's Clerk webhook handler
// (router.Post with a raw net/http.HandlerFunc, not a huma route, since the
// signature check needs the raw body before any JSON decoding).
func newChatWebhookHandler(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
		if err != nil {
			writeEnvelopeError(w, apperr.Validation("body_read_failed", "could not read request body", err))
			return
		}

		if err := deps.ChatVerifier.Verify(r.Header, body); err != nil {
			writeEnvelopeError(w, apperr.AuthRequired())
			return
		}

		var msg chatWebhookBody
		if err := json.Unmarshal(body, &msg); err != nil {
			writeEnvelopeError(w, apperr.Validation("invalid_body", "body is not valid JSON", err))
			return
		}

		envelope := adapters.Chat(adapters.ChatMessage{
			MessageID: msg.MessageID,
			Text:      msg.Text,
			MediaMIME: msg.MediaMIME,
			Caption:   msg.Caption,
		}, time.Now().UTC())

		result, err := deps.Orchestrator.Ingest(r.Context(), []models.CandidateEnvelope{envelope})
		if err != nil {
			writeEnvelopeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = writeJSON(w, map[string]any{"ok": true, "data": result})
	}
}
