package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/spendtrace/spendtrace/internal/dedup"
	"github.com/spendtrace/spendtrace/internal/events"
	"github.com/spendtrace/spendtrace/internal/jobs"
	"github.com/spendtrace/spendtrace/internal/logger"
)

// ackBody is the acknowledgement the provider expects for every
// accepted POST, regardless of what happens downstream.
const ackBody = "EVENT_RECEIVED"

// WebhookHandler handles the provider webhook endpoints. It logs
// through the request-scoped logger installed by the middleware chain.
type WebhookHandler struct {
	verifyToken string
	gate        *dedup.Gate
	publisher   jobs.Publisher
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(verifyToken string, gate *dedup.Gate, publisher jobs.Publisher) *WebhookHandler {
	return &WebhookHandler{
		verifyToken: verifyToken,
		gate:        gate,
		publisher:   publisher,
	}
}

// Verify handles GET /webhook, the provider's subscription handshake.
// The challenge is echoed verbatim only when mode and token both match.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		log.Info().Msg("Webhook verified")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, challenge)
		return
	}

	log.Warn().Str("mode", mode).Msg("Webhook verification rejected")
	w.WriteHeader(http.StatusBadRequest)
	io.WriteString(w, "Verification failed")
}

// Receive handles POST /webhook. It parses, deduplicates, publishes,
// and acks within the request. Every reachable path returns 200 so the
// provider never retries a payload we have already seen.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read webhook body")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, ackBody)
		return
	}

	ev, err := events.Parse(body)
	if err != nil {
		switch {
		case errors.Is(err, events.ErrStatusPayload):
			log.Debug().Msg("Ignoring status payload")
		case errors.Is(err, events.ErrUnsupportedKind):
			log.Debug().Msg("Ignoring unsupported message kind")
		default:
			log.Warn().Err(err).Msg("Ignoring malformed webhook payload")
		}
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, ackBody)
		return
	}

	if !h.gate.MarkIfNew(ev.MessageID) {
		log.Info().Str("message_id", ev.MessageID).Msg("Duplicate event dropped")
		w.WriteHeader(http.StatusOK)
		return
	}

	job := &jobs.ProcessEventJob{Event: *ev}
	if err := h.publisher.PublishProcessEvent(r.Context(), job); err != nil {
		// The event is already marked seen; a publish failure means it
		// is lost, which at-most-once delivery permits. Log loudly.
		log.Error().
			Err(err).
			Str("message_id", ev.MessageID).
			Msg("Failed to publish event job")
	} else {
		log.Info().
			Str("message_id", ev.MessageID).
			Str("sender", ev.SenderID).
			Str("kind", string(ev.Kind)).
			Msg("Event accepted")
	}

	w.WriteHeader(http.StatusOK)
	io.WriteString(w, ackBody)
}

// Health handles GET /health.
func (h *WebhookHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, `{"status":"ok"}`)
}
