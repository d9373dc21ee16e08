package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/spendtrace/spendtrace/internal/dedup"
	"github.com/spendtrace/spendtrace/internal/events"
	"github.com/spendtrace/spendtrace/internal/jobs"
	"github.com/spendtrace/spendtrace/internal/logger"
)

// newRequest builds a request carrying a silent context logger, the way
// the middleware chain would for a real request.
func newRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	ctx := logger.WithContext(req.Context(), zerolog.Nop())
	return req.WithContext(ctx)
}

type fakePublisher struct {
	published []*jobs.ProcessEventJob
	err       error
}

func (f *fakePublisher) PublishProcessEvent(ctx context.Context, job *jobs.ProcessEventJob) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, job)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func newTestHandler(t *testing.T) (*WebhookHandler, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	h := NewWebhookHandler("secret-token", dedup.New(time.Hour), pub)
	return h, pub
}

const audioPayload = `{
	"entry": [{
		"changes": [{
			"value": {
				"messages": [{
					"id": "wamid.audio1",
					"from": "15551234567",
					"type": "audio",
					"audio": {"id": "media-1"}
				}]
			}
		}]
	}]
}`

func TestVerify(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid handshake echoes challenge",
			query:      "hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345",
			wantStatus: 200,
			wantBody:   "12345",
		},
		{
			name:       "wrong token rejected",
			query:      "hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345",
			wantStatus: 400,
			wantBody:   "Verification failed",
		},
		{
			name:       "wrong mode rejected",
			query:      "hub.mode=unsubscribe&hub.verify_token=secret-token&hub.challenge=12345",
			wantStatus: 400,
			wantBody:   "Verification failed",
		},
		{
			name:       "missing params rejected",
			query:      "",
			wantStatus: 400,
			wantBody:   "Verification failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t)
			req := newRequest("GET", "/webhook?"+tt.query, nil)
			rec := httptest.NewRecorder()

			h.Verify(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Body.String(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestReceivePublishesAudioEvent(t *testing.T) {
	h, pub := newTestHandler(t)
	req := newRequest("POST", "/webhook", strings.NewReader(audioPayload))
	rec := httptest.NewRecorder()

	h.Receive(rec, req)

	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != ackBody {
		t.Errorf("body = %q, want %q", rec.Body.String(), ackBody)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d jobs, want 1", len(pub.published))
	}
	job := pub.published[0]
	if job.Event.MessageID != "wamid.audio1" || job.Event.Kind != events.KindAudio {
		t.Errorf("published event = %+v", job.Event)
	}
	if job.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, event jobs must not retry", job.MaxRetries)
	}
}

func TestReceiveDropsDuplicate(t *testing.T) {
	h, pub := newTestHandler(t)

	for i := 0; i < 2; i++ {
		req := newRequest("POST", "/webhook", strings.NewReader(audioPayload))
		rec := httptest.NewRecorder()
		h.Receive(rec, req)
		if rec.Code != 200 {
			t.Fatalf("delivery %d: status = %d, want 200", i, rec.Code)
		}
	}

	if len(pub.published) != 1 {
		t.Errorf("published %d jobs, want 1 (duplicate dropped)", len(pub.published))
	}
}

func TestReceiveIgnoresNonMessagePayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"status payload", `{"entry":[{"changes":[{"value":{"statuses":[{"id":"x"}]}}]}]}`},
		{"unsupported kind", `{"entry":[{"changes":[{"value":{"messages":[{"id":"m1","from":"155","type":"image"}]}}]}]}`},
		{"malformed json", `{not json`},
		{"empty entry", `{"entry":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, pub := newTestHandler(t)
			req := newRequest("POST", "/webhook", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.Receive(rec, req)

			if rec.Code != 200 {
				t.Errorf("status = %d, want 200", rec.Code)
			}
			if rec.Body.String() != ackBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), ackBody)
			}
			if len(pub.published) != 0 {
				t.Errorf("published %d jobs, want 0", len(pub.published))
			}
		})
	}
}

func TestReceiveAcksOnPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: context.DeadlineExceeded}
	h := NewWebhookHandler("secret-token", dedup.New(time.Hour), pub)

	req := newRequest("POST", "/webhook", strings.NewReader(audioPayload))
	rec := httptest.NewRecorder()
	h.Receive(rec, req)

	if rec.Code != 200 {
		t.Errorf("status = %d, want 200 even when publish fails", rec.Code)
	}
	if rec.Body.String() != ackBody {
		t.Errorf("body = %q, want %q", rec.Body.String(), ackBody)
	}
}

func TestReceiveMissingIDUsesSentinel(t *testing.T) {
	payload := `{"entry":[{"changes":[{"value":{"messages":[{"from":"155","type":"text","text":{"body":"hi"}}]}}]}]}`
	h, pub := newTestHandler(t)

	req := newRequest("POST", "/webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Receive(rec, req)

	if len(pub.published) != 1 {
		t.Fatalf("published %d jobs, want 1", len(pub.published))
	}
	if got := pub.published[0].Event.MessageID; got != events.SentinelMessageID {
		t.Errorf("MessageID = %q, want sentinel", got)
	}

	// A second id-less message within the window collides on the sentinel.
	rec = httptest.NewRecorder()
	h.Receive(rec, newRequest("POST", "/webhook", strings.NewReader(payload)))
	if len(pub.published) != 1 {
		t.Errorf("published %d jobs, want 1 (sentinel collision)", len(pub.published))
	}
}
