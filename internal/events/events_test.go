package events

import (
	"errors"
	"testing"
)

func wrap(message string) string {
	return `{"entry":[{"changes":[{"value":{"messages":[` + message + `]}}]}]}`
}

func TestParse_Audio(t *testing.T) {
	raw := wrap(`{"id":"wamid.A1","from":"15551234567","type":"audio","audio":{"id":"media-9"}}`)

	ev, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if ev.Kind != KindAudio {
		t.Errorf("Kind = %q, want audio", ev.Kind)
	}
	if ev.MessageID != "wamid.A1" {
		t.Errorf("MessageID = %q", ev.MessageID)
	}
	if ev.SenderID != "15551234567" {
		t.Errorf("SenderID = %q", ev.SenderID)
	}
	if ev.AudioRef != "media-9" {
		t.Errorf("AudioRef = %q", ev.AudioRef)
	}
}

func TestParse_Text(t *testing.T) {
	raw := wrap(`{"id":"wamid.T1","from":"15551234567","type":"text","text":{"body":"user@example.com"}}`)

	ev, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if ev.Kind != KindText {
		t.Errorf("Kind = %q, want text", ev.Kind)
	}
	if ev.TextBody != "user@example.com" {
		t.Errorf("TextBody = %q", ev.TextBody)
	}
}

func TestParse_MissingIDGetsSentinel(t *testing.T) {
	raw := wrap(`{"from":"15551234567","type":"text","text":{"body":"hi"}}`)

	ev, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if ev.MessageID != SentinelMessageID {
		t.Errorf("MessageID = %q, want sentinel %q", ev.MessageID, SentinelMessageID)
	}
}

func TestParse_StatusPayloadIgnored(t *testing.T) {
	raw := `{"entry":[{"changes":[{"value":{"statuses":[{"id":"wamid.S1","status":"delivered"}]}}]}]}`

	_, err := Parse([]byte(raw))
	if !errors.Is(err, ErrStatusPayload) {
		t.Errorf("Parse() error = %v, want ErrStatusPayload", err)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `<xml/>`},
		{"empty object", `{}`},
		{"no changes", `{"entry":[{}]}`},
		{"no messages", `{"entry":[{"changes":[{"value":{}}]}]}`},
		{"audio without media ref", wrap(`{"id":"m","from":"1555","type":"audio"}`)},
		{"text without body object", wrap(`{"id":"m","from":"1555","type":"text"}`)},
		{"missing sender", wrap(`{"id":"m","type":"text","text":{"body":"hi"}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("Parse() error = %v, want ErrMalformedPayload", err)
			}
		})
	}
}

func TestParse_UnsupportedKind(t *testing.T) {
	raw := wrap(`{"id":"wamid.I1","from":"1555","type":"image"}`)

	_, err := Parse([]byte(raw))
	if !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("Parse() error = %v, want ErrUnsupportedKind", err)
	}
}

func TestParse_FirstMessageOnly(t *testing.T) {
	raw := `{"entry":[{"changes":[{"value":{"messages":[` +
		`{"id":"wamid.first","from":"1555","type":"text","text":{"body":"a"}},` +
		`{"id":"wamid.second","from":"1555","type":"text","text":{"body":"b"}}` +
		`]}}]}]}`

	ev, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if ev.MessageID != "wamid.first" {
		t.Errorf("MessageID = %q, want wamid.first", ev.MessageID)
	}
}
