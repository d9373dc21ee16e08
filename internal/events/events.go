// Package events defines the inbound webhook envelope and the parser
// that turns a raw payload into a typed InboundEvent.
package events

import (
	"encoding/json"
	"errors"
)

// MessageKind is the type of an inbound message.
type MessageKind string

const (
	// KindAudio is a voice note carrying a media reference.
	KindAudio MessageKind = "audio"
	// KindText is a plain text message.
	KindText MessageKind = "text"
)

// SentinelMessageID stands in for an absent or malformed message id so
// the dedup gate still has a key to test.
const SentinelMessageID = "default_id"

var (
	// ErrMalformedPayload marks a payload with no usable entry/change/message.
	ErrMalformedPayload = errors.New("events: malformed payload")

	// ErrStatusPayload marks a delivery-receipt payload, which carries no
	// message and is ignored.
	ErrStatusPayload = errors.New("events: status payload")

	// ErrUnsupportedKind marks a message type other than audio or text.
	ErrUnsupportedKind = errors.New("events: unsupported message kind")
)

// InboundEvent is one parsed inbound message. It is constructed per
// request and discarded after dispatch.
type InboundEvent struct {
	MessageID string      `json:"message_id"`
	SenderID  string      `json:"sender_id"`
	Kind      MessageKind `json:"kind"`

	// AudioRef is the provider media id, set for audio events.
	AudioRef string `json:"audio_ref,omitempty"`

	// TextBody is the message text, set for text events.
	TextBody string `json:"text_body,omitempty"`
}

// envelope mirrors the provider's nested webhook payload.
type envelope struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []message        `json:"messages"`
				Statuses []json.RawMessage `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type message struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	Type  string `json:"type"`
	Audio *struct {
		ID string `json:"id"`
	} `json:"audio"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
}

// Parse extracts at most one InboundEvent from a raw webhook payload.
// Only the first entry/change/message is considered, matching provider
// delivery semantics.
func Parse(raw []byte) (*InboundEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrMalformedPayload
	}

	if len(env.Entry) == 0 || len(env.Entry[0].Changes) == 0 {
		return nil, ErrMalformedPayload
	}
	value := env.Entry[0].Changes[0].Value

	if len(value.Statuses) > 0 {
		return nil, ErrStatusPayload
	}
	if len(value.Messages) == 0 {
		return nil, ErrMalformedPayload
	}

	msg := value.Messages[0]
	if msg.From == "" {
		return nil, ErrMalformedPayload
	}

	ev := &InboundEvent{
		MessageID: msg.ID,
		SenderID:  msg.From,
	}
	if ev.MessageID == "" {
		ev.MessageID = SentinelMessageID
	}

	switch msg.Type {
	case "audio":
		if msg.Audio == nil || msg.Audio.ID == "" {
			return nil, ErrMalformedPayload
		}
		ev.Kind = KindAudio
		ev.AudioRef = msg.Audio.ID
	case "text":
		if msg.Text == nil {
			return nil, ErrMalformedPayload
		}
		ev.Kind = KindText
		ev.TextBody = msg.Text.Body
	default:
		return nil, ErrUnsupportedKind
	}

	return ev, nil
}
