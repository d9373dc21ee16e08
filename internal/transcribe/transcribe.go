// Package transcribe converts voice-note audio to text through Groq's
// OpenAI-compatible whisper endpoint.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"
)

const (
	groqBaseURL  = "https://api.groq.com/openai/v1"
	whisperModel = "whisper-large-v3"

	// maxAttempts and retryWait implement the fixed retry policy: up to
	// three attempts spaced one second apart, no jitter, no backoff.
	maxAttempts = 3
	retryWait   = time.Second
)

// ErrEmptyTranscript marks a 2xx response whose text field is absent.
// It consumes a retry attempt like any transport error.
var ErrEmptyTranscript = errors.New("transcribe: response missing text")

// TranscriptionError is returned once all attempts are exhausted. Err is
// the final attempt's failure, verbatim.
type TranscriptionError struct {
	Attempts int
	Err      error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcribe: %d attempts exhausted: %v", e.Attempts, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// api is the raw single-attempt transcription call. Kept as an interface
// so tests can drive the retry loop without the network.
type api interface {
	transcribe(ctx context.Context, audio []byte) (string, error)
}

type groqAPI struct {
	client openai.Client
}

func (g *groqAPI) transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := g.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "audio.ogg", "audio/ogg"),
		Model: whisperModel,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: groq request: %w", err)
	}
	return resp.Text, nil
}

// Transcriber runs whisper transcription with the fixed retry policy.
type Transcriber struct {
	api      api
	attempts int
	wait     time.Duration
	log      zerolog.Logger
}

// NewTranscriber creates a transcriber backed by the Groq API.
func NewTranscriber(apiKey string, log zerolog.Logger) *Transcriber {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(groqBaseURL),
	)
	return &Transcriber{
		api:      &groqAPI{client: client},
		attempts: maxAttempts,
		wait:     retryWait,
		log:      log,
	}
}

// Transcribe converts audio bytes to text. Each failed attempt, transport
// or malformed response alike, waits the fixed interval before the next;
// the last attempt's error is surfaced inside a *TranscriptionError.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= t.attempts; attempt++ {
		text, err := t.api.transcribe(ctx, audio)
		if err == nil && text == "" {
			err = ErrEmptyTranscript
		}
		if err == nil {
			return text, nil
		}

		lastErr = err
		t.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", t.attempts).
			Msg("Transcription attempt failed")

		if attempt < t.attempts {
			select {
			case <-time.After(t.wait):
			case <-ctx.Done():
				return "", &TranscriptionError{Attempts: attempt, Err: ctx.Err()}
			}
		}
	}

	return "", &TranscriptionError{Attempts: t.attempts, Err: lastErr}
}
