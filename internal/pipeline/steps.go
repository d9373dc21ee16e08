package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/spendtrace/spendtrace/internal/events"
	"github.com/spendtrace/spendtrace/internal/intent"
)

// Step represents a single step in the voice-note workflow.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State holds the shared state across all workflow steps.
type State struct {
	Event      events.InboundEvent
	SheetID    string
	Audio      []byte
	Transcript string
	Intent     intent.Intent
	Reply      string
}

// FetchAudioStep resolves the media reference and downloads the bytes.
type FetchAudioStep struct {
	Media MediaFetcher
}

func (s *FetchAudioStep) Execute(ctx context.Context, state *State) error {
	url, err := s.Media.MediaURL(ctx, state.Event.AudioRef)
	if err != nil {
		return fmt.Errorf("fetch audio: %w", err)
	}
	audio, err := s.Media.DownloadMedia(ctx, url)
	if err != nil {
		return fmt.Errorf("fetch audio: %w", err)
	}
	state.Audio = audio
	return nil
}

// TranscribeStep converts the audio bytes to text.
type TranscribeStep struct {
	Transcriber Transcriber
}

func (s *TranscribeStep) Execute(ctx context.Context, state *State) error {
	text, err := s.Transcriber.Transcribe(ctx, state.Audio)
	if err != nil {
		return err
	}
	state.Transcript = text
	return nil
}

// ClassifyStep maps the transcript to an Intent.
type ClassifyStep struct {
	Classifier Classifier
	Now        func() time.Time
}

func (s *ClassifyStep) Execute(ctx context.Context, state *State) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	in, err := s.Classifier.Classify(ctx, state.Transcript, now())
	if err != nil {
		return err
	}
	state.Intent = in
	return nil
}

// DispatchStep executes the ledger operation implied by the Intent and
// records the user-facing reply.
type DispatchStep struct {
	Ledger Ledger
}

func (s *DispatchStep) Execute(ctx context.Context, state *State) error {
	reply, err := dispatchIntent(ctx, s.Ledger, state.SheetID, state.Intent)
	if err != nil {
		return err
	}
	state.Reply = reply
	return nil
}

// dispatchIntent is pure routing over the ledger surface. Irrelevant and
// Unknown intents mutate nothing and yield a help message.
func dispatchIntent(ctx context.Context, ledger Ledger, sheetID string, in intent.Intent) (string, error) {
	switch v := in.(type) {
	case intent.LogExpense:
		return ledger.LogExpense(ctx, sheetID, v.Record)
	case intent.QuerySpending:
		reply, err := ledger.QuerySpending(ctx, sheetID, v)
		if err != nil {
			return "", err
		}
		return "🔍 *CFO Report:* " + reply, nil
	case intent.EditExpense:
		return ledger.EditExpense(ctx, sheetID, v)
	case intent.UndoLast:
		return ledger.UndoLast(ctx, sheetID)
	case intent.Irrelevant:
		return helpReply, nil
	default:
		return helpReply, nil
	}
}

// chain executes steps in order, stopping at the first failure.
type chain struct {
	steps []Step
}

func newChain(steps ...Step) *chain {
	return &chain{steps: steps}
}

func (c *chain) Execute(ctx context.Context, state *State) error {
	for _, step := range c.steps {
		if err := step.Execute(ctx, state); err != nil {
			return err
		}
	}
	return nil
}
