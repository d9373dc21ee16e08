// Package pipeline runs the asynchronous per-event workflow: ledger
// lookup, media fetch, transcription, classification, and dispatch, with
// every failure path ending in a best-effort reply.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/spendtrace/spendtrace/internal/classifier"
	"github.com/spendtrace/spendtrace/internal/directory"
	"github.com/spendtrace/spendtrace/internal/events"
	"github.com/spendtrace/spendtrace/internal/intent"
	"github.com/spendtrace/spendtrace/internal/transcribe"
)

const (
	welcomeReply = "👋 Welcome! I don't have a ledger for you yet. Please reply with your *email address* to set one up."
	helpReply    = "👋 I am your AI CFO. Send me voice notes to log expenses!"
)

// Directory resolves a sender to their ledger.
type Directory interface {
	Lookup(phoneNumber string) (*directory.User, error)
}

// MediaFetcher resolves and downloads provider media.
type MediaFetcher interface {
	MediaURL(ctx context.Context, mediaID string) (string, error)
	DownloadMedia(ctx context.Context, url string) ([]byte, error)
}

// Transcriber converts audio bytes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Classifier maps text to an Intent.
type Classifier interface {
	Classify(ctx context.Context, text string, today time.Time) (intent.Intent, error)
}

// Ledger performs the ledger operations.
type Ledger interface {
	LogExpense(ctx context.Context, sheetID string, rec intent.ExpenseRecord) (string, error)
	QuerySpending(ctx context.Context, sheetID string, q intent.QuerySpending) (string, error)
	EditExpense(ctx context.Context, sheetID string, e intent.EditExpense) (string, error)
	UndoLast(ctx context.Context, sheetID string) (string, error)
}

// Replier sends a text message to a sender.
type Replier interface {
	SendText(ctx context.Context, to, text string) error
}

// Onboarder provisions a ledger for a new sender.
type Onboarder interface {
	Run(ctx context.Context, phoneNumber, email string)
}

// Workflow processes accepted inbound events.
type Workflow struct {
	dir         Directory
	media       MediaFetcher
	transcriber Transcriber
	classifier  Classifier
	ledger      Ledger
	replier     Replier
	onboarder   Onboarder
	now         func() time.Time
	log         zerolog.Logger
}

// NewWorkflow wires the event workflow.
func NewWorkflow(
	dir Directory,
	media MediaFetcher,
	transcriber Transcriber,
	cls Classifier,
	ledger Ledger,
	replier Replier,
	onboarder Onboarder,
	log zerolog.Logger,
) *Workflow {
	return &Workflow{
		dir:         dir,
		media:       media,
		transcriber: transcriber,
		classifier:  cls,
		ledger:      ledger,
		replier:     replier,
		onboarder:   onboarder,
		now:         time.Now,
		log:         log,
	}
}

// ProcessEvent runs one event to completion. It never returns an error:
// every failure is logged and turned into a best-effort reply, so a
// handled event is never re-delivered.
func (w *Workflow) ProcessEvent(ctx context.Context, ev events.InboundEvent) {
	switch ev.Kind {
	case events.KindText:
		w.processText(ctx, ev)
	case events.KindAudio:
		w.processAudio(ctx, ev)
	default:
		w.log.Warn().Str("kind", string(ev.Kind)).Msg("Dropping event of unknown kind")
	}
}

// processText routes text messages: an email-looking body triggers
// onboarding, anything else gets a pointer at what the bot does.
func (w *Workflow) processText(ctx context.Context, ev events.InboundEvent) {
	if strings.Contains(ev.TextBody, "@") {
		w.onboarder.Run(ctx, ev.SenderID, strings.TrimSpace(ev.TextBody))
		return
	}

	user, err := w.dir.Lookup(ev.SenderID)
	if err != nil {
		w.log.Error().Err(err).Str("sender", ev.SenderID).Msg("Directory lookup failed")
		w.reply(ctx, ev.SenderID, "❌ Error: "+err.Error())
		return
	}
	if user == nil {
		w.reply(ctx, ev.SenderID, welcomeReply)
		return
	}
	w.reply(ctx, ev.SenderID, helpReply)
}

func (w *Workflow) processAudio(ctx context.Context, ev events.InboundEvent) {
	user, err := w.dir.Lookup(ev.SenderID)
	if err != nil {
		w.log.Error().Err(err).Str("sender", ev.SenderID).Msg("Directory lookup failed")
		w.reply(ctx, ev.SenderID, "❌ Error: "+err.Error())
		return
	}
	if user == nil {
		w.reply(ctx, ev.SenderID, welcomeReply)
		return
	}

	state := &State{Event: ev, SheetID: user.SpreadsheetID}
	steps := newChain(
		&FetchAudioStep{Media: w.media},
		&TranscribeStep{Transcriber: w.transcriber},
		&ClassifyStep{Classifier: w.classifier, Now: w.now},
		&DispatchStep{Ledger: w.ledger},
	)

	if err := steps.Execute(ctx, state); err != nil {
		w.log.Error().
			Err(err).
			Str("message_id", ev.MessageID).
			Str("sender", ev.SenderID).
			Msg("Voice note workflow failed")
		w.reply(ctx, ev.SenderID, errorReply(err))
		return
	}

	w.log.Info().
		Str("message_id", ev.MessageID).
		Str("sender", ev.SenderID).
		Str("transcript", state.Transcript).
		Msg("Voice note processed")
	w.reply(ctx, ev.SenderID, state.Reply)
}

// errorReply maps a workflow failure onto the user-facing message.
func errorReply(err error) string {
	var terr *transcribe.TranscriptionError
	if errors.As(err, &terr) {
		return "❌ Sorry, I couldn't transcribe that voice note. Please try again."
	}
	var cerr *classifier.ClassificationError
	if errors.As(err, &cerr) {
		return "❌ Sorry, something went wrong understanding that. Please try again."
	}
	return "❌ Error: " + err.Error()
}

func (w *Workflow) reply(ctx context.Context, to, text string) {
	if err := w.replier.SendText(ctx, to, text); err != nil {
		w.log.Error().Err(err).Str("sender", to).Msg("Failed to send reply")
	}
}
