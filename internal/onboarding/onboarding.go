// Package onboarding provisions a private ledger for a new sender from
// the email address they send in.
package onboarding

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/spendtrace/spendtrace/internal/directory"
)

const sheetLinkPrefix = "https://docs.google.com/spreadsheets/d/"

// Provisioner creates a new ledger spreadsheet shared with the user.
type Provisioner interface {
	ProvisionLedger(ctx context.Context, email, phoneNumber string) (spreadsheetID string, err error)
}

// Replier sends a text message to a sender.
type Replier interface {
	SendText(ctx context.Context, to, text string) error
}

// Workflow runs the onboarding sequence. It is idempotent per sender:
// an already-registered phone number gets its existing ledger link back
// with no provisioning call.
type Workflow struct {
	dir     *directory.Store
	prov    Provisioner
	replier Replier
	log     zerolog.Logger
}

// NewWorkflow wires the onboarding workflow.
func NewWorkflow(dir *directory.Store, prov Provisioner, replier Replier, log zerolog.Logger) *Workflow {
	return &Workflow{dir: dir, prov: prov, replier: replier, log: log}
}

// Run onboards a sender. Each step's failure aborts the remaining steps
// and is surfaced to the sender; nothing is retried automatically.
func (w *Workflow) Run(ctx context.Context, phoneNumber, email string) {
	existing, err := w.dir.Lookup(phoneNumber)
	if err != nil {
		w.log.Error().Err(err).Str("sender", phoneNumber).Msg("Onboarding directory lookup failed")
		w.reply(ctx, phoneNumber, "❌ Setup failed: "+err.Error())
		return
	}
	if existing != nil {
		w.log.Info().Str("sender", phoneNumber).Msg("Sender already onboarded")
		w.reply(ctx, phoneNumber, "✅ You already have a ledger:\n"+sheetLinkPrefix+existing.SpreadsheetID)
		return
	}

	if err := w.replier.SendText(ctx, phoneNumber, "⚙️ Provisioning your private ledger..."); err != nil {
		w.log.Error().Err(err).Str("sender", phoneNumber).Msg("Onboarding ack failed")
		return
	}

	sheetID, err := w.prov.ProvisionLedger(ctx, email, phoneNumber)
	if err != nil {
		w.log.Error().Err(err).Str("sender", phoneNumber).Msg("Ledger provisioning failed")
		w.reply(ctx, phoneNumber, "❌ Setup failed: "+err.Error())
		return
	}

	if err := w.dir.Register(phoneNumber, sheetID, email); err != nil {
		w.log.Error().Err(err).Str("sender", phoneNumber).Msg("Directory registration failed")
		w.reply(ctx, phoneNumber, "❌ Setup failed: "+err.Error())
		return
	}

	w.log.Info().
		Str("sender", phoneNumber).
		Str("spreadsheet_id", sheetID).
		Msg("Sender onboarded")
	w.reply(ctx, phoneNumber, "✅ *Success!* Your ledger is ready:\n"+sheetLinkPrefix+sheetID)
}

func (w *Workflow) reply(ctx context.Context, to, text string) {
	if err := w.replier.SendText(ctx, to, text); err != nil {
		w.log.Error().Err(err).Str("sender", to).Msg("Failed to send onboarding reply")
	}
}
