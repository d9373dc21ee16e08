package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spendtrace/spendtrace/internal/intent"
)

type fakeModel struct {
	response string
	err      error
	gotSys   string
	gotUser  string
}

func (f *fakeModel) generate(ctx context.Context, systemPrompt, userText string) (string, error) {
	f.gotSys = systemPrompt
	f.gotUser = userText
	return f.response, f.err
}

func TestClassify_LogExpense(t *testing.T) {
	m := &fakeModel{response: `{"intent":"LOG_EXPENSE","data":{"date":"2025-06-14","item":"Coffee","amount":4.5,"currency":"USD","merchant":"Cafe","category":"Food"}}`}
	c := &Classifier{model: m}

	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	got, err := c.Classify(context.Background(), "yesterday I bought a coffee for 4.50", today)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	log, ok := got.(intent.LogExpense)
	if !ok {
		t.Fatalf("intent = %T, want LogExpense", got)
	}
	if log.Record.Date != "2025-06-14" {
		t.Errorf("Date = %q", log.Record.Date)
	}
}

func TestClassify_PromptCarriesDateAndVocabulary(t *testing.T) {
	m := &fakeModel{response: `{"intent":"UNDO_LAST"}`}
	c := &Classifier{model: m}

	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if _, err := c.Classify(context.Background(), "undo that", today); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if !strings.Contains(m.gotSys, "2025-06-15") {
		t.Error("system prompt should carry today's date")
	}
	for _, cat := range intent.Categories {
		if !strings.Contains(m.gotSys, string(cat)) {
			t.Errorf("system prompt missing category %q", cat)
		}
	}
	if m.gotUser != "undo that" {
		t.Errorf("user text = %q", m.gotUser)
	}
}

func TestClassify_FencedOutputStillDecodes(t *testing.T) {
	m := &fakeModel{response: "```json\n{\"intent\":\"UNDO_LAST\"}\n```"}
	c := &Classifier{model: m}

	got, err := c.Classify(context.Background(), "undo", time.Now())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if _, ok := got.(intent.UndoLast); !ok {
		t.Errorf("intent = %T, want UndoLast", got)
	}
}

func TestClassify_UnparseableOutputIsUnknownNotError(t *testing.T) {
	m := &fakeModel{response: `I think you spent money on coffee?`}
	c := &Classifier{model: m}

	got, err := c.Classify(context.Background(), "mumble", time.Now())
	if err != nil {
		t.Fatalf("Classify() error = %v, unparseable output must not be an error", err)
	}
	if _, ok := got.(intent.Unknown); !ok {
		t.Errorf("intent = %T, want Unknown", got)
	}
}

func TestClassify_TransportFailure(t *testing.T) {
	m := &fakeModel{err: errors.New("connection refused")}
	c := &Classifier{model: m}

	_, err := c.Classify(context.Background(), "coffee", time.Now())
	var cerr *ClassificationError
	if !errors.As(err, &cerr) {
		t.Fatalf("error = %v, want *ClassificationError", err)
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"intent":"UNDO_LAST"}`, `{"intent":"UNDO_LAST"}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading prose", "Here you go: {\"a\":1}", `{"a":1}`},
		{"whitespace", "  {\"a\":1}\n\n", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.input); got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
