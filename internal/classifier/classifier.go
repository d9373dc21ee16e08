// Package classifier turns transcribed text into a tagged Intent using
// Gemini.
package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/spendtrace/spendtrace/internal/intent"
)

// DefaultModelName is the Gemini model used for intent classification.
const DefaultModelName = "gemini-2.5-flash"

// ClassificationError marks a transport or empty-response failure from
// the model. Output that merely fails to parse is NOT an error: it
// decodes to intent.Unknown.
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classifier: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// model is the raw generate call, kept as an interface so tests can
// script responses.
type model interface {
	generate(ctx context.Context, systemPrompt, userText string) (string, error)
}

type geminiModel struct {
	apiKey    string
	modelName string
}

func (m *geminiModel) generate(ctx context.Context, systemPrompt, userText string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      m.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: systemPrompt},
				{Text: userText},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, m.modelName, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return rawText, nil
}

// Classifier classifies utterances into Intents.
type Classifier struct {
	model model
}

// New creates a Gemini-backed classifier.
func New(apiKey string) *Classifier {
	return &Classifier{
		model: &geminiModel{apiKey: apiKey, modelName: DefaultModelName},
	}
}

// Classify maps text to exactly one Intent variant. today anchors
// relative-date resolution. A failed model call returns a
// *ClassificationError; unparseable model output returns intent.Unknown
// with no error.
func (c *Classifier) Classify(ctx context.Context, text string, today time.Time) (intent.Intent, error) {
	raw, err := c.model.generate(ctx, buildSystemPrompt(today), text)
	if err != nil {
		return nil, &ClassificationError{Err: err}
	}

	clean := cleanModelJSON(raw)
	return intent.Decode([]byte(clean)), nil
}

// cleanModelJSON strips Markdown fences and surrounding junk when the
// model ignores the raw-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	// Remove trailing ``` if present.
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Extra safety: if there's still junk around the JSON object,
	// keep only from the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = s[start : end+1]
			s = strings.TrimSpace(s)
		}
	}

	return s
}
