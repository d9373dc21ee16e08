package classifier

import (
	"strings"
	"time"

	"github.com/spendtrace/spendtrace/internal/intent"
)

// buildSystemPrompt constructs the classification instruction. The model
// is given today's date so relative expressions resolve to absolute
// YYYY-MM-DD form, and the closed category vocabulary so it never invents
// categories.
func buildSystemPrompt(today time.Time) string {
	var b strings.Builder

	b.WriteString("You are an AI accountant for a voice-note expense tracker.\n")
	b.WriteString("Convert the user's utterance into STRICT JSON describing exactly one intent.\n\n")

	b.WriteString("Today is " + today.Format("2006-01-02") + ". ")
	b.WriteString("Resolve relative dates (\"yesterday\", \"last month\") to absolute YYYY-MM-DD form.\n\n")

	b.WriteString("Allowed categories (choose EXACTLY one, default to \"Other\" only when nothing else plausibly applies):\n")
	for _, c := range intent.Categories {
		b.WriteString("  - " + string(c) + "\n")
	}
	b.WriteString("\n")

	b.WriteString("Output one of these shapes and nothing else:\n")
	b.WriteString(`{"intent":"LOG_EXPENSE","data":{"date":"YYYY-MM-DD","item":"...","amount":0.0,"currency":"PKR","merchant":"...","category":"..."}}` + "\n")
	b.WriteString(`{"intent":"QUERY_SPENDING","query":{"category":"...","merchant":"...","item":"...","start_date":"YYYY-MM-DD","end_date":"YYYY-MM-DD"}}` + "\n")
	b.WriteString(`{"intent":"EDIT_EXPENSE","edit":{"target_item":"...","target_date":"YYYY-MM-DD","new_amount":0.0,"new_currency":"..."}}` + "\n")
	b.WriteString(`{"intent":"UNDO_LAST"}` + "\n")
	b.WriteString(`{"intent":"IRRELEVANT","message":"..."}` + "\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("1. For QUERY_SPENDING, use the literal string \"ALL\" for any filter the user did not constrain.\n")
	b.WriteString("2. For EDIT_EXPENSE, if the user does not name a date, use the literal string \"LAST_MATCH\" for target_date. Never guess a date.\n")
	b.WriteString("3. Infer currency from context; default to PKR.\n")
	b.WriteString("4. Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Do NOT use ```json or any Markdown.\n")

	return b.String()
}
