// Command classify runs the intent classifier against a single utterance
// from the command line. Useful for iterating on the prompt without
// sending voice notes.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/spendtrace/spendtrace/internal/classifier"
	"github.com/spendtrace/spendtrace/internal/intent"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("error: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		return fmt.Errorf("usage: classify <utterance>")
	}
	text := strings.Join(os.Args[1:], " ")

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cls := classifier.New(apiKey)
	result, err := cls.Classify(ctx, text, time.Now())
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	switch v := result.(type) {
	case intent.LogExpense:
		fmt.Printf("LOG_EXPENSE: %+v\n", v.Record)
	case intent.QuerySpending:
		fmt.Printf("QUERY_SPENDING: category=%s merchant=%s item=%s start=%s end=%s\n",
			v.Category, v.Merchant, v.Item, v.StartDate, v.EndDate)
	case intent.EditExpense:
		fmt.Printf("EDIT_EXPENSE: item=%s date=%s amount=%.2f currency=%s\n",
			v.TargetItem, v.TargetDate, v.NewAmount, v.NewCurrency)
	case intent.UndoLast:
		fmt.Println("UNDO_LAST")
	case intent.Irrelevant:
		fmt.Printf("IRRELEVANT: %s\n", v.Message)
	default:
		fmt.Println("UNKNOWN")
	}
	return nil
}
