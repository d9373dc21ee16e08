// Package ledger performs the ledger operations implied by classified
// intents against a per-user row store.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spendtrace/spendtrace/internal/intent"
)

const dateLayout = "2006-01-02"

// Service routes intents onto the RowStore surface. Each operation is
// stateless given the current ledger contents and returns a user-facing
// reply string.
type Service struct {
	store RowStore

	// serialize optionally forces per-ledger ordering of operations.
	// Off by default: concurrent operations on the same ledger may
	// interleave, matching the at-least-once external store model.
	serialize bool
	locks     sync.Map // sheetID -> *sync.Mutex
}

// NewService creates a ledger service over the given store.
func NewService(store RowStore, serialize bool) *Service {
	return &Service{store: store, serialize: serialize}
}

func (s *Service) lock(sheetID string) func() {
	if !s.serialize {
		return func() {}
	}
	v, _ := s.locks.LoadOrStore(sheetID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// LogExpense appends the record as a new last row.
func (s *Service) LogExpense(ctx context.Context, sheetID string, rec intent.ExpenseRecord) (string, error) {
	defer s.lock(sheetID)()

	row := []interface{}{rec.Date, rec.Item, rec.Amount, rec.Currency, rec.Merchant, string(rec.Category)}
	if err := s.store.AppendRow(ctx, sheetID, row); err != nil {
		return "", fmt.Errorf("LogExpense: %w", err)
	}

	return fmt.Sprintf("✅ *Expense Saved!*\n🛒 *Item:* %s\n💰 *Cost:* %.2f %s",
		rec.Item, rec.Amount, rec.Currency), nil
}

// QuerySpending aggregates rows matching the filters: per-currency sums
// plus a row count. Non-ALL fields constrain matches.
func (s *Service) QuerySpending(ctx context.Context, sheetID string, q intent.QuerySpending) (string, error) {
	defer s.lock(sheetID)()

	rows, err := s.store.ReadAllRows(ctx, sheetID)
	if err != nil {
		return "", fmt.Errorf("QuerySpending: %w", err)
	}

	totals := make(map[string]float64)
	count := 0

	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		date := cellString(row[0])
		item := cellString(row[1])
		amount, ok := cellFloat(row[2])
		if !ok {
			continue
		}
		currency := cellString(row[3])
		merchant := cellString(row[4])
		category := cellString(row[5])

		if !matchEquals(q.Category, category) {
			continue
		}
		if !matchContains(q.Merchant, merchant) {
			continue
		}
		if !matchContains(q.Item, item) {
			continue
		}
		if !matchDateRange(q.StartDate, q.EndDate, date) {
			continue
		}

		totals[currency] += amount
		count++
	}

	if count == 0 {
		return "📊 No matching expenses found.", nil
	}

	currencies := make([]string, 0, len(totals))
	for c := range totals {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	parts := make([]string, 0, len(currencies))
	for _, c := range currencies {
		parts = append(parts, fmt.Sprintf("%.2f %s", totals[c], c))
	}

	return fmt.Sprintf("📊 %d matching entries. Total spent: %s.", count, strings.Join(parts, ", ")), nil
}

// EditExpense scans from the most recent row backwards and updates the
// first row whose item contains the target text (case-insensitive) and
// whose date matches. Only amount and currency are overwritten; ties are
// broken by recency and only the single nearest match is touched.
func (s *Service) EditExpense(ctx context.Context, sheetID string, e intent.EditExpense) (string, error) {
	defer s.lock(sheetID)()

	rows, err := s.store.ReadAllRows(ctx, sheetID)
	if err != nil {
		return "", fmt.Errorf("EditExpense: %w", err)
	}
	if len(rows) == 0 {
		return "⚠️ Ledger is empty.", nil
	}

	searchItem := strings.ToLower(e.TargetItem)
	matchAnyDate := strings.EqualFold(e.TargetDate, intent.LastMatch)

	var searchDate time.Time
	if !matchAnyDate {
		searchDate, err = time.Parse(dateLayout, e.TargetDate)
		if err != nil {
			return "", fmt.Errorf("EditExpense: bad target date %q: %w", e.TargetDate, err)
		}
	}

	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if len(row) < 4 {
			continue
		}

		rowDateStr := cellString(row[0])
		rowItem := strings.ToLower(cellString(row[1]))
		if !strings.Contains(rowItem, searchItem) {
			continue
		}

		if !matchAnyDate {
			rowDate, err := time.Parse(dateLayout, rowDateStr)
			if err != nil || !rowDate.Equal(searchDate) {
				continue
			}
		}

		rowIndex := i + 1
		if err := s.store.UpdateAmountCurrency(ctx, sheetID, rowIndex, e.NewAmount, e.NewCurrency); err != nil {
			return "", fmt.Errorf("EditExpense: %w", err)
		}
		return fmt.Sprintf("✅ Updated *%s* (%s) to *%.2f %s*.",
			e.TargetItem, rowDateStr, e.NewAmount, e.NewCurrency), nil
	}

	return "❌ Not found.", nil
}

// UndoLast clears the physically last row, regardless of its date field.
func (s *Service) UndoLast(ctx context.Context, sheetID string) (string, error) {
	defer s.lock(sheetID)()

	rows, err := s.store.ReadAllRows(ctx, sheetID)
	if err != nil {
		return "", fmt.Errorf("UndoLast: %w", err)
	}
	if len(rows) == 0 {
		return "⚠️ Nothing to undo.", nil
	}

	if err := s.store.ClearRow(ctx, sheetID, len(rows)); err != nil {
		return "", fmt.Errorf("UndoLast: %w", err)
	}
	return "✅ Last entry deleted.", nil
}

func cellString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func cellFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func matchEquals(filter, value string) bool {
	if filter == intent.All {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(filter), strings.TrimSpace(value))
}

func matchContains(filter, value string) bool {
	if filter == intent.All {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(strings.TrimSpace(filter)))
}

func matchDateRange(start, end, date string) bool {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		// Rows with unparseable dates only match unconstrained ranges.
		return start == intent.All && end == intent.All
	}
	if start != intent.All {
		s, err := time.Parse(dateLayout, start)
		if err != nil || d.Before(s) {
			return false
		}
	}
	if end != intent.All {
		e, err := time.Parse(dateLayout, end)
		if err != nil || d.After(e) {
			return false
		}
	}
	return true
}
