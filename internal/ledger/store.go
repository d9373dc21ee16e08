package ledger

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Column layout is fixed: [date, item, amount, currency, merchant, category].
const (
	sheetTab  = "Sheet1"
	fullRange = sheetTab + "!A:F"
	appendAt  = sheetTab + "!A1"
	inputMode = "USER_ENTERED"
)

// RowStore is the ledger store surface: append, full scan, in-place
// amount/currency update, and row clear. Row indexes are 1-based sheet
// positions.
type RowStore interface {
	AppendRow(ctx context.Context, sheetID string, row []interface{}) error
	ReadAllRows(ctx context.Context, sheetID string) ([][]interface{}, error)
	UpdateAmountCurrency(ctx context.Context, sheetID string, rowIndex int, amount float64, currency string) error
	ClearRow(ctx context.Context, sheetID string, rowIndex int) error
}

// SheetsStore implements RowStore on the Google Sheets values API.
type SheetsStore struct {
	svc *sheets.Service
}

// NewSheetsStore builds a store using ambient Google credentials
// (GOOGLE_APPLICATION_CREDENTIALS or the metadata server).
func NewSheetsStore(ctx context.Context, opts ...option.ClientOption) (*SheetsStore, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewSheetsStore: sheets service: %w", err)
	}
	return &SheetsStore{svc: svc}, nil
}

// AppendRow appends one row after the last non-empty row.
func (s *SheetsStore) AppendRow(ctx context.Context, sheetID string, row []interface{}) error {
	body := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := s.svc.Spreadsheets.Values.
		Append(sheetID, appendAt, body).
		ValueInputOption(inputMode).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("AppendRow: %w", err)
	}
	return nil
}

// ReadAllRows returns every row of the ledger in insertion order.
func (s *SheetsStore) ReadAllRows(ctx context.Context, sheetID string) ([][]interface{}, error) {
	resp, err := s.svc.Spreadsheets.Values.
		Get(sheetID, fullRange).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("ReadAllRows: %w", err)
	}
	return resp.Values, nil
}

// UpdateAmountCurrency overwrites only the amount and currency columns
// (C and D) of the given row.
func (s *SheetsStore) UpdateAmountCurrency(ctx context.Context, sheetID string, rowIndex int, amount float64, currency string) error {
	rng := fmt.Sprintf("%s!C%d:D%d", sheetTab, rowIndex, rowIndex)
	body := &sheets.ValueRange{Values: [][]interface{}{{amount, currency}}}
	_, err := s.svc.Spreadsheets.Values.
		Update(sheetID, rng, body).
		ValueInputOption(inputMode).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("UpdateAmountCurrency: row %d: %w", rowIndex, err)
	}
	return nil
}

// ClearRow blanks all six columns of the given row.
func (s *SheetsStore) ClearRow(ctx context.Context, sheetID string, rowIndex int) error {
	rng := fmt.Sprintf("%s!A%d:F%d", sheetTab, rowIndex, rowIndex)
	_, err := s.svc.Spreadsheets.Values.
		Clear(sheetID, rng, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("ClearRow: row %d: %w", rowIndex, err)
	}
	return nil
}

var _ RowStore = (*SheetsStore)(nil)
