package intent

import (
	"encoding/json"
	"strings"
)

// Sentinel values used by the classifier contract.
const (
	// All is the wildcard for query filter fields.
	All = "ALL"

	// LastMatch is the sentinel date meaning "most recent row matching the
	// item filter, regardless of date".
	LastMatch = "LAST_MATCH"
)

// Category is one of the fixed expense categories. The classifier is
// constrained to this vocabulary; anything else is coerced to Other.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryOffice        Category = "Office"
	CategoryUtilities     Category = "Utilities"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealth        Category = "Health"
	CategoryShopping      Category = "Shopping"
	CategoryTravel        Category = "Travel"
	CategoryEducation     Category = "Education"
	CategoryOther         Category = "Other"
)

// Categories lists the closed vocabulary in canonical order.
var Categories = []Category{
	CategoryFood, CategoryTransport, CategoryOffice, CategoryUtilities,
	CategoryEntertainment, CategoryHealth, CategoryShopping, CategoryTravel,
	CategoryEducation, CategoryOther,
}

// NormalizeCategory maps free-form category text onto the closed
// vocabulary, case-insensitively. Unrecognized values become Other
// rather than inventing a new category.
func NormalizeCategory(s string) Category {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if strings.ToLower(string(c)) == needle {
			return c
		}
	}
	return CategoryOther
}

// ExpenseRecord is one ledger row. Date is YYYY-MM-DD; rows are ordered
// by insertion, not by the Date field.
type ExpenseRecord struct {
	Date     string   `json:"date"`
	Item     string   `json:"item"`
	Amount   float64  `json:"amount"`
	Currency string   `json:"currency"`
	Merchant string   `json:"merchant"`
	Category Category `json:"category"`
}

// Intent is the classified purpose of an utterance. Exactly one of the
// concrete variants below; decoding anything unexpected yields Unknown.
type Intent interface {
	isIntent()
}

// LogExpense appends a new expense row to the ledger.
type LogExpense struct {
	Record ExpenseRecord
}

// QuerySpending aggregates rows matching the filters. Each field is a
// concrete value or the wildcard All.
type QuerySpending struct {
	Category  string
	Merchant  string
	Item      string
	StartDate string
	EndDate   string
}

// EditExpense overwrites amount and currency of the nearest matching row.
// TargetDate is a YYYY-MM-DD date or the LastMatch sentinel.
type EditExpense struct {
	TargetItem  string
	TargetDate  string
	NewAmount   float64
	NewCurrency string
}

// UndoLast deletes the physically last ledger row.
type UndoLast struct{}

// Irrelevant is a recognized non-expense utterance.
type Irrelevant struct {
	Message string
}

// Unknown is the catch-all for classifier output that does not parse
// into any other variant.
type Unknown struct{}

func (LogExpense) isIntent()    {}
func (QuerySpending) isIntent() {}
func (EditExpense) isIntent()   {}
func (UndoLast) isIntent()      {}
func (Irrelevant) isIntent()    {}
func (Unknown) isIntent()       {}

// envelope mirrors the classifier's JSON contract.
type envelope struct {
	Intent  string          `json:"intent"`
	Data    json.RawMessage `json:"data"`
	Query   json.RawMessage `json:"query"`
	Edit    json.RawMessage `json:"edit"`
	Message string          `json:"message"`
}

type queryPayload struct {
	Category  string `json:"category"`
	Merchant  string `json:"merchant"`
	Item      string `json:"item"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type editPayload struct {
	TargetItem  string  `json:"target_item"`
	TargetDate  string  `json:"target_date"`
	NewAmount   float64 `json:"new_amount"`
	NewCurrency string  `json:"new_currency"`
}

// Decode is the single validating parse from classifier output to an
// Intent. It never fails: an unrecognized intent tag, a missing payload,
// or a payload that does not unmarshal all degrade to Unknown.
func Decode(raw []byte) Intent {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Unknown{}
	}

	switch strings.ToUpper(strings.TrimSpace(env.Intent)) {
	case "LOG_EXPENSE":
		var rec ExpenseRecord
		if env.Data == nil || json.Unmarshal(env.Data, &rec) != nil {
			return Unknown{}
		}
		if rec.Item == "" {
			return Unknown{}
		}
		rec.Category = NormalizeCategory(string(rec.Category))
		return LogExpense{Record: rec}

	case "QUERY_SPENDING":
		var q queryPayload
		if env.Query == nil || json.Unmarshal(env.Query, &q) != nil {
			return Unknown{}
		}
		return QuerySpending{
			Category:  orAll(q.Category),
			Merchant:  orAll(q.Merchant),
			Item:      orAll(q.Item),
			StartDate: orAll(q.StartDate),
			EndDate:   orAll(q.EndDate),
		}

	case "EDIT_EXPENSE":
		var e editPayload
		if env.Edit == nil || json.Unmarshal(env.Edit, &e) != nil {
			return Unknown{}
		}
		if e.TargetItem == "" {
			return Unknown{}
		}
		if e.TargetDate == "" {
			e.TargetDate = LastMatch
		}
		return EditExpense{
			TargetItem:  e.TargetItem,
			TargetDate:  e.TargetDate,
			NewAmount:   e.NewAmount,
			NewCurrency: e.NewCurrency,
		}

	case "UNDO_LAST":
		return UndoLast{}

	case "IRRELEVANT":
		return Irrelevant{Message: env.Message}

	default:
		return Unknown{}
	}
}

func orAll(s string) string {
	if strings.TrimSpace(s) == "" {
		return All
	}
	return s
}
