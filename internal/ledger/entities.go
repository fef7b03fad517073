package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage form of a transaction date.
const DateLayout = "2006-01-02"

// MaxTitleLen is the maximum title length in characters.
const MaxTitleLen = 200

// Spending bounds: at most MaxSpendingScale decimal places and a value below
// 10^MaxSpendingDigits.
const (
	MaxSpendingScale  = 6
	MaxSpendingDigits = 15
)

// Kind names the two mutually exclusive transaction categories.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Transaction is a single ledger record.
type Transaction struct {
	// ID is assigned by the store on creation and never reused.
	ID       int64
	Date     time.Time
	Title    string
	IsIncome bool
	// Spending is the non-negative magnitude for both income and expense;
	// direction comes from IsIncome.
	Spending decimal.Decimal
}

// Kind reports whether the transaction is income or expense.
func (t Transaction) Kind() Kind {
	if t.IsIncome {
		return KindIncome
	}
	return KindExpense
}

// Summary holds the three ledger aggregates.
type Summary struct {
	TotalIncome   decimal.Decimal
	TotalSpending decimal.Decimal
	Balance       decimal.Decimal
}

// ParseDate parses a YYYY-MM-DD calendar date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a date in DateLayout.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }
