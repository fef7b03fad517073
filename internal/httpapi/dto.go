package httpapi

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/tinoosan/spendlog/internal/ledger"
)

// postTransactionRequest uses pointers so absent fields can be told apart from zero values.
type postTransactionRequest struct {
	TransactionDate *string          `json:"transaction_date"`
	Title           *string          `json:"title"`
	IsIncome        *bool            `json:"is_income"`
	Spending        *decimal.Decimal `json:"spending"`
}

type transactionResponse struct {
	ID              int64       `json:"id"`
	TransactionDate string      `json:"transaction_date"`
	Title           string      `json:"title"`
	IsIncome        bool        `json:"is_income"`
	Spending        json.Number `json:"spending"`
}

type totalIncomeResponse struct {
	TotalIncome json.Number `json:"total_income"`
}

type totalSpendingResponse struct {
	TotalSpending json.Number `json:"total_spending"`
}

type balanceResponse struct {
	Balance json.Number `json:"balance"`
}

type summaryResponse struct {
	TotalIncome   json.Number `json:"total_income"`
	TotalSpending json.Number `json:"total_spending"`
	Balance       json.Number `json:"balance"`
}

// number renders d as a bare JSON number rather than decimal's default quoted string.
func number(d decimal.Decimal) json.Number { return json.Number(d.String()) }

// balanceNumber always carries two places, so an empty ledger reads 0.00.
func balanceNumber(d decimal.Decimal) json.Number { return json.Number(d.StringFixed(2)) }

func toTransactionResponse(t ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:              t.ID,
		TransactionDate: ledger.FormatDate(t.Date),
		Title:           t.Title,
		IsIncome:        t.IsIncome,
		Spending:        number(t.Spending),
	}
}
