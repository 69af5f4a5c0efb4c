package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// ProfitPrecision is the number of decimal places kept for markup profit.
const ProfitPrecision = 12

// Transaction is one immutable ledger entry for a metered request.
type Transaction struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	EchoAppID      uuid.UUID
	Provider       string
	Model          string
	RawCost        decimal.Decimal
	MarkUpID       *uuid.UUID
	MarkUpRate     decimal.Decimal
	MarkUpProfit   decimal.Decimal
	TotalCost      decimal.Decimal
	IdempotencyKey *string
	CreatedAt      time.Time
}

// NewTransaction is the caller-supplied part of a ledger entry.
type NewTransaction struct {
	UserID         uuid.UUID
	Provider       string
	Model          string
	RawCost        decimal.Decimal
	IdempotencyKey string
}

// Price computes the markup profit and total cost for a raw cost at rate.
func Price(raw, rate decimal.Decimal) (profit, total decimal.Decimal) {
	profit = raw.Mul(rate).Round(ProfitPrecision)
	return profit, raw.Add(profit)
}

// Amount is an aggregated sum with the number of contributing transactions.
type Amount struct {
	Total decimal.Decimal
	Count int64
}

// BreakdownEntry is the amount attributed to one key of a breakdown.
type BreakdownEntry struct {
	Key    string // app id, provider or user id depending on the breakdown
	Amount Amount
}

// Aggregate is a total with a per-key breakdown.
type Aggregate struct {
	Amount
	Breakdown []BreakdownEntry
}

// SumBreakdown re-adds a breakdown into a total.
func SumBreakdown(entries []BreakdownEntry) Amount {
	a := Amount{Total: decimal.Zero}
	for _, e := range entries {
		a.Total = a.Total.Add(e.Amount.Total)
		a.Count += e.Amount.Count
	}
	return a
}

// UserAmount is one row of a ranked per-user aggregation.
type UserAmount struct {
	UserID uuid.UUID
	Amount Amount
}

// TransactionTotals summarizes a set of ledger entries.
type TransactionTotals struct {
	Count        int64
	RawCost      decimal.Decimal
	MarkUpProfit decimal.Decimal
	TotalCost    decimal.Decimal
}

// Balance is a user's credit position.
type Balance struct {
	UserID  uuid.UUID
	Minted  decimal.Decimal
	Spent   decimal.Decimal
	Balance decimal.Decimal
}
