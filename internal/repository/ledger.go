package repository

import (
	"context"

	"github.com/ArDnath/echo/internal/model"
	"github.com/gofrs/uuid/v5"
)

// Metric selects the ledger column an aggregation sums.
type Metric int

// Aggregation metrics.
const (
	// Earnings sums markup profit.
	Earnings Metric = iota
	// Spending sums total cost.
	Spending
)

// LedgerRepository is the append-only transaction ledger and its aggregation reads.
// It has no update or delete operations.
type LedgerRepository interface {
	// Append stores a transaction. When the idempotency key was already used,
	// the original row is returned with created=false.
	Append(ctx context.Context, t *model.Transaction) (stored *model.Transaction, created bool, err error)

	ListByApp(ctx context.Context, appID uuid.UUID, w model.Window, p model.Pagination) (model.Page[model.Transaction], error)
	ListByUser(ctx context.Context, userID uuid.UUID, w model.Window, p model.Pagination) (model.Page[model.Transaction], error)
	TotalsByApp(ctx context.Context, appID uuid.UUID, w model.Window) (model.TransactionTotals, error)
	TotalsByUser(ctx context.Context, userID uuid.UUID, w model.Window) (model.TransactionTotals, error)

	// OwnerEarningsByApp breaks down profit on apps the user owns, per app.
	OwnerEarningsByApp(ctx context.Context, userID uuid.UUID, w model.Window) ([]model.BreakdownEntry, error)
	// AppEarningsByProvider breaks down an app's profit per provider.
	AppEarningsByProvider(ctx context.Context, appID uuid.UUID, w model.Window) ([]model.BreakdownEntry, error)
	// UserSpendingByApp breaks down what a user paid, per app.
	UserSpendingByApp(ctx context.Context, userID uuid.UUID, w model.Window) ([]model.BreakdownEntry, error)
	// AppSpendingByUser breaks down what was paid to an app, per paying user.
	AppSpendingByUser(ctx context.Context, appID uuid.UUID, w model.Window) ([]model.BreakdownEntry, error)

	// PlatformTotal sums the metric over every transaction in the window.
	PlatformTotal(ctx context.Context, m Metric, w model.Window) (model.Amount, error)
	// RankUsers ranks app owners (Earnings) or payers (Spending) by total desc, user id asc.
	RankUsers(ctx context.Context, m Metric, w model.Window, p model.Pagination) (model.Page[model.UserAmount], error)
	// RankAppUsers ranks the paying users of one app by total desc, user id asc.
	RankAppUsers(ctx context.Context, appID uuid.UUID, m Metric, w model.Window, p model.Pagination) (model.Page[model.UserAmount], error)
}
