package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/ArDnath/echo/internal/model"
	"github.com/ArDnath/echo/internal/repository"
)

// LedgerService answers earnings, spending and transaction queries over the ledger.
// Every figure is summed from ledger rows at read time.
type LedgerService interface {
	EarningsForUser(ctx context.Context, userID uuid.UUID, w model.Window) (model.Aggregate, error)
	EarningsForApp(ctx context.Context, appID uuid.UUID, w model.Window) (model.Aggregate, error)
	SpendingForUser(ctx context.Context, userID uuid.UUID, w model.Window) (model.Aggregate, error)
	SpendingForApp(ctx context.Context, appID uuid.UUID, w model.Window) (model.Aggregate, error)

	AllUsersEarnings(ctx context.Context, w model.Window) (model.Amount, error)
	AllUsersSpending(ctx context.Context, w model.Window) (model.Amount, error)
	AllUsersEarningsPaginated(ctx context.Context, w model.Window, p model.Pagination) (model.Page[model.UserAmount], error)
	AllUsersSpendingPaginated(ctx context.Context, w model.Window, p model.Pagination) (model.Page[model.UserAmount], error)
	AppEarningsAcrossAllUsers(ctx context.Context, appID uuid.UUID, w model.Window, p model.Pagination) (model.Page[model.UserAmount], error)
	AppSpendingAcrossAllUsers(ctx context.Context, appID uuid.UUID, w model.Window, p model.Pagination) (model.Page[model.UserAmount], error)

	AppTransactionsPaginated(ctx context.Context, appID uuid.UUID, w model.Window, p model.Pagination) (model.Page[model.Transaction], error)
	AppTransactionTotals(ctx context.Context, appID uuid.UUID, w model.Window) (model.TransactionTotals, error)
	UserTransactionsPaginated(ctx context.Context, userID uuid.UUID, w model.Window, p model.Pagination) (model.Page[model.Transaction], error)
	UserTransactionTotals(ctx context.Context, userID uuid.UUID, w model.Window) (model.TransactionTotals, error)

	// UserBalance is everything minted to the user minus everything the user spent.
	UserBalance(ctx context.Context, userID uuid.UUID) (model.Balance, error)
}

type LedgerServiceImpl struct {
	ledger  repository.LedgerRepository
	credits repository.CreditRepository
}

// NewLedgerService constructs LedgerService.
func NewLedgerService(ledger repository.LedgerRepository, credits repository.CreditRepository) *LedgerServiceImpl {
	return &LedgerServiceImpl{ledger: ledger, credits: credits}
}

type breakdownFunc func(ctx context.Context, id uuid.UUID, w model.Window) ([]model.BreakdownEntry, error)

func (s *LedgerServiceImpl) aggregate(ctx context.Context, id uuid.UUID, w model.Window, fn breakdownFunc) (model.Aggregate, error) {
	if err := w.Validate(); err != nil {
		return model.Aggregate{}, err
	}
	entries, err := fn(ctx, id, w)
	if err != nil {
		return model.Aggregate{}, err
	}
	if entries == nil {
		entries = []model.BreakdownEntry{}
	}
	return model.Aggregate{Amount: model.SumBreakdown(entries), Breakdown: entries}, nil
}

func (s *LedgerServiceImpl) EarningsForUser(ctx context.Context, userID uuid.UUID, w model.Window) (model.Aggregate, error) {
	return s.aggregate(ctx, userID, w, s.ledger.OwnerEarningsByApp)
}

func (s *LedgerServiceImpl) EarningsForApp(ctx context.Context, appID uuid.UUID, w model.Window) (model.Aggregate, error) {
	return s.aggregate(ctx, appID, w, s.ledger.AppEarningsByProvider)
}

func (s *LedgerServiceImpl) SpendingForUser(ctx context.Context, userID uuid.UUID, w model.Window) (model.Aggregate, error) {
	return s.aggregate(ctx, userID, w, s.ledger.UserSpendingByApp)
}

func (s *LedgerServiceImpl) SpendingForApp(ctx context.Context, appID uuid.UUID, w model.Window) (model.Aggregate, error) {
	return s.aggregate(ctx, appID, w, s.ledger.AppSpendingByUser)
}

func (s *LedgerServiceImpl) platform(ctx context.Context, m repository.Metric, w model.Window) (model.Amount, error) {
	if err := w.Validate(); err != nil {
		return model.Amount{}, err
	}
	return s.ledger.PlatformTotal(ctx, m, w)
}

func (s *LedgerServiceImpl) AllUsersEarnings(ctx context.Context, w model.Window) (model.Amount, error) {
	return s.platform(ctx, repository.Earnings, w)
}

func (s *LedgerServiceImpl) AllUsersSpending(ctx context.Context, w model.Window) (model.Amount, error) {
	return s.platform(ctx, repository.Spending, w)
}

func validateQuery(w model.Window, p model.Pagination) error {
	if err := w.Validate(); err != nil {
		return err
	}
	return p.Validate()
}

func (s *LedgerServiceImpl) AllUsersEarningsPaginated(ctx context.Context, w model.Window, p model.Pagination) (model.Page[model.UserAmount], error) {
	if err := validateQuery(w, p); err != nil {
		return model.Page[model.UserAmount]{}, err
	}
	return s.ledger.RankUsers(ctx, repository.Earnings, w, p)
}

func (s *LedgerServiceImpl) AllUsersSpendingPaginated(ctx context.Context, w model.Window, p model.Pagination) (model.Page[model.UserAmount], error) {
	if err := validateQuery(w, p); err != nil {
		return model.Page[model.UserAmount]{}, err
	}
	return s.ledger.RankUsers(ctx, repository.Spending, w, p)
}

func (s *LedgerServiceImpl) AppEarningsAcrossAllUsers(ctx context.Context, appID uuid.UUID, w model.Window, p model.Pagination) (model.Page[model.UserAmount], error) {
	if err := validateQuery(w, p); err != nil {
		return model.Page[model.UserAmount]{}, err
	}
	return s.ledger.RankAppUsers(ctx, appID, repository.Earnings, w, p)
}

func (s *LedgerServiceImpl) AppSpendingAcrossAllUsers(ctx context.Context, appID uuid.UUID, w model.Window, p model.Pagination) (model.Page[model.UserAmount], error) {
	if err := validateQuery(w, p); err != nil {
		return model.Page[model.UserAmount]{}, err
	}
	return s.ledger.RankAppUsers(ctx, appID, repository.Spending, w, p)
}

func (s *LedgerServiceImpl) AppTransactionsPaginated(ctx context.Context, appID uuid.UUID, w model.Window, p model.Pagination) (model.Page[model.Transaction], error) {
	if err := validateQuery(w, p); err != nil {
		return model.Page[model.Transaction]{}, err
	}
	return s.ledger.ListByApp(ctx, appID, w, p)
}

func (s *LedgerServiceImpl) AppTransactionTotals(ctx context.Context, appID uuid.UUID, w model.Window) (model.TransactionTotals, error) {
	if err := w.Validate(); err != nil {
		return model.TransactionTotals{}, err
	}
	return s.ledger.TotalsByApp(ctx, appID, w)
}

func (s *LedgerServiceImpl) UserTransactionsPaginated(ctx context.Context, userID uuid.UUID, w model.Window, p model.Pagination) (model.Page[model.Transaction], error) {
	if err := validateQuery(w, p); err != nil {
		return model.Page[model.Transaction]{}, err
	}
	return s.ledger.ListByUser(ctx, userID, w, p)
}

func (s *LedgerServiceImpl) UserTransactionTotals(ctx context.Context, userID uuid.UUID, w model.Window) (model.TransactionTotals, error) {
	if err := w.Validate(); err != nil {
		return model.TransactionTotals{}, err
	}
	return s.ledger.TotalsByUser(ctx, userID, w)
}

func (s *LedgerServiceImpl) UserBalance(ctx context.Context, userID uuid.UUID) (model.Balance, error) {
	minted, err := s.credits.MintedTotal(ctx, userID)
	if err != nil {
		return model.Balance{}, fmt.Errorf("minted total: %w", err)
	}
	totals, err := s.ledger.TotalsByUser(ctx, userID, model.Window{})
	if err != nil {
		return model.Balance{}, fmt.Errorf("spent total: %w", err)
	}
	return model.Balance{
		UserID:  userID,
		Minted:  minted,
		Spent:   totals.TotalCost,
		Balance: minted.Sub(totals.TotalCost),
	}, nil
}
