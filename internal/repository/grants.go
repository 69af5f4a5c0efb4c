package repository

import (
	"context"
	"time"

	"github.com/ArDnath/echo/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// GrantRepository stores credit grant codes and their redemptions.
type GrantRepository interface {
	// Create inserts a grant; a duplicate code yields errs.ErrAlreadyExists.
	Create(ctx context.Context, g *model.CreditGrantCode) error
	GetByCode(ctx context.Context, code string) (*model.CreditGrantCode, error)
	// List returns non-archived grants newest first.
	List(ctx context.Context, p model.Pagination) (model.Page[model.CreditGrantCode], error)
	// Update applies a partial patch; the code never changes.
	Update(ctx context.Context, id uuid.UUID, patch model.GrantPatch) (*model.CreditGrantCode, error)
	// Redeem records a usage and mints the grant amount in one transaction.
	// A repeated redemption by the same user yields errs.ErrAlreadyRedeemed.
	Redeem(ctx context.Context, code string, userID uuid.UUID, now time.Time) (*model.CreditMint, error)
	// Usages groups redemptions by user, count desc then user id asc.
	Usages(ctx context.Context, grantID uuid.UUID, p model.Pagination) (model.GrantUsages, error)
}

// CreditRepository stores credit mints.
type CreditRepository interface {
	Mint(ctx context.Context, m *model.CreditMint) error
	// MintedTotal sums every mint for the user.
	MintedTotal(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}
