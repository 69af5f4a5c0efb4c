package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/metrics"
	"github.com/ArDnath/echo/internal/model"
	"github.com/ArDnath/echo/internal/repository"
)

// GrantService manages credit grant codes and credit minting.
// Methods taking a principal are restricted to admins.
type GrantService interface {
	CreateGrant(ctx context.Context, p model.Principal, in model.NewGrant) (*model.CreditGrantCode, error)
	GetGrant(ctx context.Context, p model.Principal, code string) (*model.CreditGrantCode, error)
	ListGrants(ctx context.Context, p model.Principal, page model.Pagination) (model.Page[model.CreditGrantCode], error)
	ListGrantUsages(ctx context.Context, p model.Principal, code string, page model.Pagination) (model.GrantUsages, error)
	UpdateGrant(ctx context.Context, p model.Principal, id uuid.UUID, patch model.GrantPatch) (*model.CreditGrantCode, error)
	// Redeem mints the grant amount to the user; each user may redeem a code once.
	Redeem(ctx context.Context, code string, userID uuid.UUID) (*model.CreditMint, error)
	MintCredits(ctx context.Context, p model.Principal, userID uuid.UUID, amount decimal.Decimal) (*model.CreditMint, error)
}

type GrantServiceImpl struct {
	grants  repository.GrantRepository
	credits repository.CreditRepository
	log     *zap.Logger
	now     clock
}

// NewGrantService constructs GrantService.
func NewGrantService(grants repository.GrantRepository, credits repository.CreditRepository, log *zap.Logger) *GrantServiceImpl {
	return &GrantServiceImpl{grants: grants, credits: credits, log: log, now: systemClock}
}

func (s *GrantServiceImpl) CreateGrant(ctx context.Context, p model.Principal, in model.NewGrant) (*model.CreditGrantCode, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if in.GrantAmount.IsNegative() {
		return nil, fmt.Errorf("validation: negative grant amount: %w", errs.ErrInvalidArgument)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	code, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := s.now()
	g := &model.CreditGrantCode{
		ID:          id,
		Code:        code.String(),
		GrantAmount: in.GrantAmount,
		Name:        in.Name,
		Description: in.Description,
		ExpiresAt:   in.ExpiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.grants.Create(ctx, g); err != nil {
		return nil, err
	}
	s.log.Info("grant created", zap.String("grant_id", g.ID.String()), zap.String("amount", g.GrantAmount.String()))
	return g, nil
}

func (s *GrantServiceImpl) GetGrant(ctx context.Context, p model.Principal, code string) (*model.CreditGrantCode, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return s.grants.GetByCode(ctx, strings.TrimSpace(code))
}

func (s *GrantServiceImpl) ListGrants(ctx context.Context, p model.Principal, page model.Pagination) (model.Page[model.CreditGrantCode], error) {
	if err := requireAdmin(p); err != nil {
		return model.Page[model.CreditGrantCode]{}, err
	}
	if err := page.Validate(); err != nil {
		return model.Page[model.CreditGrantCode]{}, err
	}
	return s.grants.List(ctx, page)
}

func (s *GrantServiceImpl) ListGrantUsages(ctx context.Context, p model.Principal, code string, page model.Pagination) (model.GrantUsages, error) {
	if err := requireAdmin(p); err != nil {
		return model.GrantUsages{}, err
	}
	if err := page.Validate(); err != nil {
		return model.GrantUsages{}, err
	}
	g, err := s.grants.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return model.GrantUsages{}, err
	}
	return s.grants.Usages(ctx, g.ID, page)
}

func (s *GrantServiceImpl) UpdateGrant(ctx context.Context, p model.Principal, id uuid.UUID, patch model.GrantPatch) (*model.CreditGrantCode, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if err := requireID("grant id", id); err != nil {
		return nil, err
	}
	if patch.GrantAmount != nil && patch.GrantAmount.IsNegative() {
		return nil, fmt.Errorf("validation: negative grant amount: %w", errs.ErrInvalidArgument)
	}
	return s.grants.Update(ctx, id, patch)
}

func (s *GrantServiceImpl) Redeem(ctx context.Context, code string, userID uuid.UUID) (*model.CreditMint, error) {
	if err := requireID("user id", userID); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("validation: empty code: %w", errs.ErrInvalidArgument)
	}
	m, err := s.grants.Redeem(ctx, code, userID, s.now())
	if err != nil {
		metrics.IncGrantRedemption(redemptionResult(err))
		return nil, err
	}
	metrics.IncGrantRedemption("ok")
	metrics.IncCreditMint(m.Source)
	s.log.Info("grant redeemed", zap.String("user_id", userID.String()), zap.String("amount", m.Amount.String()))
	return m, nil
}

func redemptionResult(err error) string {
	switch {
	case errors.Is(err, errs.ErrAlreadyRedeemed):
		return "already_redeemed"
	case errors.Is(err, errs.ErrGrantInactive):
		return "inactive"
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func (s *GrantServiceImpl) MintCredits(ctx context.Context, p model.Principal, userID uuid.UUID, amount decimal.Decimal) (*model.CreditMint, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if err := requireID("user id", userID); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("validation: mint amount must be positive: %w", errs.ErrInvalidArgument)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	m := &model.CreditMint{ID: id, UserID: userID, Amount: amount, Source: model.MintSourceAdmin, CreatedAt: s.now()}
	if err := s.credits.Mint(ctx, m); err != nil {
		return nil, err
	}
	metrics.IncCreditMint(m.Source)
	s.log.Info("credits minted",
		zap.String("user_id", userID.String()),
		zap.String("amount", amount.String()),
		zap.String("by", p.UserID.String()),
	)
	return m, nil
}
