package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
	"github.com/ArDnath/echo/internal/repository"
)

// MarkupService resolves and manages per-app markup.
type MarkupService interface {
	// Current returns the markup in force for the app, or nil when none was ever set.
	Current(ctx context.Context, appID uuid.UUID) (*model.MarkUp, error)
	// Set appends a markup to the app's history and makes it current.
	Set(ctx context.Context, appID uuid.UUID, rate decimal.Decimal) (*model.MarkUp, error)
	// History lists markups newest first.
	History(ctx context.Context, appID uuid.UUID, p model.Pagination) (model.Page[model.MarkUp], error)
}

type MarkupServiceImpl struct {
	repo repository.MarkupRepository
	now  clock
}

// NewMarkupService constructs MarkupService.
func NewMarkupService(repo repository.MarkupRepository) *MarkupServiceImpl {
	return &MarkupServiceImpl{repo: repo, now: systemClock}
}

func (s *MarkupServiceImpl) Current(ctx context.Context, appID uuid.UUID) (*model.MarkUp, error) {
	if appID == uuid.Nil {
		return nil, nil
	}
	return s.repo.Current(ctx, appID)
}

func (s *MarkupServiceImpl) Set(ctx context.Context, appID uuid.UUID, rate decimal.Decimal) (*model.MarkUp, error) {
	if err := requireID("app id", appID); err != nil {
		return nil, err
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("validation: negative markup rate: %w", errs.ErrInvalidArgument)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	m := &model.MarkUp{ID: id, EchoAppID: appID, Rate: rate, CreatedAt: s.now()}
	if err := s.repo.Insert(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MarkupServiceImpl) History(ctx context.Context, appID uuid.UUID, p model.Pagination) (model.Page[model.MarkUp], error) {
	if err := p.Validate(); err != nil {
		return model.Page[model.MarkUp]{}, err
	}
	return s.repo.History(ctx, appID, p)
}
