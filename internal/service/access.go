package service

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
	"github.com/ArDnath/echo/internal/repository"
)

// AccessService resolves principals and app-level permissions.
type AccessService interface {
	// Principal loads the caller once per request.
	Principal(ctx context.Context, userID uuid.UUID) (model.Principal, error)
	// AuthorizeApp allows admins and the app's owners or admins.
	AuthorizeApp(ctx context.Context, p model.Principal, appID uuid.UUID) error
	// AuthorizePayer checks that p may record a transaction billed to payer.
	AuthorizePayer(ctx context.Context, p model.Principal, appID, payer uuid.UUID) error
}

type AccessServiceImpl struct {
	users repository.UserRepository
	apps  repository.AppRepository
}

// NewAccessService constructs AccessService.
func NewAccessService(users repository.UserRepository, apps repository.AppRepository) *AccessServiceImpl {
	return &AccessServiceImpl{users: users, apps: apps}
}

func (s *AccessServiceImpl) Principal(ctx context.Context, userID uuid.UUID) (model.Principal, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		// Token for a deleted user.
		return model.Principal{}, errs.ErrUnauthenticated
	}
	if err != nil {
		return model.Principal{}, err
	}
	return model.Principal{UserID: u.ID, IsAdmin: u.IsAdmin}, nil
}

func (s *AccessServiceImpl) AuthorizeApp(ctx context.Context, p model.Principal, appID uuid.UUID) error {
	if p.IsAdmin {
		return nil
	}
	role, err := s.apps.MemberRole(ctx, appID, p.UserID)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.ErrForbidden
	}
	if err != nil {
		return err
	}
	if role == model.RoleOwner || role == model.RoleAdmin {
		return nil
	}
	return errs.ErrForbidden
}

// AuthorizePayer lets callers bill themselves. Billing another user needs
// the same rights as managing the app.
func (s *AccessServiceImpl) AuthorizePayer(ctx context.Context, p model.Principal, appID, payer uuid.UUID) error {
	if p.UserID == uuid.Nil {
		return errs.ErrUnauthenticated
	}
	if payer == p.UserID {
		return nil
	}
	return s.AuthorizeApp(ctx, p, appID)
}
