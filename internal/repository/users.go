// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/ArDnath/echo/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides access to user accounts.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// List returns users newest first.
	List(ctx context.Context, p model.Pagination) (model.Page[model.User], error)
	// ListCreatedSince returns users created at or after since, newest first.
	ListCreatedSince(ctx context.Context, since time.Time) ([]model.User, error)
}

// AppRepository provides access to EchoApps and their memberships.
type AppRepository interface {
	Create(ctx context.Context, app *model.EchoApp) error
	// GetByID loads an app by ID; unknown IDs yield errs.ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*model.EchoApp, error)
	// ListOwnedBy returns apps where the user holds the owner role.
	ListOwnedBy(ctx context.Context, userID uuid.UUID) ([]model.EchoApp, error)
	// AddMember links a user to an app.
	AddMember(ctx context.Context, m model.AppMembership) error
	// MemberRole returns the user's role on the app or errs.ErrNotFound.
	MemberRole(ctx context.Context, appID, userID uuid.UUID) (string, error)
}

// MarkupRepository stores the per-app markup history.
type MarkupRepository interface {
	// Current returns the most recent markup or nil when the app has none.
	Current(ctx context.Context, appID uuid.UUID) (*model.MarkUp, error)
	// Insert appends a markup and advances the app's current pointer when it is the newest.
	Insert(ctx context.Context, m *model.MarkUp) error
	// History returns markups newest first.
	History(ctx context.Context, appID uuid.UUID, p model.Pagination) (model.Page[model.MarkUp], error)
}
