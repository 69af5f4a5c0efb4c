package postgres

import (
	"context"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
	"github.com/gofrs/uuid/v5"
)

// AppRepo implements AppRepository using PostgreSQL.
type AppRepo struct{ db *DB }

// NewAppRepo constructs an app repository.
func NewAppRepo(db *DB) *AppRepo { return &AppRepo{db: db} }

// Create inserts an app row.
func (r *AppRepo) Create(ctx context.Context, a *model.EchoApp) error {
	const q = `
INSERT INTO echo_apps (id, name, description, is_archived, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, a.ID, a.Name, a.Description, a.IsArchived, a.CreatedAt)
	return mapWriteErr(err, errs.ErrAlreadyExists)
}

// GetByID selects an app by ID.
func (r *AppRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.EchoApp, error) {
	const q = `SELECT id, name, description, is_archived, created_at FROM echo_apps WHERE id=$1`
	var a model.EchoApp
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&a.ID, &a.Name, &a.Description, &a.IsArchived, &a.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// ListOwnedBy returns the apps a user owns, newest first.
func (r *AppRepo) ListOwnedBy(ctx context.Context, userID uuid.UUID) ([]model.EchoApp, error) {
	const q = `
SELECT a.id, a.name, a.description, a.is_archived, a.created_at
FROM echo_apps a
JOIN app_memberships m ON m.echo_app_id = a.id
WHERE m.user_id=$1 AND m.role=$2
ORDER BY a.created_at DESC, a.id DESC`
	rows, err := r.db.Pool.Query(ctx, q, userID, model.RoleOwner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.EchoApp{}
	for rows.Next() {
		var a model.EchoApp
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.IsArchived, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AddMember links a user to an app.
func (r *AppRepo) AddMember(ctx context.Context, m model.AppMembership) error {
	const q = `
INSERT INTO app_memberships (user_id, echo_app_id, role, created_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, m.UserID, m.EchoAppID, m.Role, m.CreatedAt)
	return mapWriteErr(err, errs.ErrAlreadyExists)
}

// MemberRole returns the user's role on the app.
func (r *AppRepo) MemberRole(ctx context.Context, appID, userID uuid.UUID) (string, error) {
	const q = `SELECT role FROM app_memberships WHERE echo_app_id=$1 AND user_id=$2`
	var role string
	if err := r.db.Pool.QueryRow(ctx, q, appID, userID).Scan(&role); err != nil {
		return "", notFound(err)
	}
	return role, nil
}
