package postgres

import (
	"context"
	"time"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `id, name, email, is_admin, created_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.IsAdmin, &u.CreatedAt)
	return u, err
}

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, name, email, is_admin, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Name, u.Email, u.IsAdmin, u.CreatedAt)
	return mapWriteErr(err, errs.ErrAlreadyExists)
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	u, err := scanUser(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// List returns a page of users, newest first.
func (r *UserRepo) List(ctx context.Context, p model.Pagination) (model.Page[model.User], error) {
	const q = `
SELECT ` + userCols + `
FROM users
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2`
	users, err := r.query(ctx, q, p.Limit(), p.Offset())
	if err != nil {
		return model.Page[model.User]{}, err
	}
	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return model.Page[model.User]{}, err
	}
	return model.NewPage(users, p, total), nil
}

// ListCreatedSince returns users created at or after since, newest first.
func (r *UserRepo) ListCreatedSince(ctx context.Context, since time.Time) ([]model.User, error) {
	const q = `
SELECT ` + userCols + `
FROM users
WHERE created_at >= $1
ORDER BY created_at DESC, id DESC`
	return r.query(ctx, q, since)
}

func (r *UserRepo) query(ctx context.Context, q string, args ...any) ([]model.User, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
