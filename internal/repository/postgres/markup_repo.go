package postgres

import (
	"context"
	"errors"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// MarkupRepo implements MarkupRepository using PostgreSQL.
// echo_apps.current_markup_id always points at the newest history row.
type MarkupRepo struct{ db *DB }

// NewMarkupRepo constructs a markup repository.
func NewMarkupRepo(db *DB) *MarkupRepo { return &MarkupRepo{db: db} }

// Current follows the app's pointer. Apps without markup (or unknown apps) yield nil.
func (r *MarkupRepo) Current(ctx context.Context, appID uuid.UUID) (*model.MarkUp, error) {
	const q = `
SELECT m.id, m.echo_app_id, m.rate, m.created_at
FROM echo_apps a
JOIN markups m ON m.id = a.current_markup_id
WHERE a.id=$1`
	var m model.MarkUp
	err := r.db.Pool.QueryRow(ctx, q, appID).Scan(&m.ID, &m.EchoAppID, &m.Rate, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Insert appends a history row under the app's row lock and moves the pointer
// unless the current markup is newer than the inserted one.
func (r *MarkupRepo) Insert(ctx context.Context, m *model.MarkUp) error {
	const lock = `SELECT id FROM echo_apps WHERE id=$1 FOR UPDATE`
	const ins = `INSERT INTO markups (id, echo_app_id, rate, created_at) VALUES ($1, $2, $3, $4)`
	const advance = `
UPDATE echo_apps a
SET current_markup_id = $2
WHERE a.id = $1
  AND NOT EXISTS (
    SELECT 1 FROM markups c
    WHERE c.id = a.current_markup_id AND (c.created_at, c.id) > ($3::timestamptz, $2::uuid))`

	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, lock, m.EchoAppID).Scan(&locked); err != nil {
			return notFound(err)
		}
		if _, err := tx.Exec(ctx, ins, m.ID, m.EchoAppID, m.Rate, m.CreatedAt); err != nil {
			return mapWriteErr(err, errs.ErrAlreadyExists)
		}
		_, err := tx.Exec(ctx, advance, m.EchoAppID, m.ID, m.CreatedAt)
		return err
	})
}

// History returns an app's markups newest first.
func (r *MarkupRepo) History(ctx context.Context, appID uuid.UUID, p model.Pagination) (model.Page[model.MarkUp], error) {
	const q = `
SELECT id, echo_app_id, rate, created_at
FROM markups
WHERE echo_app_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	rows, err := r.db.Pool.Query(ctx, q, appID, p.Limit(), p.Offset())
	if err != nil {
		return model.Page[model.MarkUp]{}, err
	}
	defer rows.Close()

	var out []model.MarkUp
	for rows.Next() {
		var m model.MarkUp
		if err := rows.Scan(&m.ID, &m.EchoAppID, &m.Rate, &m.CreatedAt); err != nil {
			return model.Page[model.MarkUp]{}, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return model.Page[model.MarkUp]{}, err
	}

	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM markups WHERE echo_app_id=$1`, appID).Scan(&total); err != nil {
		return model.Page[model.MarkUp]{}, err
	}
	return model.NewPage(out, p, total), nil
}
