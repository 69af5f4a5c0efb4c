package postgres

import (
	"context"
	"time"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// GrantRepo implements GrantRepository using PostgreSQL.
// One redemption per (grant, user) is enforced by credit_grant_code_usages_once.
type GrantRepo struct{ db *DB }

// NewGrantRepo constructs a grant repository.
func NewGrantRepo(db *DB) *GrantRepo { return &GrantRepo{db: db} }

const grantCols = `id, code, grant_amount, name, description, expires_at, is_archived, created_at, updated_at`

func scanGrant(row pgx.Row) (model.CreditGrantCode, error) {
	var g model.CreditGrantCode
	err := row.Scan(&g.ID, &g.Code, &g.GrantAmount, &g.Name, &g.Description, &g.ExpiresAt, &g.IsArchived, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// Create inserts a grant code.
func (r *GrantRepo) Create(ctx context.Context, g *model.CreditGrantCode) error {
	const q = `
INSERT INTO credit_grant_codes (` + grantCols + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Pool.Exec(ctx, q, g.ID, g.Code, g.GrantAmount, g.Name, g.Description, g.ExpiresAt, g.IsArchived, g.CreatedAt, g.UpdatedAt)
	return mapWriteErr(err, errs.ErrAlreadyExists)
}

// GetByCode selects a grant by its code.
func (r *GrantRepo) GetByCode(ctx context.Context, code string) (*model.CreditGrantCode, error) {
	const q = `SELECT ` + grantCols + ` FROM credit_grant_codes WHERE code=$1`
	g, err := scanGrant(r.db.Pool.QueryRow(ctx, q, code))
	if err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

// List returns non-archived grants newest first.
func (r *GrantRepo) List(ctx context.Context, p model.Pagination) (model.Page[model.CreditGrantCode], error) {
	const q = `
SELECT ` + grantCols + `
FROM credit_grant_codes
WHERE NOT is_archived
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2`
	rows, err := r.db.Pool.Query(ctx, q, p.Limit(), p.Offset())
	if err != nil {
		return model.Page[model.CreditGrantCode]{}, err
	}
	defer rows.Close()

	var out []model.CreditGrantCode
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return model.Page[model.CreditGrantCode]{}, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return model.Page[model.CreditGrantCode]{}, err
	}

	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM credit_grant_codes WHERE NOT is_archived`).Scan(&total); err != nil {
		return model.Page[model.CreditGrantCode]{}, err
	}
	return model.NewPage(out, p, total), nil
}

// Update applies the non-nil fields of patch.
func (r *GrantRepo) Update(ctx context.Context, id uuid.UUID, patch model.GrantPatch) (*model.CreditGrantCode, error) {
	const q = `
UPDATE credit_grant_codes SET
  grant_amount = COALESCE($2, grant_amount),
  is_archived = COALESCE($3, is_archived),
  name = COALESCE($4, name),
  description = COALESCE($5, description),
  expires_at = COALESCE($6, expires_at),
  updated_at = now()
WHERE id=$1
RETURNING ` + grantCols
	g, err := scanGrant(r.db.Pool.QueryRow(ctx, q, id, patch.GrantAmount, patch.IsArchived, patch.Name, patch.Description, patch.ExpiresAt))
	if err != nil {
		return nil, mapWriteErr(notFound(err), errs.ErrAlreadyExists)
	}
	return &g, nil
}

// Redeem records the usage and mints the grant amount atomically.
func (r *GrantRepo) Redeem(ctx context.Context, code string, userID uuid.UUID, now time.Time) (*model.CreditMint, error) {
	const sel = `SELECT ` + grantCols + ` FROM credit_grant_codes WHERE code=$1 FOR SHARE`
	const use = `
INSERT INTO credit_grant_code_usages (id, credit_grant_code_id, user_id, created_at)
VALUES ($1, $2, $3, $4)`
	const mint = `
INSERT INTO credit_mints (id, user_id, amount, source, credit_grant_code_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	usageID, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	mintID, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	var out *model.CreditMint
	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		g, err := scanGrant(tx.QueryRow(ctx, sel, code))
		if err != nil {
			return notFound(err)
		}
		if !g.Redeemable(now) {
			return errs.ErrGrantInactive
		}
		if _, err := tx.Exec(ctx, use, usageID, g.ID, userID, now); err != nil {
			return mapWriteErr(err, errs.ErrAlreadyRedeemed)
		}
		grantID := g.ID
		m := &model.CreditMint{
			ID:                mintID,
			UserID:            userID,
			Amount:            g.GrantAmount,
			Source:            model.MintSourceGrant,
			CreditGrantCodeID: &grantID,
			CreatedAt:         now,
		}
		if _, err := tx.Exec(ctx, mint, m.ID, m.UserID, m.Amount, m.Source, m.CreditGrantCodeID, m.CreatedAt); err != nil {
			return mapWriteErr(err, errs.ErrAlreadyExists)
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Usages groups a grant's redemptions by user.
func (r *GrantRepo) Usages(ctx context.Context, grantID uuid.UUID, p model.Pagination) (model.GrantUsages, error) {
	const q = `
SELECT user_id, COUNT(*) AS uses
FROM credit_grant_code_usages
WHERE credit_grant_code_id=$1
GROUP BY user_id
ORDER BY uses DESC, user_id ASC
LIMIT $2 OFFSET $3`
	const cq = `SELECT COUNT(DISTINCT user_id), COUNT(*) FROM credit_grant_code_usages WHERE credit_grant_code_id=$1`

	rows, err := r.db.Pool.Query(ctx, q, grantID, p.Limit(), p.Offset())
	if err != nil {
		return model.GrantUsages{}, err
	}
	defer rows.Close()

	var out []model.GrantUsageCount
	for rows.Next() {
		var c model.GrantUsageCount
		if err := rows.Scan(&c.UserID, &c.Count); err != nil {
			return model.GrantUsages{}, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return model.GrantUsages{}, err
	}

	var users, uses int64
	if err := r.db.Pool.QueryRow(ctx, cq, grantID).Scan(&users, &uses); err != nil {
		return model.GrantUsages{}, err
	}
	return model.GrantUsages{Page: model.NewPage(out, p, users), TotalUsages: uses}, nil
}
