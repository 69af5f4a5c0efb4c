package postgres

import (
	"context"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// CreditRepo implements CreditRepository using PostgreSQL.
type CreditRepo struct{ db *DB }

// NewCreditRepo constructs a credit repository.
func NewCreditRepo(db *DB) *CreditRepo { return &CreditRepo{db: db} }

// Mint inserts a credit mint row.
func (r *CreditRepo) Mint(ctx context.Context, m *model.CreditMint) error {
	const q = `
INSERT INTO credit_mints (id, user_id, amount, source, credit_grant_code_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Pool.Exec(ctx, q, m.ID, m.UserID, m.Amount, m.Source, m.CreditGrantCodeID, m.CreatedAt)
	return mapWriteErr(err, errs.ErrAlreadyExists)
}

// MintedTotal sums every mint for the user.
func (r *CreditRepo) MintedTotal(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.Pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM credit_mints WHERE user_id=$1`, userID).Scan(&total)
	return total, err
}
