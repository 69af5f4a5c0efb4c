package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
	"github.com/ArDnath/echo/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements LedgerRepository using PostgreSQL.
// Every amount is summed as NUMERIC and scanned into decimal.Decimal.
type LedgerRepo struct{ db *DB }

// NewLedgerRepo constructs a ledger repository.
func NewLedgerRepo(db *DB) *LedgerRepo { return &LedgerRepo{db: db} }

const txCols = `id, user_id, echo_app_id, provider, model, raw_cost, markup_id, markup_rate, markup_profit, total_cost, idempotency_key, created_at`

func scanTx(row pgx.Row) (model.Transaction, error) {
	var t model.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.EchoAppID, &t.Provider, &t.Model, &t.RawCost,
		&t.MarkUpID, &t.MarkUpRate, &t.MarkUpProfit, &t.TotalCost, &t.IdempotencyKey, &t.CreatedAt)
	return t, err
}

// inWindow renders a half-open [from, to) filter on col; a NULL bound is open.
func inWindow(col string, from, to int) string {
	return fmt.Sprintf("($%[2]d::timestamptz IS NULL OR %[1]s >= $%[2]d) AND ($%[3]d::timestamptz IS NULL OR %[1]s < $%[3]d)", col, from, to)
}

func metricColumn(m repository.Metric) string {
	if m == repository.Earnings {
		return "t.markup_profit"
	}
	return "t.total_cost"
}

// Append inserts a transaction. A replayed idempotency key returns the stored row.
func (r *LedgerRepo) Append(ctx context.Context, t *model.Transaction) (*model.Transaction, bool, error) {
	const ins = `
INSERT INTO transactions (` + txCols + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
RETURNING ` + txCols
	row := r.db.Pool.QueryRow(ctx, ins, t.ID, t.UserID, t.EchoAppID, t.Provider, t.Model, t.RawCost,
		t.MarkUpID, t.MarkUpRate, t.MarkUpProfit, t.TotalCost, t.IdempotencyKey, t.CreatedAt)
	stored, err := scanTx(row)
	switch {
	case err == nil:
		return &stored, true, nil
	case errors.Is(err, pgx.ErrNoRows) && t.IdempotencyKey != nil:
		const sel = `SELECT ` + txCols + ` FROM transactions WHERE idempotency_key=$1`
		prev, err := scanTx(r.db.Pool.QueryRow(ctx, sel, *t.IdempotencyKey))
		if err != nil {
			return nil, false, notFound(err)
		}
		return &prev, false, nil
	default:
		return nil, false, mapWriteErr(err, errs.ErrAlreadyExists)
	}
}

// ListByApp returns an app's transactions newest first.
func (r *LedgerRepo) ListByApp(ctx context.Context, appID uuid.UUID, w model.Window, p model.Pagination) (model.Page[model.Transaction], error) {
	return r.list(ctx, "echo_app_id", appID, w, p)
}

// ListByUser returns a user's transactions newest first.
func (r *LedgerRepo) ListByUser(ctx context.Context, userID uuid.UUID, w model.Window, p model.Pagination) (model.Page[model.Transaction], error) {
	return r.list(ctx, "user_id", userID, w, p)
}

func (r *LedgerRepo) list(ctx context.Context, col string, id uuid.UUID, w model.Window, p model.Pagination) (model.Page[model.Transaction], error) {
	where := `WHERE ` + col + `=$1 AND ` + inWindow("created_at", 2, 3)
	q := `SELECT ` + txCols + ` FROM transactions ` + where + ` ORDER BY created_at DESC, id DESC LIMIT $4 OFFSET $5`

	rows, err := r.db.Pool.Query(ctx, q, id, w.From, w.To, p.Limit(), p.Offset())
	if err != nil {
		return model.Page[model.Transaction]{}, err
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return model.Page[model.Transaction]{}, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return model.Page[model.Transaction]{}, err
	}

	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions `+where, id, w.From, w.To).Scan(&total); err != nil {
		return model.Page[model.Transaction]{}, err
	}
	return model.NewPage(out, p, total), nil
}

// TotalsByApp sums an app's transactions.
func (r *LedgerRepo) TotalsByApp(ctx context.Context, appID uuid.UUID, w model.Window) (model.TransactionTotals, error) {
	return r.totals(ctx, "echo_app_id", appID, w)
}

// TotalsByUser sums a user's transactions.
func (r *LedgerRepo) TotalsByUser(ctx context.Context, userID uuid.UUID, w model.Window) (model.TransactionTotals, error) {
	return r.totals(ctx, "user_id", userID, w)
}

func (r *LedgerRepo) totals(ctx context.Context, col string, id uuid.UUID, w model.Window) (model.TransactionTotals, error) {
	q := `
SELECT COUNT(*), COALESCE(SUM(raw_cost), 0), COALESCE(SUM(markup_profit), 0), COALESCE(SUM(total_cost), 0)
FROM transactions
WHERE ` + col + `=$1 AND ` + inWindow("created_at", 2, 3)
	var t model.TransactionTotals
	err := r.db.Pool.QueryRow(ctx, q, id, w.From, w.To).Scan(&t.Count, &t.RawCost, &t.MarkUpProfit, &t.TotalCost)
	return t, err
}

// OwnerEarningsByApp breaks down profit on apps the user owns.
func (r *LedgerRepo) OwnerEarningsByApp(ctx context.Context, userID uuid.UUID, w model.Window) ([]model.BreakdownEntry, error) {
	q := `
SELECT t.echo_app_id::text, SUM(t.markup_profit), COUNT(*)
FROM transactions t
JOIN app_memberships m ON m.echo_app_id = t.echo_app_id AND m.role = 'owner'
WHERE m.user_id=$1 AND ` + inWindow("t.created_at", 2, 3) + `
GROUP BY t.echo_app_id
ORDER BY 2 DESC, 1 ASC`
	return r.breakdown(ctx, q, userID, w.From, w.To)
}

// AppEarningsByProvider breaks down an app's profit per provider.
func (r *LedgerRepo) AppEarningsByProvider(ctx context.Context, appID uuid.UUID, w model.Window) ([]model.BreakdownEntry, error) {
	q := `
SELECT t.provider, SUM(t.markup_profit), COUNT(*)
FROM transactions t
WHERE t.echo_app_id=$1 AND ` + inWindow("t.created_at", 2, 3) + `
GROUP BY t.provider
ORDER BY 2 DESC, 1 ASC`
	return r.breakdown(ctx, q, appID, w.From, w.To)
}

// UserSpendingByApp breaks down what a user paid per app.
func (r *LedgerRepo) UserSpendingByApp(ctx context.Context, userID uuid.UUID, w model.Window) ([]model.BreakdownEntry, error) {
	q := `
SELECT t.echo_app_id::text, SUM(t.total_cost), COUNT(*)
FROM transactions t
WHERE t.user_id=$1 AND ` + inWindow("t.created_at", 2, 3) + `
GROUP BY t.echo_app_id
ORDER BY 2 DESC, 1 ASC`
	return r.breakdown(ctx, q, userID, w.From, w.To)
}

// AppSpendingByUser breaks down what each user paid to an app.
func (r *LedgerRepo) AppSpendingByUser(ctx context.Context, appID uuid.UUID, w model.Window) ([]model.BreakdownEntry, error) {
	q := `
SELECT t.user_id::text, SUM(t.total_cost), COUNT(*)
FROM transactions t
WHERE t.echo_app_id=$1 AND ` + inWindow("t.created_at", 2, 3) + `
GROUP BY t.user_id
ORDER BY 2 DESC, 1 ASC`
	return r.breakdown(ctx, q, appID, w.From, w.To)
}

func (r *LedgerRepo) breakdown(ctx context.Context, q string, args ...any) ([]model.BreakdownEntry, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.BreakdownEntry{}
	for rows.Next() {
		var e model.BreakdownEntry
		if err := rows.Scan(&e.Key, &e.Amount.Total, &e.Amount.Count); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PlatformTotal sums the metric over every transaction in the window.
func (r *LedgerRepo) PlatformTotal(ctx context.Context, m repository.Metric, w model.Window) (model.Amount, error) {
	q := `SELECT COALESCE(SUM(` + metricColumn(m) + `), 0), COUNT(*) FROM transactions t WHERE ` + inWindow("t.created_at", 1, 2)
	var a model.Amount
	err := r.db.Pool.QueryRow(ctx, q, w.From, w.To).Scan(&a.Total, &a.Count)
	return a, err
}

// RankUsers ranks owners by earnings or payers by spending.
func (r *LedgerRepo) RankUsers(ctx context.Context, m repository.Metric, w model.Window, p model.Pagination) (model.Page[model.UserAmount], error) {
	from := `FROM transactions t`
	who := "t.user_id"
	if m == repository.Earnings {
		from += ` JOIN app_memberships m ON m.echo_app_id = t.echo_app_id AND m.role = 'owner'`
		who = "m.user_id"
	}
	where := ` WHERE ` + inWindow("t.created_at", 1, 2)
	q := `SELECT ` + who + `, SUM(` + metricColumn(m) + `) AS total, COUNT(*) ` + from + where +
		` GROUP BY ` + who + ` ORDER BY total DESC, ` + who + ` ASC LIMIT $3 OFFSET $4`
	cq := `SELECT COUNT(DISTINCT ` + who + `) ` + from + where
	return r.rank(ctx, q, cq, []any{w.From, w.To}, p)
}

// RankAppUsers ranks the paying users of one app.
func (r *LedgerRepo) RankAppUsers(ctx context.Context, appID uuid.UUID, m repository.Metric, w model.Window, p model.Pagination) (model.Page[model.UserAmount], error) {
	where := ` FROM transactions t WHERE t.echo_app_id=$1 AND ` + inWindow("t.created_at", 2, 3)
	q := `SELECT t.user_id, SUM(` + metricColumn(m) + `) AS total, COUNT(*)` + where +
		` GROUP BY t.user_id ORDER BY total DESC, t.user_id ASC LIMIT $4 OFFSET $5`
	cq := `SELECT COUNT(DISTINCT t.user_id)` + where
	return r.rank(ctx, q, cq, []any{appID, w.From, w.To}, p)
}

func (r *LedgerRepo) rank(ctx context.Context, q, countQ string, args []any, p model.Pagination) (model.Page[model.UserAmount], error) {
	rows, err := r.db.Pool.Query(ctx, q, append(args, p.Limit(), p.Offset())...)
	if err != nil {
		return model.Page[model.UserAmount]{}, err
	}
	defer rows.Close()

	var out []model.UserAmount
	for rows.Next() {
		var ua model.UserAmount
		if err := rows.Scan(&ua.UserID, &ua.Amount.Total, &ua.Amount.Count); err != nil {
			return model.Page[model.UserAmount]{}, err
		}
		out = append(out, ua)
	}
	if err := rows.Err(); err != nil {
		return model.Page[model.UserAmount]{}, err
	}

	var total int64
	if err := r.db.Pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return model.Page[model.UserAmount]{}, err
	}
	return model.NewPage(out, p, total), nil
}
