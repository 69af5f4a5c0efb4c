package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// TokenRepo implements TokenRepository using PostgreSQL.
// refresh_tokens_one_active_uq allows a single unarchived token per session.
type TokenRepo struct{ db *DB }

// NewTokenRepo constructs a refresh token repository.
func NewTokenRepo(db *DB) *TokenRepo { return &TokenRepo{db: db} }

const tokenCols = `id, session_id, user_id, token_hash, issued_at, expires_at, archived_at, grace_expires_at`

const insertToken = `
INSERT INTO refresh_tokens (id, session_id, user_id, token_hash, issued_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// Insert stores a new active token.
func (r *TokenRepo) Insert(ctx context.Context, t *model.RefreshToken) error {
	_, err := r.db.Pool.Exec(ctx, insertToken, t.ID, t.SessionID, t.UserID, t.TokenHash, t.IssuedAt, t.ExpiresAt)
	return mapWriteErr(err, errs.ErrAlreadyExists)
}

// Rotate exchanges the presented token for next within one transaction.
func (r *TokenRepo) Rotate(
	ctx context.Context, hash []byte, now time.Time, grace time.Duration, next *model.RefreshToken,
) (*model.RefreshToken, error) {
	const sel = `SELECT ` + tokenCols + ` FROM refresh_tokens WHERE token_hash=$1 FOR UPDATE`
	const archive = `
UPDATE refresh_tokens
SET archived_at=$2, grace_expires_at=$3
WHERE session_id=$1 AND archived_at IS NULL`

	var old model.RefreshToken
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, sel, hash).Scan(&old.ID, &old.SessionID, &old.UserID, &old.TokenHash,
			&old.IssuedAt, &old.ExpiresAt, &old.ArchivedAt, &old.GraceExpiresAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrUnauthenticated
			}
			return err
		}
		if old.State(now) == model.TokenExpired {
			return errs.ErrTokenExpired
		}
		if _, err := tx.Exec(ctx, archive, old.SessionID, now, now.Add(grace)); err != nil {
			return err
		}
		next.SessionID = old.SessionID
		next.UserID = old.UserID
		_, err = tx.Exec(ctx, insertToken, next.ID, next.SessionID, next.UserID, next.TokenHash, next.IssuedAt, next.ExpiresAt)
		// A concurrent rotation of the same lineage committed first.
		return mapWriteErr(err, errs.ErrTokenExpired)
	})
	if err != nil {
		return nil, err
	}
	return &old, nil
}

// RevokeSession archives the lineage's active token with no grace.
func (r *TokenRepo) RevokeSession(ctx context.Context, sessionID uuid.UUID, now time.Time) error {
	const q = `
UPDATE refresh_tokens
SET archived_at=$2, grace_expires_at=$2
WHERE session_id=$1 AND archived_at IS NULL`
	tag, err := r.db.Pool.Exec(ctx, q, sessionID, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
