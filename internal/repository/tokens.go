package repository

import (
	"context"
	"time"

	"github.com/ArDnath/echo/internal/model"
	"github.com/gofrs/uuid/v5"
)

// TokenRepository stores refresh token lineages.
type TokenRepository interface {
	// Insert stores a new active token, starting or continuing a lineage.
	Insert(ctx context.Context, t *model.RefreshToken) error
	// Rotate locks the token matching hash, verifies it is usable at now, archives the
	// lineage's active token with the given grace and stores next as the new active token.
	// next inherits SessionID and UserID from the presented token.
	Rotate(ctx context.Context, hash []byte, now time.Time, grace time.Duration, next *model.RefreshToken) (*model.RefreshToken, error)
	// RevokeSession archives the lineage's active token without grace.
	RevokeSession(ctx context.Context, sessionID uuid.UUID, now time.Time) error
}
