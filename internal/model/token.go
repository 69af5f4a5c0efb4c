package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects an issued access/refresh pair.
type Tokens struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	SessionID        uuid.UUID
}

// TokenPolicy holds resolved token lifetimes.
type TokenPolicy struct {
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	ArchiveGrace time.Duration
}

// TokenState is the lifecycle state of a refresh token.
type TokenState int

// Refresh token states.
const (
	TokenActive TokenState = iota
	TokenArchivedInGrace
	TokenExpired
)

func (s TokenState) String() string {
	switch s {
	case TokenActive:
		return "active"
	case TokenArchivedInGrace:
		return "archived_in_grace"
	default:
		return "expired"
	}
}

// RefreshToken is a stored refresh credential. Only the hash is persisted.
type RefreshToken struct {
	ID             uuid.UUID
	SessionID      uuid.UUID
	UserID         uuid.UUID
	TokenHash      []byte
	IssuedAt       time.Time
	ExpiresAt      time.Time
	ArchivedAt     *time.Time
	GraceExpiresAt *time.Time
}

// State evaluates the token at now. An archived token is usable strictly before
// its grace expiry; a token past its own expiry is never usable.
func (t *RefreshToken) State(now time.Time) TokenState {
	if !now.Before(t.ExpiresAt) {
		return TokenExpired
	}
	if t.ArchivedAt == nil {
		return TokenActive
	}
	if t.GraceExpiresAt != nil && now.Before(*t.GraceExpiresAt) {
		return TokenArchivedInGrace
	}
	return TokenExpired
}

// AccessClaims are the verified contents of an access token.
type AccessClaims struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	ExpiresAt time.Time
}
