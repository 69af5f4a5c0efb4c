package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// Credit mint sources.
const (
	MintSourceAdmin = "admin"
	MintSourceGrant = "grant"
)

// CreditGrantCode is a redeemable code that mints credits once per user.
type CreditGrantCode struct {
	ID          uuid.UUID
	Code        string
	GrantAmount decimal.Decimal
	Name        string
	Description string
	ExpiresAt   *time.Time
	IsArchived  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Redeemable reports whether the grant may be redeemed at now.
func (g *CreditGrantCode) Redeemable(now time.Time) bool {
	if g.IsArchived {
		return false
	}
	return g.ExpiresAt == nil || now.Before(*g.ExpiresAt)
}

// NewGrant describes a grant to create.
type NewGrant struct {
	GrantAmount decimal.Decimal
	Name        string
	Description string
	ExpiresAt   *time.Time
}

// GrantPatch is a partial update. Nil fields are left unchanged; the code is immutable.
type GrantPatch struct {
	GrantAmount *decimal.Decimal
	IsArchived  *bool
	Name        *string
	Description *string
	ExpiresAt   *time.Time
}

// CreditGrantUsage records a single redemption.
type CreditGrantUsage struct {
	ID                uuid.UUID
	CreditGrantCodeID uuid.UUID
	UserID            uuid.UUID
	CreatedAt         time.Time
}

// GrantUsageCount is the number of redemptions of one grant by one user.
type GrantUsageCount struct {
	UserID uuid.UUID
	Count  int64
}

// GrantUsages is a page of per-user usage counts.
// TotalCount counts distinct users; TotalUsages counts all redemptions.
type GrantUsages struct {
	Page[GrantUsageCount]
	TotalUsages int64
}

// CreditMint adds credits to a user's balance.
type CreditMint struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Amount            decimal.Decimal
	Source            string
	CreditGrantCodeID *uuid.UUID
	CreatedAt         time.Time
}
