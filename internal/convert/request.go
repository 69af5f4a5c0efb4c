package convert

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
)

// Request amounts are decimal strings so no precision is lost in transit.

type TransactionRequest struct {
	UserID         string `json:"user_id"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	RawCost        string `json:"raw_cost"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type GrantRequest struct {
	Amount      string     `json:"amount"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type GrantPatchRequest struct {
	Amount      *string    `json:"amount,omitempty"`
	IsArchived  *bool      `json:"is_archived,omitempty"`
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type MintRequest struct {
	UserID string `json:"user_id"`
	Amount string `json:"amount"`
}

type MarkupRequest struct {
	Rate string `json:"rate"`
}

type RedeemRequest struct {
	Code string `json:"code"`
}

type TokenRequest struct {
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
}

// ParseDecimal parses a non-empty decimal string.
func ParseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", field, errs.ErrInvalidArgument)
	}
	return d, nil
}

// ParseID parses a UUID field.
func ParseID(field, s string) (uuid.UUID, error) {
	id, err := uuid.FromString(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", field, errs.ErrInvalidArgument)
	}
	return id, nil
}

func FromTransactionRequest(in TransactionRequest) (model.NewTransaction, error) {
	uid, err := ParseID("user_id", in.UserID)
	if err != nil {
		return model.NewTransaction{}, err
	}
	raw, err := ParseDecimal("raw_cost", in.RawCost)
	if err != nil {
		return model.NewTransaction{}, err
	}
	return model.NewTransaction{
		UserID:         uid,
		Provider:       in.Provider,
		Model:          in.Model,
		RawCost:        raw,
		IdempotencyKey: in.IdempotencyKey,
	}, nil
}

func FromGrantRequest(in GrantRequest) (model.NewGrant, error) {
	amount, err := ParseDecimal("amount", in.Amount)
	if err != nil {
		return model.NewGrant{}, err
	}
	return model.NewGrant{GrantAmount: amount, Name: in.Name, Description: in.Description, ExpiresAt: in.ExpiresAt}, nil
}

func FromGrantPatchRequest(in GrantPatchRequest) (model.GrantPatch, error) {
	p := model.GrantPatch{IsArchived: in.IsArchived, Name: in.Name, Description: in.Description, ExpiresAt: in.ExpiresAt}
	if in.Amount != nil {
		amount, err := ParseDecimal("amount", *in.Amount)
		if err != nil {
			return model.GrantPatch{}, err
		}
		p.GrantAmount = &amount
	}
	return p, nil
}
