// Package convert maps domain models to wire DTOs and parses wire requests.
// Decimal amounts become floats only on the way out of this package.
package convert

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/ArDnath/echo/internal/model"
)

// PageDTO is a page of any wire item.
type PageDTO[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
}

// ToPage converts every item of a model page.
func ToPage[A, B any](p model.Page[A], f func(A) B) PageDTO[B] {
	items := make([]B, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, f(it))
	}
	return PageDTO[B]{Items: items, Page: p.Page, PageSize: p.PageSize, TotalCount: p.TotalCount}
}

func money(d decimal.Decimal) float64 { return d.InexactFloat64() }

func idPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

type UserDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func ToUser(u model.User) UserDTO {
	return UserDTO{ID: u.ID.String(), Name: u.Name, Email: u.Email, IsAdmin: u.IsAdmin, CreatedAt: u.CreatedAt}
}

type AppDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsArchived  bool      `json:"is_archived"`
	CreatedAt   time.Time `json:"created_at"`
}

func ToApp(a model.EchoApp) AppDTO {
	return AppDTO{ID: a.ID.String(), Name: a.Name, Description: a.Description, IsArchived: a.IsArchived, CreatedAt: a.CreatedAt}
}

// ToApps never returns nil.
func ToApps(apps []model.EchoApp) []AppDTO {
	out := make([]AppDTO, 0, len(apps))
	for _, a := range apps {
		out = append(out, ToApp(a))
	}
	return out
}

type MarkUpDTO struct {
	ID        string    `json:"id"`
	EchoAppID string    `json:"echo_app_id"`
	Rate      float64   `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
}

func ToMarkUp(m model.MarkUp) MarkUpDTO {
	return MarkUpDTO{ID: m.ID.String(), EchoAppID: m.EchoAppID.String(), Rate: money(m.Rate), CreatedAt: m.CreatedAt}
}

// PaymentAuthDTO reports the outcome of payment request authentication.
type PaymentAuthDTO struct {
	Authenticated bool       `json:"authenticated"`
	EchoApp       *AppDTO    `json:"echo_app"`
	MarkUp        *MarkUpDTO `json:"markup"`
}

func ToPaymentAuth(a *model.PaymentAuth) PaymentAuthDTO {
	if a == nil {
		return PaymentAuthDTO{}
	}
	out := PaymentAuthDTO{Authenticated: true}
	if a.EchoApp != nil {
		app := ToApp(*a.EchoApp)
		out.EchoApp = &app
	}
	if a.MarkUp != nil {
		m := ToMarkUp(*a.MarkUp)
		out.MarkUp = &m
	}
	return out
}

type TransactionDTO struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	EchoAppID      string    `json:"echo_app_id"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	RawCost        float64   `json:"raw_cost"`
	MarkUpID       *string   `json:"markup_id"`
	MarkUpRate     float64   `json:"markup_rate"`
	MarkUpProfit   float64   `json:"markup_profit"`
	TotalCost      float64   `json:"total_cost"`
	IdempotencyKey *string   `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func ToTransaction(t model.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:             t.ID.String(),
		UserID:         t.UserID.String(),
		EchoAppID:      t.EchoAppID.String(),
		Provider:       t.Provider,
		Model:          t.Model,
		RawCost:        money(t.RawCost),
		MarkUpID:       idPtr(t.MarkUpID),
		MarkUpRate:     money(t.MarkUpRate),
		MarkUpProfit:   money(t.MarkUpProfit),
		TotalCost:      money(t.TotalCost),
		IdempotencyKey: t.IdempotencyKey,
		CreatedAt:      t.CreatedAt,
	}
}

type AmountDTO struct {
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

func ToAmount(a model.Amount) AmountDTO { return AmountDTO{Total: money(a.Total), Count: a.Count} }

type BreakdownDTO struct {
	Key   string  `json:"key"`
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

type AggregateDTO struct {
	Total     float64        `json:"total"`
	Count     int64          `json:"count"`
	Breakdown []BreakdownDTO `json:"breakdown"`
}

func ToAggregate(a model.Aggregate) AggregateDTO {
	out := AggregateDTO{Total: money(a.Total), Count: a.Count, Breakdown: make([]BreakdownDTO, 0, len(a.Breakdown))}
	for _, e := range a.Breakdown {
		out.Breakdown = append(out.Breakdown, BreakdownDTO{Key: e.Key, Total: money(e.Amount.Total), Count: e.Amount.Count})
	}
	return out
}

type UserAmountDTO struct {
	UserID string  `json:"user_id"`
	Total  float64 `json:"total"`
	Count  int64   `json:"count"`
}

func ToUserAmount(u model.UserAmount) UserAmountDTO {
	return UserAmountDTO{UserID: u.UserID.String(), Total: money(u.Amount.Total), Count: u.Amount.Count}
}

type TotalsDTO struct {
	Count        int64   `json:"count"`
	RawCost      float64 `json:"raw_cost"`
	MarkUpProfit float64 `json:"markup_profit"`
	TotalCost    float64 `json:"total_cost"`
}

func ToTotals(t model.TransactionTotals) TotalsDTO {
	return TotalsDTO{Count: t.Count, RawCost: money(t.RawCost), MarkUpProfit: money(t.MarkUpProfit), TotalCost: money(t.TotalCost)}
}

type BalanceDTO struct {
	UserID  string  `json:"user_id"`
	Minted  float64 `json:"minted"`
	Spent   float64 `json:"spent"`
	Balance float64 `json:"balance"`
}

func ToBalance(b model.Balance) BalanceDTO {
	return BalanceDTO{UserID: b.UserID.String(), Minted: money(b.Minted), Spent: money(b.Spent), Balance: money(b.Balance)}
}

type GrantDTO struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	GrantAmount float64    `json:"grant_amount"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ExpiresAt   *time.Time `json:"expires_at"`
	IsArchived  bool       `json:"is_archived"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func ToGrant(g model.CreditGrantCode) GrantDTO {
	return GrantDTO{
		ID:          g.ID.String(),
		Code:        g.Code,
		GrantAmount: money(g.GrantAmount),
		Name:        g.Name,
		Description: g.Description,
		ExpiresAt:   g.ExpiresAt,
		IsArchived:  g.IsArchived,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

type GrantUsageDTO struct {
	UserID string `json:"user_id"`
	Count  int64  `json:"count"`
}

type GrantUsagesDTO struct {
	PageDTO[GrantUsageDTO]
	TotalUsages int64 `json:"total_usages"`
}

func ToGrantUsages(u model.GrantUsages) GrantUsagesDTO {
	page := ToPage(u.Page, func(c model.GrantUsageCount) GrantUsageDTO {
		return GrantUsageDTO{UserID: c.UserID.String(), Count: c.Count}
	})
	return GrantUsagesDTO{PageDTO: page, TotalUsages: u.TotalUsages}
}

type MintDTO struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Amount            float64   `json:"amount"`
	Source            string    `json:"source"`
	CreditGrantCodeID *string   `json:"credit_grant_code_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func ToMint(m model.CreditMint) MintDTO {
	return MintDTO{
		ID:                m.ID.String(),
		UserID:            m.UserID.String(),
		Amount:            money(m.Amount),
		Source:            m.Source,
		CreditGrantCodeID: idPtr(m.CreditGrantCodeID),
		CreatedAt:         m.CreatedAt,
	}
}

// TokenDTO follows the OAuth 2.0 token response shape.
type TokenDTO struct {
	AccessToken           string `json:"access_token"`
	TokenType             string `json:"token_type"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
}

// ToToken renders lifetimes relative to now, rounded down to whole seconds.
func ToToken(t model.Tokens, now time.Time) TokenDTO {
	return TokenDTO{
		AccessToken:           t.AccessToken,
		TokenType:             "Bearer",
		ExpiresIn:             int64(t.AccessExpiresAt.Sub(now) / time.Second),
		RefreshToken:          t.RefreshToken,
		RefreshTokenExpiresIn: int64(t.RefreshExpiresAt.Sub(now) / time.Second),
	}
}
