package httpserver

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
	"github.com/ArDnath/echo/internal/service"
)

// Each fake embeds its service interface; calling a method the fake does not
// override panics, which the Recoverer turns into a 500.

type fakeTokens struct {
	service.TokenService
	claims map[string]model.AccessClaims

	mu        sync.Mutex
	refreshIP string
	refreshed model.Tokens
	revoked   []uuid.UUID
}

func (f *fakeTokens) ValidateAccess(token string) (model.AccessClaims, error) {
	c, ok := f.claims[token]
	if !ok {
		return model.AccessClaims{}, errs.ErrUnauthenticated
	}
	return c, nil
}

func (f *fakeTokens) RefreshWithIP(_ context.Context, refresh, ip string) (model.Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshIP = ip
	if refresh != "good" {
		return model.Tokens{}, errs.ErrTokenExpired
	}
	return f.refreshed, nil
}

func (f *fakeTokens) RevokeSession(_ context.Context, sid uuid.UUID) error {
	f.revoked = append(f.revoked, sid)
	return nil
}

type fakeAccess struct {
	principals map[uuid.UUID]model.Principal
	// owners[app] lists users allowed to manage the app.
	owners map[uuid.UUID][]uuid.UUID
}

func (f *fakeAccess) Principal(_ context.Context, id uuid.UUID) (model.Principal, error) {
	p, ok := f.principals[id]
	if !ok {
		return model.Principal{}, errs.ErrUnauthenticated
	}
	return p, nil
}

func (f *fakeAccess) AuthorizeApp(_ context.Context, p model.Principal, appID uuid.UUID) error {
	if p.IsAdmin {
		return nil
	}
	for _, u := range f.owners[appID] {
		if u == p.UserID {
			return nil
		}
	}
	return errs.ErrForbidden
}

func (f *fakeAccess) AuthorizePayer(ctx context.Context, p model.Principal, appID, payer uuid.UUID) error {
	if payer == p.UserID {
		return nil
	}
	return f.AuthorizeApp(ctx, p, appID)
}

type fakeLedger struct {
	service.LedgerService
	balance    model.Balance
	lastWindow model.Window
	lastPage   model.Pagination
	ranked     model.Page[model.UserAmount]
}

func (f *fakeLedger) UserBalance(_ context.Context, id uuid.UUID) (model.Balance, error) {
	b := f.balance
	b.UserID = id
	return b, nil
}

func (f *fakeLedger) EarningsForUser(_ context.Context, _ uuid.UUID, w model.Window) (model.Aggregate, error) {
	f.lastWindow = w
	if err := w.Validate(); err != nil {
		return model.Aggregate{}, err
	}
	return model.Aggregate{Breakdown: []model.BreakdownEntry{}}, nil
}

func (f *fakeLedger) AllUsersEarnings(_ context.Context, w model.Window) (model.Amount, error) {
	f.lastWindow = w
	return model.Amount{Total: decimal.RequireFromString("12.5"), Count: 3}, nil
}

func (f *fakeLedger) AllUsersEarningsPaginated(_ context.Context, w model.Window, p model.Pagination) (model.Page[model.UserAmount], error) {
	f.lastWindow, f.lastPage = w, p
	return f.ranked, nil
}

func (f *fakeLedger) AppTransactionsPaginated(_ context.Context, _ uuid.UUID, w model.Window, p model.Pagination) (model.Page[model.Transaction], error) {
	f.lastWindow, f.lastPage = w, p
	return model.NewPage[model.Transaction](nil, p, 0), nil
}

type fakeMarkups struct {
	service.MarkupService
	current *model.MarkUp
}

func (f *fakeMarkups) Current(context.Context, uuid.UUID) (*model.MarkUp, error) { return f.current, nil }

func (f *fakeMarkups) Set(_ context.Context, appID uuid.UUID, rate decimal.Decimal) (*model.MarkUp, error) {
	if rate.IsNegative() {
		return nil, errs.ErrInvalidArgument
	}
	f.current = &model.MarkUp{ID: uuid.Must(uuid.NewV4()), EchoAppID: appID, Rate: rate}
	return f.current, nil
}

type fakePayments struct {
	app      *model.EchoApp
	markup   *model.MarkUp
	recorded []model.NewTransaction
}

func (f *fakePayments) Authenticate(_ context.Context, headers map[string]string) (*model.PaymentAuth, error) {
	v, ok := headers[service.AppIDHeader]
	if !ok {
		return nil, nil
	}
	if f.app != nil && v == f.app.ID.String() {
		return &model.PaymentAuth{EchoApp: f.app, MarkUp: f.markup}, nil
	}
	return &model.PaymentAuth{}, nil
}

func (f *fakePayments) RecordTransaction(_ context.Context, auth *model.PaymentAuth, in model.NewTransaction) (*model.Transaction, error) {
	if auth.EchoApp == nil {
		return nil, errs.ErrNotFound
	}
	f.recorded = append(f.recorded, in)
	profit, total := model.Price(in.RawCost, auth.MarkUp.Rate)
	return &model.Transaction{
		ID: uuid.Must(uuid.NewV4()), UserID: in.UserID, EchoAppID: auth.EchoApp.ID, Provider: in.Provider,
		RawCost: in.RawCost, MarkUpRate: auth.MarkUp.Rate, MarkUpProfit: profit, TotalCost: total,
	}, nil
}

type fakeGrants struct {
	service.GrantService
	redeemed map[string]bool
}

func (f *fakeGrants) Redeem(_ context.Context, code string, userID uuid.UUID) (*model.CreditMint, error) {
	if code != "WELCOME" {
		return nil, errs.ErrNotFound
	}
	if f.redeemed[userID.String()] {
		return nil, errs.ErrAlreadyRedeemed
	}
	f.redeemed[userID.String()] = true
	return &model.CreditMint{ID: uuid.Must(uuid.NewV4()), UserID: userID, Amount: decimal.NewFromInt(5), Source: model.MintSourceGrant}, nil
}

type fakeAdmin struct {
	service.AdminService
	export *model.UserCSVExport
	after  time.Time
}

func (f *fakeAdmin) ExportUsersCSV(_ context.Context, _ model.Principal, after time.Time) (*model.UserCSVExport, error) {
	f.after = after
	return f.export, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }
