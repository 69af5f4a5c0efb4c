package service

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/limiter"
	"github.com/ArDnath/echo/internal/model"
	"github.com/ArDnath/echo/internal/repository"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type fakeUsers struct {
	byID    map[uuid.UUID]*model.User
	getErr  error
	listErr error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.byID == nil {
		f.byID = map[uuid.UUID]*model.User{}
	}
	if _, ok := f.byID[u.ID]; ok {
		return errs.ErrAlreadyExists
	}
	c := *u
	f.byID[u.ID] = &c
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) sorted() []model.User {
	out := make([]model.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeUsers) List(_ context.Context, p model.Pagination) (model.Page[model.User], error) {
	all := f.sorted()
	lo := min(p.Offset(), len(all))
	hi := min(lo+p.Limit(), len(all))
	return model.NewPage(all[lo:hi], p, int64(len(all))), nil
}

func (f *fakeUsers) ListCreatedSince(_ context.Context, since time.Time) ([]model.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.User
	for _, u := range f.sorted() {
		if !u.CreatedAt.Before(since) {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeApps struct {
	apps   map[uuid.UUID]*model.EchoApp
	roles  map[[2]uuid.UUID]string
	getErr error
}

var _ repository.AppRepository = (*fakeApps)(nil)

func (f *fakeApps) Create(_ context.Context, a *model.EchoApp) error {
	if f.apps == nil {
		f.apps = map[uuid.UUID]*model.EchoApp{}
	}
	c := *a
	f.apps[a.ID] = &c
	return nil
}

func (f *fakeApps) GetByID(_ context.Context, id uuid.UUID) (*model.EchoApp, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.apps[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (f *fakeApps) ListOwnedBy(_ context.Context, userID uuid.UUID) ([]model.EchoApp, error) {
	out := []model.EchoApp{}
	for k, role := range f.roles {
		if k[1] == userID && role == model.RoleOwner {
			if a, ok := f.apps[k[0]]; ok {
				out = append(out, *a)
			}
		}
	}
	return out, nil
}

func (f *fakeApps) AddMember(_ context.Context, m model.AppMembership) error {
	if f.roles == nil {
		f.roles = map[[2]uuid.UUID]string{}
	}
	f.roles[[2]uuid.UUID{m.EchoAppID, m.UserID}] = m.Role
	return nil
}

func (f *fakeApps) MemberRole(_ context.Context, appID, userID uuid.UUID) (string, error) {
	r, ok := f.roles[[2]uuid.UUID{appID, userID}]
	if !ok {
		return "", errs.ErrNotFound
	}
	return r, nil
}

type fakeMarkups struct {
	current  map[uuid.UUID]*model.MarkUp
	inserted []model.MarkUp
	err      error
	calls    int
}

var _ repository.MarkupRepository = (*fakeMarkups)(nil)

func (f *fakeMarkups) Current(_ context.Context, appID uuid.UUID) (*model.MarkUp, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.current[appID]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (f *fakeMarkups) Insert(_ context.Context, m *model.MarkUp) error {
	if f.err != nil {
		return f.err
	}
	if f.current == nil {
		f.current = map[uuid.UUID]*model.MarkUp{}
	}
	f.inserted = append(f.inserted, *m)
	// Same rule as the SQL pointer advance: keep a current row that is newer by (created_at, id).
	if cur, ok := f.current[m.EchoAppID]; ok && newerMarkup(cur, m) {
		return nil
	}
	c := *m
	f.current[m.EchoAppID] = &c
	return nil
}

func newerMarkup(a, b *model.MarkUp) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return bytes.Compare(a.ID.Bytes(), b.ID.Bytes()) > 0
}

func (f *fakeMarkups) History(_ context.Context, _ uuid.UUID, p model.Pagination) (model.Page[model.MarkUp], error) {
	return model.NewPage(f.inserted, p, int64(len(f.inserted))), nil
}

type fakeLedger struct {
	mu      sync.Mutex
	txs     []model.Transaction
	byKey   map[string]model.Transaction
	err     error
	entries []model.BreakdownEntry
	totals  model.TransactionTotals

	lastMetric repository.Metric
	lastWindow model.Window
}

var _ repository.LedgerRepository = (*fakeLedger)(nil)

func (f *fakeLedger) Append(_ context.Context, t *model.Transaction) (*model.Transaction, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}
	if f.byKey == nil {
		f.byKey = map[string]model.Transaction{}
	}
	if t.IdempotencyKey != nil {
		if prev, ok := f.byKey[*t.IdempotencyKey]; ok {
			return &prev, false, nil
		}
		f.byKey[*t.IdempotencyKey] = *t
	}
	f.txs = append(f.txs, *t)
	c := *t
	return &c, true, nil
}

func (f *fakeLedger) list(w model.Window, p model.Pagination) (model.Page[model.Transaction], error) {
	f.lastWindow = w
	return model.NewPage(f.txs, p, int64(len(f.txs))), f.err
}

func (f *fakeLedger) ListByApp(_ context.Context, _ uuid.UUID, w model.Window, p model.Pagination) (model.Page[model.Transaction], error) {
	return f.list(w, p)
}

func (f *fakeLedger) ListByUser(_ context.Context, _ uuid.UUID, w model.Window, p model.Pagination) (model.Page[model.Transaction], error) {
	return f.list(w, p)
}

func (f *fakeLedger) TotalsByApp(_ context.Context, _ uuid.UUID, w model.Window) (model.TransactionTotals, error) {
	f.lastWindow = w
	return f.totals, f.err
}

func (f *fakeLedger) TotalsByUser(_ context.Context, _ uuid.UUID, w model.Window) (model.TransactionTotals, error) {
	f.lastWindow = w
	return f.totals, f.err
}

func (f *fakeLedger) breakdown(w model.Window) ([]model.BreakdownEntry, error) {
	f.lastWindow = w
	return f.entries, f.err
}

func (f *fakeLedger) OwnerEarningsByApp(_ context.Context, _ uuid.UUID, w model.Window) ([]model.BreakdownEntry, error) {
	return f.breakdown(w)
}

func (f *fakeLedger) AppEarningsByProvider(_ context.Context, _ uuid.UUID, w model.Window) ([]model.BreakdownEntry, error) {
	return f.breakdown(w)
}

func (f *fakeLedger) UserSpendingByApp(_ context.Context, _ uuid.UUID, w model.Window) ([]model.BreakdownEntry, error) {
	return f.breakdown(w)
}

func (f *fakeLedger) AppSpendingByUser(_ context.Context, _ uuid.UUID, w model.Window) ([]model.BreakdownEntry, error) {
	return f.breakdown(w)
}

func (f *fakeLedger) PlatformTotal(_ context.Context, m repository.Metric, w model.Window) (model.Amount, error) {
	f.lastMetric, f.lastWindow = m, w
	return model.SumBreakdown(f.entries), f.err
}

func (f *fakeLedger) RankUsers(_ context.Context, m repository.Metric, w model.Window, p model.Pagination) (model.Page[model.UserAmount], error) {
	f.lastMetric, f.lastWindow = m, w
	return model.NewPage[model.UserAmount](nil, p, 0), f.err
}

func (f *fakeLedger) RankAppUsers(_ context.Context, _ uuid.UUID, m repository.Metric, w model.Window, p model.Pagination) (model.Page[model.UserAmount], error) {
	f.lastMetric, f.lastWindow = m, w
	return model.NewPage[model.UserAmount](nil, p, 0), f.err
}

// fakeGrants enforces one redemption per (grant, user) like the storage constraint.
type fakeGrants struct {
	mu     sync.Mutex
	byCode map[string]*model.CreditGrantCode
	used   map[[2]uuid.UUID]int
	mints  []model.CreditMint
}

var _ repository.GrantRepository = (*fakeGrants)(nil)

func newFakeGrants() *fakeGrants {
	return &fakeGrants{byCode: map[string]*model.CreditGrantCode{}, used: map[[2]uuid.UUID]int{}}
}

func (f *fakeGrants) Create(_ context.Context, g *model.CreditGrantCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byCode[g.Code]; ok {
		return errs.ErrAlreadyExists
	}
	c := *g
	f.byCode[g.Code] = &c
	return nil
}

func (f *fakeGrants) GetByCode(_ context.Context, code string) (*model.CreditGrantCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.byCode[code]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *g
	return &c, nil
}

func (f *fakeGrants) List(_ context.Context, p model.Pagination) (model.Page[model.CreditGrantCode], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.CreditGrantCode
	for _, g := range f.byCode {
		if !g.IsArchived {
			all = append(all, *g)
		}
	}
	// created_at DESC, id DESC
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return bytes.Compare(all[i].ID.Bytes(), all[j].ID.Bytes()) > 0
	})
	lo := min(p.Offset(), len(all))
	hi := min(lo+p.Limit(), len(all))
	return model.NewPage(all[lo:hi], p, int64(len(all))), nil
}

func (f *fakeGrants) Update(_ context.Context, id uuid.UUID, patch model.GrantPatch) (*model.CreditGrantCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.byCode {
		if g.ID != id {
			continue
		}
		if patch.GrantAmount != nil {
			g.GrantAmount = *patch.GrantAmount
		}
		if patch.IsArchived != nil {
			g.IsArchived = *patch.IsArchived
		}
		if patch.Name != nil {
			g.Name = *patch.Name
		}
		c := *g
		return &c, nil
	}
	return nil, errs.ErrNotFound
}

func (f *fakeGrants) Redeem(_ context.Context, code string, userID uuid.UUID, now time.Time) (*model.CreditMint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.byCode[code]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if !g.Redeemable(now) {
		return nil, errs.ErrGrantInactive
	}
	k := [2]uuid.UUID{g.ID, userID}
	if f.used[k] > 0 {
		return nil, errs.ErrAlreadyRedeemed
	}
	f.used[k]++
	gid := g.ID
	m := model.CreditMint{ID: uuid.Must(uuid.NewV4()), UserID: userID, Amount: g.GrantAmount,
		Source: model.MintSourceGrant, CreditGrantCodeID: &gid, CreatedAt: now}
	f.mints = append(f.mints, m)
	return &m, nil
}

func (f *fakeGrants) Usages(_ context.Context, grantID uuid.UUID, p model.Pagination) (model.GrantUsages, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []model.GrantUsageCount
	var total int64
	for k, n := range f.used {
		if k[0] == grantID {
			items = append(items, model.GrantUsageCount{UserID: k[1], Count: int64(n)})
			total += int64(n)
		}
	}
	return model.GrantUsages{Page: model.NewPage(items, p, int64(len(items))), TotalUsages: total}, nil
}

type fakeCredits struct {
	mints  []model.CreditMint
	minted decimal.Decimal
	err    error
}

var _ repository.CreditRepository = (*fakeCredits)(nil)

func (f *fakeCredits) Mint(_ context.Context, m *model.CreditMint) error {
	if f.err != nil {
		return f.err
	}
	f.mints = append(f.mints, *m)
	return nil
}

func (f *fakeCredits) MintedTotal(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return f.minted, f.err
}

// fakeTokens mirrors the row-lock rotation of the Postgres repository.
type fakeTokens struct {
	mu     sync.Mutex
	byHash map[string]*model.RefreshToken
}

var _ repository.TokenRepository = (*fakeTokens)(nil)

func newFakeTokens() *fakeTokens { return &fakeTokens{byHash: map[string]*model.RefreshToken{}} }

func (f *fakeTokens) Insert(_ context.Context, t *model.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertLocked(t)
}

func (f *fakeTokens) insertLocked(t *model.RefreshToken) error {
	for _, o := range f.byHash {
		if o.SessionID == t.SessionID && o.ArchivedAt == nil {
			return errs.ErrAlreadyExists
		}
	}
	c := *t
	f.byHash[string(t.TokenHash)] = &c
	return nil
}

func (f *fakeTokens) Rotate(_ context.Context, hash []byte, now time.Time, grace time.Duration, next *model.RefreshToken) (*model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.byHash[string(hash)]
	if !ok {
		return nil, errs.ErrUnauthenticated
	}
	if old.State(now) == model.TokenExpired {
		return nil, errs.ErrTokenExpired
	}
	graceEnd := now.Add(grace)
	for _, o := range f.byHash {
		if o.SessionID == old.SessionID && o.ArchivedAt == nil {
			at := now
			o.ArchivedAt, o.GraceExpiresAt = &at, &graceEnd
		}
	}
	next.SessionID, next.UserID = old.SessionID, old.UserID
	if err := f.insertLocked(next); err != nil {
		return nil, errs.ErrTokenExpired
	}
	c := *old
	return &c, nil
}

func (f *fakeTokens) RevokeSession(_ context.Context, sessionID uuid.UUID, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.byHash {
		if o.SessionID == sessionID && o.ArchivedAt == nil {
			at := now
			o.ArchivedAt, o.GraceExpiresAt = &at, &at
			n++
		}
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (f *fakeTokens) active(sessionID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.byHash {
		if o.SessionID == sessionID && o.ArchivedAt == nil {
			n++
		}
	}
	return n
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}

func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return nil
}

func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, nil
}

type recordingIdentifier struct {
	calls []model.PaymentAuth
}

func (r *recordingIdentifier) Identify(_ context.Context, _ string, auth *model.PaymentAuth) {
	r.calls = append(r.calls, *auth)
}
