package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap/zaptest"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
)

type tokenFixture struct {
	svc    *TokenServiceImpl
	repo   *fakeTokens
	lim    *fakeLimiter
	now    time.Time
	policy model.TokenPolicy
}

func newTokenFixture(t *testing.T, grace time.Duration) *tokenFixture {
	t.Helper()
	f := &tokenFixture{
		repo:   newFakeTokens(),
		lim:    &fakeLimiter{allowOK: true},
		now:    fixedNow,
		policy: model.TokenPolicy{AccessTTL: time.Minute, RefreshTTL: 24 * time.Hour, ArchiveGrace: grace},
	}
	f.svc = NewTokenService(f.repo, []byte("secret"), f.policy, f.lim, zaptest.NewLogger(t))
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestTokens_IssueAndValidate(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t, 2*time.Minute)
	user := uuid.Must(uuid.NewV4())

	if _, err := f.svc.IssueSession(context.Background(), uuid.Nil); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("nil user: %v", err)
	}
	tok, err := f.svc.IssueSession(context.Background(), user)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" || tok.SessionID == uuid.Nil {
		t.Fatalf("bad tokens: %+v", tok)
	}
	if !tok.RefreshExpiresAt.Equal(fixedNow.Add(24*time.Hour)) || !tok.AccessExpiresAt.Equal(fixedNow.Add(time.Minute)) {
		t.Fatalf("bad expiries: %+v", tok)
	}

	claims, err := f.svc.ValidateAccess(tok.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if claims.UserID != user || claims.SessionID != tok.SessionID {
		t.Fatalf("bad claims: %+v", claims)
	}

	f.now = fixedNow.Add(time.Minute)
	if _, err := f.svc.ValidateAccess(tok.AccessToken); !errors.Is(err, errs.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired at expiry, got %v", err)
	}
}

func TestTokens_ValidateAccess_Rejects(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t, 0)

	if _, err := f.svc.ValidateAccess("garbage"); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("garbage: %v", err)
	}

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uuid.Must(uuid.NewV4()).String(),
		ExpiresAt: jwt.NewNumericDate(fixedNow.Add(time.Hour)),
	})
	signed, _ := other.SignedString([]byte("other-key"))
	if _, err := f.svc.ValidateAccess(signed); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("wrong key: %v", err)
	}

	noSid := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uuid.Must(uuid.NewV4()).String(),
		ExpiresAt: jwt.NewNumericDate(fixedNow.Add(time.Hour)),
	})
	signed, _ = noSid.SignedString([]byte("secret"))
	if _, err := f.svc.ValidateAccess(signed); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("missing session: %v", err)
	}
}

func TestTokens_RefreshGraceWindow(t *testing.T) {
	t.Parallel()
	grace := 2 * time.Minute
	f := newTokenFixture(t, grace)
	ctx := context.Background()

	first, err := f.svc.IssueSession(ctx, uuid.Must(uuid.NewV4()))
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	second, err := f.svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if second.SessionID != first.SessionID || second.RefreshToken == first.RefreshToken {
		t.Fatalf("bad rotation: %+v", second)
	}
	if f.repo.active(first.SessionID) != 1 {
		t.Fatalf("active tokens = %d", f.repo.active(first.SessionID))
	}

	// The archived token still works just before the grace boundary.
	f.now = fixedNow.Add(grace - time.Millisecond)
	if _, err := f.svc.Refresh(ctx, first.RefreshToken); err != nil {
		t.Fatalf("within grace: %v", err)
	}
	// And is rejected exactly at it.
	f.now = fixedNow.Add(grace)
	if _, err := f.svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, errs.ErrTokenExpired) {
		t.Fatalf("at grace boundary: %v", err)
	}
	if f.repo.active(first.SessionID) != 1 {
		t.Fatalf("active tokens = %d", f.repo.active(first.SessionID))
	}
}

func TestTokens_RefreshZeroGrace(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t, 0)
	ctx := context.Background()
	tok, _ := f.svc.IssueSession(ctx, uuid.Must(uuid.NewV4()))
	if _, err := f.svc.Refresh(ctx, tok.RefreshToken); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, tok.RefreshToken); !errors.Is(err, errs.ErrTokenExpired) {
		t.Fatalf("reuse with zero grace: %v", err)
	}
}

func TestTokens_RefreshUnknownAndExpired(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t, time.Minute)
	ctx := context.Background()

	if _, err := f.svc.Refresh(ctx, ""); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("empty: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, "nope"); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("unknown: %v", err)
	}
	tok, _ := f.svc.IssueSession(ctx, uuid.Must(uuid.NewV4()))
	f.now = fixedNow.Add(f.policy.RefreshTTL)
	if _, err := f.svc.Refresh(ctx, tok.RefreshToken); !errors.Is(err, errs.ErrTokenExpired) {
		t.Fatalf("past own expiry: %v", err)
	}
}

func TestTokens_ConcurrentRefreshKeepsOneActive(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t, time.Minute)
	ctx := context.Background()
	tok, err := f.svc.IssueSession(ctx, uuid.Must(uuid.NewV4()))
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Refresh(ctx, tok.RefreshToken)
		}()
	}
	wg.Wait()
	if n := f.repo.active(tok.SessionID); n != 1 {
		t.Fatalf("active tokens after concurrent refresh = %d", n)
	}
}

func TestTokens_RefreshWithIP_Limiter(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t, time.Minute)
	ctx := context.Background()

	f.lim.allowErr = errors.New("lim-err")
	if _, err := f.svc.RefreshWithIP(ctx, "x", "1.2.3.4"); err == nil {
		t.Fatalf("want limiter error propagate")
	}
	f.lim.allowErr = nil

	f.lim.allowOK = false
	if _, err := f.svc.RefreshWithIP(ctx, "x", "1.2.3.4"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	f.lim.allowOK = true

	if _, err := f.svc.RefreshWithIP(ctx, "bad", "1.2.3.4"); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated, got %v", err)
	}
	if f.lim.failureCalls != 1 {
		t.Fatalf("failure calls = %d", f.lim.failureCalls)
	}

	f.lim.failBlocked = true
	if _, err := f.svc.RefreshWithIP(ctx, "bad", "1.2.3.4"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited after block, got %v", err)
	}
	f.lim.failBlocked = false

	tok, _ := f.svc.IssueSession(ctx, uuid.Must(uuid.NewV4()))
	if _, err := f.svc.RefreshWithIP(ctx, tok.RefreshToken, "1.2.3.4"); err != nil {
		t.Fatalf("RefreshWithIP: %v", err)
	}
	if f.lim.successCalls != 1 {
		t.Fatalf("success calls = %d", f.lim.successCalls)
	}
}

func TestTokens_RevokeSession(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t, time.Hour)
	ctx := context.Background()
	tok, _ := f.svc.IssueSession(ctx, uuid.Must(uuid.NewV4()))

	if err := f.svc.RevokeSession(ctx, tok.SessionID); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, tok.RefreshToken); !errors.Is(err, errs.ErrTokenExpired) {
		t.Fatalf("refresh after revoke: %v", err)
	}
	if err := f.svc.RevokeSession(ctx, tok.SessionID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("second revoke: %v", err)
	}
}
