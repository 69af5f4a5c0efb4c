package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/ArDnath/echo/internal/crypto"
	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/limiter"
	"github.com/ArDnath/echo/internal/metrics"
	"github.com/ArDnath/echo/internal/model"
	"github.com/ArDnath/echo/internal/repository"
)

// refreshSubject keys the limiter for the refresh endpoint.
const refreshSubject = "oauth_refresh"

// TokenService issues, rotates and validates session tokens.
type TokenService interface {
	// IssueSession starts a new token lineage for the user.
	IssueSession(ctx context.Context, userID uuid.UUID) (model.Tokens, error)
	// Refresh exchanges a refresh token for a new pair, archiving the old one with grace.
	Refresh(ctx context.Context, refreshToken string) (model.Tokens, error)
	// RefreshWithIP is Refresh behind the attempt limiter.
	RefreshWithIP(ctx context.Context, refreshToken, ip string) (model.Tokens, error)
	// ValidateAccess verifies an access token.
	ValidateAccess(token string) (model.AccessClaims, error)
	// RevokeSession ends a lineage immediately.
	RevokeSession(ctx context.Context, sessionID uuid.UUID) error
}

type TokenServiceImpl struct {
	tokens  repository.TokenRepository
	signKey []byte
	policy  model.TokenPolicy
	lim     limiter.Limiter
	log     *zap.Logger
	now     clock
}

// NewTokenService constructs TokenService with a resolved policy.
func NewTokenService(
	tokens repository.TokenRepository,
	signKey []byte,
	policy model.TokenPolicy,
	lim limiter.Limiter,
	log *zap.Logger,
) *TokenServiceImpl {
	return &TokenServiceImpl{tokens: tokens, signKey: signKey, policy: policy, lim: lim, log: log, now: systemClock}
}

type accessClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (s *TokenServiceImpl) IssueSession(ctx context.Context, userID uuid.UUID) (model.Tokens, error) {
	if err := requireID("user id", userID); err != nil {
		return model.Tokens{}, err
	}
	sid, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, err
	}
	now := s.now()
	refresh, rec, err := s.newRefresh(now)
	if err != nil {
		return model.Tokens{}, err
	}
	rec.SessionID = sid
	rec.UserID = userID
	if err := s.tokens.Insert(ctx, rec); err != nil {
		return model.Tokens{}, err
	}
	tok, err := s.pair(userID, sid, refresh, rec.ExpiresAt, now)
	if err != nil {
		return model.Tokens{}, err
	}
	metrics.IncSessionIssued()
	s.log.Info("session issued", zap.String("user_id", userID.String()), zap.String("session_id", sid.String()))
	return tok, nil
}

func (s *TokenServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.Tokens, error) {
	if refreshToken == "" {
		metrics.IncTokenRefresh("unknown")
		return model.Tokens{}, errs.ErrUnauthenticated
	}
	now := s.now()
	refresh, next, err := s.newRefresh(now)
	if err != nil {
		return model.Tokens{}, err
	}
	old, err := s.tokens.Rotate(ctx, pkgcrypto.HashToken(refreshToken), now, s.policy.ArchiveGrace, next)
	if err != nil {
		metrics.IncTokenRefresh(refreshResult(err))
		return model.Tokens{}, err
	}
	tok, err := s.pair(old.UserID, old.SessionID, refresh, next.ExpiresAt, now)
	if err != nil {
		return model.Tokens{}, err
	}
	metrics.IncTokenRefresh("ok")
	return tok, nil
}

func refreshResult(err error) string {
	switch {
	case errors.Is(err, errs.ErrTokenExpired):
		return "expired"
	case errors.Is(err, errs.ErrUnauthenticated):
		return "unknown"
	default:
		return "error"
	}
}

// RefreshWithIP throttles repeated bad refresh tokens per client address.
func (s *TokenServiceImpl) RefreshWithIP(ctx context.Context, refreshToken, ip string) (model.Tokens, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, refreshSubject, ipHash)
	if err != nil {
		return model.Tokens{}, err
	}
	if !allowed {
		metrics.IncTokenRefresh("rate_limited")
		return model.Tokens{}, errs.ErrRateLimited
	}

	tok, err := s.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, errs.ErrUnauthenticated) || errors.Is(err, errs.ErrTokenExpired) {
			if blocked, _, ferr := s.lim.Failure(ctx, refreshSubject, ipHash); ferr == nil && blocked {
				return model.Tokens{}, errs.ErrRateLimited
			}
		}
		return model.Tokens{}, err
	}

	// Best-effort reset.
	_ = s.lim.Success(ctx, refreshSubject, ipHash)
	return tok, nil
}

func (s *TokenServiceImpl) ValidateAccess(token string) (model.AccessClaims, error) {
	var c accessClaims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) { return s.signKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return model.AccessClaims{}, errs.ErrTokenExpired
	}
	if err != nil {
		return model.AccessClaims{}, fmt.Errorf("%w: %v", errs.ErrUnauthenticated, err)
	}
	uid, err := uuid.FromString(c.Subject)
	if err != nil {
		return model.AccessClaims{}, fmt.Errorf("%w: bad subject", errs.ErrUnauthenticated)
	}
	sid, err := uuid.FromString(c.SessionID)
	if err != nil {
		return model.AccessClaims{}, fmt.Errorf("%w: bad session", errs.ErrUnauthenticated)
	}
	return model.AccessClaims{UserID: uid, SessionID: sid, ExpiresAt: c.ExpiresAt.Time}, nil
}

func (s *TokenServiceImpl) RevokeSession(ctx context.Context, sessionID uuid.UUID) error {
	if err := requireID("session id", sessionID); err != nil {
		return err
	}
	return s.tokens.RevokeSession(ctx, sessionID, s.now())
}

// newRefresh generates an opaque refresh token and its storage record.
func (s *TokenServiceImpl) newRefresh(now time.Time) (string, *model.RefreshToken, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", nil, err
	}
	token, hash, err := pkgcrypto.NewOpaqueToken()
	if err != nil {
		return "", nil, err
	}
	return token, &model.RefreshToken{
		ID:        id,
		TokenHash: hash,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.policy.RefreshTTL),
	}, nil
}

func (s *TokenServiceImpl) pair(userID, sid uuid.UUID, refresh string, refreshExp, now time.Time) (model.Tokens, error) {
	access, accessExp, err := s.issueAccessToken(userID, sid, now)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		SessionID:        sid,
	}, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *TokenServiceImpl) issueAccessToken(userID, sid uuid.UUID, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.policy.AccessTTL)
	claims := accessClaims{
		SessionID: sid.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}
