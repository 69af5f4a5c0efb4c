package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/metrics"
	"github.com/ArDnath/echo/internal/model"
	"github.com/ArDnath/echo/internal/repository"
)

// AppIDHeader carries the EchoApp id on payment requests.
const AppIDHeader = "x-echo-app-id"

// Identifier observes every authenticated payment request.
type Identifier interface {
	Identify(ctx context.Context, appHeader string, auth *model.PaymentAuth)
}

// LogIdentifier records identifications in the log and metrics.
type LogIdentifier struct{ log *zap.Logger }

// NewLogIdentifier constructs LogIdentifier.
func NewLogIdentifier(log *zap.Logger) *LogIdentifier { return &LogIdentifier{log: log} }

func (l *LogIdentifier) Identify(_ context.Context, appHeader string, auth *model.PaymentAuth) {
	if auth.EchoApp == nil {
		metrics.IncPaymentAuth(metrics.AuthUnknownApp)
		l.log.Warn("payment request for unknown app", zap.String("app_id", appHeader))
		return
	}
	metrics.IncPaymentAuth(metrics.AuthAuthenticated)
	fields := []zap.Field{zap.String("app_id", auth.EchoApp.ID.String())}
	if auth.MarkUp != nil {
		fields = append(fields, zap.String("markup_id", auth.MarkUp.ID.String()), zap.String("markup_rate", auth.MarkUp.Rate.String()))
	}
	l.log.Debug("payment request identified", fields...)
}

// PaymentAuthService authenticates payment requests and records their cost.
type PaymentAuthService interface {
	// Authenticate resolves the app and markup named by the request headers.
	// A request without an app header is unauthenticated and yields (nil, nil).
	Authenticate(ctx context.Context, headers map[string]string) (*model.PaymentAuth, error)
	// RecordTransaction prices and appends a transaction using the markup resolved at authentication.
	RecordTransaction(ctx context.Context, auth *model.PaymentAuth, in model.NewTransaction) (*model.Transaction, error)
}

type PaymentAuthServiceImpl struct {
	apps    repository.AppRepository
	markups MarkupService
	ledger  repository.LedgerRepository
	ident   Identifier
	log     *zap.Logger
	now     clock
}

// NewPaymentAuthService constructs PaymentAuthService.
func NewPaymentAuthService(
	apps repository.AppRepository,
	markups MarkupService,
	ledger repository.LedgerRepository,
	ident Identifier,
	log *zap.Logger,
) *PaymentAuthServiceImpl {
	return &PaymentAuthServiceImpl{apps: apps, markups: markups, ledger: ledger, ident: ident, log: log, now: systemClock}
}

// lookupHeader finds a header value regardless of key case.
func lookupHeader(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (s *PaymentAuthServiceImpl) Authenticate(ctx context.Context, headers map[string]string) (*model.PaymentAuth, error) {
	raw := lookupHeader(headers, AppIDHeader)
	if raw == "" {
		metrics.IncPaymentAuth(metrics.AuthUnauthenticated)
		return nil, nil
	}

	auth := &model.PaymentAuth{}
	// Malformed ids degrade like unknown apps.
	if appID, err := uuid.FromString(raw); err == nil {
		app, err := s.apps.GetByID(ctx, appID)
		switch {
		case err == nil:
			auth.EchoApp = app
		case !errors.Is(err, errs.ErrNotFound):
			return nil, fmt.Errorf("load app: %w", err)
		}
		auth.MarkUp, err = s.markups.Current(ctx, appID)
		if err != nil {
			return nil, fmt.Errorf("resolve markup: %w", err)
		}
	}

	s.ident.Identify(ctx, raw, auth)
	return auth, nil
}

func (s *PaymentAuthServiceImpl) RecordTransaction(ctx context.Context, auth *model.PaymentAuth, in model.NewTransaction) (*model.Transaction, error) {
	if auth == nil {
		return nil, errs.ErrUnauthenticated
	}
	if auth.EchoApp == nil {
		return nil, fmt.Errorf("echo app: %w", errs.ErrNotFound)
	}
	if err := requireID("user id", in.UserID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Provider) == "" {
		return nil, fmt.Errorf("validation: empty provider: %w", errs.ErrInvalidArgument)
	}
	if in.RawCost.IsNegative() {
		return nil, fmt.Errorf("validation: negative raw cost: %w", errs.ErrInvalidArgument)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	t := &model.Transaction{
		ID:        id,
		UserID:    in.UserID,
		EchoAppID: auth.EchoApp.ID,
		Provider:  in.Provider,
		Model:     in.Model,
		RawCost:   in.RawCost,
		CreatedAt: s.now(),
	}
	if auth.MarkUp != nil {
		markupID := auth.MarkUp.ID
		t.MarkUpID = &markupID
		t.MarkUpRate = auth.MarkUp.Rate
	}
	t.MarkUpProfit, t.TotalCost = model.Price(t.RawCost, t.MarkUpRate)
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		t.IdempotencyKey = &key
	}

	stored, created, err := s.ledger.Append(ctx, t)
	if err != nil {
		return nil, err
	}
	if !created {
		metrics.IncTransactionReplay()
		s.log.Info("transaction replayed", zap.String("idempotency_key", in.IdempotencyKey), zap.String("tx_id", stored.ID.String()))
		return stored, nil
	}
	metrics.IncTransaction(stored.Provider)
	s.log.Info("transaction recorded",
		zap.String("tx_id", stored.ID.String()),
		zap.String("app_id", stored.EchoAppID.String()),
		zap.String("user_id", stored.UserID.String()),
		zap.String("provider", stored.Provider),
		zap.String("total_cost", stored.TotalCost.String()),
	)
	return stored, nil
}
