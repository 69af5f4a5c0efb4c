// Package grpcserver exposes the metering gRPC API.
package grpcserver

import (
	"context"
	"errors"
	"strings"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/ArDnath/echo/internal/convert"
	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
	"github.com/ArDnath/echo/internal/service"
)

// PayerAuthorizer decides whether the caller may bill a given user.
type PayerAuthorizer interface {
	AuthorizePayer(ctx context.Context, p model.Principal, appID, payer uuid.UUID) error
}

// Server wires the payment services into gRPC handlers.
type Server struct {
	payments service.PaymentAuthService
	payers   PayerAuthorizer
}

var _ MeteringServer = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(payments service.PaymentAuthService, payers PayerAuthorizer) *Server {
	return &Server{payments: payments, payers: payers}
}

// Register attaches the metering and health services and marks them serving.
func Register(gs *grpc.Server, srv *Server) *health.Server {
	gs.RegisterService(&MeteringServiceDesc, srv)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return hs
}

// Authenticate resolves the app named by the x-echo-app-id metadata.
func (s *Server) Authenticate(ctx context.Context, _ *AuthenticateRequest) (*convert.PaymentAuthDTO, error) {
	auth, err := s.payments.Authenticate(ctx, headersFromMD(ctx))
	if err != nil {
		return nil, statusFromErr("authenticate", err)
	}
	out := convert.ToPaymentAuth(auth)
	return &out, nil
}

// RecordTransaction authenticates the call and appends a priced transaction.
// A bearer token is required. An empty user_id bills the token's user; any
// other payer needs owner or admin rights on the app.
func (s *Server) RecordTransaction(ctx context.Context, req *convert.TransactionRequest) (*convert.TransactionDTO, error) {
	p, ok := PrincipalFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "bearer token required")
	}
	auth, err := s.payments.Authenticate(ctx, headersFromMD(ctx))
	if err != nil {
		return nil, statusFromErr("authenticate", err)
	}
	if auth == nil {
		return nil, status.Error(codes.Unauthenticated, "missing "+service.AppIDHeader)
	}

	in := *req
	if in.UserID == "" {
		in.UserID = p.UserID.String()
	}
	nt, err := convert.FromTransactionRequest(in)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad transaction: %v", err)
	}
	if auth.EchoApp == nil {
		return nil, status.Error(codes.NotFound, "unknown app")
	}
	if err := s.payers.AuthorizePayer(ctx, p, auth.EchoApp.ID, nt.UserID); err != nil {
		return nil, statusFromErr("authorize payer", err)
	}
	tx, err := s.payments.RecordTransaction(ctx, auth, nt)
	if err != nil {
		return nil, statusFromErr("record transaction", err)
	}
	out := convert.ToTransaction(*tx)
	return &out, nil
}

// headersFromMD flattens incoming metadata, keeping the first value of each key.
func headersFromMD(ctx context.Context) map[string]string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(md))
	for k, v := range md {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func remoteIP(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}

// statusFromErr maps domain sentinels to gRPC codes.
func statusFromErr(op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, errs.ErrAlreadyExists), errors.Is(err, errs.ErrAlreadyRedeemed):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, errs.ErrUnauthenticated), errors.Is(err, errs.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, errs.ErrForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, errs.ErrInvalidArgument), errors.Is(err, errs.ErrConstraintViolation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrGrantInactive):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limited")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, op+": canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, op+": deadline exceeded")
	default:
		return status.Errorf(codes.Internal, "%s: internal error", op)
	}
}
