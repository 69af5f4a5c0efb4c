package grpcserver

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ArDnath/echo/internal/model"
)

// LoggingUnary returns a unary server interceptor for structured logging.
func LoggingUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		code := status.Code(err)

		// metadata only, never payloads
		log.Info("grpc",
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", remoteIP(ctx)),
		)
		return resp, err
	}
}

// RecoverUnary returns a unary server interceptor that recovers from panics.
func RecoverUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", info.FullMethod),
				)
				err = status.Error(codes.Internal, "internal")
			}
		}()
		return next(ctx, req)
	}
}

// AccessValidator verifies bearer tokens.
type AccessValidator interface {
	ValidateAccess(token string) (model.AccessClaims, error)
}

// PrincipalLoader resolves the caller behind a validated token.
type PrincipalLoader interface {
	Principal(ctx context.Context, userID uuid.UUID) (model.Principal, error)
}

// AuthUnary attaches the caller's principal when a bearer token is present.
// Calls without a token pass through; an invalid token is rejected.
func AuthUnary(tokens AccessValidator, access PrincipalLoader) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		tok, err := bearerTokenFromMD(ctx)
		if err != nil {
			return next(ctx, req)
		}
		claims, err := tokens.ValidateAccess(tok)
		if err != nil {
			return nil, statusFromErr("auth", err)
		}
		p, err := access.Principal(ctx, claims.UserID)
		if err != nil {
			return nil, statusFromErr("auth", err)
		}
		return next(WithPrincipal(ctx, p), req)
	}
}
