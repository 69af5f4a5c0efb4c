package grpcserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
)

type fakeAddr struct{}

func (fakeAddr) Network() string { return "tcp" }
func (fakeAddr) String() string  { return "127.0.0.1:12345" }

func TestLoggingUnary_Passthrough(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := LoggingUnary(log)

	ctx := context.Background()

	ctx = peer.NewContext(ctx, &peer.Peer{Addr: fakeAddr{}})

	h := func(ctx context.Context, req any) (any, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{FullMethod: "/echo.metering.v1.Metering/Authenticate"}

	resp, err := ic(ctx, "req", info, h)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s, _ := resp.(string); s != "ok" {
		t.Fatalf("resp mismatch: %v", resp)
	}

	wantErr := errors.New("boom")
	hErr := func(ctx context.Context, req any) (any, error) { return nil, wantErr }
	_, err = ic(ctx, "req", info, hErr)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want original error, got: %v", err)
	}
}

func TestRecoverUnary_CatchesPanic(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := RecoverUnary(log)

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: "/echo.metering.v1.Metering/RecordTransaction"}

	panicH := func(ctx context.Context, req any) (any, error) {
		panic("oh no")
	}

	_, err := ic(ctx, "req", info, panicH)
	if err == nil {
		t.Fatalf("expected error from panic")
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Internal {
		t.Fatalf("want codes.Internal, got: %v", err)
	}
}

func TestRecoverUnary_NoPanicPassThrough(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := RecoverUnary(log)

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: "/echo.metering.v1.Metering/Authenticate"}

	h := func(ctx context.Context, req any) (any, error) { return 42, nil }

	resp, err := ic(ctx, "req", info, h)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if resp.(int) != 42 {
		t.Fatalf("resp mismatch: %v", resp)
	}
}

func TestLoggingUnary_DurationFieldDoesNotBlock(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := LoggingUnary(log)

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: "/echo.metering.v1.Metering/RecordTransaction"}
	h := func(ctx context.Context, req any) (any, error) {
		time.Sleep(5 * time.Millisecond)
		return "done", nil
	}

	start := time.Now()
	resp, err := ic(ctx, "req", info, h)
	if err != nil || resp.(string) != "done" {
		t.Fatalf("unexpected result: %v, %v", resp, err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Fatalf("duration should reflect handler time")
	}
}

type fakeValidator struct {
	claims model.AccessClaims
	err    error
}

func (f fakeValidator) ValidateAccess(string) (model.AccessClaims, error) { return f.claims, f.err }

type fakeLoader struct {
	p   model.Principal
	err error
}

func (f fakeLoader) Principal(context.Context, uuid.UUID) (model.Principal, error) { return f.p, f.err }

func TestAuthUnary(t *testing.T) {
	t.Parallel()

	user := uuid.Must(uuid.NewV4())
	want := model.Principal{UserID: user}
	info := &grpc.UnaryServerInfo{FullMethod: "/echo.metering.v1.Metering/RecordTransaction"}
	var seen model.Principal
	var seenOK bool
	h := func(ctx context.Context, req any) (any, error) {
		seen, seenOK = PrincipalFromCtx(ctx)
		return "ok", nil
	}
	withBearer := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer tok"))

	ic := AuthUnary(fakeValidator{claims: model.AccessClaims{UserID: user}}, fakeLoader{p: want})
	if _, err := ic(context.Background(), "req", info, h); err != nil || seenOK {
		t.Fatalf("no token must pass through without principal: err=%v seen=%v", err, seenOK)
	}
	if _, err := ic(withBearer, "req", info, h); err != nil || !seenOK || seen != want {
		t.Fatalf("principal not attached: err=%v seen=%+v", err, seen)
	}

	ic = AuthUnary(fakeValidator{err: errs.ErrTokenExpired}, fakeLoader{p: want})
	if _, err := ic(withBearer, "req", info, h); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated, got %v", err)
	}

	ic = AuthUnary(fakeValidator{claims: model.AccessClaims{UserID: user}}, fakeLoader{err: errors.New("db down")})
	if _, err := ic(withBearer, "req", info, h); status.Code(err) != codes.Internal {
		t.Fatalf("want Internal, got %v", err)
	}
}

func Test_bearerTokenFromMD(t *testing.T) {
	t.Parallel()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic x", "authorization", "  bearer   abc  "))
	if got, err := bearerTokenFromMD(ctx); err != nil || got != "abc" {
		t.Fatalf("got=%q err=%v", got, err)
	}
	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer   "))
	if _, err := bearerTokenFromMD(ctx); err == nil {
		t.Fatalf("want error on empty token")
	}
	if _, err := bearerTokenFromMD(context.Background()); err == nil {
		t.Fatalf("want error on no metadata")
	}
}

func Test_statusFromErr(t *testing.T) {
	t.Parallel()

	cases := map[error]codes.Code{
		errs.ErrNotFound:            codes.NotFound,
		errs.ErrAlreadyRedeemed:     codes.AlreadyExists,
		errs.ErrTokenExpired:        codes.Unauthenticated,
		errs.ErrForbidden:           codes.PermissionDenied,
		errs.ErrConstraintViolation: codes.InvalidArgument,
		errs.ErrRateLimited:         codes.ResourceExhausted,
		errs.ErrGrantInactive:       codes.FailedPrecondition,
		context.DeadlineExceeded:    codes.DeadlineExceeded,
		errors.New("pg: boom"):      codes.Internal,
	}
	for in, want := range cases {
		if got := status.Code(statusFromErr("op", in)); got != want {
			t.Fatalf("%v: got %s want %s", in, got, want)
		}
	}
	if st := status.Convert(statusFromErr("op", errors.New("secret dsn"))); st.Message() != "op: internal error" {
		t.Fatalf("internal errors must not leak: %q", st.Message())
	}
}
