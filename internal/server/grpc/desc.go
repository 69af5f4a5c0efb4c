package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/ArDnath/echo/internal/convert"
)

// ServiceName is the fully qualified metering service name.
const ServiceName = "echo.metering.v1.Metering"

const (
	methodAuthenticate      = "/" + ServiceName + "/Authenticate"
	methodRecordTransaction = "/" + ServiceName + "/RecordTransaction"
)

// AuthenticateRequest is empty; the app id travels in metadata.
type AuthenticateRequest struct{}

// MeteringServer is the server API for the metering service.
type MeteringServer interface {
	Authenticate(context.Context, *AuthenticateRequest) (*convert.PaymentAuthDTO, error)
	RecordTransaction(context.Context, *convert.TransactionRequest) (*convert.TransactionDTO, error)
}

// MeteringServiceDesc describes the metering service for grpc.Server.RegisterService.
var MeteringServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MeteringServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Authenticate", Handler: authenticateHandler},
		{MethodName: "RecordTransaction", Handler: recordTransactionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "echo/metering/v1",
}

func authenticateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AuthenticateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MeteringServer).Authenticate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodAuthenticate}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MeteringServer).Authenticate(ctx, req.(*AuthenticateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func recordTransactionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(convert.TransactionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MeteringServer).RecordTransaction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRecordTransaction}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MeteringServer).RecordTransaction(ctx, req.(*convert.TransactionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// MeteringClient calls the metering service using the JSON codec.
type MeteringClient struct {
	cc grpc.ClientConnInterface
}

// NewMeteringClient wraps a client connection.
func NewMeteringClient(cc grpc.ClientConnInterface) *MeteringClient {
	return &MeteringClient{cc: cc}
}

func (c *MeteringClient) Authenticate(ctx context.Context, opts ...grpc.CallOption) (*convert.PaymentAuthDTO, error) {
	out := new(convert.PaymentAuthDTO)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, methodAuthenticate, &AuthenticateRequest{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MeteringClient) RecordTransaction(ctx context.Context, in *convert.TransactionRequest, opts ...grpc.CallOption) (*convert.TransactionDTO, error) {
	out := new(convert.TransactionDTO)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, methodRecordTransaction, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
