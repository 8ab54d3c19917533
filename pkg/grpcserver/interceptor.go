// Package grpcserver runs unary gRPC handlers through an rpc.server point.
package grpcserver

import (
	"context"

	"github.com/JailtonJunior94/pointkit/pkg/point"
	"github.com/JailtonJunior94/pointkit/pkg/schema"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// reply carries the handler response out of the point, whose result is
// the status code.
type reply struct {
	resp any
}

type unaryCall func(ctx context.Context, method string, md metadata.MD, request any, handler grpc.UnaryHandler, out *reply) (int, error)

// UnaryServerInterceptor instruments every unary call. The span is named
// after the full method and continues the trace found in the incoming
// metadata.
func UnaryServerInterceptor(d *point.Decorator, opts ...point.PointOption) (grpc.UnaryServerInterceptor, error) {
	base := []point.PointOption{
		point.WithName("grpc.unary"),
		point.WithParams("method", "metadata", "request", "handler", "reply"),
		point.WithVariant(schema.VariantRPCServer),
	}

	call, err := point.Decorate(d, unaryCall(func(ctx context.Context, _ string, _ metadata.MD, request any, handler grpc.UnaryHandler, out *reply) (int, error) {
		resp, err := handler(ctx, request)
		out.resp = resp
		return int(status.Code(err)), err
	}), append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			md = metadata.MD{}
		}

		out := &reply{}
		_, err := call(ctx, info.FullMethod, md, req, handler, out)
		return out.resp, err
	}, nil
}
