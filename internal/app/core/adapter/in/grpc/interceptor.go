package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-mem-finance/rpc"
)

type ownerKey struct{}

// OwnerFromContext 取得攔截器放入的呼叫者帳戶
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// ownerOf 由 incoming metadata 取出 x-owner-id
func ownerOf(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get(rpc.OwnerMetadataKey)
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return "", status.Errorf(codes.Unauthenticated, "missing %s metadata", rpc.OwnerMetadataKey)
	}
	return strings.TrimSpace(values[0]), nil
}

// guarded 只有 FinanceLedger 的方法需要帳戶，health/reflection 不檢查
func guarded(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, "/"+rpc.ServiceName+"/")
}

// UnaryOwnerInterceptor 驗證並注入呼叫者帳戶
func UnaryOwnerInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !guarded(info.FullMethod) {
		return handler(ctx, req)
	}
	owner, err := ownerOf(ctx)
	if err != nil {
		return nil, err
	}
	return handler(context.WithValue(ctx, ownerKey{}, owner), req)
}

// ownerStream 替換 Context 的 ServerStream
type ownerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *ownerStream) Context() context.Context {
	return s.ctx
}

// StreamOwnerInterceptor 串流版本的 UnaryOwnerInterceptor
func StreamOwnerInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if !guarded(info.FullMethod) {
		return handler(srv, ss)
	}
	owner, err := ownerOf(ss.Context())
	if err != nil {
		return err
	}
	return handler(srv, &ownerStream{ServerStream: ss, ctx: context.WithValue(ss.Context(), ownerKey{}, owner)})
}

// ServerOptions 服務需要的攔截器
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(UnaryOwnerInterceptor),
		grpc.ChainStreamInterceptor(StreamOwnerInterceptor),
	}
}
