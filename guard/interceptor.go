package guard

import (
	"context"

	"google.golang.org/grpc"
)

// ========================================
// gRPC 拦截器 (gRPC Interceptor)
// ========================================

// UnaryClientInterceptor 返回带完整防护链的 gRPC 一元调用客户端拦截器
// 每次调用经过 熔断 → 重试 → 超时 的完整组合；
// 重试会重新发起 RPC，只应在方法幂等时使用带重试的策略
//
// 使用示例:
//
//	g, _ := guard.New(guard.GRPCPolicy(),
//		guard.WithRetryIf(retry.GRPCRetryable()))
//	conn, _ := grpc.NewClient("localhost:9001",
//		grpc.WithUnaryInterceptor(guard.UnaryClientInterceptor(g)),
//	)
func UnaryClientInterceptor(g Guard) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		_, err := g.Execute(ctx, func(ctx context.Context) (any, error) {
			return nil, invoker(ctx, method, req, reply, cc, opts...)
		})
		return err
	}
}
