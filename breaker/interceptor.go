package breaker

import (
	"context"

	"google.golang.org/grpc"
)

// ========================================
// gRPC 拦截器 (gRPC Interceptors)
// ========================================

// UnaryClientInterceptor 返回 gRPC 一元调用客户端拦截器
// 按 KeyFunc 决定的粒度为每个 gRPC 调用提供熔断保护
//
// 使用示例:
//
//	registry, _ := breaker.NewRegistry(cfg, breaker.WithLogger(logger))
//	conn, _ := grpc.NewClient(
//		"localhost:9001",
//		grpc.WithUnaryInterceptor(registry.UnaryClientInterceptor(
//			breaker.WithMethodLevelKey(),
//		)),
//	)
func (r *Registry) UnaryClientInterceptor(opts ...InterceptorOption) grpc.UnaryClientInterceptor {
	cfg := &interceptorConfig{keyFunc: ServiceLevelKey()}
	for _, o := range opts {
		o(cfg)
	}

	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		key := cfg.keyFunc(ctx, method, cc)

		_, err := r.Get(key).Execute(ctx, func() (any, error) {
			return nil, invoker(ctx, method, req, reply, cc, callOpts...)
		})
		return err
	}
}

// StreamClientInterceptor 返回 gRPC 流式调用客户端拦截器
// 熔断判定作用于流的建立阶段，流内消息不计入统计
func (r *Registry) StreamClientInterceptor(opts ...InterceptorOption) grpc.StreamClientInterceptor {
	cfg := &interceptorConfig{keyFunc: ServiceLevelKey()}
	for _, o := range opts {
		o(cfg)
	}

	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, callOpts ...grpc.CallOption) (grpc.ClientStream, error) {
		key := cfg.keyFunc(ctx, method, cc)

		result, err := r.Get(key).Execute(ctx, func() (any, error) {
			return streamer(ctx, desc, cc, method, callOpts...)
		})
		if err != nil {
			return nil, err
		}
		return result.(grpc.ClientStream), nil
	}
}
