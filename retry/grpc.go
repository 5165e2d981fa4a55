package retry

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GRPCRetryable 返回针对 gRPC 调用的可重试判定
// 只有瞬时性的状态码才会触发重试：
//   - Unavailable: 服务暂时不可达（重启、网络抖动）
//   - DeadlineExceeded: 超时，可能是瞬时过载
//   - ResourceExhausted: 限流，稍后重试可能成功
//   - Unknown: 无法分类的错误，保守地允许重试
//
// NotFound、InvalidArgument 等确定性错误重试也不会成功，立即返回
func GRPCRetryable() RetryIf {
	return func(err error) bool {
		if err == nil {
			return false
		}
		switch status.Code(err) {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Unknown:
			return true
		default:
			return false
		}
	}
}
