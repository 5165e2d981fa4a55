package breaker

import "github.com/ceyewan/resilience/xerrors"

// ========================================
// 错误定义 (Error Definitions)
// ========================================

var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("breaker: config is nil")

	// ErrInvalidConfig 配置取值非法
	ErrInvalidConfig = xerrors.New("breaker: invalid config")

	// ErrOpenState 熔断器处于打开状态，请求被快速失败
	ErrOpenState = xerrors.New("breaker: circuit is open")

	// ErrTooManyRequests 半开状态下探测请求已达上限
	ErrTooManyRequests = xerrors.New("breaker: too many requests in half-open state")
)

// IsOpen 判断错误是否为熔断拒绝（打开状态或半开限流）
// 调用方可据此区分"依赖真正失败"与"熔断器快速失败"
func IsOpen(err error) bool {
	return xerrors.Is(err, ErrOpenState) || xerrors.Is(err, ErrTooManyRequests)
}
