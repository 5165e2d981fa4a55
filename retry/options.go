package retry

import (
	"context"
	"time"

	"github.com/ceyewan/resilience/clog"
)

// ========================================
// 可选参数 (Options)
// ========================================

// Option 组件选项函数类型
type Option func(*options)

// options 组件内部选项结构
type options struct {
	logger  clog.Logger
	retryIf RetryIf
	sleep   func(ctx context.Context, d time.Duration) error
}

func defaultOptions() *options {
	return &options{
		retryIf: func(err error) bool { return err != nil },
		sleep:   sleepContext,
	}
}

// WithLogger 设置组件的日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("retry")
		}
	}
}

// WithRetryIf 自定义可重试判定函数
// 默认任何非 nil 错误都会重试；生产环境建议只重试瞬时错误，
// 例如 GRPCRetryable 只重试 Unavailable / DeadlineExceeded 等状态码
func WithRetryIf(fn RetryIf) Option {
	return func(o *options) {
		if fn != nil {
			o.retryIf = fn
		}
	}
}

// withSleep 注入等待函数，测试中用于消除真实退避耗时
func withSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) {
		if fn != nil {
			o.sleep = fn
		}
	}
}
