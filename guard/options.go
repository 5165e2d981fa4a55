package guard

import (
	"github.com/ceyewan/resilience/breaker"
	"github.com/ceyewan/resilience/clog"
	"github.com/ceyewan/resilience/metrics"
	"github.com/ceyewan/resilience/retry"
)

// ========================================
// 可选参数 (Options)
// ========================================

// Option 组件选项函数类型
type Option func(*options)

// options 组件内部选项结构
// 选项会透传给内部的熔断器与重试器
type options struct {
	breakerOpts []breaker.Option
	retryOpts   []retry.Option
}

func defaultOptions() *options {
	return &options{}
}

// WithLogger 设置组件的日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.breakerOpts = append(o.breakerOpts, breaker.WithLogger(logger))
			o.retryOpts = append(o.retryOpts, retry.WithLogger(logger))
		}
	}
}

// WithMeter 设置组件的指标记录器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.breakerOpts = append(o.breakerOpts, breaker.WithMeter(meter))
	}
}

// WithCondition 自定义熔断失败判定
func WithCondition(condition breaker.Condition) Option {
	return func(o *options) {
		o.breakerOpts = append(o.breakerOpts, breaker.WithCondition(condition))
	}
}

// WithRetryIf 自定义可重试判定
func WithRetryIf(fn retry.RetryIf) Option {
	return func(o *options) {
		o.retryOpts = append(o.retryOpts, retry.WithRetryIf(fn))
	}
}

// WithOnStateChange 设置熔断状态变更回调
func WithOnStateChange(fn breaker.OnStateChangeFunc) Option {
	return func(o *options) {
		o.breakerOpts = append(o.breakerOpts, breaker.WithOnStateChange(fn))
	}
}

// WithClock 注入熔断器时间源，主要用于测试
func WithClock(clock breaker.Clock) Option {
	return func(o *options) {
		o.breakerOpts = append(o.breakerOpts, breaker.WithClock(clock))
	}
}
