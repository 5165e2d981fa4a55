package breaker

import (
	"github.com/ceyewan/resilience/clog"
	"github.com/ceyewan/resilience/metrics"
)

// ========================================
// 可选参数 (Options)
// ========================================

// Option 组件选项函数类型
type Option func(*options)

// options 组件内部选项结构
type options struct {
	name          string
	logger        clog.Logger
	meter         metrics.Meter
	condition     Condition
	onStateChange OnStateChangeFunc
	clock         Clock
}

func defaultOptions() *options {
	return &options{
		name:      "default",
		condition: func(err error) bool { return err != nil },
		clock:     systemClock{},
	}
}

// WithName 设置熔断器名称，用于日志和指标的标识
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger 设置组件的日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("breaker")
		}
	}
}

// WithMeter 设置组件的指标记录器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithCondition 自定义失败判定函数
// 例如只将 gRPC Unavailable / DeadlineExceeded 计入失败，
// 业务错误（NotFound 等）不触发熔断
func WithCondition(condition Condition) Option {
	return func(o *options) {
		if condition != nil {
			o.condition = condition
		}
	}
}

// WithOnStateChange 设置状态变更回调
// 回调在状态转换时同步执行，不应阻塞
func WithOnStateChange(fn OnStateChangeFunc) Option {
	return func(o *options) {
		o.onStateChange = fn
	}
}

// WithClock 注入自定义时间源，主要用于测试
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}
