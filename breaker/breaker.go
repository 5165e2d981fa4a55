// Package breaker 提供了熔断器组件，用于网络依赖的故障隔离与自动恢复。
//
// breaker 是治理层的核心组件，它提供了：
// - 连续失败阈值与滑动窗口错误率双触发的熔断判定
// - 懒惰状态转换（无后台定时器，Open→HalfOpen 在访问时评估）
// - 半开状态下限制并发探测请求，避免恢复期的请求风暴
// - 无锁的状态/错误率快照，监控读取不阻塞调用路径
// - gRPC Client Interceptor 无侵入集成（见 Registry）
//
// ## 基本使用
//
//	// 创建熔断器（每个依赖端点一个实例，进程生命周期内共享）
//	brk, _ := breaker.New(&breaker.Config{
//		FailureThreshold:   5,
//		SuccessThreshold:   2,
//		Cooldown:           60 * time.Second,
//		ErrorRateThreshold: 0.5,
//		WindowSize:         100,
//	}, breaker.WithLogger(logger))
//
//	// 执行受保护的调用
//	result, err := breaker.Do(ctx, brk, func() (string, error) {
//		return client.Get(ctx, key)
//	})
//	if breaker.IsOpen(err) {
//		// 熔断中，快速失败
//	}
package breaker

import (
	"context"
	"time"

	"github.com/ceyewan/resilience/clog"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Breaker 熔断器核心接口
//
// 一个 Breaker 实例对应一个逻辑依赖端点，在服务启动时构造，
// 由所有请求处理协程共享，进程退出时销毁。
type Breaker interface {
	// Execute 执行受熔断保护的函数
	// 熔断器打开时直接返回 ErrOpenState，fn 不会被调用
	Execute(ctx context.Context, fn func() (any, error)) (any, error)

	// State 获取当前状态（无锁快照，不阻塞调用路径）
	State() State

	// ErrorRate 获取滑动窗口内的错误率（无锁快照）
	ErrorRate() float64

	// Counts 获取当前的连续失败/连续成功计数
	Counts() (failures, successes int)

	// Reset 手动重置熔断器状态为 Closed
	// 用于运维场景的强制恢复
	Reset()
}

// Condition 判断一个错误是否计入失败统计
// 默认任何非 nil 错误都算失败
type Condition func(error) bool

// OnStateChangeFunc 状态变更回调函数类型
type OnStateChangeFunc func(name string, from, to State)

// State 熔断器状态
type State int

const (
	// StateClosed 闭合状态（正常），请求正常通过
	StateClosed State = iota
	// StateHalfOpen 半开状态（探测恢复），允许少量探测请求
	StateHalfOpen
	// StateOpen 打开状态（熔断中），请求快速失败
	StateOpen
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ========================================
// 配置定义 (Configuration)
// ========================================

// Config 熔断器配置，构造后不可变
type Config struct {
	// FailureThreshold 连续失败阈值（默认：5）
	// 连续失败达到此值时触发熔断，用于捕捉突发故障
	FailureThreshold int `json:"failure_threshold" yaml:"failure_threshold" mapstructure:"failure_threshold"`

	// SuccessThreshold 半开状态下关闭熔断所需的连续成功数（默认：2）
	SuccessThreshold int `json:"success_threshold" yaml:"success_threshold" mapstructure:"success_threshold"`

	// Cooldown 打开状态持续时间（默认：60s）
	// 冷却结束后的下一次调用转入半开状态进行探测
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown" mapstructure:"cooldown"`

	// ErrorRateThreshold 滑动窗口错误率阈值，取值 [0,1]（默认：0.5）
	// 窗口集满后错误率达到此值时触发熔断，用于捕捉缓慢劣化
	ErrorRateThreshold float64 `json:"error_rate_threshold" yaml:"error_rate_threshold" mapstructure:"error_rate_threshold"`

	// WindowSize 滑动窗口大小（统计最近 N 次请求，默认：100）
	WindowSize int `json:"window_size" yaml:"window_size" mapstructure:"window_size"`

	// HalfOpenMaxRequests 半开状态允许的最大并发探测请求数（默认：1）
	// 限制为 1 可以避免恢复期大量并发探测再次压垮依赖
	HalfOpenMaxRequests int `json:"half_open_max_requests" yaml:"half_open_max_requests" mapstructure:"half_open_max_requests"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Cooldown:            60 * time.Second,
		ErrorRateThreshold:  0.5,
		WindowSize:          100,
		HalfOpenMaxRequests: 1,
	}
}

// withDefaults 为零值字段填充默认值（内部使用）
func (c *Config) withDefaults() *Config {
	cfg := *c
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = 60 * time.Second
	}
	if cfg.ErrorRateThreshold == 0 {
		cfg.ErrorRateThreshold = 0.5
	}
	if cfg.WindowSize == 0 {
		cfg.WindowSize = 100
	}
	if cfg.HalfOpenMaxRequests == 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return &cfg
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建熔断器实例
// 这是标准的工厂函数，支持在不依赖其他容器的情况下独立实例化
//
// 参数:
//   - cfg: 熔断器配置，零值字段会填充默认值
//   - opts: 可选参数 (Logger, Meter, Name, Condition, 回调等)
func New(cfg *Config, opts ...Option) (Breaker, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if cfg.ErrorRateThreshold < 0 || cfg.ErrorRateThreshold > 1 {
		return nil, ErrInvalidConfig
	}

	// 应用选项
	opt := defaultOptions()
	for _, o := range opts {
		o(opt)
	}

	cb := newCircuitBreaker(cfg.withDefaults(), opt)

	if opt.logger != nil {
		opt.logger.Info("circuit breaker created",
			clog.String("name", cb.name),
			clog.Int("failure_threshold", cb.cfg.FailureThreshold),
			clog.Int("success_threshold", cb.cfg.SuccessThreshold),
			clog.Duration("cooldown", cb.cfg.Cooldown),
			clog.Float64("error_rate_threshold", cb.cfg.ErrorRateThreshold),
			clog.Int("window_size", cb.cfg.WindowSize))
	}

	return cb, nil
}

// Do 执行 fn 并返回其结果，带熔断保护的泛型便捷封装
func Do[T any](ctx context.Context, b Breaker, fn func() (T, error)) (T, error) {
	var zero T
	result, err := b.Execute(ctx, func() (any, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	return result.(T), nil
}
