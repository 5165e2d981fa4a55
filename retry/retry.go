// Package retry 提供了指数退避重试组件，用于吸收网络依赖的瞬时故障。
//
// retry 的特点：
// - 指数退避：delay(n) = min(initial_backoff × multiplier^(n-1), max_backoff)
// - 随机抖动：退避时长乘以 [0.7, 1.3) 的均匀随机因子，避免重试风暴同步
// - 可重试判定：通过 RetryIf 区分瞬时错误与确定性错误，后者立即返回
// - 上下文感知：退避等待期间 ctx 取消会立即中止重试循环
//
// ## 基本使用
//
//	r, _ := retry.New(&retry.Config{
//		MaxRetries:     3,
//		InitialBackoff: 100 * time.Millisecond,
//	}, retry.WithRetryIf(retry.GRPCRetryable()))
//
//	result, err := retry.Do(ctx, r, func() (string, error) {
//		return client.Get(ctx, key)
//	})
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/ceyewan/resilience/clog"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Retryer 重试器核心接口
type Retryer interface {
	// Execute 执行 fn，失败且错误可重试时按退避策略重试
	// 所有尝试耗尽后返回 ExhaustedError
	Execute(ctx context.Context, fn func() (any, error)) (any, error)
}

// RetryIf 判断一个错误是否值得重试
type RetryIf func(error) bool

// ========================================
// 配置定义 (Configuration)
// ========================================

// Config 重试配置，构造后不可变
type Config struct {
	// MaxRetries 最大重试次数（默认：3）
	// 总尝试次数为 MaxRetries + 1；取 0 表示只尝试一次
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// InitialBackoff 首次重试前的退避时长（默认：100ms）
	InitialBackoff time.Duration `json:"initial_backoff" yaml:"initial_backoff" mapstructure:"initial_backoff"`

	// Multiplier 退避倍增系数（默认：2.0）
	Multiplier float64 `json:"multiplier" yaml:"multiplier" mapstructure:"multiplier"`

	// MaxBackoff 单次退避时长上限（默认：10s）
	MaxBackoff time.Duration `json:"max_backoff" yaml:"max_backoff" mapstructure:"max_backoff"`

	// Jitter 是否启用随机抖动（默认：true）
	// 通过 DisableJitter 关闭，主要用于需要确定性时序的测试
	DisableJitter bool `json:"disable_jitter" yaml:"disable_jitter" mapstructure:"disable_jitter"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		Multiplier:     2.0,
		MaxBackoff:     10 * time.Second,
	}
}

// withDefaults 为零值字段填充默认值（内部使用）
func (c *Config) withDefaults() *Config {
	cfg := *c
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	return &cfg
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建重试器实例
//
// 参数:
//   - cfg: 重试配置，零值字段会填充默认值；MaxRetries 为 0 表示不重试
//   - opts: 可选参数 (Logger, RetryIf 等)
func New(cfg *Config, opts ...Option) (Retryer, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if cfg.MaxRetries < 0 || cfg.InitialBackoff < 0 || cfg.Multiplier < 0 || cfg.MaxBackoff < 0 {
		return nil, ErrInvalidConfig
	}

	opt := defaultOptions()
	for _, o := range opts {
		o(opt)
	}

	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	}

	return &retryer{
		cfg:     cfg.withDefaults(),
		logger:  logger,
		retryIf: opt.retryIf,
		sleep:   opt.sleep,
	}, nil
}

// Do 执行 fn 并返回其结果，带重试的泛型便捷封装
func Do[T any](ctx context.Context, r Retryer, fn func() (T, error)) (T, error) {
	var zero T
	result, err := r.Execute(ctx, func() (any, error) {
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

// ========================================
// 核心实现 (Core Implementation)
// ========================================

type retryer struct {
	cfg     *Config
	logger  clog.Logger
	retryIf RetryIf
	sleep   func(ctx context.Context, d time.Duration) error
}

// Execute 执行 fn，失败且错误可重试时按退避策略重试
func (r *retryer) Execute(ctx context.Context, fn func() (any, error)) (any, error) {
	attempts := r.cfg.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		// 确定性错误不消耗剩余尝试，原样返回
		if !r.retryIf(err) {
			return result, err
		}

		// 最后一次尝试失败后不再等待
		if attempt == attempts {
			break
		}

		delay := r.backoff(attempt)
		r.logger.Debug("retrying after backoff",
			clog.Int("attempt", attempt),
			clog.Duration("backoff", delay),
			clog.Error(err))

		if err := r.sleep(ctx, delay); err != nil {
			// ctx 取消中止重试循环，交出取消原因
			return nil, err
		}
	}

	return nil, &ExhaustedError{Attempts: attempts, LastErr: lastErr}
}

// backoff 计算第 attempt 次尝试失败后的退避时长
func (r *retryer) backoff(attempt int) time.Duration {
	d := float64(r.cfg.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= r.cfg.Multiplier
		if d >= float64(r.cfg.MaxBackoff) {
			d = float64(r.cfg.MaxBackoff)
			break
		}
	}
	if d > float64(r.cfg.MaxBackoff) {
		d = float64(r.cfg.MaxBackoff)
	}
	if !r.cfg.DisableJitter {
		d *= 0.7 + 0.6*rand.Float64()
	}
	return time.Duration(d)
}

// sleepContext 可被 ctx 取消的等待
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
