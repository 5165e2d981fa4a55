// Package guard 提供了熔断、重试、超时三种机制的标准组合，
// 以及面向常见依赖类型的预设策略。
//
// 组合的固定嵌套顺序是 熔断 → 重试 → 超时 → 操作：
// - 超时贴着操作，限定的是单次尝试的时长
// - 重试包住超时，单次尝试超时后可以再试
// - 熔断在最外层，一次完整的重试序列只计入一个成败样本，
//   熔断打开时连重试都不会发生，依赖得到真正的喘息
//
// ## 基本使用
//
//	g, _ := guard.New(guard.GRPCPolicy(),
//		guard.WithLogger(logger),
//		guard.WithRetryIf(retry.GRPCRetryable()))
//
//	user, err := guard.Run(ctx, g, func(ctx context.Context) (*User, error) {
//		return client.GetUser(ctx, id)
//	})
package guard

import (
	"context"
	"time"

	"github.com/ceyewan/resilience/breaker"
	"github.com/ceyewan/resilience/retry"
	"github.com/ceyewan/resilience/timeout"
)

// ========================================
// 接口与策略定义 (Interface & Policy)
// ========================================

// Guard 组合防护接口
// 一个 Guard 实例对应一个逻辑依赖，进程生命周期内共享
type Guard interface {
	// Execute 在完整防护链下执行 fn
	// fn 收到的 ctx 带有单次尝试的超时
	Execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error)

	// Breaker 暴露内部熔断器，用于监控与运维重置
	Breaker() breaker.Breaker
}

// Policy 组合策略，描述一个依赖的完整防护参数
type Policy struct {
	// Name 依赖名称，用于日志和指标标识
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// Timeout 单次尝试的时限，0 表示不限时
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// Breaker 熔断配置，nil 表示使用默认配置
	Breaker *breaker.Config `json:"breaker" yaml:"breaker" mapstructure:"breaker"`

	// Retry 重试配置，nil 表示不重试
	// 非幂等操作（数据库写入、非幂等 HTTP 调用）必须保持为 nil
	Retry *retry.Config `json:"retry" yaml:"retry" mapstructure:"retry"`
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建组合防护实例
func New(policy *Policy, opts ...Option) (Guard, error) {
	if policy == nil {
		return nil, ErrPolicyNil
	}

	opt := defaultOptions()
	for _, o := range opts {
		o(opt)
	}

	name := policy.Name
	if name == "" {
		name = "default"
	}

	breakerCfg := policy.Breaker
	if breakerCfg == nil {
		breakerCfg = breaker.DefaultConfig()
	}
	brk, err := breaker.New(breakerCfg, append(opt.breakerOpts, breaker.WithName(name))...)
	if err != nil {
		return nil, err
	}

	var retryer retry.Retryer
	if policy.Retry != nil {
		retryer, err = retry.New(policy.Retry, opt.retryOpts...)
		if err != nil {
			return nil, err
		}
	}

	return &guardImpl{
		name:    name,
		limit:   policy.Timeout,
		brk:     brk,
		retryer: retryer,
	}, nil
}

// Run 在防护链下执行 fn 并返回其结果，泛型便捷封装
func Run[T any](ctx context.Context, g Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	result, err := g.Execute(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
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

type guardImpl struct {
	name    string
	limit   time.Duration
	brk     breaker.Breaker
	retryer retry.Retryer
}

// Execute 按 熔断 → 重试 → 超时 的顺序嵌套执行 fn
func (g *guardImpl) Execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	return g.brk.Execute(ctx, func() (any, error) {
		attempt := func() (any, error) {
			return timeout.Do(ctx, g.limit, fn)
		}
		if g.retryer == nil {
			return attempt()
		}
		return g.retryer.Execute(ctx, attempt)
	})
}

func (g *guardImpl) Breaker() breaker.Breaker {
	return g.brk
}
