package breaker

import (
	"sync"
)

// ========================================
// 熔断器注册表 (Registry)
// ========================================

// Registry 按 key 管理一组共享配置的熔断器实例
//
// 每个逻辑依赖端点（如 "user-service/GetUser"、"redis-cache"）
// 对应一个独立的熔断器，首次访问时惰性创建。
// 典型用法是为一个 gRPC 客户端连接创建一个 Registry，
// 通过 KeyFunc 决定熔断粒度（按服务、按方法或按后端实例）。
type Registry struct {
	cfg      *Config
	opts     []Option
	breakers sync.Map // key -> Breaker
}

// NewRegistry 创建熔断器注册表
// cfg 和 opts 会应用到注册表创建的每一个熔断器上
func NewRegistry(cfg *Config, opts ...Option) (*Registry, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if cfg.ErrorRateThreshold < 0 || cfg.ErrorRateThreshold > 1 {
		return nil, ErrInvalidConfig
	}

	return &Registry{
		cfg:  cfg.withDefaults(),
		opts: opts,
	}, nil
}

// Get 获取 key 对应的熔断器，不存在时创建
func (r *Registry) Get(key string) Breaker {
	if cached, ok := r.breakers.Load(key); ok {
		return cached.(Breaker)
	}

	opt := defaultOptions()
	for _, o := range r.opts {
		o(opt)
	}
	opt.name = key

	cb := newCircuitBreaker(r.cfg, opt)
	actual, _ := r.breakers.LoadOrStore(key, Breaker(cb))
	return actual.(Breaker)
}

// States 返回所有已创建熔断器的状态快照，用于监控暴露
func (r *Registry) States() map[string]State {
	states := make(map[string]State)
	r.breakers.Range(func(key, value any) bool {
		states[key.(string)] = value.(Breaker).State()
		return true
	})
	return states
}

// Reset 重置 key 对应的熔断器，key 不存在时为空操作
func (r *Registry) Reset(key string) {
	if cached, ok := r.breakers.Load(key); ok {
		cached.(Breaker).Reset()
	}
}

// Range 遍历所有已创建的熔断器
func (r *Registry) Range(fn func(key string, b Breaker) bool) {
	r.breakers.Range(func(key, value any) bool {
		return fn(key.(string), value.(Breaker))
	})
}
