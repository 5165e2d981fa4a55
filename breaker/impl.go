package breaker

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ceyewan/resilience/clog"
	"github.com/ceyewan/resilience/metrics"
)

// ========================================
// 核心实现 (Core Implementation)
// ========================================

// circuitBreaker 熔断器实现
//
// 结果记录在互斥锁内串行完成，保证状态转换的线性一致性；
// State/ErrorRate 通过原子快照读取，监控路径不与调用路径竞争锁。
type circuitBreaker struct {
	cfg           *Config
	name          string
	logger        clog.Logger
	metrics       *breakerMetrics
	condition     Condition
	onStateChange OnStateChangeFunc
	clock         Clock

	mu               sync.Mutex
	state            State
	failures         int // 连续失败计数
	successes        int // 连续成功计数
	openedAt         time.Time
	halfOpenInflight int
	window           *window

	// 无锁监控快照
	stateSnapshot atomic.Int32
	rateSnapshot  atomic.Uint64 // math.Float64bits
}

func newCircuitBreaker(cfg *Config, opt *options) *circuitBreaker {
	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	}
	return &circuitBreaker{
		cfg:           cfg,
		name:          opt.name,
		logger:        logger,
		metrics:       newBreakerMetrics(opt.meter),
		condition:     opt.condition,
		onStateChange: opt.onStateChange,
		clock:         opt.clock,
		state:         StateClosed,
		window:        newWindow(cfg.WindowSize),
	}
}

// Execute 执行受熔断保护的函数
func (cb *circuitBreaker) Execute(ctx context.Context, fn func() (any, error)) (any, error) {
	if err := cb.allow(); err != nil {
		cb.recordReject(err)
		return nil, err
	}

	start := time.Now()
	result, err := fn()
	elapsed := time.Since(start)

	failure := cb.condition(err)
	cb.record(failure)
	cb.recordOutcome(failure, elapsed)

	return result, err
}

// allow 判断当前请求是否放行
// Open 状态在此处懒惰评估冷却时间，到期则转入 HalfOpen
func (cb *circuitBreaker) allow() error {
	cb.mu.Lock()

	if cb.state == StateOpen {
		if cb.clock.Now().Sub(cb.openedAt) >= cb.cfg.Cooldown {
			cb.transitionTo(StateHalfOpen)
		} else {
			cb.mu.Unlock()
			return ErrOpenState
		}
	}

	if cb.state == StateHalfOpen {
		if cb.halfOpenInflight >= cb.cfg.HalfOpenMaxRequests {
			cb.mu.Unlock()
			return ErrTooManyRequests
		}
		cb.halfOpenInflight++
	}

	cb.mu.Unlock()
	return nil
}

// record 记录一次请求结果并驱动状态转换
func (cb *circuitBreaker) record(failure bool) {
	cb.mu.Lock()

	if cb.state == StateHalfOpen && cb.halfOpenInflight > 0 {
		cb.halfOpenInflight--
	}

	cb.window.Push(failure)

	if failure {
		cb.failures++
		cb.successes = 0

		switch cb.state {
		case StateClosed:
			// 双触发：连续失败达到阈值，或窗口集满且错误率超标
			if cb.failures >= cb.cfg.FailureThreshold ||
				(cb.window.Full() && cb.window.FailureRate() >= cb.cfg.ErrorRateThreshold) {
				cb.transitionTo(StateOpen)
			}
		case StateHalfOpen:
			// 探测失败立即回到 Open，重新计算冷却
			cb.transitionTo(StateOpen)
		}
	} else {
		cb.successes++
		cb.failures = 0

		if cb.state == StateHalfOpen && cb.successes >= cb.cfg.SuccessThreshold {
			cb.transitionTo(StateClosed)
		}
	}

	cb.updateSnapshots()
	cb.mu.Unlock()
}

// transitionTo 执行状态转换，调用方必须持有锁
func (cb *circuitBreaker) transitionTo(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to

	switch to {
	case StateOpen:
		cb.openedAt = cb.clock.Now()
		cb.halfOpenInflight = 0
	case StateHalfOpen:
		cb.failures = 0
		cb.successes = 0
		cb.halfOpenInflight = 0
	case StateClosed:
		cb.failures = 0
		cb.successes = 0
		cb.window.Reset()
	}

	cb.updateSnapshots()

	cb.logger.Info("circuit breaker state changed",
		clog.String("name", cb.name),
		clog.String("from", from.String()),
		clog.String("to", to.String()),
		clog.Float64("error_rate", cb.window.FailureRate()))

	if cb.metrics != nil {
		cb.metrics.stateChanges.Inc(context.Background(),
			metrics.L(labelName, cb.name),
			metrics.L(labelFromState, from.String()),
			metrics.L(labelToState, to.String()))
	}

	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}

// updateSnapshots 刷新监控快照，调用方必须持有锁
func (cb *circuitBreaker) updateSnapshots() {
	cb.stateSnapshot.Store(int32(cb.state))
	cb.rateSnapshot.Store(math.Float64bits(cb.window.FailureRate()))
}

// State 获取当前状态
// 读取的是最近一次记录/转换时的快照，永不阻塞；
// Open→HalfOpen 的转换发生在下一次调用上，监控读取不触发转换
func (cb *circuitBreaker) State() State {
	return State(cb.stateSnapshot.Load())
}

// ErrorRate 获取滑动窗口错误率快照
func (cb *circuitBreaker) ErrorRate() float64 {
	return math.Float64frombits(cb.rateSnapshot.Load())
}

// Counts 获取当前的连续失败/连续成功计数
func (cb *circuitBreaker) Counts() (failures, successes int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures, cb.successes
}

// Reset 手动重置为 Closed 状态
func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	cb.transitionTo(StateClosed)
	// 已处于 Closed 时 transitionTo 不做事，这里统一清空统计
	cb.failures = 0
	cb.successes = 0
	cb.window.Reset()
	cb.updateSnapshots()
	cb.mu.Unlock()

	cb.logger.Info("circuit breaker reset", clog.String("name", cb.name))
}

// recordReject 记录一次熔断拒绝
func (cb *circuitBreaker) recordReject(err error) {
	cb.logger.Debug("request rejected by circuit breaker",
		clog.String("name", cb.name),
		clog.String("state", cb.State().String()),
		clog.Error(err))

	if cb.metrics != nil {
		cb.metrics.rejects.Inc(context.Background(),
			metrics.L(labelName, cb.name),
			metrics.L(labelState, cb.State().String()))
	}
}

// recordOutcome 记录一次实际执行的请求指标
func (cb *circuitBreaker) recordOutcome(failure bool, elapsed time.Duration) {
	if cb.metrics == nil {
		return
	}

	result := "success"
	if failure {
		result = "failure"
	}
	ctx := context.Background()
	cb.metrics.requests.Inc(ctx,
		metrics.L(labelName, cb.name),
		metrics.L(labelResult, result))
	cb.metrics.duration.Record(ctx, elapsed.Seconds(),
		metrics.L(labelName, cb.name),
		metrics.L(labelResult, result))
}
