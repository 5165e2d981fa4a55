package breaker

import "github.com/ceyewan/resilience/metrics"

// ========================================
// 指标定义 (Metric Definitions)
// ========================================

const (
	metricRequests     = "breaker_requests_total"
	metricRejects      = "breaker_rejects_total"
	metricStateChanges = "breaker_state_changes_total"
	metricDuration     = "breaker_request_duration_seconds"

	labelName      = "name"
	labelState     = "state"
	labelFromState = "from_state"
	labelToState   = "to_state"
	labelResult    = "result"
)

// breakerMetrics 预创建的指标实例集合
// 实例在构造时创建一次，避免热路径上的查找开销
type breakerMetrics struct {
	requests     metrics.Counter
	rejects      metrics.Counter
	stateChanges metrics.Counter
	duration     metrics.Histogram
}

func newBreakerMetrics(meter metrics.Meter) *breakerMetrics {
	if meter == nil {
		return nil
	}

	requests, err := meter.Counter(metricRequests, "熔断器实际执行的请求总数")
	if err != nil {
		return nil
	}
	rejects, err := meter.Counter(metricRejects, "熔断器快速失败的请求总数")
	if err != nil {
		return nil
	}
	stateChanges, err := meter.Counter(metricStateChanges, "熔断器状态转换次数")
	if err != nil {
		return nil
	}
	duration, err := meter.Histogram(metricDuration, "受保护请求的执行耗时", metrics.WithUnit("s"))
	if err != nil {
		return nil
	}

	return &breakerMetrics{
		requests:     requests,
		rejects:      rejects,
		stateChanges: stateChanges,
		duration:     duration,
	}
}
