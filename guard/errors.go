package guard

import (
	"net/http"

	"github.com/ceyewan/resilience/breaker"
	"github.com/ceyewan/resilience/timeout"
	"github.com/ceyewan/resilience/xerrors"
)

// ========================================
// 错误定义 (Error Definitions)
// ========================================

var (
	// ErrPolicyNil 策略为空
	ErrPolicyNil = xerrors.New("guard: policy is nil")

	// ErrUnknownPreset 预设名称未注册
	ErrUnknownPreset = xerrors.New("guard: unknown preset")
)

// ErrorStatus 将防护链错误映射为 HTTP 状态码
//   - 熔断拒绝 → 503 Service Unavailable
//   - 超时 → 504 Gateway Timeout
//   - 其他 → 500 Internal Server Error
func ErrorStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case breaker.IsOpen(err):
		return http.StatusServiceUnavailable
	case timeout.IsElapsed(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
