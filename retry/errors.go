package retry

import (
	"fmt"

	"github.com/ceyewan/resilience/xerrors"
)

// ========================================
// 错误定义 (Error Definitions)
// ========================================

var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("retry: config is nil")

	// ErrInvalidConfig 配置取值非法
	ErrInvalidConfig = xerrors.New("retry: invalid config")
)

// ExhaustedError 所有重试尝试耗尽后返回的错误
// 携带总尝试次数与最后一次的原始错误，支持 errors.Is/As 穿透
type ExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: exhausted %d attempts, last error: %v", e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// IsExhausted 判断错误是否为重试耗尽
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return xerrors.As(err, &exhausted)
}
