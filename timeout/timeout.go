// Package timeout 提供了带硬性时限的函数执行，保证调用方的最坏等待时间。
//
// timeout 的行为要点：
// - fn 会收到一个带截止时间的派生 ctx，配合取消的实现会提前退出
// - fn 若忽略 ctx，超时后其协程被放弃继续运行，返回值被丢弃
// - 超时返回独立的 ElapsedError，可与业务错误区分
// - 父 ctx 先于时限取消时返回 ctx.Err()，不伪装成超时
//
// ## 基本使用
//
//	result, err := timeout.Do(ctx, 5*time.Second, func(ctx context.Context) (string, error) {
//		return client.Get(ctx, key)
//	})
//	if timeout.IsElapsed(err) {
//		// 超出时限
//	}
package timeout

import (
	"context"
	"fmt"
	"time"

	"github.com/ceyewan/resilience/xerrors"
)

// ElapsedError 操作超出时限的错误
type ElapsedError struct {
	Limit time.Duration
}

func (e *ElapsedError) Error() string {
	return fmt.Sprintf("timeout: operation exceeded %v", e.Limit)
}

// Is 支持 errors.Is(err, context.DeadlineExceeded) 匹配，
// 便于上层按标准哨兵统一处理超时
func (e *ElapsedError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// IsElapsed 判断错误是否为超时
func IsElapsed(err error) bool {
	var elapsed *ElapsedError
	return xerrors.As(err, &elapsed)
}

// Do 在 limit 时限内执行 fn 并返回其结果
//
// fn 在独立协程中执行，收到的 ctx 会在时限到达或父 ctx 取消时结束。
// 时限到达时立即返回 ElapsedError，不等待 fn 退出；
// 不配合取消的 fn 会继续运行至自然结束，结果被丢弃。
// limit <= 0 表示不限时，直接执行。
func Do[T any](ctx context.Context, limit time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if limit <= 0 {
		return fn(ctx)
	}

	tctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	type outcome struct {
		result T
		err    error
	}
	// 带缓冲，超时放弃后 fn 的协程仍可写入并退出，不会泄漏
	ch := make(chan outcome, 1)

	go func() {
		result, err := fn(tctx)
		ch <- outcome{result: result, err: err}
	}()

	select {
	case out := <-ch:
		return out.result, out.err
	case <-tctx.Done():
		// 父 ctx 取消优先于超时判定
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, &ElapsedError{Limit: limit}
	}
}

// Run 在 limit 时限内执行 fn，只关心错误的便捷封装
func Run(ctx context.Context, limit time.Duration, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, limit, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
