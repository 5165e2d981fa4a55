package timeout

import (
	"context"
	"errors"
	"testing"
	"time"
)

// 测试时限内完成时结果透传
func TestDoCompletes(t *testing.T) {
	got, err := Do(context.Background(), time.Second, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected ok, got %q", got)
	}
}

// 测试时限内返回的业务错误原样透传，不是超时
func TestDoOperationError(t *testing.T) {
	errOp := errors.New("operation failed")
	_, err := Do(context.Background(), time.Second, func(ctx context.Context) (string, error) {
		return "", errOp
	})
	if !errors.Is(err, errOp) {
		t.Errorf("expected operation error, got %v", err)
	}
	if IsElapsed(err) {
		t.Error("operation error should not be classified as elapsed")
	}
}

// 测试配合取消的慢操作超时返回 ElapsedError
func TestDoElapsed(t *testing.T) {
	limit := 20 * time.Millisecond
	_, err := Do(context.Background(), limit, func(ctx context.Context) (string, error) {
		select {
		case <-time.After(time.Second):
			return "late", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	var elapsed *ElapsedError
	if !errors.As(err, &elapsed) {
		t.Fatalf("expected ElapsedError, got %v", err)
	}
	if elapsed.Limit != limit {
		t.Errorf("expected Limit %v, got %v", limit, elapsed.Limit)
	}
	if !IsElapsed(err) {
		t.Error("IsElapsed should report true")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("elapsed error should match context.DeadlineExceeded")
	}
}

// 测试忽略 ctx 的操作超时后立即返回，不等待其结束
func TestDoIgnoresContext(t *testing.T) {
	start := time.Now()
	_, err := Do(context.Background(), 20*time.Millisecond, func(ctx context.Context) (string, error) {
		time.Sleep(500 * time.Millisecond) // 不理会 ctx
		return "late", nil
	})
	elapsed := time.Since(start)

	if !IsElapsed(err) {
		t.Fatalf("expected ElapsedError, got %v", err)
	}
	if elapsed > 200*time.Millisecond {
		t.Errorf("Do should return at the limit, took %v", elapsed)
	}
}

// 测试父 ctx 先取消时返回取消错误而非超时
func TestDoParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, time.Second, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if IsElapsed(err) {
		t.Error("parent cancellation should not be classified as elapsed")
	}
}

// 测试 limit 为 0 时不限时直接执行
func TestDoNoLimit(t *testing.T) {
	got, err := Do(context.Background(), 0, func(ctx context.Context) (int, error) {
		if _, hasDeadline := ctx.Deadline(); hasDeadline {
			t.Error("expected no deadline with zero limit")
		}
		return 7, nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
}

// 测试只关心错误的 Run 封装
func TestRun(t *testing.T) {
	if err := Run(context.Background(), time.Second, func(ctx context.Context) error {
		return nil
	}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	err := Run(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !IsElapsed(err) {
		t.Errorf("expected ElapsedError, got %v", err)
	}
}
