package breaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock 测试用可控时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errBoom = errors.New("boom")

func fail(b Breaker) error {
	_, err := b.Execute(context.Background(), func() (any, error) {
		return nil, errBoom
	})
	return err
}

func succeed(b Breaker) error {
	_, err := b.Execute(context.Background(), func() (any, error) {
		return "ok", nil
	})
	return err
}

// 测试 nil 配置返回错误
func TestNewNilConfig(t *testing.T) {
	_, err := New(nil)
	if !errors.Is(err, ErrConfigNil) {
		t.Errorf("expected ErrConfigNil, got %v", err)
	}
}

// 测试非法错误率阈值返回错误
func TestNewInvalidErrorRate(t *testing.T) {
	_, err := New(&Config{ErrorRateThreshold: 1.5})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

// 测试零值配置填充默认值
func TestConfigDefaults(t *testing.T) {
	cfg := (&Config{}).withDefaults()
	if cfg.FailureThreshold != 5 {
		t.Errorf("expected default failure threshold 5, got %d", cfg.FailureThreshold)
	}
	if cfg.SuccessThreshold != 2 {
		t.Errorf("expected default success threshold 2, got %d", cfg.SuccessThreshold)
	}
	if cfg.Cooldown != 60*time.Second {
		t.Errorf("expected default cooldown 60s, got %v", cfg.Cooldown)
	}
	if cfg.ErrorRateThreshold != 0.5 {
		t.Errorf("expected default error rate threshold 0.5, got %v", cfg.ErrorRateThreshold)
	}
	if cfg.WindowSize != 100 {
		t.Errorf("expected default window size 100, got %d", cfg.WindowSize)
	}
	if cfg.HalfOpenMaxRequests != 1 {
		t.Errorf("expected default half-open max requests 1, got %d", cfg.HalfOpenMaxRequests)
	}
}

// 测试连续失败达到阈值时熔断
func TestConsecutiveFailureTrip(t *testing.T) {
	b, err := New(&Config{FailureThreshold: 3})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		fail(b)
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed after 2 failures, got %v", b.State())
	}

	fail(b)
	if b.State() != StateOpen {
		t.Fatalf("expected open after 3 consecutive failures, got %v", b.State())
	}
}

// 测试成功会重置连续失败计数
func TestSuccessResetsFailureCount(t *testing.T) {
	b, err := New(&Config{FailureThreshold: 3})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	fail(b)
	fail(b)
	succeed(b)
	fail(b)
	fail(b)
	if b.State() != StateClosed {
		t.Fatalf("expected closed, failure count should reset on success, got %v", b.State())
	}

	failures, _ := b.Counts()
	if failures != 2 {
		t.Errorf("expected 2 consecutive failures, got %d", failures)
	}

	fail(b)
	if b.State() != StateOpen {
		t.Fatalf("expected open after threshold reached, got %v", b.State())
	}
}

// 测试窗口集满后错误率超标时熔断
func TestErrorRateTrip(t *testing.T) {
	b, err := New(&Config{
		FailureThreshold:   100, // 连续失败触发不生效
		ErrorRateThreshold: 0.5,
		WindowSize:         10,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// 9 次成功后开始交替失败：窗口未满或错误率不足时不熔断
	for i := 0; i < 9; i++ {
		succeed(b)
	}
	for i := 0; i < 4; i++ {
		fail(b)
		if b.State() != StateClosed {
			t.Fatalf("expected closed at error rate %.2f, got %v", b.ErrorRate(), b.State())
		}
	}

	// 第 5 次失败：窗口内 5/10 失败，达到阈值
	fail(b)
	if b.State() != StateOpen {
		t.Fatalf("expected open at error rate %.2f, got %v", b.ErrorRate(), b.State())
	}
}

// 测试窗口未集满时错误率触发不生效
func TestErrorRateRequiresFullWindow(t *testing.T) {
	b, err := New(&Config{
		FailureThreshold:   100,
		ErrorRateThreshold: 0.5,
		WindowSize:         10,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// 3 次失败错误率 100%，但窗口只有 3 个样本
	fail(b)
	succeed(b)
	fail(b)
	fail(b)
	if b.State() != StateClosed {
		t.Fatalf("expected closed while window not full, got %v", b.State())
	}
}

// 测试打开状态下请求快速失败，fn 不被调用
func TestOpenRejectsWithoutInvoking(t *testing.T) {
	clock := newFakeClock()
	b, err := New(&Config{FailureThreshold: 1, Cooldown: time.Minute}, WithClock(clock))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	fail(b)
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %v", b.State())
	}

	invoked := false
	_, err = b.Execute(context.Background(), func() (any, error) {
		invoked = true
		return nil, nil
	})
	if !errors.Is(err, ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
	if invoked {
		t.Error("fn should not be invoked while open")
	}
	if !IsOpen(err) {
		t.Error("IsOpen should report true for ErrOpenState")
	}
}

// 测试冷却结束后的下一次调用进入半开并执行
func TestHalfOpenAfterCooldown(t *testing.T) {
	clock := newFakeClock()
	b, err := New(&Config{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Cooldown:         60 * time.Second,
	}, WithClock(clock))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		fail(b)
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open after 5 failures, got %v", b.State())
	}

	// 冷却未结束，仍然拒绝
	clock.Advance(10 * time.Second)
	if err := succeed(b); !errors.Is(err, ErrOpenState) {
		t.Fatalf("expected rejection during cooldown, got %v", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open during cooldown, got %v", b.State())
	}

	// 冷却结束，探测成功，success_threshold=1 直接关闭
	clock.Advance(51 * time.Second)
	if err := succeed(b); err != nil {
		t.Fatalf("expected probe to execute after cooldown, got %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed after successful probe, got %v", b.State())
	}
}

// 测试半开状态探测失败立即回到打开，冷却重新计时
func TestHalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	b, err := New(&Config{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Cooldown:         60 * time.Second,
	}, WithClock(clock))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	fail(b)
	clock.Advance(61 * time.Second)

	// 探测失败，回到打开
	fail(b)
	if b.State() != StateOpen {
		t.Fatalf("expected open after failed probe, got %v", b.State())
	}

	// 冷却从探测失败时刻重新计算
	clock.Advance(30 * time.Second)
	if err := succeed(b); !errors.Is(err, ErrOpenState) {
		t.Fatalf("expected rejection, cooldown should restart after probe failure, got %v", err)
	}
	clock.Advance(31 * time.Second)
	if err := succeed(b); err != nil {
		t.Fatalf("expected probe after restarted cooldown, got %v", err)
	}
}

// 测试半开状态需要连续成功数达到阈值才关闭
func TestHalfOpenRequiresSuccessThreshold(t *testing.T) {
	clock := newFakeClock()
	b, err := New(&Config{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Cooldown:         time.Second,
	}, WithClock(clock))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	fail(b)
	clock.Advance(2 * time.Second)

	succeed(b)
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open after 1 of 2 successes, got %v", b.State())
	}
	succeed(b)
	if b.State() != StateClosed {
		t.Fatalf("expected closed after 2 successes, got %v", b.State())
	}
}

// 测试半开状态限制并发探测请求数
func TestHalfOpenLimitsProbes(t *testing.T) {
	clock := newFakeClock()
	b, err := New(&Config{
		FailureThreshold: 1,
		Cooldown:         time.Second,
	}, WithClock(clock))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	fail(b)
	clock.Advance(2 * time.Second)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := b.Execute(context.Background(), func() (any, error) {
			close(started)
			<-release
			return nil, nil
		})
		done <- err
	}()

	<-started
	// 探测进行中，第二个请求被限流
	_, err = b.Execute(context.Background(), func() (any, error) {
		return nil, nil
	})
	if !errors.Is(err, ErrTooManyRequests) {
		t.Errorf("expected ErrTooManyRequests during in-flight probe, got %v", err)
	}
	if !IsOpen(err) {
		t.Error("IsOpen should report true for ErrTooManyRequests")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe should succeed, got %v", err)
	}
}

// 测试自定义失败判定：业务错误不触发熔断
func TestCondition(t *testing.T) {
	errBusiness := errors.New("not found")
	b, err := New(&Config{FailureThreshold: 2}, WithCondition(func(err error) bool {
		return err != nil && !errors.Is(err, errBusiness)
	}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		b.Execute(context.Background(), func() (any, error) {
			return nil, errBusiness
		})
	}
	if b.State() != StateClosed {
		t.Fatalf("business errors should not trip the breaker, got %v", b.State())
	}

	fail(b)
	fail(b)
	if b.State() != StateOpen {
		t.Fatalf("expected open after 2 infrastructure failures, got %v", b.State())
	}
}

// 测试状态变更回调
func TestOnStateChange(t *testing.T) {
	type change struct{ from, to State }
	var changes []change

	clock := newFakeClock()
	b, err := New(&Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Cooldown:         time.Second,
	}, WithClock(clock), WithName("dep"), WithOnStateChange(func(name string, from, to State) {
		if name != "dep" {
			t.Errorf("expected name dep, got %s", name)
		}
		changes = append(changes, change{from, to})
	}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	fail(b)
	clock.Advance(2 * time.Second)
	succeed(b)

	want := []change{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}
	if len(changes) != len(want) {
		t.Fatalf("expected %d transitions, got %d", len(want), len(changes))
	}
	for i, c := range changes {
		if c != want[i] {
			t.Errorf("transition %d: expected %v->%v, got %v->%v",
				i, want[i].from, want[i].to, c.from, c.to)
		}
	}
}

// 测试手动重置
func TestReset(t *testing.T) {
	b, err := New(&Config{FailureThreshold: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	fail(b)
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %v", b.State())
	}

	b.Reset()
	if b.State() != StateClosed {
		t.Fatalf("expected closed after reset, got %v", b.State())
	}
	if b.ErrorRate() != 0 {
		t.Errorf("expected error rate 0 after reset, got %v", b.ErrorRate())
	}
	if err := succeed(b); err != nil {
		t.Errorf("expected call to pass after reset, got %v", err)
	}
}

// 测试错误率快照
func TestErrorRateSnapshot(t *testing.T) {
	b, err := New(&Config{FailureThreshold: 100, WindowSize: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if b.ErrorRate() != 0 {
		t.Errorf("expected error rate 0 with no samples, got %v", b.ErrorRate())
	}

	succeed(b)
	fail(b)
	if b.ErrorRate() != 0.5 {
		t.Errorf("expected error rate 0.5, got %v", b.ErrorRate())
	}
}

// 测试泛型封装 Do 的结果透传
func TestDo(t *testing.T) {
	b, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	got, err := Do(context.Background(), b, func() (string, error) {
		return "hello", nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}

	_, err = Do(context.Background(), b, func() (int, error) {
		return 0, errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Errorf("expected operation error to pass through, got %v", err)
	}
}

// 测试并发执行下状态机不出现越界转换
func TestConcurrentExecute(t *testing.T) {
	b, err := New(&Config{FailureThreshold: 10, WindowSize: 100})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if (n+j)%2 == 0 {
					succeed(b)
				} else {
					b.Execute(context.Background(), func() (any, error) {
						return nil, errBoom
					})
				}
				b.State()
				b.ErrorRate()
			}
		}(i)
	}
	wg.Wait()

	if rate := b.ErrorRate(); rate < 0 || rate > 1 {
		t.Errorf("error rate out of range: %v", rate)
	}
}
