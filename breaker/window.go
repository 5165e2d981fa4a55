package breaker

// window 固定大小的环形缓冲滑动窗口
// 记录最近 N 次请求的成功/失败结果，用于错误率计算
//
// 并发安全性由 circuitBreaker 的互斥锁保证，window 自身不加锁
type window struct {
	buf      []bool // true 表示失败
	size     int
	head     int // 下一个写入位置
	total    int // 已记录的样本数（<= size）
	failures int // 当前窗口内的失败数
}

func newWindow(size int) *window {
	return &window{
		buf:  make([]bool, size),
		size: size,
	}
}

// Push 记录一次请求结果，窗口满时淘汰最旧的样本
func (w *window) Push(failure bool) {
	if w.total == w.size {
		// 淘汰被覆盖的旧样本
		if w.buf[w.head] {
			w.failures--
		}
	} else {
		w.total++
	}
	w.buf[w.head] = failure
	if failure {
		w.failures++
	}
	w.head = (w.head + 1) % w.size
}

// Full 窗口是否已集满
// 错误率触发只在窗口集满后生效，避免小样本误判
func (w *window) Full() bool {
	return w.total == w.size
}

// FailureRate 当前窗口内的错误率，无样本时为 0
func (w *window) FailureRate() float64 {
	if w.total == 0 {
		return 0
	}
	return float64(w.failures) / float64(w.total)
}

// Reset 清空窗口
func (w *window) Reset() {
	for i := range w.buf {
		w.buf[i] = false
	}
	w.head = 0
	w.total = 0
	w.failures = 0
}
