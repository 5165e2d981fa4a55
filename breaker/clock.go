package breaker

import "time"

// Clock 时间源接口
// 生产环境使用系统时钟，测试中可注入可控时钟以验证冷却行为
type Clock interface {
	Now() time.Time
}

// systemClock 系统时钟实现
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
