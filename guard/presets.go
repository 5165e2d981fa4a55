package guard

import (
	"time"

	"github.com/ceyewan/resilience/breaker"
	"github.com/ceyewan/resilience/retry"
)

// ========================================
// 预设策略 (Preset Policies)
// ========================================
//
// 预设是纯函数，每次调用返回独立的 Policy 实例，
// 调用方可以在返回值上按需覆盖字段后再传入 New。

// GRPCPolicy 内部 gRPC 调用预设
// 中等超时，标准熔断，少量快速重试
func GRPCPolicy() *Policy {
	return &Policy{
		Name:    "grpc",
		Timeout: 30 * time.Second,
		Breaker: &breaker.Config{
			FailureThreshold:   5,
			SuccessThreshold:   2,
			Cooldown:           60 * time.Second,
			ErrorRateThreshold: 0.50,
		},
		Retry: &retry.Config{
			MaxRetries:     3,
			InitialBackoff: 100 * time.Millisecond,
		},
	}
}

// DatabasePolicy 数据库访问预设
// 写入不幂等，绝不重试；阈值放宽避免慢查询误熔断
func DatabasePolicy() *Policy {
	return &Policy{
		Name:    "database",
		Timeout: 10 * time.Second,
		Breaker: &breaker.Config{
			FailureThreshold:   10,
			SuccessThreshold:   3,
			Cooldown:           30 * time.Second,
			ErrorRateThreshold: 0.60,
		},
		Retry: nil,
	}
}

// CachePolicy 缓存访问预设
// 缓存要快速失败，短超时、灵敏熔断、短冷却
func CachePolicy() *Policy {
	return &Policy{
		Name:    "cache",
		Timeout: 5 * time.Second,
		Breaker: &breaker.Config{
			FailureThreshold:   3,
			SuccessThreshold:   2,
			Cooldown:           15 * time.Second,
			ErrorRateThreshold: 0.50,
		},
		Retry: &retry.Config{
			MaxRetries:     2,
			InitialBackoff: 50 * time.Millisecond,
		},
	}
}

// HTTPExternalPolicy 外部 HTTP API 预设
// 外部服务不可控，长超时、长冷却、耐心重试
func HTTPExternalPolicy() *Policy {
	return &Policy{
		Name:    "http_external",
		Timeout: 60 * time.Second,
		Breaker: &breaker.Config{
			FailureThreshold:   5,
			SuccessThreshold:   2,
			Cooldown:           120 * time.Second,
			ErrorRateThreshold: 0.50,
		},
		Retry: &retry.Config{
			MaxRetries:     5,
			InitialBackoff: 500 * time.Millisecond,
		},
	}
}

// BrokerPublishPolicy 消息队列发布预设
// 发布要快，broker 端幂等去重的前提下允许重试
func BrokerPublishPolicy() *Policy {
	return &Policy{
		Name:    "broker_publish",
		Timeout: 5 * time.Second,
		Breaker: &breaker.Config{
			FailureThreshold:   5,
			SuccessThreshold:   2,
			Cooldown:           30 * time.Second,
			ErrorRateThreshold: 0.50,
		},
		Retry: &retry.Config{
			MaxRetries:     3,
			InitialBackoff: 100 * time.Millisecond,
		},
	}
}

// ObjectStoragePolicy 对象存储预设
// 大文件传输需要长超时，PUT/GET 均幂等可重试
func ObjectStoragePolicy() *Policy {
	return &Policy{
		Name:    "object_storage",
		Timeout: 120 * time.Second,
		Breaker: &breaker.Config{
			FailureThreshold:   5,
			SuccessThreshold:   2,
			Cooldown:           60 * time.Second,
			ErrorRateThreshold: 0.50,
		},
		Retry: &retry.Config{
			MaxRetries:     5,
			InitialBackoff: 500 * time.Millisecond,
		},
	}
}

// presetFuncs 预设名称到构造函数的映射，供配置加载按名引用
var presetFuncs = map[string]func() *Policy{
	"grpc":           GRPCPolicy,
	"database":       DatabasePolicy,
	"cache":          CachePolicy,
	"http_external":  HTTPExternalPolicy,
	"broker_publish": BrokerPublishPolicy,
	"object_storage": ObjectStoragePolicy,
}

// PresetPolicy 按名称返回预设策略
func PresetPolicy(name string) (*Policy, error) {
	fn, ok := presetFuncs[name]
	if !ok {
		return nil, ErrUnknownPreset
	}
	return fn(), nil
}

// PresetNames 返回所有已注册的预设名称
func PresetNames() []string {
	names := make([]string, 0, len(presetFuncs))
	for name := range presetFuncs {
		names = append(names, name)
	}
	return names
}
