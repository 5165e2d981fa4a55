package guard

import (
	"time"

	"github.com/spf13/viper"

	"github.com/ceyewan/resilience/breaker"
	"github.com/ceyewan/resilience/retry"
	"github.com/ceyewan/resilience/xerrors"
)

// ========================================
// 配置文件加载 (Policy File Loading)
// ========================================

// PolicyFile 策略配置文件结构
//
// 配置示例 (policies.yaml):
//
//	policies:
//	  user-service:
//	    preset: grpc
//	    timeout: 5s
//	  orders-db:
//	    preset: database
//	  feed-cache:
//	    preset: cache
//	    breaker:
//	      failure_threshold: 5
type PolicyFile struct {
	Policies map[string]PolicyEntry `mapstructure:"policies"`
}

// PolicyEntry 配置文件中的单条策略
// Preset 指定基准预设，其余非零字段在预设之上覆盖
type PolicyEntry struct {
	Preset  string          `mapstructure:"preset"`
	Timeout time.Duration   `mapstructure:"timeout"`
	Breaker *breaker.Config `mapstructure:"breaker"`
	Retry   *retry.Config   `mapstructure:"retry"`

	// NoRetry 显式关闭预设自带的重试，用于非幂等操作
	NoRetry bool `mapstructure:"no_retry"`
}

// LoadPolicies 从配置文件加载一组命名策略
// 支持 viper 能识别的所有格式（yaml、json、toml 等）
func LoadPolicies(path string) (map[string]*Policy, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, xerrors.Wrapf(err, "guard: failed to read policy file %s", path)
	}

	var file PolicyFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, xerrors.Wrapf(err, "guard: failed to parse policy file %s", path)
	}

	policies := make(map[string]*Policy, len(file.Policies))
	for name, entry := range file.Policies {
		policy, err := entry.build(name)
		if err != nil {
			return nil, xerrors.Wrapf(err, "guard: invalid policy %s", name)
		}
		policies[name] = policy
	}
	return policies, nil
}

// build 将配置条目合并为完整策略
func (e PolicyEntry) build(name string) (*Policy, error) {
	policy := &Policy{Name: name}

	if e.Preset != "" {
		base, err := PresetPolicy(e.Preset)
		if err != nil {
			return nil, err
		}
		policy.Timeout = base.Timeout
		policy.Breaker = base.Breaker
		policy.Retry = base.Retry
	}

	// 非零字段覆盖预设
	if e.Timeout != 0 {
		policy.Timeout = e.Timeout
	}
	if e.Breaker != nil {
		policy.Breaker = e.Breaker
	}
	if e.Retry != nil {
		policy.Retry = e.Retry
	}
	if e.NoRetry {
		policy.Retry = nil
	}

	return policy, nil
}
