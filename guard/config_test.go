package guard

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// 测试从 YAML 加载策略：预设引用、字段覆盖、关闭重试
func TestLoadPolicies(t *testing.T) {
	path := writePolicyFile(t, `
policies:
  user-service:
    preset: grpc
    timeout: 5s
  orders-db:
    preset: database
  feed-cache:
    preset: cache
    breaker:
      failure_threshold: 7
  legacy-api:
    preset: http_external
    no_retry: true
  custom:
    timeout: 2s
    breaker:
      failure_threshold: 4
      cooldown: 10s
    retry:
      max_retries: 1
      initial_backoff: 20ms
`)

	policies, err := LoadPolicies(path)
	require.NoError(t, err)
	require.Len(t, policies, 5)

	// 预设 + 超时覆盖
	user := policies["user-service"]
	assert.Equal(t, "user-service", user.Name)
	assert.Equal(t, 5*time.Second, user.Timeout)
	assert.Equal(t, 5, user.Breaker.FailureThreshold)
	require.NotNil(t, user.Retry)
	assert.Equal(t, 3, user.Retry.MaxRetries)

	// 纯预设
	db := policies["orders-db"]
	assert.Equal(t, 10*time.Second, db.Timeout)
	assert.Nil(t, db.Retry)

	// 熔断配置整体覆盖
	cache := policies["feed-cache"]
	assert.Equal(t, 7, cache.Breaker.FailureThreshold)

	// 显式关闭预设自带的重试
	legacy := policies["legacy-api"]
	assert.Nil(t, legacy.Retry)
	assert.Equal(t, 60*time.Second, legacy.Timeout)

	// 不引用预设的完整自定义
	custom := policies["custom"]
	assert.Equal(t, 2*time.Second, custom.Timeout)
	assert.Equal(t, 4, custom.Breaker.FailureThreshold)
	assert.Equal(t, 10*time.Second, custom.Breaker.Cooldown)
	require.NotNil(t, custom.Retry)
	assert.Equal(t, 1, custom.Retry.MaxRetries)
	assert.Equal(t, 20*time.Millisecond, custom.Retry.InitialBackoff)
}

// 测试未知预设名报错
func TestLoadPoliciesUnknownPreset(t *testing.T) {
	path := writePolicyFile(t, `
policies:
  bad:
    preset: nonexistent
`)
	_, err := LoadPolicies(path)
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

// 测试文件不存在报错
func TestLoadPoliciesMissingFile(t *testing.T) {
	_, err := LoadPolicies(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// 测试加载出的策略可以直接构造 Guard
func TestLoadedPolicyBuildsGuard(t *testing.T) {
	path := writePolicyFile(t, `
policies:
  user-service:
    preset: grpc
`)
	policies, err := LoadPolicies(path)
	require.NoError(t, err)

	g, err := New(policies["user-service"])
	require.NoError(t, err)
	assert.NotNil(t, g.Breaker())
}
