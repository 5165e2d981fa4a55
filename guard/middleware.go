package guard

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/resilience/breaker"
	"github.com/ceyewan/resilience/xerrors"
)

// ========================================
// Gin 中间件 (Gin Middleware)
// ========================================

var errUpstreamStatus = xerrors.New("guard: handler returned server error")

// Middleware 返回服务端熔断中间件
// 以 5xx 响应作为失败样本驱动熔断，熔断打开时直接返回 503，
// 保护自身不被持续打向故障下游的流量拖垮
//
// 使用示例:
//
//	brk, _ := breaker.New(breaker.DefaultConfig(), breaker.WithName("api"))
//	router.Use(guard.Middleware(brk))
func Middleware(brk breaker.Breaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, err := brk.Execute(c.Request.Context(), func() (any, error) {
			c.Next()
			if c.Writer.Status() >= http.StatusInternalServerError {
				return nil, errUpstreamStatus
			}
			return nil, nil
		})

		if breaker.IsOpen(err) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "service temporarily unavailable",
			})
		}
	}
}

// StateHandler 返回暴露熔断器状态的 gin 处理器，用于运维观测
//
//	router.GET("/debug/breakers", guard.StateHandler(registry))
func StateHandler(registry *breaker.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		states := make(map[string]string)
		registry.Range(func(key string, b breaker.Breaker) bool {
			states[key] = b.State().String()
			return true
		})
		c.JSON(http.StatusOK, states)
	}
}
