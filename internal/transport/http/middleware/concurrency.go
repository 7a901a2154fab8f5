package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "tms-graphql-api/internal/transport/http/response"
)

// ConcurrencyLimit 限制同时在处理的请求数（保护 DB 下游）
func ConcurrencyLimit(max int64) gin.HandlerFunc {
	if max <= 0 {
		return pass
	}
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if !sem.TryAcquire(1) {
			// 排队等待，直到请求被取消
			if err := sem.Acquire(c.Request.Context(), 1); err != nil {
				c.AbortWithStatusJSON(http.StatusOK, resp.Fail(resp.CodeServerBusy, ""))
				return
			}
		}
		defer sem.Release(1)
		c.Next()
	}
}
