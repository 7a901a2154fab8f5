package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes 限制请求体大小；超限在读取 body 时以 *http.MaxBytesError 暴露
func MaxBodyBytes(n int64) gin.HandlerFunc {
	if n <= 0 {
		return pass
	}
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// pass 用于关闭某项限制
func pass(c *gin.Context) { c.Next() }
