package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GraphQL 处理器写入，访问日志读取
const (
	KeyOperation     = "gqlOperation"
	KeyOperationType = "gqlOperationType"
)

var maskedParams = map[string]struct{}{
	"password": {}, "token": {}, "authorization": {}, "secret": {}, "variables": {},
}

func maskQuery(q url.Values) map[string][]string {
	if len(q) == 0 {
		return nil
	}
	out := make(map[string][]string, len(q))
	for k, v := range q {
		if _, ok := maskedParams[strings.ToLower(k)]; ok {
			out[k] = []string{"****"}
			continue
		}
		out[k] = v
	}
	return out
}

// AccessLog 每个请求一行；5xx 记 error，其余 info。/health 与 /metrics 只在出错时记录。
func AccessLog(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		quiet := path == "/health" || path == "/metrics"
		if quiet && status < http.StatusInternalServerError {
			return
		}

		lvl := zapcore.InfoLevel
		if status >= http.StatusInternalServerError {
			lvl = zapcore.ErrorLevel
		}
		fields := []zap.Field{
			zap.String("rid", c.GetString(KeyRequestID)),
			zap.String("uid", c.GetString(KeyUserID)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.Int("size", c.Writer.Size()),
		}
		if op, ok := c.Get(KeyOperation); ok {
			fields = append(fields,
				zap.Any("op", op),
				zap.String("opType", c.GetString(KeyOperationType)),
			)
		}
		if q := maskQuery(c.Request.URL.Query()); q != nil {
			fields = append(fields, zap.Any("query", q))
		}
		l.Log(lvl, "http", fields...)
	}
}
