package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tms-graphql-api/internal/core/auth"
	"tms-graphql-api/internal/core/config"
	"tms-graphql-api/internal/core/server"
	mdw "tms-graphql-api/internal/transport/http/middleware"
	resp "tms-graphql-api/internal/transport/http/response"
)

type Deps struct {
	Log      *zap.Logger
	Limits   config.Limits
	CORS     config.CORS
	Verifier *auth.Verifier
	GraphQL  gin.HandlerFunc
}

func NewAPIEngine(d Deps) *gin.Engine {
	r := server.NewRouter(d.Log, d.CORS.AllowOrigins, func(c *gin.Context, _ any) {
		c.AbortWithStatusJSON(http.StatusOK, resp.Fail(resp.CodeInternal, ""))
	})

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.RateLimitPerIP(rate.Limit(d.Limits.RPS), d.Limits.Burst),
		mdw.ConcurrencyLimit(d.Limits.MaxConcurrent),
		mdw.MaxBodyBytes(d.Limits.MaxBodyBytes),
		mdw.Timeout(d.Limits.RequestTimeout()),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 身份在这里解析，鉴权交给各解析器
	r.POST("/graphql", mdw.Authenticate(d.Verifier), d.GraphQL)

	return r
}
