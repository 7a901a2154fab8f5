package middleware

import (
	"github.com/gin-gonic/gin"

	"tms-graphql-api/internal/core/auth"
)

const KeyUserID = "userId"

// Authenticate 解析调用者身份写入请求 context，从不拒绝请求；
// 是否需要登录由解析器按 auth.Policy 判断
func Authenticate(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := v.Resolve(ctx, c.GetHeader("Authorization"))
		c.Request = c.Request.WithContext(auth.WithIdentity(ctx, id))
		c.Set(KeyUserID, id.UserID)
		c.Next()
	}
}
