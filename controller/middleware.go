package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminAuth 校验 X-Admin-Token。未配置 token 时放行（本地开发模式）。
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-Admin-Token") != token {
			ResponseError(c, http.StatusUnauthorized, CodeInvalidToken)
			c.Abort()
			return
		}
		c.Next()
	}
}
