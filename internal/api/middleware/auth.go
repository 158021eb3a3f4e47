package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/jwt"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/response"
)

const (
	UserIDKey = "userID"
	EmailKey  = "userEmail"
)

// Auth JWT 认证中间件，令牌由认证服务签发，sub 即用户 ID
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "missing authorization header")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.AuthError(c, "authorization header must use the Bearer scheme")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(EmailKey, claims.Email)
		c.Next()
	}
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok && id != ""
}

// GetEmail 令牌中携带的邮箱，可能为空
func GetEmail(c *gin.Context) string {
	return c.GetString(EmailKey)
}
