package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKey 上下文键类型
type ContextKey string

// UserContextKey 用户上下文键
const UserContextKey ContextKey = "user"

// UserContext 认证后的用户上下文
type UserContext struct {
	UserID   string
	Username string
	Roles    []string
}

// AuthMiddleware JWT 认证中间件
func AuthMiddleware(jwtService *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "缺少认证令牌",
			})
			c.Abort()
			return
		}

		token := ExtractTokenFromBearer(authHeader)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "无效的令牌格式",
			})
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "令牌验证失败: " + err.Error(),
			})
			c.Abort()
			return
		}

		if claims.TokenType != "access" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "令牌类型错误",
			})
			c.Abort()
			return
		}

		c.Set(string(UserContextKey), &UserContext{
			UserID:   claims.UserID,
			Username: claims.Username,
			Roles:    claims.Roles,
		})
		c.Next()
	}
}

// RequireRole 角色检查中间件，持有任一所列角色即放行
func RequireRole(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "未认证",
			})
			c.Abort()
			return
		}

		if !hasRole(userCtx.Roles, requiredRoles) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "角色权限不足",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserContext 从 Gin Context 获取用户上下文
func GetUserContext(c *gin.Context) (*UserContext, bool) {
	userCtx, exists := c.Get(string(UserContextKey))
	if !exists {
		return nil, false
	}
	ctx, ok := userCtx.(*UserContext)
	return ctx, ok
}

// hasRole 检查是否有指定角色，admin 放行全部
func hasRole(userRoles []string, requiredRoles []string) bool {
	roleMap := make(map[string]bool)
	for _, role := range userRoles {
		roleMap[strings.ToLower(role)] = true
	}
	if roleMap["admin"] {
		return true
	}
	for _, required := range requiredRoles {
		if roleMap[strings.ToLower(required)] {
			return true
		}
	}
	return false
}
