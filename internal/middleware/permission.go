// Package middleware 提供 HTTP 中间件
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/marketplace-backend/internal/common/response"
)

// 访问策略
const (
	PolicyAllowAny      = "allow_any"      // 无需登录
	PolicyAuthenticated = "authenticated"  // 需要登录
	PolicyStaff         = "staff"          // 需要运营人员角色
)

// 角色
const (
	RoleStaff = "staff"
)

// RequirePolicy 按访问策略拦截请求
func RequirePolicy(policy string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch policy {
		case PolicyAllowAny:
			c.Next()
			return
		case PolicyAuthenticated:
			if GetUserID(c) == 0 {
				response.Unauthorized(c, "请先登录")
				c.Abort()
				return
			}
		case PolicyStaff:
			if GetUserID(c) == 0 {
				response.Unauthorized(c, "请先登录")
				c.Abort()
				return
			}
			if !IsStaff(c) {
				response.Forbidden(c, "权限不足")
				c.Abort()
				return
			}
		default:
			response.Forbidden(c, "无效的访问策略")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff 要求运营人员角色
func RequireStaff() gin.HandlerFunc {
	return RequirePolicy(PolicyStaff)
}

// IsStaff 判断当前登录用户是否为运营人员
func IsStaff(c *gin.Context) bool {
	return GetRole(c) == RoleStaff
}

// GetAdminID 获取运营人员的用户ID，非运营人员返回 0
func GetAdminID(c *gin.Context) int64 {
	if !IsStaff(c) {
		return 0
	}
	return GetUserID(c)
}
