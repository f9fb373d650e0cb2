// Package auth 提供认证相关的 HTTP Handler
package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/marketplace-backend/internal/common/handler"
	"github.com/dumeirei/marketplace-backend/internal/common/response"
	userService "github.com/dumeirei/marketplace-backend/internal/service/user"
)

// Handler 认证处理器
type Handler struct {
	userService *userService.UserService
}

// NewHandler 创建认证处理器
func NewHandler(userSvc *userService.UserService) *Handler {
	return &Handler{userService: userSvc}
}

// Register 用户注册
// @Summary 用户注册
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body userService.RegisterRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.User}
// @Router /api/v1/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req userService.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	user, err := h.userService.Register(c.Request.Context(), &req)
	handler.MustSucceed(c, err, user)
}

// Login 账号密码登录
// @Summary 账号密码登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body userService.LoginRequest true "请求参数"
// @Success 200 {object} response.Response{data=userService.LoginResult}
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req userService.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	result, err := h.userService.Login(c.Request.Context(), &req)
	handler.MustSucceed(c, err, result)
}

// RefreshTokenRequest 刷新令牌请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken 刷新令牌
// @Summary 刷新令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RefreshTokenRequest true "请求参数"
// @Success 200 {object} response.Response{data=jwt.TokenPair}
// @Router /api/v1/auth/refresh [post]
func (h *Handler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	pair, err := h.userService.RefreshToken(c.Request.Context(), req.RefreshToken)
	handler.MustSucceed(c, err, pair)
}
