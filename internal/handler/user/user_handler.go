// Package user 提供用户相关的 HTTP Handler
package user

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/marketplace-backend/internal/common/handler"
	"github.com/dumeirei/marketplace-backend/internal/common/response"
	"github.com/dumeirei/marketplace-backend/internal/repository"
	userService "github.com/dumeirei/marketplace-backend/internal/service/user"
)

// Handler 用户处理器
type Handler struct {
	userService      *userService.UserService
	loyaltyService   *userService.LoyaltyService
	notificationRepo *repository.NotificationRepository
}

// NewHandler 创建用户处理器
func NewHandler(
	userSvc *userService.UserService,
	loyaltySvc *userService.LoyaltyService,
	notificationRepo *repository.NotificationRepository,
) *Handler {
	return &Handler{
		userService:      userSvc,
		loyaltyService:   loyaltySvc,
		notificationRepo: notificationRepo,
	}
}

// GetProfile 获取个人信息
// @Summary 获取个人信息
// @Tags 用户
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=models.User}
// @Router /api/v1/user/profile [get]
func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetProfile(c.Request.Context(), userID)
	handler.MustSucceed(c, err, user)
}

// UpdateProfile 更新个人信息
// @Summary 更新个人信息
// @Tags 用户
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body userService.UpdateProfileRequest true "请求参数"
// @Success 200 {object} response.Response
// @Router /api/v1/user/profile [put]
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req userService.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	handler.MustSucceed(c, h.userService.UpdateProfile(c.Request.Context(), userID, &req), nil)
}

// GetLoyalty 获取积分与会员等级
// @Summary 获取积分与会员等级
// @Tags 用户
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=userService.LoyaltyInfo}
// @Router /api/v1/user/loyalty [get]
func (h *Handler) GetLoyalty(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	info, err := h.loyaltyService.GetLoyaltyInfo(c.Request.Context(), userID)
	handler.MustSucceed(c, err, info)
}

// ListNotifications 获取通知列表
// @Summary 获取通知列表
// @Tags 用户
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/user/notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	page := handler.BindPagination(c)
	list, total, err := h.notificationRepo.ListByUser(c.Request.Context(), userID, page.GetOffset(), page.GetLimit())
	handler.MustSucceedPage(c, err, list, total, page.Page, page.PageSize)
}

// MarkNotificationRead 标记通知已读
// @Summary 标记通知已读
// @Tags 用户
// @Produce json
// @Security Bearer
// @Param id path int true "通知ID"
// @Success 200 {object} response.Response
// @Router /api/v1/user/notifications/{id}/read [post]
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	userID, id, ok := handler.RequireUserAndParseID(c, "通知")
	if !ok {
		return
	}

	handler.MustSucceed(c, h.notificationRepo.MarkRead(c.Request.Context(), id, userID), nil)
}
