// Package booking 提供预约相关的 HTTP Handler
package booking

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/marketplace-backend/internal/common/handler"
	"github.com/dumeirei/marketplace-backend/internal/common/response"
	"github.com/dumeirei/marketplace-backend/internal/middleware"
	bookingService "github.com/dumeirei/marketplace-backend/internal/service/booking"
)

// Handler 预约处理器
type Handler struct {
	bookingService *bookingService.Service
}

// NewHandler 创建预约处理器
func NewHandler(bookingSvc *bookingService.Service) *Handler {
	return &Handler{bookingService: bookingSvc}
}

// CreateBooking 创建预约
// @Summary 创建预约
// @Tags 预约
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body bookingService.CreateBookingRequest true "请求参数"
// @Success 200 {object} response.Response{data=bookingService.CreateBookingResult}
// @Router /api/v1/bookings [post]
func (h *Handler) CreateBooking(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req bookingService.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	result, err := h.bookingService.Create(c.Request.Context(), userID, &req)
	handler.MustSucceed(c, err, result)
}

// GetBooking 获取预约详情
// @Summary 获取预约详情
// @Tags 预约
// @Produce json
// @Security Bearer
// @Param id path int true "预约ID"
// @Success 200 {object} response.Response{data=models.Booking}
// @Router /api/v1/bookings/{id} [get]
func (h *Handler) GetBooking(c *gin.Context) {
	userID, id, ok := handler.RequireUserAndParseID(c, "预约")
	if !ok {
		return
	}

	booking, err := h.bookingService.Get(c.Request.Context(), userID, id, middleware.IsStaff(c))
	handler.MustSucceed(c, err, booking)
}

// ListBookings 获取预约列表
// @Summary 获取预约列表
// @Tags 预约
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param status query string false "预约状态"
// @Param provider_id query int false "服务商ID"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/bookings [get]
func (h *Handler) ListBookings(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	page := handler.BindPagination(c)
	filters := make(map[string]interface{})
	// 普通用户只能查看自己的预约
	if !middleware.IsStaff(c) {
		filters["user_id"] = userID
	}
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	providerID, ok := handler.ParseQueryID(c, "provider_id", "服务商")
	if !ok {
		return
	}
	if providerID != nil {
		filters["provider_id"] = *providerID
	}

	list, total, err := h.bookingService.List(c.Request.Context(), page.GetOffset(), page.GetLimit(), filters)
	handler.MustSucceedPage(c, err, list, total, page.Page, page.PageSize)
}

// CancelBookingRequest 取消预约请求
type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// CancelBooking 取消预约
// @Summary 取消预约
// @Tags 预约
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "预约ID"
// @Param request body CancelBookingRequest false "请求参数"
// @Success 200 {object} response.Response
// @Router /api/v1/bookings/{id}/cancel [post]
func (h *Handler) CancelBooking(c *gin.Context) {
	userID, id, ok := handler.RequireUserAndParseID(c, "预约")
	if !ok {
		return
	}

	var req CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "参数错误")
			return
		}
	}

	err := h.bookingService.Cancel(c.Request.Context(), userID, id, req.Reason, middleware.IsStaff(c))
	handler.MustSucceed(c, err, nil)
}

// RescheduleRequest 改期请求
type RescheduleRequest struct {
	ScheduledTime time.Time `json:"scheduled_time" binding:"required"`
}

// RescheduleBooking 预约改期
// @Summary 预约改期
// @Tags 预约
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "预约ID"
// @Param request body RescheduleRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Booking}
// @Router /api/v1/bookings/{id}/reschedule [post]
func (h *Handler) RescheduleBooking(c *gin.Context) {
	userID, id, ok := handler.RequireUserAndParseID(c, "预约")
	if !ok {
		return
	}

	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	booking, err := h.bookingService.Reschedule(c.Request.Context(), userID, id, req.ScheduledTime)
	handler.MustSucceed(c, err, booking)
}

// ConfirmBooking 确认预约
// @Summary 确认预约
// @Tags 预约
// @Produce json
// @Security Bearer
// @Param id path int true "预约ID"
// @Success 200 {object} response.Response
// @Router /api/v1/bookings/{id}/confirm [post]
func (h *Handler) ConfirmBooking(c *gin.Context) {
	id, ok := handler.ParseID(c, "预约")
	if !ok {
		return
	}

	handler.MustSucceed(c, h.bookingService.Confirm(c.Request.Context(), id), nil)
}

// CompleteBooking 完成预约
// @Summary 完成预约
// @Tags 预约
// @Produce json
// @Security Bearer
// @Param id path int true "预约ID"
// @Success 200 {object} response.Response
// @Router /api/v1/bookings/{id}/complete [post]
func (h *Handler) CompleteBooking(c *gin.Context) {
	id, ok := handler.ParseID(c, "预约")
	if !ok {
		return
	}

	handler.MustSucceed(c, h.bookingService.Complete(c.Request.Context(), id), nil)
}

// WaitlistPosition 查询候补位置
// @Summary 查询候补位置
// @Tags 预约
// @Produce json
// @Security Bearer
// @Param id path int true "预约ID"
// @Success 200 {object} response.Response
// @Router /api/v1/bookings/{id}/waitlist [get]
func (h *Handler) WaitlistPosition(c *gin.Context) {
	userID, id, ok := handler.RequireUserAndParseID(c, "预约")
	if !ok {
		return
	}

	position, err := h.bookingService.WaitlistPosition(c.Request.Context(), userID, id)
	if handler.HandleError(c, err) {
		return
	}
	response.Success(c, gin.H{"position": position})
}
