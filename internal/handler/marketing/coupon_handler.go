// Package marketing 提供营销相关的 HTTP Handler
package marketing

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/dumeirei/marketplace-backend/internal/common/handler"
	"github.com/dumeirei/marketplace-backend/internal/common/response"
	marketingService "github.com/dumeirei/marketplace-backend/internal/service/marketing"
)

// Handler 营销处理器
type Handler struct {
	couponService *marketingService.CouponService
}

// NewHandler 创建营销处理器
func NewHandler(couponSvc *marketingService.CouponService) *Handler {
	return &Handler{couponService: couponSvc}
}

// CreateCoupon 创建优惠券
// @Summary 创建优惠券
// @Tags 营销
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body marketingService.CreateCouponRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Coupon}
// @Router /api/v1/coupons [post]
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req marketingService.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	coupon, err := h.couponService.Create(c.Request.Context(), &req)
	handler.MustSucceed(c, err, coupon)
}

// ValidateCouponRequest 优惠券校验请求
type ValidateCouponRequest struct {
	Code   string                      `json:"code" binding:"required"`
	Amount decimal.Decimal             `json:"amount" binding:"required"`
	Items  []marketingService.CartItem `json:"items"`
}

// ValidateCoupon 校验优惠券
// @Summary 校验优惠券并试算优惠
// @Tags 营销
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body ValidateCouponRequest true "请求参数"
// @Success 200 {object} response.Response{data=marketingService.DiscountResult}
// @Router /api/v1/coupons/validate [post]
func (h *Handler) ValidateCoupon(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	result, err := h.couponService.Validate(c.Request.Context(), &marketingService.ValidateInput{
		Code:   req.Code,
		UserID: userID,
		Amount: req.Amount,
		Items:  req.Items,
	})
	handler.MustSucceed(c, err, result)
}

// GetCoupon 获取优惠券详情
// @Summary 获取优惠券详情
// @Tags 营销
// @Produce json
// @Security Bearer
// @Param id path int true "优惠券ID"
// @Success 200 {object} response.Response{data=models.Coupon}
// @Router /api/v1/coupons/{id} [get]
func (h *Handler) GetCoupon(c *gin.Context) {
	id, ok := handler.ParseID(c, "优惠券")
	if !ok {
		return
	}

	coupon, err := h.couponService.Get(c.Request.Context(), id)
	handler.MustSucceed(c, err, coupon)
}

// ListCoupons 获取优惠券列表
// @Summary 获取优惠券列表
// @Tags 营销
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param active_only query bool false "仅返回可用券"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/coupons [get]
func (h *Handler) ListCoupons(c *gin.Context) {
	page := handler.BindPagination(c)
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active_only", "false"))

	list, total, err := h.couponService.List(c.Request.Context(), page.GetOffset(), page.GetLimit(), activeOnly)
	handler.MustSucceedPage(c, err, list, total, page.Page, page.PageSize)
}

// DeactivateCoupon 停用优惠券
// @Summary 停用优惠券
// @Tags 营销
// @Produce json
// @Security Bearer
// @Param id path int true "优惠券ID"
// @Success 200 {object} response.Response
// @Router /api/v1/coupons/{id} [delete]
func (h *Handler) DeactivateCoupon(c *gin.Context) {
	id, ok := handler.ParseID(c, "优惠券")
	if !ok {
		return
	}

	handler.MustSucceed(c, h.couponService.Deactivate(c.Request.Context(), id), nil)
}

// ListCouponUsages 获取优惠券使用记录
// @Summary 获取优惠券使用记录
// @Tags 营销
// @Produce json
// @Security Bearer
// @Param id path int true "优惠券ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/coupons/{id}/usages [get]
func (h *Handler) ListCouponUsages(c *gin.Context) {
	id, ok := handler.ParseID(c, "优惠券")
	if !ok {
		return
	}

	page := handler.BindPagination(c)
	list, total, err := h.couponService.ListUsages(c.Request.Context(), id, page.GetOffset(), page.GetLimit())
	handler.MustSucceedPage(c, err, list, total, page.Page, page.PageSize)
}
