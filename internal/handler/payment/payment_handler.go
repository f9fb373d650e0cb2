// Package payment 提供支付相关的 HTTP Handler
package payment

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/dumeirei/marketplace-backend/internal/common/handler"
	"github.com/dumeirei/marketplace-backend/internal/common/response"
	"github.com/dumeirei/marketplace-backend/internal/middleware"
	paymentService "github.com/dumeirei/marketplace-backend/internal/service/payment"
)

// Handler 支付处理器
type Handler struct {
	paymentService *paymentService.Service
}

// NewHandler 创建支付处理器
func NewHandler(paymentSvc *paymentService.Service) *Handler {
	return &Handler{paymentService: paymentSvc}
}

// InitiatePayment 发起支付
// @Summary 发起支付
// @Tags 支付
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body paymentService.InitiateRequest true "请求参数"
// @Success 200 {object} response.Response{data=paymentService.InitiateResult}
// @Router /api/v1/payments [post]
func (h *Handler) InitiatePayment(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req paymentService.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	result, err := h.paymentService.Initiate(c.Request.Context(), userID, &req)
	handler.MustSucceed(c, err, result)
}

// Callback 支付完成回调
// @Summary 支付完成回调
// @Tags 支付
// @Accept json
// @Produce json
// @Param request body paymentService.CallbackRequest true "请求参数"
// @Success 200 {object} response.Response
// @Router /api/v1/gateway/callback [post]
func (h *Handler) Callback(c *gin.Context) {
	var req paymentService.CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	handler.MustSucceed(c, h.paymentService.Callback(c.Request.Context(), &req), nil)
}

// Webhook 网关异步通知
// @Summary 网关异步通知
// @Tags 支付
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/v1/gateway/webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error"})
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	if err := h.paymentService.Webhook(c.Request.Context(), body, signature); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "invalid"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RefundRequest 退款请求
type RefundRequest struct {
	Amount *decimal.Decimal  `json:"amount,omitempty"`
	Notes  map[string]string `json:"notes,omitempty"`
}

// Refund 发起退款
// @Summary 发起退款
// @Tags 支付
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "支付ID"
// @Param request body RefundRequest false "请求参数"
// @Success 200 {object} response.Response{data=razorpay.RefundResponse}
// @Router /api/v1/payments/{id}/refund [post]
func (h *Handler) Refund(c *gin.Context) {
	id, ok := handler.ParseID(c, "支付")
	if !ok {
		return
	}

	var req RefundRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "参数错误")
			return
		}
	}

	result, err := h.paymentService.Refund(c.Request.Context(), id, req.Amount, req.Notes)
	handler.MustSucceed(c, err, result)
}

// RefundStatus 查询退款状态
// @Summary 查询退款状态
// @Tags 支付
// @Produce json
// @Security Bearer
// @Param id path int true "支付ID"
// @Success 200 {object} response.Response{data=razorpay.RefundResponse}
// @Router /api/v1/payments/{id}/refund [get]
func (h *Handler) RefundStatus(c *gin.Context) {
	id, ok := handler.ParseID(c, "支付")
	if !ok {
		return
	}

	result, err := h.paymentService.RefundStatus(c.Request.Context(), id)
	handler.MustSucceed(c, err, result)
}

// GetPayment 获取支付详情
// @Summary 获取支付详情
// @Tags 支付
// @Produce json
// @Security Bearer
// @Param id path int true "支付ID"
// @Success 200 {object} response.Response{data=models.Payment}
// @Router /api/v1/payments/{id} [get]
func (h *Handler) GetPayment(c *gin.Context) {
	userID, id, ok := handler.RequireUserAndParseID(c, "支付")
	if !ok {
		return
	}

	payment, err := h.paymentService.Get(c.Request.Context(), userID, id, middleware.IsStaff(c))
	handler.MustSucceed(c, err, payment)
}

// ListPayments 获取支付列表
// @Summary 获取支付列表
// @Tags 支付
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param status query string false "支付状态"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/payments [get]
func (h *Handler) ListPayments(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	page := handler.BindPagination(c)
	filters := make(map[string]interface{})
	if !middleware.IsStaff(c) {
		filters["user_id"] = userID
	}
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}

	list, total, err := h.paymentService.List(c.Request.Context(), page.GetOffset(), page.GetLimit(), filters)
	handler.MustSucceedPage(c, err, list, total, page.Page, page.PageSize)
}

// Receipt 下载支付凭据
// @Summary 下载支付凭据
// @Tags 支付
// @Produce plain
// @Security Bearer
// @Param id path int true "支付ID"
// @Success 200 {string} string
// @Router /api/v1/payments/{id}/receipt [get]
func (h *Handler) Receipt(c *gin.Context) {
	userID, id, ok := handler.RequireUserAndParseID(c, "支付")
	if !ok {
		return
	}

	body, err := h.paymentService.Receipt(c.Request.Context(), userID, id, middleware.IsStaff(c))
	if handler.HandleError(c, err) {
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", body)
}
