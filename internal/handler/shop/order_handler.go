package shop

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/marketplace-backend/internal/common/handler"
	"github.com/dumeirei/marketplace-backend/internal/common/response"
	"github.com/dumeirei/marketplace-backend/internal/middleware"
	shopService "github.com/dumeirei/marketplace-backend/internal/service/shop"
)

// OrderHandler 订单处理器
type OrderHandler struct {
	orderService *shopService.OrderService
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(orderSvc *shopService.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderSvc}
}

// CreateOrder 创建订单
// @Summary 创建订单
// @Tags 订单
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body shopService.CreateOrderRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Order}
// @Router /api/v1/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req shopService.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), userID, &req)
	handler.MustSucceed(c, err, order)
}

// GetOrder 获取订单详情
// @Summary 获取订单详情
// @Tags 订单
// @Produce json
// @Security Bearer
// @Param id path int true "订单ID"
// @Success 200 {object} response.Response{data=models.Order}
// @Router /api/v1/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, id, ok := handler.RequireUserAndParseID(c, "订单")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), userID, id, middleware.IsStaff(c))
	handler.MustSucceed(c, err, order)
}

// ListOrders 获取订单列表
// @Summary 获取订单列表
// @Tags 订单
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param status query string false "订单状态"
// @Param shop_id query int false "店铺ID"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	page := handler.BindPagination(c)
	filters := make(map[string]interface{})
	// 普通用户只能查看自己的订单
	if !middleware.IsStaff(c) {
		filters["user_id"] = userID
	}
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	shopID, ok := handler.ParseQueryID(c, "shop_id", "店铺")
	if !ok {
		return
	}
	if shopID != nil {
		filters["shop_id"] = *shopID
	}

	list, total, err := h.orderService.ListOrders(c.Request.Context(), page.GetOffset(), page.GetLimit(), filters)
	handler.MustSucceedPage(c, err, list, total, page.Page, page.PageSize)
}

// TransitionRequest 订单状态流转请求
type TransitionRequest struct {
	Status string  `json:"status" binding:"required"`
	Reason *string `json:"reason,omitempty"`
	Detail *string `json:"detail,omitempty"`
}

// TransitionOrder 订单状态流转
// @Summary 订单状态流转
// @Tags 订单
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "订单ID"
// @Param request body TransitionRequest true "请求参数"
// @Success 200 {object} response.Response
// @Router /api/v1/orders/{id}/transition [post]
func (h *OrderHandler) TransitionOrder(c *gin.Context) {
	id, ok := handler.ParseID(c, "订单")
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	err := h.orderService.TransitionStatus(c.Request.Context(), id, req.Status, req.Reason, req.Detail)
	handler.MustSucceed(c, err, nil)
}

// CancelOrder 取消订单
// @Summary 取消订单
// @Tags 订单
// @Produce json
// @Security Bearer
// @Param id path int true "订单ID"
// @Success 200 {object} response.Response
// @Router /api/v1/orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, id, ok := handler.RequireUserAndParseID(c, "订单")
	if !ok {
		return
	}

	handler.MustSucceed(c, h.orderService.CancelOrder(c.Request.Context(), userID, id), nil)
}
