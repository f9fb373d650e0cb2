// Package returns 提供退货退款相关的 HTTP Handler
package returns

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/marketplace-backend/internal/common/handler"
	"github.com/dumeirei/marketplace-backend/internal/common/response"
	"github.com/dumeirei/marketplace-backend/internal/middleware"
	returnService "github.com/dumeirei/marketplace-backend/internal/service/returns"
)

// Handler 退货处理器
type Handler struct {
	returnService *returnService.Service
}

// NewHandler 创建退货处理器
func NewHandler(returnSvc *returnService.Service) *Handler {
	return &Handler{returnService: returnSvc}
}

// CreateReturn 提交退货申请
// @Summary 提交退货申请
// @Tags 退货
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body returnService.CreateReturnRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.ReturnRequest}
// @Router /api/v1/returns [post]
func (h *Handler) CreateReturn(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req returnService.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	request, err := h.returnService.Create(c.Request.Context(), userID, &req)
	handler.MustSucceed(c, err, request)
}

// ApproveReturn 审批通过并发起退款
// @Summary 审批通过并发起退款
// @Tags 退货
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "退货申请ID"
// @Param request body returnService.ApproveRequest false "请求参数"
// @Success 200 {object} response.Response{data=models.ReturnRequest}
// @Router /api/v1/returns/{id}/approve [post]
func (h *Handler) ApproveReturn(c *gin.Context) {
	id, ok := handler.ParseID(c, "退货申请")
	if !ok {
		return
	}

	var req returnService.ApproveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "参数错误")
			return
		}
	}

	request, err := h.returnService.Approve(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, request)
}

// RejectReturnRequest 驳回退货申请请求
type RejectReturnRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// RejectReturn 驳回退货申请
// @Summary 驳回退货申请
// @Tags 退货
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "退货申请ID"
// @Param request body RejectReturnRequest false "请求参数"
// @Success 200 {object} response.Response
// @Router /api/v1/returns/{id}/reject [post]
func (h *Handler) RejectReturn(c *gin.Context) {
	id, ok := handler.ParseID(c, "退货申请")
	if !ok {
		return
	}

	var req RejectReturnRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "参数错误")
			return
		}
	}

	handler.MustSucceed(c, h.returnService.Reject(c.Request.Context(), id, req.Notes), nil)
}

// RefundStatus 查询退货退款状态
// @Summary 查询退货退款状态
// @Tags 退货
// @Produce json
// @Security Bearer
// @Param id path int true "退货申请ID"
// @Success 200 {object} response.Response
// @Router /api/v1/returns/{id}/refund-status [get]
func (h *Handler) RefundStatus(c *gin.Context) {
	userID, id, ok := handler.RequireUserAndParseID(c, "退货申请")
	if !ok {
		return
	}

	status, err := h.returnService.RefundStatus(c.Request.Context(), userID, id, middleware.IsStaff(c))
	if handler.HandleError(c, err) {
		return
	}
	response.Success(c, gin.H{"refund_status": status})
}

// GetReturn 获取退货申请详情
// @Summary 获取退货申请详情
// @Tags 退货
// @Produce json
// @Security Bearer
// @Param id path int true "退货申请ID"
// @Success 200 {object} response.Response{data=models.ReturnRequest}
// @Router /api/v1/returns/{id} [get]
func (h *Handler) GetReturn(c *gin.Context) {
	userID, id, ok := handler.RequireUserAndParseID(c, "退货申请")
	if !ok {
		return
	}

	request, err := h.returnService.Get(c.Request.Context(), userID, id, middleware.IsStaff(c))
	handler.MustSucceed(c, err, request)
}

// ListReturns 获取退货申请列表
// @Summary 获取退货申请列表
// @Tags 退货
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param status query string false "退货状态"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/returns [get]
func (h *Handler) ListReturns(c *gin.Context) {
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

	list, total, err := h.returnService.List(c.Request.Context(), page.GetOffset(), page.GetLimit(), filters)
	handler.MustSucceedPage(c, err, list, total, page.Page, page.PageSize)
}
