// Package provider 提供服务商相关的 HTTP Handler
package provider

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/marketplace-backend/internal/common/handler"
	"github.com/dumeirei/marketplace-backend/internal/common/response"
	providerService "github.com/dumeirei/marketplace-backend/internal/service/provider"
)

// Handler 服务商处理器
type Handler struct {
	providerService *providerService.Service
}

// NewHandler 创建服务商处理器
func NewHandler(providerSvc *providerService.Service) *Handler {
	return &Handler{providerService: providerSvc}
}

// CreateProvider 入驻服务商
// @Summary 入驻服务商
// @Tags 服务商
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body providerService.CreateProviderRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.ServiceProvider}
// @Router /api/v1/providers [post]
func (h *Handler) CreateProvider(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req providerService.CreateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	prov, err := h.providerService.CreateProvider(c.Request.Context(), userID, &req)
	handler.MustSucceed(c, err, prov)
}

// GetProvider 获取服务商详情
// @Summary 获取服务商详情
// @Tags 服务商
// @Produce json
// @Param id path int true "服务商ID"
// @Success 200 {object} response.Response{data=models.ServiceProvider}
// @Router /api/v1/providers/{id} [get]
func (h *Handler) GetProvider(c *gin.Context) {
	id, ok := handler.ParseID(c, "服务商")
	if !ok {
		return
	}

	prov, err := h.providerService.GetProvider(c.Request.Context(), id)
	handler.MustSucceed(c, err, prov)
}

// ListProviders 获取服务商列表
// @Summary 获取服务商列表
// @Tags 服务商
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param service_type_id query int false "服务类型ID"
// @Param is_active query bool false "是否可用"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/providers [get]
func (h *Handler) ListProviders(c *gin.Context) {
	page := handler.BindPagination(c)

	filters := make(map[string]interface{})
	serviceTypeID, ok := handler.ParseQueryID(c, "service_type_id", "服务类型")
	if !ok {
		return
	}
	if serviceTypeID != nil {
		filters["service_type_id"] = *serviceTypeID
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(c, "参数错误")
			return
		}
		filters["is_active"] = active
	}

	list, total, err := h.providerService.ListProviders(c.Request.Context(), page.GetOffset(), page.GetLimit(), filters)
	handler.MustSucceedPage(c, err, list, total, page.Page, page.PageSize)
}

// ListServiceTypes 获取服务类型列表
// @Summary 获取服务类型列表
// @Tags 服务商
// @Produce json
// @Success 200 {object} response.Response{data=[]models.ServiceType}
// @Router /api/v1/service-types [get]
func (h *Handler) ListServiceTypes(c *gin.Context) {
	types, err := h.providerService.ListServiceTypes(c.Request.Context())
	handler.MustSucceed(c, err, types)
}

// AddReview 评价服务商
// @Summary 评价服务商
// @Tags 服务商
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body providerService.AddReviewRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Review}
// @Router /api/v1/providers/reviews [post]
func (h *Handler) AddReview(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req providerService.AddReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	review, err := h.providerService.AddReview(c.Request.Context(), userID, &req)
	handler.MustSucceed(c, err, review)
}

// ListReviews 获取服务商评价列表
// @Summary 获取服务商评价列表
// @Tags 服务商
// @Produce json
// @Param id path int true "服务商ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/providers/{id}/reviews [get]
func (h *Handler) ListReviews(c *gin.Context) {
	id, ok := handler.ParseID(c, "服务商")
	if !ok {
		return
	}

	page := handler.BindPagination(c)
	list, total, err := h.providerService.ListReviews(c.Request.Context(), id, page.GetOffset(), page.GetLimit())
	handler.MustSucceedPage(c, err, list, total, page.Page, page.PageSize)
}
