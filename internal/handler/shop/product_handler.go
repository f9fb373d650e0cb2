// Package shop 提供店铺商品与订单相关的 HTTP Handler
package shop

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/marketplace-backend/internal/common/handler"
	"github.com/dumeirei/marketplace-backend/internal/common/response"
	shopService "github.com/dumeirei/marketplace-backend/internal/service/shop"
)

// ProductHandler 商品处理器
type ProductHandler struct {
	productService *shopService.ProductService
}

// NewProductHandler 创建商品处理器
func NewProductHandler(productSvc *shopService.ProductService) *ProductHandler {
	return &ProductHandler{productService: productSvc}
}

// CreateShop 创建店铺
// @Summary 创建店铺
// @Tags 店铺
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body shopService.CreateShopRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Shop}
// @Router /api/v1/shops [post]
func (h *ProductHandler) CreateShop(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req shopService.CreateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	shop, err := h.productService.CreateShop(c.Request.Context(), userID, &req)
	handler.MustSucceed(c, err, shop)
}

// ListShops 获取店铺列表
// @Summary 获取店铺列表
// @Tags 店铺
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/shops [get]
func (h *ProductHandler) ListShops(c *gin.Context) {
	page := handler.BindPagination(c)
	list, total, err := h.productService.ListShops(c.Request.Context(), page.GetOffset(), page.GetLimit())
	handler.MustSucceedPage(c, err, list, total, page.Page, page.PageSize)
}

// CreateCategoryRequest 创建商品分类请求
type CreateCategoryRequest struct {
	Name     string `json:"name" binding:"required,max=50"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// CreateCategory 创建商品分类
// @Summary 创建商品分类
// @Tags 店铺
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body CreateCategoryRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.ProductCategory}
// @Router /api/v1/categories [post]
func (h *ProductHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	category, err := h.productService.CreateCategory(c.Request.Context(), req.Name, req.ParentID)
	handler.MustSucceed(c, err, category)
}

// ListCategories 获取商品分类列表
// @Summary 获取商品分类列表
// @Tags 店铺
// @Produce json
// @Success 200 {object} response.Response{data=[]models.ProductCategory}
// @Router /api/v1/categories [get]
func (h *ProductHandler) ListCategories(c *gin.Context) {
	categories, err := h.productService.ListCategories(c.Request.Context())
	handler.MustSucceed(c, err, categories)
}

// CreateProduct 发布商品
// @Summary 发布商品
// @Tags 商品
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body shopService.CreateProductRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Product}
// @Router /api/v1/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req shopService.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), userID, &req)
	handler.MustSucceed(c, err, product)
}

// GetProduct 获取商品详情
// @Summary 获取商品详情
// @Tags 商品
// @Produce json
// @Param id path int true "商品ID"
// @Success 200 {object} response.Response{data=models.Product}
// @Router /api/v1/products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := handler.ParseID(c, "商品")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), id)
	handler.MustSucceed(c, err, product)
}

// ListProducts 获取商品列表
// @Summary 获取商品列表
// @Tags 商品
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param shop_id query int false "店铺ID"
// @Param category_id query int false "分类ID"
// @Param is_active query bool false "是否在售"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	page := handler.BindPagination(c)

	filters := make(map[string]interface{})
	shopID, ok := handler.ParseQueryID(c, "shop_id", "店铺")
	if !ok {
		return
	}
	if shopID != nil {
		filters["shop_id"] = *shopID
	}
	categoryID, ok := handler.ParseQueryID(c, "category_id", "分类")
	if !ok {
		return
	}
	if categoryID != nil {
		filters["category_id"] = *categoryID
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(c, "参数错误")
			return
		}
		filters["is_active"] = active
	}

	list, total, err := h.productService.ListProducts(c.Request.Context(), page.GetOffset(), page.GetLimit(), filters)
	handler.MustSucceedPage(c, err, list, total, page.Page, page.PageSize)
}

// UpdateProduct 更新商品
// @Summary 更新商品
// @Tags 商品
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "商品ID"
// @Param request body shopService.UpdateProductRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Product}
// @Router /api/v1/products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	userID, id, ok := handler.RequireUserAndParseID(c, "商品")
	if !ok {
		return
	}

	var req shopService.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), userID, id, &req)
	handler.MustSucceed(c, err, product)
}

// AdjustStockRequest 调整库存请求
type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// AdjustStock 调整库存
// @Summary 调整库存
// @Tags 商品
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "商品ID"
// @Param request body AdjustStockRequest true "请求参数"
// @Success 200 {object} response.Response
// @Router /api/v1/products/{id}/stock [post]
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	userID, id, ok := handler.RequireUserAndParseID(c, "商品")
	if !ok {
		return
	}

	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	handler.MustSucceed(c, h.productService.AdjustStock(c.Request.Context(), userID, id, req.Delta), nil)
}

// DeactivateProduct 下架商品
// @Summary 下架商品
// @Tags 商品
// @Produce json
// @Security Bearer
// @Param id path int true "商品ID"
// @Success 200 {object} response.Response
// @Router /api/v1/products/{id}/deactivate [post]
func (h *ProductHandler) DeactivateProduct(c *gin.Context) {
	userID, id, ok := handler.RequireUserAndParseID(c, "商品")
	if !ok {
		return
	}

	handler.MustSucceed(c, h.productService.DeactivateProduct(c.Request.Context(), userID, id), nil)
}

// ListLowStock 获取低库存商品
// @Summary 获取低库存商品
// @Tags 商品
// @Produce json
// @Security Bearer
// @Param threshold query int false "库存阈值"
// @Param limit query int false "返回数量上限"
// @Success 200 {object} response.Response{data=[]models.Product}
// @Router /api/v1/inventory/low-stock [get]
func (h *ProductHandler) ListLowStock(c *gin.Context) {
	threshold, _ := strconv.Atoi(c.DefaultQuery("threshold", "10"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	list, err := h.productService.ListLowStock(c.Request.Context(), threshold, limit)
	handler.MustSucceed(c, err, list)
}
