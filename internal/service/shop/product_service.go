// Package shop 提供店铺商品与订单服务
package shop

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/common/errors"
	"github.com/dumeirei/marketplace-backend/internal/common/logger"
	"github.com/dumeirei/marketplace-backend/internal/common/utils"
	"github.com/dumeirei/marketplace-backend/internal/models"
	"github.com/dumeirei/marketplace-backend/internal/repository"
)

// ProductService 商品服务
type ProductService struct {
	db          *gorm.DB
	productRepo *repository.ProductRepository
}

// NewProductService 创建商品服务
func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{
		db:          db,
		productRepo: repository.NewProductRepository(db),
	}
}

// CreateProductRequest 创建商品请求
type CreateProductRequest struct {
	ShopID           int64           `json:"shop_id" binding:"required"`
	CategoryID       int64           `json:"category_id" binding:"required"`
	Name             string          `json:"name" binding:"required,max=200"`
	Description      *string         `json:"description"`
	Price            decimal.Decimal `json:"price" binding:"required"`
	StockQuantity    int             `json:"stock_quantity"`
	MinOrderQuantity int             `json:"min_order_quantity"`
	MaxOrderQuantity int             `json:"max_order_quantity"`
	WeightGrams      int             `json:"weight_grams"`
}

// CreateProduct 创建商品，SKU 由品类前缀加序号自动生成
func (s *ProductService) CreateProduct(ctx context.Context, userID int64, req *CreateProductRequest) (*models.Product, error) {
	if req.Price.LessThanOrEqual(decimal.Zero) {
		return nil, errors.ErrInvalidParams.WithMessage("价格必须大于 0")
	}
	if req.MinOrderQuantity <= 0 {
		req.MinOrderQuantity = 1
	}
	if req.MaxOrderQuantity <= 0 {
		req.MaxOrderQuantity = 99
	}
	if req.MinOrderQuantity > req.MaxOrderQuantity {
		return nil, errors.ErrInvalidParams.WithMessage("起购数量不能大于限购数量")
	}

	shop, err := s.productRepo.GetShop(ctx, req.ShopID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrNotFound.WithMessage("店铺不存在")
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if shop.OwnerID != userID {
		return nil, errors.ErrPermissionDenied
	}

	category, err := s.productRepo.GetCategory(ctx, req.CategoryID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrNotFound.WithMessage("商品分类不存在")
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	product := &models.Product{
		ShopID:           req.ShopID,
		CategoryID:       req.CategoryID,
		Name:             req.Name,
		Description:      req.Description,
		Price:            req.Price,
		StockQuantity:    req.StockQuantity,
		MinOrderQuantity: req.MinOrderQuantity,
		MaxOrderQuantity: req.MaxOrderQuantity,
		WeightGrams:      req.WeightGrams,
		IsActive:         true,
	}

	// SKU 生成与插入同一事务，保证品类内序号不重号
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq int64
		if err := tx.Model(&models.Product{}).
			Where("category_id = ?", req.CategoryID).
			Count(&seq).Error; err != nil {
			return err
		}
		product.SKU = fmt.Sprintf("%s%06d", utils.SKUPrefix(category.Name), seq+1)
		return tx.Create(product).Error
	})
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	logger.Info("product created",
		zap.String("sku", product.SKU),
		zap.Int64("shop_id", product.ShopID))
	return product, nil
}

// GetProduct 获取商品详情
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrProductNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return product, nil
}

// ListProducts 获取商品列表
func (s *ProductService) ListProducts(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Product, int64, error) {
	products, total, err := s.productRepo.List(ctx, offset, limit, filters)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return products, total, nil
}

// UpdateProductRequest 更新商品请求
type UpdateProductRequest struct {
	Name             *string          `json:"name"`
	Description      *string          `json:"description"`
	Price            *decimal.Decimal `json:"price"`
	MinOrderQuantity *int             `json:"min_order_quantity"`
	MaxOrderQuantity *int             `json:"max_order_quantity"`
}

// UpdateProduct 更新商品信息
func (s *ProductService) UpdateProduct(ctx context.Context, userID int64, productID int64, req *UpdateProductRequest) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Price != nil {
		if req.Price.LessThanOrEqual(decimal.Zero) {
			return nil, errors.ErrInvalidParams.WithMessage("价格必须大于 0")
		}
		fields["price"] = *req.Price
	}
	if req.MinOrderQuantity != nil {
		fields["min_order_quantity"] = *req.MinOrderQuantity
	}
	if req.MaxOrderQuantity != nil {
		fields["max_order_quantity"] = *req.MaxOrderQuantity
	}
	if len(fields) == 0 {
		return product, nil
	}

	if err := s.productRepo.UpdateFields(ctx, productID, fields); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return s.productRepo.GetByID(ctx, productID)
}

// AdjustStock 调整库存（店主补货或盘点）
func (s *ProductService) AdjustStock(ctx context.Context, userID int64, productID int64, delta int) error {
	if _, err := s.ownedProduct(ctx, userID, productID); err != nil {
		return err
	}
	if delta == 0 {
		return nil
	}

	if delta > 0 {
		if err := s.productRepo.IncreaseStock(ctx, productID, delta); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	}
	if err := s.productRepo.DecreaseStock(ctx, productID, -delta); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrStockInsufficient
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// DeactivateProduct 下架商品
// 仍有库存的商品不允许下架，避免库存台账悬空
func (s *ProductService) DeactivateProduct(ctx context.Context, userID int64, productID int64) error {
	product, err := s.ownedProduct(ctx, userID, productID)
	if err != nil {
		return err
	}
	if product.StockQuantity > 0 {
		return errors.ErrProductHasStock
	}

	if err := s.productRepo.UpdateFields(ctx, productID, map[string]interface{}{
		"is_active": false,
	}); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// ownedProduct 加载商品并校验店主身份
func (s *ProductService) ownedProduct(ctx context.Context, userID int64, productID int64) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrProductNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	shop, err := s.productRepo.GetShop(ctx, product.ShopID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if shop.OwnerID != userID {
		return nil, errors.ErrPermissionDenied
	}
	return product, nil
}

// CreateShopRequest 创建店铺请求
type CreateShopRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description *string `json:"description"`
}

// CreateShop 创建店铺
func (s *ProductService) CreateShop(ctx context.Context, userID int64, req *CreateShopRequest) (*models.Shop, error) {
	shop := &models.Shop{
		OwnerID:     userID,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	if err := s.productRepo.CreateShop(ctx, shop); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return shop, nil
}

// ListShops 获取店铺列表
func (s *ProductService) ListShops(ctx context.Context, offset, limit int) ([]*models.Shop, int64, error) {
	shops, total, err := s.productRepo.ListShops(ctx, offset, limit)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return shops, total, nil
}

// CreateCategory 创建商品分类（管理人员）
func (s *ProductService) CreateCategory(ctx context.Context, name string, parentID *int64) (*models.ProductCategory, error) {
	category := &models.ProductCategory{
		Name:     name,
		ParentID: parentID,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return category, nil
}

// ListCategories 获取商品分类列表
func (s *ProductService) ListCategories(ctx context.Context) ([]*models.ProductCategory, error) {
	categories, err := s.productRepo.ListCategories(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return categories, nil
}

// ListLowStock 低库存商品列表（管理人员）
func (s *ProductService) ListLowStock(ctx context.Context, threshold, limit int) ([]*models.Product, error) {
	products, err := s.productRepo.ListLowStock(ctx, threshold, limit)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return products, nil
}
