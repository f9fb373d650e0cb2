package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/models"
)

// ProductRepository 商品仓储
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create 创建商品
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// GetByID 根据 ID 获取商品
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetBySKU 根据 SKU 获取商品
func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Update 更新商品
func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// UpdateFields 更新指定字段
func (r *ProductRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(fields).Error
}

// List 获取商品列表
func (r *ProductRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Product, int64, error) {
	var products []*models.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Product{})

	if shopID, ok := filters["shop_id"].(int64); ok && shopID > 0 {
		query = query.Where("shop_id = ?", shopID)
	}
	if categoryID, ok := filters["category_id"].(int64); ok && categoryID > 0 {
		query = query.Where("category_id = ?", categoryID)
	}
	if keyword, ok := filters["keyword"].(string); ok && keyword != "" {
		query = query.Where("name LIKE ?", "%"+keyword+"%")
	}
	if isActive, ok := filters["is_active"].(bool); ok {
		query = query.Where("is_active = ?", isActive)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Category").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// DecreaseStock 扣减库存（带库存检查，防止超卖）
func (r *ProductRepository) DecreaseStock(ctx context.Context, productID int64, quantity int) error {
	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, quantity).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IncreaseStock 增加库存
func (r *ProductRepository) IncreaseStock(ctx context.Context, productID int64, quantity int) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", quantity)).Error
}

// CountByCategory 统计分类下的商品数（用于 SKU 序号）
func (r *ProductRepository) CountByCategory(ctx context.Context, categoryID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error
	return count, err
}

// GetCategory 获取商品分类
func (r *ProductRepository) GetCategory(ctx context.Context, id int64) (*models.ProductCategory, error) {
	var category models.ProductCategory
	err := r.db.WithContext(ctx).First(&category, id).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// ListCategories 获取商品分类列表
func (r *ProductRepository) ListCategories(ctx context.Context) ([]*models.ProductCategory, error) {
	var categories []*models.ProductCategory
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort ASC, id ASC").
		Find(&categories).Error
	return categories, err
}

// ListLowStock 获取低库存商品
func (r *ProductRepository) ListLowStock(ctx context.Context, threshold int, limit int) ([]*models.Product, error) {
	var products []*models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("stock_quantity <= ?", threshold).
		Order("stock_quantity ASC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

// GetShop 获取店铺
func (r *ProductRepository) GetShop(ctx context.Context, id int64) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.WithContext(ctx).First(&shop, id).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

// CreateShop 创建店铺
func (r *ProductRepository) CreateShop(ctx context.Context, shop *models.Shop) error {
	return r.db.WithContext(ctx).Create(shop).Error
}

// ListShops 获取店铺列表
func (r *ProductRepository) ListShops(ctx context.Context, offset, limit int) ([]*models.Shop, int64, error) {
	var shops []*models.Shop
	var total int64
	query := r.db.WithContext(ctx).Model(&models.Shop{}).Where("is_active = ?", true)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("rating DESC").Offset(offset).Limit(limit).Find(&shops).Error; err != nil {
		return nil, 0, err
	}
	return shops, total, nil
}
