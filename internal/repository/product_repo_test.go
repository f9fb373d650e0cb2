// Package repository 商品仓储单元测试
package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/marketplace-backend/internal/models"
)

func setupProductTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Shop{}, &models.ProductCategory{}, &models.Product{})
	require.NoError(t, err)

	return db
}

func seedProduct(t *testing.T, db *gorm.DB, sku string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ShopID:        1,
		CategoryID:    1,
		SKU:           sku,
		Name:          "测试商品" + sku,
		Price:         decimal.NewFromInt(100),
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestProductRepository_DecreaseStock(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, "SKU001", 10)

	require.NoError(t, repo.DecreaseStock(ctx, product.ID, 4))

	got, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.StockQuantity)
}

func TestProductRepository_DecreaseStock_Insufficient(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, "SKU001", 3)

	err := repo.DecreaseStock(ctx, product.ID, 5)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// 库存不足时不应有任何扣减
	got, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.StockQuantity)
}

func TestProductRepository_IncreaseStock(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, "SKU001", 2)

	require.NoError(t, repo.IncreaseStock(ctx, product.ID, 7))

	got, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.StockQuantity)
}

func TestProductRepository_GetBySKU(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	seedProduct(t, db, "SKU-ABC", 5)

	got, err := repo.GetBySKU(ctx, "SKU-ABC")
	require.NoError(t, err)
	assert.Equal(t, "SKU-ABC", got.SKU)

	_, err = repo.GetBySKU(ctx, "SKU-MISSING")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProductRepository_CountByCategory(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedProduct(t, db, fmt.Sprintf("SKU%03d", i), 5)
	}
	other := seedProduct(t, db, "SKU-OTHER", 5)
	require.NoError(t, db.Model(other).Update("category_id", 2).Error)

	count, err := repo.CountByCategory(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestProductRepository_ListLowStock(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	seedProduct(t, db, "SKU-LOW1", 2)
	seedProduct(t, db, "SKU-LOW2", 0)
	seedProduct(t, db, "SKU-OK", 50)
	inactive := seedProduct(t, db, "SKU-OFF", 1)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	list, err := repo.ListLowStock(ctx, 10, 20)
	require.NoError(t, err)
	require.Len(t, list, 2)
	// 库存越少越靠前
	assert.Equal(t, "SKU-LOW2", list[0].SKU)
	assert.Equal(t, "SKU-LOW1", list[1].SKU)
}

func TestProductRepository_ListFilters(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	seedProduct(t, db, "SKU001", 5)
	off := seedProduct(t, db, "SKU002", 5)
	require.NoError(t, db.Model(off).Update("is_active", false).Error)

	list, total, err := repo.List(ctx, 0, 10, map[string]interface{}{"is_active": true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "SKU001", list[0].SKU)
}

func TestProductRepository_Shops(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	shop := &models.Shop{OwnerID: 1, Name: "数码小铺", IsActive: true}
	require.NoError(t, repo.CreateShop(ctx, shop))

	got, err := repo.GetShop(ctx, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, "数码小铺", got.Name)

	list, total, err := repo.ListShops(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)
}
