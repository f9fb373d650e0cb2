// Package repository 订单仓储单元测试
package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/marketplace-backend/internal/models"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.Product{}))
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, orderNo string, opts ...func(*models.Order)) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNo:    orderNo,
		UserID:     1,
		ShopID:     1,
		Status:     models.OrderStatusPending,
		TotalPrice: decimal.NewFromInt(500),
	}
	for _, opt := range opts {
		opt(order)
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestOrderRepository_GetByOrderNo(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	seedOrder(t, db, "ORD20250601001")

	got, err := repo.GetByOrderNo(ctx, "ORD20250601001")
	require.NoError(t, err)
	assert.Equal(t, "ORD20250601001", got.OrderNo)

	_, err = repo.GetByOrderNo(ctx, "ORD-MISSING")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrderRepository_GetByIDWithItems(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, "ORD1")
	for i := int64(1); i <= 2; i++ {
		require.NoError(t, db.Create(&models.OrderItem{
			OrderID:   order.ID,
			ProductID: i,
			Quantity:  int(i),
			Price:     decimal.NewFromInt(100),
		}).Error)
	}

	got, err := repo.GetByIDWithItems(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

func TestOrderRepository_UpdateFields(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, "ORD1")

	require.NoError(t, repo.UpdateFields(ctx, order.ID, map[string]interface{}{
		"status": models.OrderStatusShipped,
	}))

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, got.Status)
}

func TestOrderRepository_ListFilters(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	seedOrder(t, db, "ORD1")
	seedOrder(t, db, "ORD2", func(o *models.Order) {
		o.UserID = 2
		o.Status = models.OrderStatusDelivered
	})
	seedOrder(t, db, "ORD3", func(o *models.Order) { o.ShopID = 2 })

	list, total, err := repo.List(ctx, 0, 10, map[string]interface{}{"user_id": int64(2)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "ORD2", list[0].OrderNo)

	_, total, err = repo.List(ctx, 0, 10, map[string]interface{}{"shop_id": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = repo.List(ctx, 0, 10, map[string]interface{}{"status": models.OrderStatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
