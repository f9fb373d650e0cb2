package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/models"
)

// ReturnRepository 退货申请仓储
type ReturnRepository struct {
	db *gorm.DB
}

// NewReturnRepository 创建退货申请仓储
func NewReturnRepository(db *gorm.DB) *ReturnRepository {
	return &ReturnRepository{db: db}
}

// Create 创建退货申请（含退货商品项）
func (r *ReturnRepository) Create(ctx context.Context, request *models.ReturnRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// GetByID 根据 ID 获取退货申请
func (r *ReturnRepository) GetByID(ctx context.Context, id int64) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	err := r.db.WithContext(ctx).First(&request, id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// GetByIDWithItems 根据 ID 获取退货申请（包含商品项）
func (r *ReturnRepository) GetByIDWithItems(ctx context.Context, id int64) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.OrderItem").
		Preload("Order").
		First(&request, id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// Update 更新退货申请
func (r *ReturnRepository) Update(ctx context.Context, request *models.ReturnRequest) error {
	return r.db.WithContext(ctx).Save(request).Error
}

// UpdateFields 更新指定字段
func (r *ReturnRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.ReturnRequest{}).Where("id = ?", id).Updates(fields).Error
}

// List 获取退货申请列表
func (r *ReturnRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.ReturnRequest, int64, error) {
	var requests []*models.ReturnRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ReturnRequest{})

	if userID, ok := filters["user_id"].(int64); ok && userID > 0 {
		query = query.Where("user_id = ?", userID)
	}
	if orderID, ok := filters["order_id"].(int64); ok && orderID > 0 {
		query = query.Where("order_id = ?", orderID)
	}
	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// ExistsOpenByOrder 判断订单是否存在处理中的退货申请
func (r *ReturnRepository) ExistsOpenByOrder(ctx context.Context, orderID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReturnRequest{}).
		Where("order_id = ?", orderID).
		Where("status IN ?", []string{models.ReturnStatusPending, models.ReturnStatusApproved}).
		Count(&count).Error
	return count > 0, err
}
