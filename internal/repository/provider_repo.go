package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/models"
)

// ProviderRepository 服务商仓储
type ProviderRepository struct {
	db *gorm.DB
}

// NewProviderRepository 创建服务商仓储
func NewProviderRepository(db *gorm.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

// Create 创建服务商
func (r *ProviderRepository) Create(ctx context.Context, provider *models.ServiceProvider) error {
	return r.db.WithContext(ctx).Create(provider).Error
}

// GetByID 根据 ID 获取服务商
func (r *ProviderRepository) GetByID(ctx context.Context, id int64) (*models.ServiceProvider, error) {
	var provider models.ServiceProvider
	err := r.db.WithContext(ctx).First(&provider, id).Error
	if err != nil {
		return nil, err
	}
	return &provider, nil
}

// GetByIDWithServiceType 根据 ID 获取服务商（包含服务类型）
func (r *ProviderRepository) GetByIDWithServiceType(ctx context.Context, id int64) (*models.ServiceProvider, error) {
	var provider models.ServiceProvider
	err := r.db.WithContext(ctx).
		Preload("ServiceType").
		First(&provider, id).Error
	if err != nil {
		return nil, err
	}
	return &provider, nil
}

// Update 更新服务商
func (r *ProviderRepository) Update(ctx context.Context, provider *models.ServiceProvider) error {
	return r.db.WithContext(ctx).Save(provider).Error
}

// UpdateFields 更新指定字段
func (r *ProviderRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.ServiceProvider{}).Where("id = ?", id).Updates(fields).Error
}

// List 获取服务商列表
func (r *ProviderRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.ServiceProvider, int64, error) {
	var providers []*models.ServiceProvider
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ServiceProvider{})

	if serviceTypeID, ok := filters["service_type_id"].(int64); ok && serviceTypeID > 0 {
		query = query.Where("service_type_id = ?", serviceTypeID)
	}
	if category, ok := filters["category"].(string); ok && category != "" {
		query = query.Joins("JOIN service_types ON service_types.id = service_providers.service_type_id").
			Where("service_types.category = ?", category)
	}
	if location, ok := filters["location"].(string); ok && location != "" {
		query = query.Where("location LIKE ?", "%"+location+"%")
	}
	if minRating, ok := filters["min_rating"].(float64); ok && minRating > 0 {
		query = query.Where("rating >= ?", minRating)
	}
	if verified, ok := filters["is_verified"].(bool); ok {
		query = query.Where("is_verified = ?", verified)
	}
	query = query.Where("is_active = ?", true)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("ServiceType").
		Order("featured_rank DESC, rating DESC").
		Offset(offset).Limit(limit).
		Find(&providers).Error; err != nil {
		return nil, 0, err
	}

	return providers, total, nil
}

// GetServiceType 获取服务类型
func (r *ProviderRepository) GetServiceType(ctx context.Context, id int64) (*models.ServiceType, error) {
	var st models.ServiceType
	err := r.db.WithContext(ctx).First(&st, id).Error
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListServiceTypes 获取服务类型列表
func (r *ProviderRepository) ListServiceTypes(ctx context.Context) ([]*models.ServiceType, error) {
	var types []*models.ServiceType
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&types).Error
	return types, err
}

// CreateReview 创建评价
func (r *ProviderRepository) CreateReview(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// GetReviewByBooking 获取预约对应的评价
func (r *ProviderRepository) GetReviewByBooking(ctx context.Context, bookingID int64) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// ListReviews 获取服务商的评价列表
func (r *ProviderRepository) ListReviews(ctx context.Context, providerID int64, offset, limit int) ([]*models.Review, int64, error) {
	var reviews []*models.Review
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Review{}).Where("provider_id = ?", providerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.
		Preload("User").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&reviews).Error; err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}
