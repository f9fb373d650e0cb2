package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/models"
)

// CouponRepository 优惠券仓储
type CouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠券仓储
func NewCouponRepository(db *gorm.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

// Create 创建优惠券
func (r *CouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

// GetByID 根据 ID 获取优惠券
func (r *CouponRepository) GetByID(ctx context.Context, id int64) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).First(&coupon, id).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// GetByCode 根据券码获取优惠券
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// Update 更新优惠券
func (r *CouponRepository) Update(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Save(coupon).Error
}

// List 获取优惠券列表
func (r *CouponRepository) List(ctx context.Context, offset, limit int, activeOnly bool) ([]*models.Coupon, int64, error) {
	var coupons []*models.Coupon
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Coupon{})
	if activeOnly {
		now := time.Now()
		query = query.Where("is_active = ?", true).
			Where("valid_from <= ? AND valid_until >= ?", now, now)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&coupons).Error; err != nil {
		return nil, 0, err
	}

	return coupons, total, nil
}

// CountUsagesByUser 统计用户对某券的使用次数
func (r *CouponRepository) CountUsagesByUser(ctx context.Context, couponID, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error
	return count, err
}

// ListUsages 获取优惠券使用记录
func (r *CouponRepository) ListUsages(ctx context.Context, couponID int64, offset, limit int) ([]*models.CouponUsage, int64, error) {
	var usages []*models.CouponUsage
	var total int64

	query := r.db.WithContext(ctx).Model(&models.CouponUsage{}).Where("coupon_id = ?", couponID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.
		Order("used_at DESC").
		Offset(offset).Limit(limit).
		Find(&usages).Error; err != nil {
		return nil, 0, err
	}
	return usages, total, nil
}
