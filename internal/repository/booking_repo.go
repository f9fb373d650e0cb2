// Package repository 提供数据访问层
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/models"
)

// BookingRepository 预约仓储
type BookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository 创建预约仓储
func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create 创建预约
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

// GetByID 根据 ID 获取预约
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).First(&booking, id).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetByIDWithDetails 根据 ID 获取预约（包含关联信息）
func (r *BookingRepository) GetByIDWithDetails(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Provider").
		Preload("ServiceType").
		First(&booking, id).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetByBookingNo 根据预约号获取预约
func (r *BookingRepository) GetByBookingNo(ctx context.Context, bookingNo string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Where("booking_no = ?", bookingNo).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// Update 更新预约
func (r *BookingRepository) Update(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Save(booking).Error
}

// UpdateFields 更新指定字段
func (r *BookingRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id).Updates(fields).Error
}

// UpdateStatus 更新预约状态
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id).Update("status", status).Error
}

// List 获取预约列表
func (r *BookingRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Booking, int64, error) {
	var bookings []*models.Booking
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Booking{})

	// 应用过滤条件
	if userID, ok := filters["user_id"].(int64); ok && userID > 0 {
		query = query.Where("user_id = ?", userID)
	}
	if providerID, ok := filters["provider_id"].(int64); ok && providerID > 0 {
		query = query.Where("provider_id = ?", providerID)
	}
	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if statuses, ok := filters["statuses"].([]string); ok && len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if startDate, ok := filters["start_date"].(time.Time); ok {
		query = query.Where("scheduled_time >= ?", startDate)
	}
	if endDate, ok := filters["end_date"].(time.Time); ok {
		query = query.Where("scheduled_time <= ?", endDate)
	}

	// 统计总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 查询列表
	if err := query.
		Preload("Provider").
		Preload("ServiceType").
		Order("scheduled_time DESC").
		Offset(offset).Limit(limit).
		Find(&bookings).Error; err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

// ListByUser 获取用户的预约列表
func (r *BookingRepository) ListByUser(ctx context.Context, userID int64, offset, limit int, status *string) ([]*models.Booking, int64, error) {
	filters := map[string]interface{}{
		"user_id": userID,
	}
	if status != nil {
		filters["status"] = *status
	}
	return r.List(ctx, offset, limit, filters)
}

// ListChildren 获取重复预约的子实例列表
func (r *BookingRepository) ListChildren(ctx context.Context, parentID int64) ([]*models.Booking, error) {
	var bookings []*models.Booking
	err := r.db.WithContext(ctx).
		Where("parent_booking_id = ?", parentID).
		Order("scheduled_time ASC").
		Find(&bookings).Error
	return bookings, err
}

// CountActiveInSlot 统计某服务商某时段占用名额的预约数
func (r *BookingRepository) CountActiveInSlot(ctx context.Context, providerID int64, slot time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("provider_id = ?", providerID).
		Where("scheduled_time = ?", slot).
		Where("status IN ?", []string{
			models.BookingStatusPending,
			models.BookingStatusConfirmed,
		}).
		Count(&count).Error
	return count, err
}

// CountSameDayByServiceType 统计某服务类型当日预约数（定价需求信号）
func (r *BookingRepository) CountSameDayByServiceType(ctx context.Context, serviceTypeID int64, day time.Time) (int64, error) {
	var count int64
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)
	err := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("service_type_id = ?", serviceTypeID).
		Where("scheduled_time >= ? AND scheduled_time < ?", dayStart, dayEnd).
		Where("status NOT IN ?", []string{models.BookingStatusCancelled}).
		Count(&count).Error
	return count, err
}

// CountWaitlisted 统计候补中的预约数
func (r *BookingRepository) CountWaitlisted(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("status = ?", models.BookingStatusWaitlisted).
		Count(&count).Error
	return count, err
}
