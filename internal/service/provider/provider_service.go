// Package provider 提供服务商服务
package provider

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/common/errors"
	"github.com/dumeirei/marketplace-backend/internal/common/logger"
	"github.com/dumeirei/marketplace-backend/internal/models"
	"github.com/dumeirei/marketplace-backend/internal/repository"
)

// Service 服务商服务
type Service struct {
	db           *gorm.DB
	providerRepo *repository.ProviderRepository
	bookingRepo  *repository.BookingRepository
}

// NewService 创建服务商服务
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:           db,
		providerRepo: repository.NewProviderRepository(db),
		bookingRepo:  repository.NewBookingRepository(db),
	}
}

// CreateProviderRequest 创建服务商请求
type CreateProviderRequest struct {
	Name              string  `json:"name" binding:"required,max=100"`
	ServiceTypeID     int64   `json:"service_type_id" binding:"required"`
	Description       *string `json:"description"`
	Location          string  `json:"location" binding:"required,max=200"`
	MaxBookingPerSlot int     `json:"max_booking_per_slot"`
	Availability      map[string]interface{} `json:"availability"`
}

// CreateProvider 创建服务商
func (s *Service) CreateProvider(ctx context.Context, userID int64, req *CreateProviderRequest) (*models.ServiceProvider, error) {
	if _, err := s.providerRepo.GetServiceType(ctx, req.ServiceTypeID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrServiceTypeNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	provider := &models.ServiceProvider{
		UserID:            userID,
		Name:              req.Name,
		ServiceTypeID:     req.ServiceTypeID,
		Description:       req.Description,
		Location:          req.Location,
		MaxBookingPerSlot: req.MaxBookingPerSlot,
		Availability:      models.JSON(req.Availability),
		IsActive:          true,
	}
	if provider.MaxBookingPerSlot <= 0 {
		provider.MaxBookingPerSlot = 5
	}

	if err := s.providerRepo.Create(ctx, provider); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	logger.Info("service provider created",
		logger.ProviderID(provider.ID),
		logger.UserID(userID))
	return provider, nil
}

// GetProvider 获取服务商详情
func (s *Service) GetProvider(ctx context.Context, id int64) (*models.ServiceProvider, error) {
	provider, err := s.providerRepo.GetByIDWithServiceType(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrProviderNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return provider, nil
}

// ListProviders 获取服务商列表
func (s *Service) ListProviders(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.ServiceProvider, int64, error) {
	providers, total, err := s.providerRepo.List(ctx, offset, limit, filters)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return providers, total, nil
}

// ListServiceTypes 获取服务类型列表
func (s *Service) ListServiceTypes(ctx context.Context) ([]*models.ServiceType, error) {
	types, err := s.providerRepo.ListServiceTypes(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return types, nil
}

// AddReviewRequest 评价请求
type AddReviewRequest struct {
	BookingID int64   `json:"booking_id" binding:"required"`
	Rating    int     `json:"rating" binding:"required,min=1,max=5"`
	Comment   *string `json:"comment"`
}

// AddReview 对已完成预约发表评价并刷新服务商评分
func (s *Service) AddReview(ctx context.Context, userID int64, req *AddReviewRequest) (*models.Review, error) {
	booking, err := s.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrBookingNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if booking.UserID != userID {
		return nil, errors.ErrPermissionDenied
	}
	if booking.Status != models.BookingStatusCompleted {
		return nil, errors.ErrInvalidParams.WithMessage("仅可评价已完成的预约")
	}
	if _, err := s.providerRepo.GetReviewByBooking(ctx, req.BookingID); err == nil {
		return nil, errors.ErrAlreadyReviewed
	} else if err != gorm.ErrRecordNotFound {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	review := &models.Review{
		UserID:     userID,
		ProviderID: booking.ProviderID,
		BookingID:  req.BookingID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(review).Error; err != nil {
			return err
		}
		return s.applyRatingTx(tx, booking.ProviderID, req.Rating)
	})
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	return review, nil
}

// applyRatingTx 以增量方式更新评分均值与分布
// new_avg = (avg*n + rating) / (n+1)，分布中各星级计数之和等于总评价数
func (s *Service) applyRatingTx(tx *gorm.DB, providerID int64, rating int) error {
	var provider models.ServiceProvider
	if err := tx.First(&provider, providerID).Error; err != nil {
		return err
	}

	n := float64(provider.TotalRatings)
	newAvg := (provider.Rating*n + float64(rating)) / (n + 1)
	newAvg = math.Round(newAvg*100) / 100

	breakdown := provider.RatingBreakdown
	if breakdown == nil {
		breakdown = models.JSON{}
	}
	key := fmt.Sprintf("%d", rating)
	current := 0
	if v, ok := breakdown[key]; ok {
		switch c := v.(type) {
		case float64:
			current = int(c)
		case int:
			current = c
		}
	}
	breakdown[key] = current + 1

	return tx.Model(&models.ServiceProvider{}).
		Where("id = ?", providerID).
		Updates(map[string]interface{}{
			"rating":           newAvg,
			"total_ratings":    provider.TotalRatings + 1,
			"rating_breakdown": breakdown,
		}).Error
}

// ListReviews 获取服务商评价列表
func (s *Service) ListReviews(ctx context.Context, providerID int64, offset, limit int) ([]*models.Review, int64, error) {
	reviews, total, err := s.providerRepo.ListReviews(ctx, providerID, offset, limit)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return reviews, total, nil
}

// RefreshCompletionRate 重新统计服务商完成率（定时任务调用）
// 完成率 = 已完成 / (已完成 + 已取消) * 100，无历史记录时为 0
func (s *Service) RefreshCompletionRate(ctx context.Context, providerID int64) (float64, error) {
	var completed, cancelled int64
	db := s.db.WithContext(ctx).Model(&models.Booking{})

	if err := db.Session(&gorm.Session{}).
		Where("provider_id = ? AND status = ?", providerID, models.BookingStatusCompleted).
		Count(&completed).Error; err != nil {
		return 0, errors.ErrDatabaseError.WithError(err)
	}
	if err := db.Session(&gorm.Session{}).
		Where("provider_id = ? AND status = ?", providerID, models.BookingStatusCancelled).
		Count(&cancelled).Error; err != nil {
		return 0, errors.ErrDatabaseError.WithError(err)
	}

	rate := 0.0
	if completed+cancelled > 0 {
		rate = math.Round(float64(completed)/float64(completed+cancelled)*10000) / 100
	}

	err := s.providerRepo.UpdateFields(ctx, providerID, map[string]interface{}{
		"completion_rate": rate,
	})
	if err != nil {
		return 0, errors.ErrDatabaseError.WithError(err)
	}
	return rate, nil
}

// AvailableAt 判断服务商在指定时间是否出勤
// availability 的键支持具体日期（"2006-01-02"）和星期名（"monday"），
// 日期键优先；未配置目标日的一律视为不可用
func AvailableAt(provider *models.ServiceProvider, t time.Time) bool {
	if v, ok := provider.Availability[t.Format("2006-01-02")]; ok {
		available, ok := v.(bool)
		return ok && available
	}
	day := strings.ToLower(t.Weekday().String())
	if v, ok := provider.Availability[day]; ok {
		available, ok := v.(bool)
		return ok && available
	}
	return false
}
