// Package booking 提供预约服务
package booking

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/marketplace-backend/internal/common/config"
	"github.com/dumeirei/marketplace-backend/internal/common/errors"
	"github.com/dumeirei/marketplace-backend/internal/common/logger"
	"github.com/dumeirei/marketplace-backend/internal/common/metrics"
	"github.com/dumeirei/marketplace-backend/internal/common/utils"
	"github.com/dumeirei/marketplace-backend/internal/models"
	"github.com/dumeirei/marketplace-backend/internal/repository"
	"github.com/dumeirei/marketplace-backend/internal/service/pricing"
	"github.com/dumeirei/marketplace-backend/internal/service/provider"
	"github.com/dumeirei/marketplace-backend/pkg/notify"
)

// Service 预约服务
type Service struct {
	db           *gorm.DB
	bookingRepo  *repository.BookingRepository
	providerRepo *repository.ProviderRepository
	userRepo     *repository.UserRepository
	pricingSvc   *pricing.Service
	providerSvc  *provider.Service
	dispatcher   notify.Dispatcher
	cfg          *config.BookingConfig
}

// NewService 创建预约服务
func NewService(db *gorm.DB, pricingSvc *pricing.Service, providerSvc *provider.Service, dispatcher notify.Dispatcher, cfg *config.BookingConfig) *Service {
	return &Service{
		db:           db,
		bookingRepo:  repository.NewBookingRepository(db),
		providerRepo: repository.NewProviderRepository(db),
		userRepo:     repository.NewUserRepository(db),
		pricingSvc:   pricingSvc,
		providerSvc:  providerSvc,
		dispatcher:   dispatcher,
		cfg:          cfg,
	}
}

// CreateBookingRequest 创建预约请求
type CreateBookingRequest struct {
	ProviderID        int64      `json:"provider_id" binding:"required"`
	ScheduledTime     time.Time  `json:"scheduled_time" binding:"required"`
	DurationMinutes   int        `json:"duration_minutes"`
	RecurrenceRule    string     `json:"recurrence_rule"`
	RecurrenceEndDate *time.Time `json:"recurrence_end_date"`
}

// CreateBookingResult 创建预约结果
type CreateBookingResult struct {
	Booking   *models.Booking   `json:"booking"`
	Instances []*models.Booking `json:"instances,omitempty"`
	Waitlisted bool             `json:"waitlisted"`
}

// Create 创建预约
// 时段已满时不拒绝，而是转入候补队列并分配紧凑的队列位置
func (s *Service) Create(ctx context.Context, userID int64, req *CreateBookingRequest) (*CreateBookingResult, error) {
	if !req.ScheduledTime.After(time.Now()) {
		return nil, errors.ErrBookingPast
	}
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = 60
	}
	if req.RecurrenceRule == "" {
		req.RecurrenceRule = models.RecurrenceNone
	}
	if err := s.validateRecurrence(req); err != nil {
		return nil, err
	}

	prov, err := s.providerRepo.GetByIDWithServiceType(ctx, req.ProviderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrProviderNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if !prov.IsActive {
		return nil, errors.ErrProviderNotFound
	}
	if !provider.AvailableAt(prov, req.ScheduledTime) {
		return nil, errors.ErrProviderUnavailable
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrUserNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	price, err := s.pricingSvc.Quote(ctx, &pricing.QuoteInput{
		ServiceType:     prov.ServiceType,
		ScheduledTime:   req.ScheduledTime,
		DurationMinutes: req.DurationMinutes,
		MembershipTier:  user.MembershipTier,
	})
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		BookingNo:         utils.GenerateOrderNo("BK"),
		UserID:            userID,
		ProviderID:        prov.ID,
		ServiceTypeID:     prov.ServiceTypeID,
		ScheduledTime:     req.ScheduledTime,
		DurationMinutes:   req.DurationMinutes,
		Price:             price,
		RecurrenceRule:    req.RecurrenceRule,
		RecurrenceEndDate: req.RecurrenceEndDate,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.placeInSlotTx(tx, booking, prov)
	})
	if err != nil {
		return nil, err
	}

	s.pricingSvc.RecordDemand(ctx, prov.ServiceTypeID, req.ScheduledTime)
	metrics.GetMetrics().RecordBooking(booking.Status)

	result := &CreateBookingResult{
		Booking:    booking,
		Waitlisted: booking.Status == models.BookingStatusWaitlisted,
	}

	if req.RecurrenceRule != models.RecurrenceNone {
		result.Instances = s.expandRecurrence(ctx, booking, prov, user.MembershipTier)
	}

	logger.Info("booking created",
		logger.BookingNo(booking.BookingNo),
		logger.UserID(userID),
		logger.ProviderID(prov.ID),
		zap.String("status", booking.Status))
	return result, nil
}

// placeInSlotTx 在事务内检查容量并落位，满员则候补
// 行锁服务商记录，避免并发创建击穿容量上限
func (s *Service) placeInSlotTx(tx *gorm.DB, booking *models.Booking, prov *models.ServiceProvider) error {
	var locked models.ServiceProvider
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&locked, prov.ID).Error; err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}

	var active int64
	err := tx.Model(&models.Booking{}).
		Where("provider_id = ? AND scheduled_time = ?", prov.ID, booking.ScheduledTime).
		Where("status IN ?", []string{models.BookingStatusPending, models.BookingStatusConfirmed}).
		Count(&active).Error
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}

	capacity := locked.MaxBookingPerSlot
	if capacity <= 0 {
		capacity = s.cfg.DefaultSlotCapacity
	}

	if active >= int64(capacity) {
		var waiting int64
		err := tx.Model(&models.Booking{}).
			Where("provider_id = ? AND scheduled_time = ? AND status = ?",
				prov.ID, booking.ScheduledTime, models.BookingStatusWaitlisted).
			Count(&waiting).Error
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		position := int(waiting) + 1
		booking.Status = models.BookingStatusWaitlisted
		booking.WaitlistPosition = &position
	} else {
		booking.Status = models.BookingStatusPending
	}

	if err := tx.Create(booking).Error; err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// validateRecurrence 校验重复规则
func (s *Service) validateRecurrence(req *CreateBookingRequest) error {
	switch req.RecurrenceRule {
	case models.RecurrenceNone:
		return nil
	case models.RecurrenceDaily, models.RecurrenceWeekly, models.RecurrenceMonthly, models.RecurrenceYearly:
	default:
		return errors.ErrRecurrenceInvalid
	}
	if req.RecurrenceEndDate == nil {
		return errors.ErrRecurrenceInvalid.WithMessage("重复预约必须指定结束日期")
	}
	if !req.RecurrenceEndDate.After(req.ScheduledTime) {
		return errors.ErrRecurrenceInvalid.WithMessage("结束日期必须晚于首次预约时间")
	}
	maxSpan := s.cfg.RecurrenceMaxSpan
	if maxSpan <= 0 {
		maxSpan = 12
	}
	if req.RecurrenceEndDate.After(req.ScheduledTime.AddDate(0, maxSpan, 0)) {
		return errors.ErrRecurrenceInvalid.WithMessage("重复跨度超出上限")
	}
	return nil
}

// expandRecurrence 展开重复预约的子实例
// 不可用或已满的时段静默跳过，不中断整体展开
func (s *Service) expandRecurrence(ctx context.Context, parent *models.Booking, prov *models.ServiceProvider, tier string) []*models.Booking {
	var instances []*models.Booking

	for t := s.nextOccurrence(parent.ScheduledTime, parent.RecurrenceRule); !t.After(*parent.RecurrenceEndDate); t = s.nextOccurrence(t, parent.RecurrenceRule) {
		if !provider.AvailableAt(prov, t) {
			continue
		}

		price, err := s.pricingSvc.Quote(ctx, &pricing.QuoteInput{
			ServiceType:     prov.ServiceType,
			ScheduledTime:   t,
			DurationMinutes: parent.DurationMinutes,
			MembershipTier:  tier,
		})
		if err != nil {
			logger.Warn("recurrence instance quote failed",
				logger.BookingNo(parent.BookingNo), logger.Err(err))
			continue
		}

		child := &models.Booking{
			BookingNo:           utils.GenerateOrderNo("BK"),
			UserID:              parent.UserID,
			ProviderID:          parent.ProviderID,
			ServiceTypeID:       parent.ServiceTypeID,
			ScheduledTime:       t,
			DurationMinutes:     parent.DurationMinutes,
			Price:               price,
			RecurrenceRule:      models.RecurrenceNone,
			ParentBookingID:     &parent.ID,
			IsRecurringInstance: true,
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.createInstanceTx(tx, child, prov)
		})
		if err != nil {
			// 满员的实例直接跳过
			continue
		}
		instances = append(instances, child)
	}

	return instances
}

// createInstanceTx 子实例落位，满员返回错误供上层跳过而非候补
func (s *Service) createInstanceTx(tx *gorm.DB, child *models.Booking, prov *models.ServiceProvider) error {
	var locked models.ServiceProvider
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&locked, prov.ID).Error; err != nil {
		return err
	}

	var active int64
	err := tx.Model(&models.Booking{}).
		Where("provider_id = ? AND scheduled_time = ?", prov.ID, child.ScheduledTime).
		Where("status IN ?", []string{models.BookingStatusPending, models.BookingStatusConfirmed}).
		Count(&active).Error
	if err != nil {
		return err
	}

	capacity := locked.MaxBookingPerSlot
	if capacity <= 0 {
		capacity = s.cfg.DefaultSlotCapacity
	}
	if active >= int64(capacity) {
		return errors.ErrSlotFull
	}

	child.Status = models.BookingStatusPending
	return tx.Create(child).Error
}

// nextOccurrence 计算下一个重复时间点
// 按月和按年步进时，若目标月更短则钳制到当月最后一天，
// 避免 AddDate 把 1月31日 顺延到 3月
func (s *Service) nextOccurrence(t time.Time, rule string) time.Time {
	switch rule {
	case models.RecurrenceDaily:
		return t.AddDate(0, 0, 1)
	case models.RecurrenceWeekly:
		return t.AddDate(0, 0, 7)
	case models.RecurrenceMonthly:
		return addMonthsClamped(t, 1)
	case models.RecurrenceYearly:
		return addMonthsClamped(t, 12)
	default:
		return t.AddDate(100, 0, 0)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// Cancel 取消预约
// 取消占位预约后立即提升该时段候补队列的首位
func (s *Service) Cancel(ctx context.Context, userID int64, bookingID int64, reason *string, isStaff bool) error {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrBookingNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	if booking.UserID != userID && !isStaff {
		return errors.ErrPermissionDenied
	}

	switch booking.Status {
	case models.BookingStatusPending, models.BookingStatusConfirmed, models.BookingStatusWaitlisted:
	default:
		return errors.ErrBookingNotCancelable
	}

	var promoted *models.Booking
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		wasActive := booking.IsActiveStatus()
		wasWaitlisted := booking.Status == models.BookingStatusWaitlisted

		updates := map[string]interface{}{
			"status":              models.BookingStatusCancelled,
			"cancelled_at":        now,
			"waitlist_position":   nil,
			"cancellation_reason": reason,
		}
		if err := tx.Model(&models.Booking{}).
			Where("id = ?", booking.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		if wasWaitlisted && booking.WaitlistPosition != nil {
			// 压缩队列，保持位置连续
			return tx.Model(&models.Booking{}).
				Where("provider_id = ? AND scheduled_time = ? AND status = ? AND waitlist_position > ?",
					booking.ProviderID, booking.ScheduledTime, models.BookingStatusWaitlisted, *booking.WaitlistPosition).
				UpdateColumn("waitlist_position", gorm.Expr("waitlist_position - 1")).Error
		}

		if wasActive {
			var err error
			promoted, err = s.promoteWaitlistTx(tx, booking.ProviderID, booking.ScheduledTime)
			return err
		}
		return nil
	})
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}

	metrics.GetMetrics().RecordBooking(models.BookingStatusCancelled)
	if promoted != nil {
		s.notifyPromoted(ctx, promoted)
	}

	logger.Info("booking cancelled",
		logger.BookingNo(booking.BookingNo), logger.UserID(userID))
	return nil
}

// promoteWaitlistTx 提升候补队列首位为已确认，并前移其余候补位置
func (s *Service) promoteWaitlistTx(tx *gorm.DB, providerID int64, slot time.Time) (*models.Booking, error) {
	var head models.Booking
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider_id = ? AND scheduled_time = ? AND status = ?",
			providerID, slot, models.BookingStatusWaitlisted).
		Order("waitlist_position ASC").
		First(&head).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	now := time.Now()
	if err := tx.Model(&models.Booking{}).
		Where("id = ?", head.ID).
		Updates(map[string]interface{}{
			"status":            models.BookingStatusConfirmed,
			"confirmed_at":      now,
			"waitlist_position": nil,
		}).Error; err != nil {
		return nil, err
	}

	if err := tx.Model(&models.Booking{}).
		Where("provider_id = ? AND scheduled_time = ? AND status = ?",
			providerID, slot, models.BookingStatusWaitlisted).
		UpdateColumn("waitlist_position", gorm.Expr("waitlist_position - 1")).Error; err != nil {
		return nil, err
	}

	head.Status = models.BookingStatusConfirmed
	head.ConfirmedAt = &now
	head.WaitlistPosition = nil
	return &head, nil
}

// notifyPromoted 候补转正通知
func (s *Service) notifyPromoted(ctx context.Context, booking *models.Booking) {
	user, err := s.userRepo.GetByID(ctx, booking.UserID)
	if err != nil {
		logger.Warn("load promoted user failed", logger.UserID(booking.UserID), logger.Err(err))
		return
	}
	msg := &notify.Message{
		UserID: user.ID,
		Email:  derefString(user.Email),
		Phone:  derefString(user.Phone),
		Kind:   notify.KindWaitlistPromoted,
		Title:  "候补预约已转正",
		Payload: map[string]interface{}{
			"booking_no":     booking.BookingNo,
			"scheduled_time": booking.ScheduledTime,
		},
	}
	if err := s.dispatcher.Send(ctx, msg); err != nil {
		logger.Warn("dispatch waitlist promotion failed", logger.Err(err))
	}
}

// Reschedule 改期
// 原预约标记为已改期并释放时段，新时段按现价重新落位
func (s *Service) Reschedule(ctx context.Context, userID int64, bookingID int64, newTime time.Time) (*models.Booking, error) {
	if !newTime.After(time.Now()) {
		return nil, errors.ErrBookingPast
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrBookingNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if booking.UserID != userID {
		return nil, errors.ErrPermissionDenied
	}
	if !booking.IsActiveStatus() {
		return nil, errors.ErrBookingStatusError
	}

	prov, err := s.providerRepo.GetByIDWithServiceType(ctx, booking.ProviderID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if !provider.AvailableAt(prov, newTime) {
		return nil, errors.ErrProviderUnavailable
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	price, err := s.pricingSvc.Quote(ctx, &pricing.QuoteInput{
		ServiceType:     prov.ServiceType,
		ScheduledTime:   newTime,
		DurationMinutes: booking.DurationMinutes,
		MembershipTier:  user.MembershipTier,
	})
	if err != nil {
		return nil, err
	}

	replacement := &models.Booking{
		BookingNo:       utils.GenerateOrderNo("BK"),
		UserID:          booking.UserID,
		ProviderID:      booking.ProviderID,
		ServiceTypeID:   booking.ServiceTypeID,
		ScheduledTime:   newTime,
		DurationMinutes: booking.DurationMinutes,
		Price:           price,
		RecurrenceRule:  models.RecurrenceNone,
	}

	var promoted *models.Booking
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.placeInSlotTx(tx, replacement, prov); err != nil {
			return err
		}
		if err := tx.Model(&models.Booking{}).
			Where("id = ?", booking.ID).
			Update("status", models.BookingStatusRescheduled).Error; err != nil {
			return err
		}
		var err error
		promoted, err = s.promoteWaitlistTx(tx, booking.ProviderID, booking.ScheduledTime)
		return err
	})
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return nil, appErr
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if promoted != nil {
		s.notifyPromoted(ctx, promoted)
	}
	metrics.GetMetrics().RecordBooking(replacement.Status)

	logger.Info("booking rescheduled",
		logger.BookingNo(booking.BookingNo),
		zap.String("new_booking_no", replacement.BookingNo))
	return replacement, nil
}

// Confirm 确认预约（服务商或管理人员）
func (s *Service) Confirm(ctx context.Context, bookingID int64) error {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrBookingNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	if booking.Status != models.BookingStatusPending {
		return errors.ErrBookingStatusError
	}

	now := time.Now()
	err = s.bookingRepo.UpdateFields(ctx, bookingID, map[string]interface{}{
		"status":       models.BookingStatusConfirmed,
		"confirmed_at": now,
	})
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	metrics.GetMetrics().RecordBooking(models.BookingStatusConfirmed)
	return nil
}

// Complete 完成预约并刷新服务商完成率
func (s *Service) Complete(ctx context.Context, bookingID int64) error {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrBookingNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	if booking.Status != models.BookingStatusConfirmed {
		return errors.ErrBookingStatusError
	}

	now := time.Now()
	err = s.bookingRepo.UpdateFields(ctx, bookingID, map[string]interface{}{
		"status":       models.BookingStatusCompleted,
		"completed_at": now,
	})
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}

	if _, err := s.providerSvc.RefreshCompletionRate(ctx, booking.ProviderID); err != nil {
		logger.Warn("refresh completion rate failed",
			logger.ProviderID(booking.ProviderID), logger.Err(err))
	}
	metrics.GetMetrics().RecordBooking(models.BookingStatusCompleted)
	return nil
}

// Get 获取预约详情
func (s *Service) Get(ctx context.Context, userID int64, bookingID int64, isStaff bool) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByIDWithDetails(ctx, bookingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrBookingNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if booking.UserID != userID && !isStaff {
		return nil, errors.ErrPermissionDenied
	}
	return booking, nil
}

// List 获取预约列表
func (s *Service) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Booking, int64, error) {
	bookings, total, err := s.bookingRepo.List(ctx, offset, limit, filters)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return bookings, total, nil
}

// WaitlistPosition 查询候补位置
func (s *Service) WaitlistPosition(ctx context.Context, userID int64, bookingID int64) (int, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, errors.ErrBookingNotFound
		}
		return 0, errors.ErrDatabaseError.WithError(err)
	}
	if booking.UserID != userID {
		return 0, errors.ErrPermissionDenied
	}
	if booking.Status != models.BookingStatusWaitlisted || booking.WaitlistPosition == nil {
		return 0, errors.ErrNotOnWaitlist
	}
	return *booking.WaitlistPosition, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
