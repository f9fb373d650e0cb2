// Package scheduler 提供定时任务
package scheduler

import (
	"context"
	"log"

	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/common/metrics"
	"github.com/dumeirei/marketplace-backend/internal/models"
	paymentService "github.com/dumeirei/marketplace-backend/internal/service/payment"
	providerService "github.com/dumeirei/marketplace-backend/internal/service/provider"
	userService "github.com/dumeirei/marketplace-backend/internal/service/user"
)

// TaskHandler 任务处理器
type TaskHandler struct {
	db              *gorm.DB
	paymentService  *paymentService.Service
	loyaltyService  *userService.LoyaltyService
	providerService *providerService.Service
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(
	db *gorm.DB,
	paymentSvc *paymentService.Service,
	loyaltySvc *userService.LoyaltyService,
	providerSvc *providerService.Service,
) *TaskHandler {
	return &TaskHandler{
		db:              db,
		paymentService:  paymentSvc,
		loyaltyService:  loyaltySvc,
		providerService: providerSvc,
	}
}

// ExpirePendingPayments 关闭超时未完成的支付
func (h *TaskHandler) ExpirePendingPayments(ctx context.Context) error {
	expired, err := h.paymentService.ExpirePending(ctx, 100)
	if err != nil {
		return err
	}
	if expired > 0 {
		log.Printf("[Task] Expired %d pending payments", expired)
	}
	return nil
}

// ExpireLoyaltyPoints 清零到期积分
func (h *TaskHandler) ExpireLoyaltyPoints(ctx context.Context) error {
	expired, err := h.loyaltyService.ExpirePoints(ctx, 500)
	if err != nil {
		return err
	}
	if expired > 0 {
		log.Printf("[Task] Expired points for %d users", expired)
	}
	return nil
}

// RefreshCompletionRates 刷新服务商履约率
func (h *TaskHandler) RefreshCompletionRates(ctx context.Context) error {
	var providerIDs []int64
	err := h.db.WithContext(ctx).
		Model(&models.ServiceProvider{}).
		Where("is_active = ?", true).
		Pluck("id", &providerIDs).Error
	if err != nil {
		return err
	}

	for _, id := range providerIDs {
		if _, err := h.providerService.RefreshCompletionRate(ctx, id); err != nil {
			log.Printf("[Task] Failed to refresh completion rate for provider %d: %v", id, err)
		}
	}
	return nil
}

// ReportWaitlistDepth 上报候补队列深度
func (h *TaskHandler) ReportWaitlistDepth(ctx context.Context) error {
	var depth int64
	err := h.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("status = ?", models.BookingStatusWaitlisted).
		Count(&depth).Error
	if err != nil {
		return err
	}

	if m := metrics.GetMetrics(); m != nil {
		m.SetWaitlistDepth(float64(depth))
	}
	return nil
}
