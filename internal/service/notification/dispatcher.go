// Package notification 提供落库通知派发器
package notification

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/common/logger"
	"github.com/dumeirei/marketplace-backend/internal/models"
	"github.com/dumeirei/marketplace-backend/internal/repository"
	"github.com/dumeirei/marketplace-backend/pkg/notify"
)

// Dispatcher 先落库再转发的通知派发器
// 转发失败时通知记录标记为 failed，调用方不受影响
type Dispatcher struct {
	repo *repository.NotificationRepository
	next notify.Dispatcher
}

// NewDispatcher 创建落库派发器，next 为实际投递通道，可以为 nil
func NewDispatcher(db *gorm.DB, next notify.Dispatcher) *Dispatcher {
	return &Dispatcher{
		repo: repository.NewNotificationRepository(db),
		next: next,
	}
}

// Send 落库并转发通知
func (d *Dispatcher) Send(ctx context.Context, msg *notify.Message) error {
	record := &models.Notification{
		UserID:  msg.UserID,
		Kind:    msg.Kind,
		Title:   msg.Title,
		Payload: models.JSON(msg.Payload),
	}
	if err := d.repo.Create(ctx, record); err != nil {
		logger.Warn("notification persist failed",
			logger.UserID(msg.UserID),
			logger.Err(err))
		// 落库失败不阻断投递
	}

	if d.next == nil {
		if record.ID != 0 {
			_ = d.repo.MarkSent(ctx, record.ID)
		}
		return nil
	}

	if err := d.next.Send(ctx, msg); err != nil {
		if record.ID != 0 {
			_ = d.repo.MarkFailed(ctx, record.ID)
		}
		return err
	}
	if record.ID != 0 {
		_ = d.repo.MarkSent(ctx, record.ID)
	}
	return nil
}
