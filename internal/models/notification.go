package models

import (
	"time"
)

// Notification 通知记录模型
type Notification struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64      `gorm:"index;not null" json:"user_id"`
	Kind      string     `gorm:"type:varchar(40);not null" json:"kind"`
	Title     string     `gorm:"type:varchar(200);not null" json:"title"`
	Payload   JSON       `gorm:"type:jsonb" json:"payload,omitempty"`
	Status    string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`

	// 关联
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName 表名
func (Notification) TableName() string {
	return "notifications"
}

// NotificationKind 通知类型
const (
	NotifyKindBookingConfirmed    = "booking_confirmed"
	NotifyKindOrderConfirmed      = "order_confirmed"
	NotifyKindPaymentConfirmed    = "payment_confirmed"
	NotifyKindMembershipUpgraded  = "membership_upgraded"
	NotifyKindPointsEarned        = "points_earned"
	NotifyKindWaitlistPromoted    = "waitlist_promoted"
	NotifyKindReturnProcessed     = "return_processed"
)

// NotificationStatus 通知状态
const (
	NotifyStatusPending = "pending"
	NotifyStatusSent    = "sent"
	NotifyStatusFailed  = "failed"
)
