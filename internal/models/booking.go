package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking 预约模型
type Booking struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	BookingNo           string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"booking_no"`
	UserID              int64           `gorm:"index;not null" json:"user_id"`
	ProviderID          int64           `gorm:"index;not null" json:"provider_id"`
	ServiceTypeID       int64           `gorm:"not null" json:"service_type_id"`
	ScheduledTime       time.Time       `gorm:"index;not null" json:"scheduled_time"`
	DurationMinutes     int             `gorm:"not null;default:60" json:"duration_minutes"`
	Status              string          `gorm:"type:varchar(20);index;not null;default:'pending'" json:"status"`
	Price               decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	WaitlistPosition    *int            `json:"waitlist_position,omitempty"`
	RecurrenceRule      string          `gorm:"type:varchar(20);not null;default:'none'" json:"recurrence_rule"`
	RecurrenceEndDate   *time.Time      `json:"recurrence_end_date,omitempty"`
	ParentBookingID     *int64          `gorm:"index" json:"parent_booking_id,omitempty"`
	IsRecurringInstance bool            `gorm:"not null;default:false" json:"is_recurring_instance"`
	CancellationReason  *string         `gorm:"type:varchar(255)" json:"cancellation_reason,omitempty"`
	AlternateTimes      JSON            `gorm:"type:jsonb" json:"alternate_times,omitempty"`
	ConfirmedAt         *time.Time      `json:"confirmed_at,omitempty"`
	CompletedAt         *time.Time      `json:"completed_at,omitempty"`
	CancelledAt         *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	User          *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Provider      *ServiceProvider `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
	ServiceType   *ServiceType     `gorm:"foreignKey:ServiceTypeID" json:"service_type,omitempty"`
	ParentBooking *Booking         `gorm:"foreignKey:ParentBookingID;constraint:OnDelete:SET NULL" json:"parent_booking,omitempty"`
}

// TableName 表名
func (Booking) TableName() string {
	return "bookings"
}

// BookingStatus 预约状态
const (
	BookingStatusPending     = "pending"     // 待确认
	BookingStatusConfirmed   = "confirmed"   // 已确认
	BookingStatusCancelled   = "cancelled"   // 已取消
	BookingStatusCompleted   = "completed"   // 已完成
	BookingStatusWaitlisted  = "waitlisted"  // 候补中
	BookingStatusRescheduled = "rescheduled" // 已改期
)

// RecurrenceRule 重复规则
const (
	RecurrenceNone    = "none"    // 不重复
	RecurrenceDaily   = "daily"   // 每天
	RecurrenceWeekly  = "weekly"  // 每周
	RecurrenceMonthly = "monthly" // 每月
	RecurrenceYearly  = "yearly"  // 每年
)

// IsActiveStatus 判断预约是否占用时段名额
func (b *Booking) IsActiveStatus() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}
