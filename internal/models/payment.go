package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment 支付模型
// OrderID 与 BookingID 二者必填其一，且只能填一个
type Payment struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentNo      string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"payment_no"`
	UserID         int64           `gorm:"index;not null" json:"user_id"`
	OrderID        *int64          `gorm:"index" json:"order_id,omitempty"`
	BookingID      *int64          `gorm:"index" json:"booking_id,omitempty"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	GSTAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"gst_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	Method         string          `gorm:"type:varchar(20);not null" json:"method"`
	Status         string          `gorm:"type:varchar(20);index;not null;default:'pending'" json:"status"`
	TransactionID  string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_id"`
	GatewayOrderID *string         `gorm:"type:varchar(64)" json:"gateway_order_id,omitempty"`
	RefundID       *string         `gorm:"type:varchar(64)" json:"refund_id,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	RefundedAt     *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Order   *Order   `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	Booking *Booking `gorm:"foreignKey:BookingID" json:"booking,omitempty"`
}

// TableName 表名
func (Payment) TableName() string {
	return "payments"
}

// PaymentStatus 支付状态
const (
	PaymentStatusPending  = "pending"  // 待支付
	PaymentStatusSuccess  = "success"  // 支付成功
	PaymentStatusFailed   = "failed"   // 支付失败
	PaymentStatusRefunded = "refunded" // 已退款
)

// PaymentMethod 支付方式
const (
	PaymentMethodCard   = "card"   // 银行卡
	PaymentMethodUPI    = "upi"    // UPI
	PaymentMethodWallet = "wallet" // 钱包
	PaymentMethodNetbanking = "netbanking" // 网银
)
