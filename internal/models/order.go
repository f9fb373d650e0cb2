package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order 订单模型
type Order struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNo         string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`
	UserID          int64           `gorm:"index;not null" json:"user_id"`
	ShopID          int64           `gorm:"index;not null" json:"shop_id"`
	Status          string          `gorm:"type:varchar(20);index;not null;default:'pending'" json:"status"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	CouponID        *int64          `json:"coupon_id,omitempty"`
	ShippingAddress *string         `gorm:"type:varchar(255)" json:"shipping_address,omitempty"`
	RejectionReason *string         `gorm:"type:varchar(255)" json:"rejection_reason,omitempty"`
	RejectionDetail *string         `gorm:"type:text" json:"rejection_detail,omitempty"`
	ShippedAt       *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	User   *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Shop   *Shop       `gorm:"foreignKey:ShopID" json:"shop,omitempty"`
	Coupon *Coupon     `gorm:"foreignKey:CouponID" json:"coupon,omitempty"`
	Items  []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// TableName 表名
func (Order) TableName() string {
	return "orders"
}

// OrderStatus 订单状态
const (
	OrderStatusPending   = "pending"   // 待处理
	OrderStatusShipped   = "shipped"   // 已发货
	OrderStatusDelivered = "delivered" // 已送达
	OrderStatusCancelled = "cancelled" // 已取消
	OrderStatusRejected  = "rejected"  // 已拒绝
)

// OrderItem 订单项
type OrderItem struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64           `gorm:"index;not null" json:"order_id"`
	ProductID int64           `gorm:"not null" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"` // 下单时单价快照

	// 关联
	Order   *Order   `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName 表名
func (OrderItem) TableName() string {
	return "order_items"
}

// Subtotal 订单项小计
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
