package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon 优惠券模型
type Coupon struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Code              string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`
	Name              string          `gorm:"type:varchar(100);not null" json:"name"`
	DiscountType      string          `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount_value"`
	MinPurchaseAmount decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"min_purchase_amount"`
	ValidFrom         time.Time       `gorm:"not null" json:"valid_from"`
	ValidUntil        time.Time       `gorm:"not null" json:"valid_until"`
	MaxUses           int             `gorm:"not null;default:0" json:"max_uses"` // 0 表示不限
	MaxUsesPerUser    int             `gorm:"not null;default:1" json:"max_uses_per_user"`
	CurrentUses       int             `gorm:"not null;default:0" json:"current_uses"`
	IsActive          bool            `gorm:"not null;default:true" json:"is_active"`
	ProductIDs        IDList          `gorm:"type:jsonb" json:"product_ids,omitempty"`
	CategoryIDs       IDList          `gorm:"type:jsonb" json:"category_ids,omitempty"`
	ShopIDs           IDList          `gorm:"type:jsonb" json:"shop_ids,omitempty"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Coupon) TableName() string {
	return "coupons"
}

// CouponDiscountType 优惠类型
const (
	CouponTypePercent      = "percent"       // 按比例折扣
	CouponTypeFixed        = "fixed"         // 固定金额
	CouponTypeFreeShipping = "free_shipping" // 免运费
)

// CouponUsage 优惠券使用记录（只增不改）
type CouponUsage struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CouponID       int64           `gorm:"index;not null" json:"coupon_id"`
	UserID         int64           `gorm:"index;not null" json:"user_id"`
	OrderID        *int64          `gorm:"index" json:"order_id,omitempty"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount_amount"`
	UsedAt         time.Time       `gorm:"autoCreateTime" json:"used_at"`

	// 关联
	Coupon *Coupon `gorm:"foreignKey:CouponID" json:"coupon,omitempty"`
	User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Order  *Order  `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}

// TableName 表名
func (CouponUsage) TableName() string {
	return "coupon_usages"
}
