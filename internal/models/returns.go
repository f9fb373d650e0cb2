package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReturnRequest 退货申请模型
type ReturnRequest struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ReturnNo     string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"return_no"`
	OrderID      int64           `gorm:"index;not null" json:"order_id"`
	UserID       int64           `gorm:"index;not null" json:"user_id"`
	Reason       string          `gorm:"type:varchar(255);not null" json:"reason"`
	Detail       *string         `gorm:"type:text" json:"detail,omitempty"`
	Status       string          `gorm:"type:varchar(20);index;not null;default:'pending'" json:"status"`
	EvidenceImages JSON          `gorm:"type:jsonb" json:"evidence_images,omitempty"`
	RefundAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"refund_amount"`
	RefundID     *string         `gorm:"type:varchar(64)" json:"refund_id,omitempty"`
	AdminNotes   *string         `gorm:"type:text" json:"admin_notes,omitempty"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Order *Order              `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	User  *User               `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items []ReturnRequestItem `gorm:"foreignKey:ReturnRequestID" json:"items,omitempty"`
}

// TableName 表名
func (ReturnRequest) TableName() string {
	return "return_requests"
}

// ReturnStatus 退货申请状态
const (
	ReturnStatusPending   = "pending"   // 待审核
	ReturnStatusApproved  = "approved"  // 已通过
	ReturnStatusRejected  = "rejected"  // 已拒绝
	ReturnStatusCompleted = "completed" // 已完成（退款到账）
)

// ReturnRequestItem 退货商品项
type ReturnRequestItem struct {
	ID              int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ReturnRequestID int64 `gorm:"index;not null" json:"return_request_id"`
	OrderItemID     int64 `gorm:"not null" json:"order_item_id"`
	Quantity        int   `gorm:"not null" json:"quantity"`

	// 关联
	OrderItem *OrderItem `gorm:"foreignKey:OrderItemID" json:"order_item,omitempty"`
}

// TableName 表名
func (ReturnRequestItem) TableName() string {
	return "return_request_items"
}
