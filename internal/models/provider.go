package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceProvider 服务商模型
type ServiceProvider struct {
	ID                int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            int64      `gorm:"index;not null" json:"user_id"`
	Name              string     `gorm:"type:varchar(100);not null" json:"name"`
	ServiceTypeID     int64      `gorm:"index;not null" json:"service_type_id"`
	Description       *string    `gorm:"type:text" json:"description,omitempty"`
	Location          string     `gorm:"type:varchar(200);not null" json:"location"`
	Rating            float64    `gorm:"type:decimal(3,2);not null;default:0" json:"rating"`
	TotalRatings      int        `gorm:"not null;default:0" json:"total_ratings"`
	RatingBreakdown   JSON       `gorm:"type:jsonb" json:"rating_breakdown,omitempty"`
	Availability      JSON       `gorm:"type:jsonb" json:"availability,omitempty"`
	MaxBookingPerSlot int        `gorm:"not null;default:5" json:"max_booking_per_slot"`
	CompletionRate    float64    `gorm:"type:decimal(5,2);not null;default:0" json:"completion_rate"`
	ResponseMinutes   int        `gorm:"not null;default:0" json:"response_minutes"`
	IsVerified        bool       `gorm:"not null;default:false" json:"is_verified"`
	IsActive          bool       `gorm:"not null;default:true" json:"is_active"`
	FeaturedRank      int        `gorm:"not null;default:0" json:"featured_rank"`
	CancellationPolicy *string   `gorm:"type:text" json:"cancellation_policy,omitempty"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	User        *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ServiceType *ServiceType `gorm:"foreignKey:ServiceTypeID" json:"service_type,omitempty"`
}

// TableName 表名
func (ServiceProvider) TableName() string {
	return "service_providers"
}

// ServiceCategory 服务类别
const (
	ServiceCategoryHome     = "home"     // 居家服务
	ServiceCategoryEvent    = "event"    // 活动服务
	ServiceCategoryPersonal = "personal" // 个人服务
)

// ServiceType 服务类型模型
type ServiceType struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Category  string          `gorm:"type:varchar(20);not null" json:"category"`
	BasePrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"base_price"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"` // 每小时单价
	IsActive  bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (ServiceType) TableName() string {
	return "service_types"
}

// Review 服务评价模型
type Review struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"index;not null" json:"user_id"`
	ProviderID int64     `gorm:"index;not null" json:"provider_id"`
	BookingID  int64     `gorm:"uniqueIndex;not null" json:"booking_id"`
	Rating     int       `gorm:"not null" json:"rating"` // 1-5
	Comment    *string   `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`

	// 关联
	User     *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Provider *ServiceProvider `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
	Booking  *Booking         `gorm:"foreignKey:BookingID" json:"booking,omitempty"`
}

// TableName 表名
func (Review) TableName() string {
	return "reviews"
}
