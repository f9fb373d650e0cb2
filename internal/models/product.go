package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shop 店铺模型
type Shop struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID     int64     `gorm:"index;not null" json:"owner_id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	Logo        *string   `gorm:"type:varchar(255)" json:"logo,omitempty"`
	Rating      float64   `gorm:"type:decimal(3,2);not null;default:0" json:"rating"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Owner *User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

// TableName 表名
func (Shop) TableName() string {
	return "shops"
}

// ProductCategory 商品分类模型
type ProductCategory struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	Sort      int       `gorm:"not null;default:0" json:"sort"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 表名
func (ProductCategory) TableName() string {
	return "product_categories"
}

// Product 商品模型
type Product struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ShopID           int64           `gorm:"index;not null" json:"shop_id"`
	CategoryID       int64           `gorm:"index;not null" json:"category_id"`
	SKU              string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"sku"`
	Name             string          `gorm:"type:varchar(200);not null" json:"name"`
	Description      *string         `gorm:"type:text" json:"description,omitempty"`
	Price            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	StockQuantity    int             `gorm:"not null;default:0" json:"stock_quantity"`
	MinOrderQuantity int             `gorm:"not null;default:1" json:"min_order_quantity"`
	MaxOrderQuantity int             `gorm:"not null;default:99" json:"max_order_quantity"`
	WeightGrams      int             `gorm:"not null;default:0" json:"weight_grams"`
	Images           JSON            `gorm:"type:jsonb" json:"images,omitempty"`
	IsActive         bool            `gorm:"not null;default:true" json:"is_active"`
	AverageRating    float64         `gorm:"type:decimal(3,2);not null;default:0" json:"average_rating"`
	TotalReviews     int             `gorm:"not null;default:0" json:"total_reviews"`
	SalesCount       int             `gorm:"not null;default:0" json:"sales_count"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Shop     *Shop            `gorm:"foreignKey:ShopID" json:"shop,omitempty"`
	Category *ProductCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// TableName 表名
func (Product) TableName() string {
	return "products"
}
