// Package models 定义数据库模型
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// User 用户模型
type User struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Username       string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Password       string          `gorm:"type:varchar(255);not null" json:"-"`
	Phone          *string         `gorm:"type:varchar(20);uniqueIndex" json:"phone,omitempty"`
	Email          *string         `gorm:"type:varchar(100);uniqueIndex" json:"email,omitempty"`
	Nickname       *string         `gorm:"type:varchar(50)" json:"nickname,omitempty"`
	Avatar         *string         `gorm:"type:varchar(255)" json:"avatar,omitempty"`
	MembershipTier string          `gorm:"type:varchar(20);not null;default:'bronze'" json:"membership_tier"`
	LoyaltyPoints  int             `gorm:"not null;default:0" json:"loyalty_points"`
	PointsExpiry   *time.Time      `json:"points_expiry,omitempty"`
	TotalSpent     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_spent"`
	LastTierUpdate *time.Time      `json:"last_tier_update,omitempty"`
	IsStaff        bool            `gorm:"not null;default:false" json:"is_staff"`
	Status         int8            `gorm:"type:smallint;not null;default:1" json:"status"`
	Language       string          `gorm:"type:varchar(10);not null;default:'en'" json:"language"`
	NotifyPrefs    JSON            `gorm:"type:jsonb" json:"notify_prefs,omitempty"`
	LastLoginAt    *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (User) TableName() string {
	return "users"
}

// UserStatus 用户状态
const (
	UserStatusDisabled = 0 // 禁用
	UserStatusNormal   = 1 // 正常
)

// MembershipTier 会员等级
const (
	TierBronze   = "bronze"   // 铜牌
	TierSilver   = "silver"   // 银牌
	TierGold     = "gold"     // 金牌
	TierPlatinum = "platinum" // 白金
)

// JSON 自定义 JSON 类型
type JSON map[string]interface{}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, j)
}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Unmarshal 将 JSON 值反序列化到目标结构（便于业务层使用）
func (j JSON) Unmarshal(target interface{}) error {
	if j == nil {
		return nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, target)
}

// IDList 自定义 ID 列表类型（存储为 JSON 数组）
type IDList []int64

// Scan 实现 sql.Scanner 接口
func (l *IDList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, l)
}

// Value 实现 driver.Valuer 接口
func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Contains 判断列表是否包含指定 ID
func (l IDList) Contains(id int64) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}
