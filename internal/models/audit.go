package models

import (
	"time"
)

// AuditLog 审计日志模型（只增不改）
type AuditLog struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorID    *int64    `gorm:"index" json:"actor_id,omitempty"`
	EntityType string    `gorm:"type:varchar(50);index;not null" json:"entity_type"`
	EntityID   int64     `gorm:"index;not null" json:"entity_id"`
	Action     string    `gorm:"type:varchar(20);not null" json:"action"`
	Changes    JSON      `gorm:"type:jsonb" json:"changes,omitempty"`
	IP         *string   `gorm:"type:varchar(45)" json:"ip,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 表名
func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditAction 审计动作
const (
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
)
