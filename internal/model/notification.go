package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType enum constants
const (
	NotificationTypeRestock  = "restock"
	NotificationTypeLowStock = "low_stock"
	NotificationTypeSystem   = "system"
)

// Notification priorities
const (
	NotificationPriorityNormal = "normal"
	NotificationPriorityHigh   = "high"
)

// Notification is a persisted per-user message. Rows are written
// best-effort by the dispatcher; delivery failures never affect the
// transaction that produced them.
type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      string     `gorm:"type:varchar(30);not null;index" json:"type"`
	Priority  string     `gorm:"type:varchar(10);not null;default:'normal'" json:"priority"`
	Title     string     `gorm:"type:varchar(255);not null" json:"title"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	Data      string     `gorm:"type:jsonb" json:"data"` // Serialized event payload
	Read      bool       `gorm:"default:false;index" json:"read"`
	RelatedID *uuid.UUID `gorm:"type:uuid" json:"related_id"` // ID of related request, product, etc.
	CreatedAt time.Time  `json:"created_at"`
}
