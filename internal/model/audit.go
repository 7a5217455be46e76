package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateProduct = "CREATE_PRODUCT"
	ActionUpdateProduct = "UPDATE_PRODUCT"
	ActionDeleteProduct = "DELETE_PRODUCT"
	ActionAdjustStock   = "ADJUST_STOCK"

	ActionCreateShop    = "CREATE_SHOP"
	ActionUpdateShop    = "UPDATE_SHOP"
	ActionDeleteShop    = "DELETE_SHOP"
	ActionAssignManager = "ASSIGN_SHOP_MANAGER"

	// Restock workflow actions
	ActionCreateRestockRequest   = "CREATE_RESTOCK_REQUEST"
	ActionApproveRestockRequest  = "APPROVE_RESTOCK_REQUEST"
	ActionRejectRestockRequest   = "REJECT_RESTOCK_REQUEST"
	ActionFulfillRestockRequest  = "FULFILL_RESTOCK_REQUEST"
	ActionOverrideRestockStatus  = "OVERRIDE_RESTOCK_STATUS"
	ActionHideRestockRequest     = "HIDE_RESTOCK_REQUEST"
	ActionAutoGenerateRestock    = "AUTO_GENERATE_RESTOCK_REQUEST"
	ActionUpdateInventorySetting = "UPDATE_INVENTORY_SETTINGS"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated trigger
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	ShopID     *uuid.UUID `gorm:"type:uuid;index" json:"shop_id"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
