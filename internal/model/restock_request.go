package model

import (
	"time"

	"github.com/google/uuid"
)

// RestockRequest status enum. Single vocabulary: legacy "pending" and
// "in_transit" values are migrated at startup (see database package).
const (
	RestockStatusWaiting   = "waiting_for_approval"
	RestockStatusApproved  = "approved_pending"
	RestockStatusFulfilled = "fulfilled"
	RestockStatusRejected  = "rejected"
)

// RestockRequestType enum constants
const (
	RequestTypeRestock      = "RESTOCK"
	RequestTypeInventoryAdd = "INVENTORY_ADD"
)

// RestockRequest is one replenishment transaction between factory stock
// and a shop. Requests are never deleted, only hidden.
type RestockRequest struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ShopID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"shop_id"`
	Shop            *Shop      `gorm:"foreignKey:ShopID" json:"shop,omitempty"`
	ProductID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	Product         *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	RequestedAmount int        `gorm:"type:int;not null" json:"requested_amount"`
	RequestType     string     `gorm:"type:varchar(20);not null;default:'RESTOCK'" json:"request_type"`
	Status          string     `gorm:"type:varchar(30);not null;default:'waiting_for_approval';index" json:"status"`
	Notes           string     `gorm:"type:text" json:"notes"`
	Hidden          bool       `gorm:"default:false;index" json:"hidden"`
	RequestedBy     *uuid.UUID `gorm:"type:uuid;index" json:"requested_by"` // Nullable for auto-generated requests
	Requester       *User      `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	ApprovedBy      *uuid.UUID `gorm:"type:uuid" json:"approved_by"`
	Approver        *User      `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at"`
	FulfilledAt     *time.Time `json:"fulfilled_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsTerminalRestockStatus reports whether no further transition is permitted.
func IsTerminalRestockStatus(status string) bool {
	return status == RestockStatusFulfilled || status == RestockStatusRejected
}

// IsValidRestockStatus reports whether status belongs to the enum.
func IsValidRestockStatus(status string) bool {
	switch status {
	case RestockStatusWaiting, RestockStatusApproved, RestockStatusFulfilled, RestockStatusRejected:
		return true
	}
	return false
}

// CanTransitionRestockStatus encodes the state machine:
// waiting_for_approval -> approved_pending -> fulfilled, with rejection
// possible only from waiting_for_approval. Backing out of an approved
// request is reserved to the admin status override. Terminal states never
// move.
func CanTransitionRestockStatus(from, to string) bool {
	if IsTerminalRestockStatus(from) {
		return false
	}
	switch from {
	case RestockStatusWaiting:
		return to == RestockStatusApproved || to == RestockStatusRejected
	case RestockStatusApproved:
		return to == RestockStatusFulfilled
	}
	return false
}

// CanOverrideRestockStatus is the looser guard for the admin status
// override: any non-terminal request may be forced to any later status,
// including skipping approval straight to fulfilled.
func CanOverrideRestockStatus(from, to string) bool {
	if IsTerminalRestockStatus(from) || !IsValidRestockStatus(to) {
		return false
	}
	return to != from && to != RestockStatusWaiting
}
