package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the factory master record. TotalStock is the centrally held
// stock available for distribution to shops and is only mutated through
// the stock ledger.
type Product struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SKU           string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalStock    int             `gorm:"type:int;default:0;not null" json:"total_stock"`
	MinStockLevel *int            `gorm:"type:int" json:"min_stock_level"`
	IsActive      bool            `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}

// ShopInventory tracks per-shop, per-product stock. Rows are created lazily
// on the first stock event for a pair and deactivated instead of deleted.
type ShopInventory struct {
	ID                    uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ShopID                uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_shop_product" json:"shop_id"`
	Shop                  *Shop      `gorm:"foreignKey:ShopID" json:"shop,omitempty"`
	ProductID             uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_shop_product" json:"product_id"`
	Product               *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	CurrentStock          int        `gorm:"type:int;default:0;not null" json:"current_stock"`
	MinStockPerItem       *int       `gorm:"type:int" json:"min_stock_per_item"` // overrides Product.MinStockLevel when set
	LowStockAlertsEnabled bool       `gorm:"default:true" json:"low_stock_alerts_enabled"`
	LastRestockDate       *time.Time `json:"last_restock_date"`
	IsActive              bool       `gorm:"default:true" json:"is_active"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// EffectiveThreshold resolves the low-stock threshold for this row: the
// per-item override when set, otherwise the product default. Returns false
// when neither is configured.
func (si *ShopInventory) EffectiveThreshold(product *Product) (int, bool) {
	if si.MinStockPerItem != nil {
		return *si.MinStockPerItem, true
	}
	if product != nil && product.MinStockLevel != nil {
		return *product.MinStockLevel, true
	}
	return 0, false
}

// StockCounter enum constants
const (
	CounterFactory = "FACTORY"
	CounterShop    = "SHOP"
)

// StockMovement records every mutation of either stock counter strictly
type StockMovement struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Counter          string     `gorm:"type:varchar(10);not null;index" json:"counter"` // FACTORY, SHOP
	ProductID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	ShopID           *uuid.UUID `gorm:"type:uuid;index" json:"shop_id"` // Nullable for factory movements
	RestockRequestID *uuid.UUID `gorm:"type:uuid;index" json:"restock_request_id"`
	QuantityChanged  int        `gorm:"type:int;not null" json:"quantity_changed"`
	StockAfter       int        `gorm:"type:int;not null" json:"stock_after"`
	Reason           string     `gorm:"type:varchar(50);not null" json:"reason"`
	CreatedAt        time.Time  `json:"created_at"`
}

// StockMovement reasons
const (
	ReasonRestockFulfillment = "RESTOCK_FULFILLMENT"
	ReasonManualAdjustment   = "MANUAL_ADJUSTMENT"
	ReasonInitialStock       = "INITIAL_STOCK"
)
