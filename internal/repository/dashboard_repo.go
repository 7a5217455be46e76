package repository

import (
	"context"

	"retail-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestStatusCount is one row of the per-status request breakdown.
type RequestStatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// LowStockProduct is a factory product at or under its threshold.
type LowStockProduct struct {
	ProductID     uuid.UUID `json:"product_id"`
	ProductName   string    `json:"product_name"`
	ProductSKU    string    `json:"product_sku"`
	TotalStock    int       `json:"total_stock"`
	MinStockLevel int       `json:"min_stock_level"`
}

type DashboardRepository interface {
	CountRequestsByStatus(ctx context.Context, shopIDs []uuid.UUID) ([]RequestStatusCount, error)
	ListLowStockProducts(ctx context.Context, limit int) ([]LowStockProduct, error)
	TotalFactoryUnits(ctx context.Context) (int64, error)
	CountActiveShops(ctx context.Context) (int64, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) CountRequestsByStatus(ctx context.Context, shopIDs []uuid.UUID) ([]RequestStatusCount, error) {
	var counts []RequestStatusCount
	db := GetDB(ctx, r.db).Model(&model.RestockRequest{}).
		Select("status, COUNT(*) as count").
		Where("hidden = ?", false)
	if len(shopIDs) > 0 {
		db = db.Where("shop_id IN ?", shopIDs)
	}
	if err := db.Group("status").Scan(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *dashboardRepository) ListLowStockProducts(ctx context.Context, limit int) ([]LowStockProduct, error) {
	var products []LowStockProduct
	err := GetDB(ctx, r.db).Model(&model.Product{}).
		Select("id as product_id, name as product_name, sku as product_sku, total_stock, min_stock_level").
		Where("is_active = ? AND min_stock_level IS NOT NULL AND total_stock <= min_stock_level", true).
		Order("total_stock ASC").
		Limit(limit).
		Scan(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *dashboardRepository) TotalFactoryUnits(ctx context.Context) (int64, error) {
	var result struct {
		Total int64
	}
	err := GetDB(ctx, r.db).Model(&model.Product{}).
		Select("COALESCE(SUM(total_stock), 0) as total").
		Where("is_active = ?", true).
		Scan(&result).Error
	return result.Total, err
}

func (r *dashboardRepository) CountActiveShops(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Shop{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}
