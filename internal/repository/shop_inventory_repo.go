package repository

import (
	"context"

	"retail-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ShopInventoryRepository interface {
	Create(ctx context.Context, inv *model.ShopInventory) error
	Update(ctx context.Context, inv *model.ShopInventory) error
	FindByPair(ctx context.Context, shopID, productID uuid.UUID) (*model.ShopInventory, error)
	FindByPairForUpdate(ctx context.Context, shopID, productID uuid.UUID) (*model.ShopInventory, error)
	ListByShop(ctx context.Context, shopID uuid.UUID, page, limit int, includeInactive bool) ([]model.ShopInventory, int64, error)
}

type shopInventoryRepository struct {
	db *gorm.DB
}

func NewShopInventoryRepository(db *gorm.DB) ShopInventoryRepository {
	return &shopInventoryRepository{db: db}
}

func (r *shopInventoryRepository) Create(ctx context.Context, inv *model.ShopInventory) error {
	return GetDB(ctx, r.db).Create(inv).Error
}

func (r *shopInventoryRepository) Update(ctx context.Context, inv *model.ShopInventory) error {
	return GetDB(ctx, r.db).Save(inv).Error
}

func (r *shopInventoryRepository) FindByPair(ctx context.Context, shopID, productID uuid.UUID) (*model.ShopInventory, error) {
	var inv model.ShopInventory
	if err := GetDB(ctx, r.db).
		Where("shop_id = ? AND product_id = ?", shopID, productID).
		First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *shopInventoryRepository) FindByPairForUpdate(ctx context.Context, shopID, productID uuid.UUID) (*model.ShopInventory, error) {
	var inv model.ShopInventory
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("shop_id = ? AND product_id = ?", shopID, productID).
		First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *shopInventoryRepository) ListByShop(ctx context.Context, shopID uuid.UUID, page, limit int, includeInactive bool) ([]model.ShopInventory, int64, error) {
	var rows []model.ShopInventory
	var total int64

	db := GetDB(ctx, r.db).Model(&model.ShopInventory{}).Where("shop_id = ?", shopID)
	if !includeInactive {
		db = db.Where("is_active = ?", true)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Product").Order("updated_at desc").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}
