package repository

import (
	"context"

	"retail-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ShopRepository interface {
	Create(ctx context.Context, shop *model.Shop) error
	Update(ctx context.Context, shop *model.Shop) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Shop, error)
	List(ctx context.Context, page, limit int, search string) ([]model.Shop, int64, error)
	ListManagedBy(ctx context.Context, userID uuid.UUID) ([]model.Shop, error)
	IsManagedBy(ctx context.Context, shopID, userID uuid.UUID) (bool, error)
	AddMember(ctx context.Context, shopID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, shopID, userID uuid.UUID) error
}

type shopRepository struct {
	db *gorm.DB
}

func NewShopRepository(db *gorm.DB) ShopRepository {
	return &shopRepository{db: db}
}

func (r *shopRepository) Create(ctx context.Context, shop *model.Shop) error {
	return GetDB(ctx, r.db).Create(shop).Error
}

func (r *shopRepository) Update(ctx context.Context, shop *model.Shop) error {
	return GetDB(ctx, r.db).Save(shop).Error
}

func (r *shopRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Shop{}).Error
}

func (r *shopRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Shop, error) {
	var shop model.Shop
	if err := GetDB(ctx, r.db).Preload("Manager").First(&shop, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepository) List(ctx context.Context, page, limit int, search string) ([]model.Shop, int64, error) {
	var shops []model.Shop
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Shop{})
	if search != "" {
		db = db.Where("name ILIKE ?", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Manager").Order("created_at desc").Offset(offset).Limit(limit).Find(&shops).Error; err != nil {
		return nil, 0, err
	}

	return shops, total, nil
}

// ListManagedBy returns shops where the user is either the manager pointer
// or a member of the user_shops relation.
func (r *shopRepository) ListManagedBy(ctx context.Context, userID uuid.UUID) ([]model.Shop, error) {
	var shops []model.Shop
	err := GetDB(ctx, r.db).
		Where("manager_id = ? OR id IN (SELECT shop_id FROM user_shops WHERE user_id = ?)", userID, userID).
		Find(&shops).Error
	if err != nil {
		return nil, err
	}
	return shops, nil
}

func (r *shopRepository) IsManagedBy(ctx context.Context, shopID, userID uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Shop{}).
		Where("id = ? AND (manager_id = ? OR id IN (SELECT shop_id FROM user_shops WHERE user_id = ?))",
			shopID, userID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *shopRepository) AddMember(ctx context.Context, shopID, userID uuid.UUID) error {
	return GetDB(ctx, r.db).Exec(
		"INSERT INTO user_shops (shop_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		shopID, userID).Error
}

func (r *shopRepository) RemoveMember(ctx context.Context, shopID, userID uuid.UUID) error {
	return GetDB(ctx, r.db).Exec(
		"DELETE FROM user_shops WHERE shop_id = ? AND user_id = ?", shopID, userID).Error
}
