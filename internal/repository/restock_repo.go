package repository

import (
	"context"

	"retail-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RestockFilter narrows restock request listings.
type RestockFilter struct {
	ShopIDs       []uuid.UUID // empty means all shops
	Status        string
	IncludeHidden bool
	Page          int
	Limit         int
}

type RestockRepository interface {
	Create(ctx context.Context, req *model.RestockRequest) error
	Update(ctx context.Context, req *model.RestockRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.RestockRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.RestockRequest, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.RestockRequest, error)
	FindApprovedByPair(ctx context.Context, shopID, productID uuid.UUID) (*model.RestockRequest, error)
	ActiveExists(ctx context.Context, shopID, productID uuid.UUID, excludeID *uuid.UUID) (bool, error)
	CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	List(ctx context.Context, filter RestockFilter) ([]model.RestockRequest, int64, error)
}

type restockRepository struct {
	db *gorm.DB
}

func NewRestockRepository(db *gorm.DB) RestockRepository {
	return &restockRepository{db: db}
}

func (r *restockRepository) Create(ctx context.Context, req *model.RestockRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *restockRepository) Update(ctx context.Context, req *model.RestockRequest) error {
	return GetDB(ctx, r.db).Save(req).Error
}

func (r *restockRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.RestockRequest, error) {
	var req model.RestockRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// FindByIDForUpdate locks the request row so two transitions on the same
// request cannot interleave.
func (r *restockRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.RestockRequest, error) {
	var req model.RestockRequest
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *restockRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.RestockRequest, error) {
	var req model.RestockRequest
	if err := GetDB(ctx, r.db).
		Preload("Shop").Preload("Product").Preload("Requester").Preload("Approver").
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// FindApprovedByPair resolves the fulfill-by-(shop, product) form of the
// fulfillment action to the single approved_pending request for that pair.
func (r *restockRepository) FindApprovedByPair(ctx context.Context, shopID, productID uuid.UUID) (*model.RestockRequest, error) {
	var req model.RestockRequest
	if err := GetDB(ctx, r.db).
		Where("shop_id = ? AND product_id = ? AND status = ?", shopID, productID, model.RestockStatusApproved).
		Order("created_at asc").
		First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// ActiveExists reports whether a non-terminal request already exists for the
// pair. The low-stock trigger checks this before auto-generating a request;
// excludeID skips the request currently being fulfilled, whose status flip
// has not been written yet.
func (r *restockRepository) ActiveExists(ctx context.Context, shopID, productID uuid.UUID, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := GetDB(ctx, r.db).Model(&model.RestockRequest{}).
		Where("shop_id = ? AND product_id = ? AND status IN ?",
			shopID, productID, []string{model.RestockStatusWaiting, model.RestockStatusApproved})
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	err := query.Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *restockRepository) CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.RestockRequest{}).
		Where("product_id = ?", productID).
		Count(&count).Error
	return count, err
}

func (r *restockRepository) List(ctx context.Context, filter RestockFilter) ([]model.RestockRequest, int64, error) {
	var requests []model.RestockRequest
	var total int64

	apply := func(db *gorm.DB) *gorm.DB {
		if len(filter.ShopIDs) > 0 {
			db = db.Where("shop_id IN ?", filter.ShopIDs)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if !filter.IncludeHidden {
			db = db.Where("hidden = ?", false)
		}
		return db
	}

	if err := apply(GetDB(ctx, r.db).Model(&model.RestockRequest{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := apply(GetDB(ctx, r.db).
		Preload("Shop").Preload("Product").Preload("Requester").Preload("Approver")).
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}
