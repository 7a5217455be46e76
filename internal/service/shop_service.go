package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"retail-backend/internal/model"
	"retail-backend/internal/repository"

	"github.com/google/uuid"
)

// DTOs
type CreateShopRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type UpdateShopRequest struct {
	Name     string `json:"name" binding:"required"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	IsActive *bool  `json:"is_active"`
}

type AssignManagerRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

type ShopResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Phone       string  `json:"phone"`
	ManagerID   *string `json:"manager_id"`
	ManagerName string  `json:"manager_name,omitempty"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
}

type ShopService interface {
	CreateShop(ctx context.Context, actor Actor, req CreateShopRequest) (ShopResponse, error)
	UpdateShop(ctx context.Context, actor Actor, id string, req UpdateShopRequest) (ShopResponse, error)
	DeleteShop(ctx context.Context, actor Actor, id string) error
	GetShop(ctx context.Context, actor Actor, id string) (ShopResponse, error)
	ListShops(ctx context.Context, actor Actor, page, limit int, search string) ([]ShopResponse, int64, error)
	AssignManager(ctx context.Context, actor Actor, shopID string, req AssignManagerRequest) (ShopResponse, error)
}

type shopService struct {
	shopRepo  repository.ShopRepository
	userRepo  repository.UserRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	notifier  Notifier
}

func NewShopService(
	shopRepo repository.ShopRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
) ShopService {
	return &shopService{
		shopRepo:  shopRepo,
		userRepo:  userRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		notifier:  notifier,
	}
}

func (s *shopService) CreateShop(ctx context.Context, actor Actor, req CreateShopRequest) (ShopResponse, error) {
	if !actor.IsAdmin() {
		return ShopResponse{}, fmt.Errorf("creating shops requires admin: %w", ErrForbidden)
	}

	shop := &model.Shop{
		Name:     req.Name,
		Address:  req.Address,
		Phone:    req.Phone,
		IsActive: true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.shopRepo.Create(txCtx, shop); err != nil {
			return fmt.Errorf("failed to create shop: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     &actor.UserID,
			ShopID:     &shop.ID,
			Action:     model.ActionCreateShop,
			EntityID:   shop.ID.String(),
			EntityName: shop.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return ShopResponse{}, err
	}

	return toShopResponse(shop), nil
}

func (s *shopService) UpdateShop(ctx context.Context, actor Actor, id string, req UpdateShopRequest) (ShopResponse, error) {
	if !actor.IsAdmin() {
		return ShopResponse{}, fmt.Errorf("updating shops requires admin: %w", ErrForbidden)
	}
	shopID, err := uuid.Parse(id)
	if err != nil {
		return ShopResponse{}, fmt.Errorf("shop id: %w", ErrValidation)
	}

	shop, err := s.shopRepo.FindByID(ctx, shopID)
	if err != nil {
		return ShopResponse{}, notFoundOr(err, "shop")
	}

	shop.Name = req.Name
	shop.Address = req.Address
	shop.Phone = req.Phone
	if req.IsActive != nil {
		shop.IsActive = *req.IsActive
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.shopRepo.Update(txCtx, shop); err != nil {
			return fmt.Errorf("failed to update shop: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     &actor.UserID,
			ShopID:     &shop.ID,
			Action:     model.ActionUpdateShop,
			EntityID:   shop.ID.String(),
			EntityName: shop.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return ShopResponse{}, err
	}

	return toShopResponse(shop), nil
}

func (s *shopService) DeleteShop(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("deleting shops requires admin: %w", ErrForbidden)
	}
	shopID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("shop id: %w", ErrValidation)
	}

	shop, err := s.shopRepo.FindByID(ctx, shopID)
	if err != nil {
		return notFoundOr(err, "shop")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.shopRepo.Delete(txCtx, shopID); err != nil {
			return fmt.Errorf("failed to delete shop: %w", err)
		}

		audit := &model.AuditLog{
			UserID:     &actor.UserID,
			ShopID:     &shop.ID,
			Action:     model.ActionDeleteShop,
			EntityID:   shop.ID.String(),
			EntityName: shop.Name,
			Details:    `{"deleted": true}`,
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
}

func (s *shopService) GetShop(ctx context.Context, actor Actor, id string) (ShopResponse, error) {
	shopID, err := uuid.Parse(id)
	if err != nil {
		return ShopResponse{}, fmt.Errorf("shop id: %w", ErrValidation)
	}

	if !actor.IsAdmin() {
		managed, err := s.shopRepo.IsManagedBy(ctx, shopID, actor.UserID)
		if err != nil {
			return ShopResponse{}, fmt.Errorf("failed to check shop ownership: %w", err)
		}
		if !managed {
			return ShopResponse{}, fmt.Errorf("shop is not managed by caller: %w", ErrForbidden)
		}
	}

	shop, err := s.shopRepo.FindByID(ctx, shopID)
	if err != nil {
		return ShopResponse{}, notFoundOr(err, "shop")
	}
	return toShopResponse(shop), nil
}

// ListShops returns every shop for admins and only managed shops for
// shop owners.
func (s *shopService) ListShops(ctx context.Context, actor Actor, page, limit int, search string) ([]ShopResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	if actor.IsAdmin() {
		shops, total, err := s.shopRepo.List(ctx, page, limit, search)
		if err != nil {
			return nil, 0, err
		}
		res := make([]ShopResponse, 0, len(shops))
		for i := range shops {
			res = append(res, toShopResponse(&shops[i]))
		}
		return res, total, nil
	}

	shops, err := s.shopRepo.ListManagedBy(ctx, actor.UserID)
	if err != nil {
		return nil, 0, err
	}
	res := make([]ShopResponse, 0, len(shops))
	for i := range shops {
		res = append(res, toShopResponse(&shops[i]))
	}
	return res, int64(len(res)), nil
}

// AssignManager sets the derived manager pointer and records membership in
// the authoritative user_shops relation.
func (s *shopService) AssignManager(ctx context.Context, actor Actor, shopID string, req AssignManagerRequest) (ShopResponse, error) {
	if !actor.IsAdmin() {
		return ShopResponse{}, fmt.Errorf("assigning managers requires admin: %w", ErrForbidden)
	}
	sid, err := uuid.Parse(shopID)
	if err != nil {
		return ShopResponse{}, fmt.Errorf("shop id: %w", ErrValidation)
	}

	shop, err := s.shopRepo.FindByID(ctx, sid)
	if err != nil {
		return ShopResponse{}, notFoundOr(err, "shop")
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return ShopResponse{}, notFoundOr(err, "user")
	}
	if user.Role != model.RoleShopOwner {
		return ShopResponse{}, fmt.Errorf("user %s is not a shop owner: %w", user.Username, ErrValidation)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		shop.ManagerID = &user.ID
		if err := s.shopRepo.Update(txCtx, shop); err != nil {
			return fmt.Errorf("failed to update shop: %w", err)
		}
		if err := s.shopRepo.AddMember(txCtx, shop.ID, user.ID); err != nil {
			return fmt.Errorf("failed to record shop membership: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{"manager_id": user.ID.String(), "manager": user.Username})
		audit := &model.AuditLog{
			UserID:     &actor.UserID,
			ShopID:     &shop.ID,
			Action:     model.ActionAssignManager,
			EntityID:   shop.ID.String(),
			EntityName: shop.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return ShopResponse{}, err
	}

	s.notifier.NotifyUser(ctx, user.ID, NotificationPayload{
		Type:      model.NotificationTypeSystem,
		Title:     "Shop assignment",
		Message:   fmt.Sprintf("You are now the manager of %s", shop.Name),
		RelatedID: &shop.ID,
	})

	return s.getFresh(ctx, shop.ID)
}

func (s *shopService) getFresh(ctx context.Context, id uuid.UUID) (ShopResponse, error) {
	shop, err := s.shopRepo.FindByID(ctx, id)
	if err != nil {
		return ShopResponse{}, fmt.Errorf("failed to reload shop: %w", err)
	}
	return toShopResponse(shop), nil
}

func toShopResponse(shop *model.Shop) ShopResponse {
	resp := ShopResponse{
		ID:        shop.ID.String(),
		Name:      shop.Name,
		Address:   shop.Address,
		Phone:     shop.Phone,
		IsActive:  shop.IsActive,
		CreatedAt: shop.CreatedAt.Format(time.RFC3339),
	}
	if shop.ManagerID != nil {
		v := shop.ManagerID.String()
		resp.ManagerID = &v
	}
	if shop.Manager != nil {
		resp.ManagerName = shop.Manager.Username
	}
	return resp
}
