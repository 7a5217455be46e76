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
type UpdateInventorySettingsRequest struct {
	MinStockPerItem       *int  `json:"min_stock_per_item" binding:"omitempty,min=0"`
	LowStockAlertsEnabled *bool `json:"low_stock_alerts_enabled"`
}

type AdjustShopStockRequest struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason"`
}

type ShopInventoryResponse struct {
	ID                    string  `json:"id"`
	ShopID                string  `json:"shop_id"`
	ProductID             string  `json:"product_id"`
	ProductName           string  `json:"product_name,omitempty"`
	ProductSKU            string  `json:"product_sku,omitempty"`
	CurrentStock          int     `json:"current_stock"`
	MinStockPerItem       *int    `json:"min_stock_per_item"`
	LowStockAlertsEnabled bool    `json:"low_stock_alerts_enabled"`
	LastRestockDate       *string `json:"last_restock_date"`
	IsActive              bool    `json:"is_active"`
}

// ShopInventoryService covers the per-shop stock surface: listings,
// threshold settings, and direct admin adjustments through the ledger.
type ShopInventoryService interface {
	ListByShop(ctx context.Context, actor Actor, shopID string, page, limit int) ([]ShopInventoryResponse, int64, error)
	UpdateSettings(ctx context.Context, actor Actor, shopID, productID string, req UpdateInventorySettingsRequest) (ShopInventoryResponse, error)
	Deactivate(ctx context.Context, actor Actor, shopID, productID string) error
	AdjustStock(ctx context.Context, actor Actor, shopID, productID string, req AdjustShopStockRequest) (ShopInventoryResponse, error)
}

type shopInventoryService struct {
	invRepo   repository.ShopInventoryRepository
	shopRepo  repository.ShopRepository
	auditRepo repository.AuditRepository
	ledger    StockLedger
	txManager repository.TransactionManager
	notifier  Notifier
}

func NewShopInventoryService(
	invRepo repository.ShopInventoryRepository,
	shopRepo repository.ShopRepository,
	auditRepo repository.AuditRepository,
	ledger StockLedger,
	txManager repository.TransactionManager,
	notifier Notifier,
) ShopInventoryService {
	return &shopInventoryService{
		invRepo:   invRepo,
		shopRepo:  shopRepo,
		auditRepo: auditRepo,
		ledger:    ledger,
		txManager: txManager,
		notifier:  notifier,
	}
}

func (s *shopInventoryService) ListByShop(ctx context.Context, actor Actor, shopID string, page, limit int) ([]ShopInventoryResponse, int64, error) {
	id, err := uuid.Parse(shopID)
	if err != nil {
		return nil, 0, fmt.Errorf("shop id: %w", ErrValidation)
	}
	if err := s.authorize(ctx, actor, id); err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	rows, total, err := s.invRepo.ListByShop(ctx, id, page, limit, actor.IsAdmin())
	if err != nil {
		return nil, 0, err
	}

	res := make([]ShopInventoryResponse, 0, len(rows))
	for i := range rows {
		res = append(res, toShopInventoryResponse(&rows[i]))
	}
	return res, total, nil
}

func (s *shopInventoryService) UpdateSettings(ctx context.Context, actor Actor, shopID, productID string, req UpdateInventorySettingsRequest) (ShopInventoryResponse, error) {
	sid, pid, err := parsePair(shopID, productID)
	if err != nil {
		return ShopInventoryResponse{}, err
	}
	if err := s.authorize(ctx, actor, sid); err != nil {
		return ShopInventoryResponse{}, err
	}

	var inv *model.ShopInventory
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		inv, err = s.invRepo.FindByPairForUpdate(txCtx, sid, pid)
		if err != nil {
			return notFoundOr(err, "shop inventory")
		}

		inv.MinStockPerItem = req.MinStockPerItem
		if req.LowStockAlertsEnabled != nil {
			inv.LowStockAlertsEnabled = *req.LowStockAlertsEnabled
		}
		if err := s.invRepo.Update(txCtx, inv); err != nil {
			return fmt.Errorf("failed to update inventory settings: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:   &actor.UserID,
			ShopID:   &sid,
			Action:   model.ActionUpdateInventorySetting,
			EntityID: inv.ID.String(),
			Details:  string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return ShopInventoryResponse{}, err
	}

	return toShopInventoryResponse(inv), nil
}

// Deactivate soft-removes the row. The core never hard-deletes inventory.
func (s *shopInventoryService) Deactivate(ctx context.Context, actor Actor, shopID, productID string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("deactivating inventory requires admin: %w", ErrForbidden)
	}
	sid, pid, err := parsePair(shopID, productID)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		inv, err := s.invRepo.FindByPairForUpdate(txCtx, sid, pid)
		if err != nil {
			return notFoundOr(err, "shop inventory")
		}
		inv.IsActive = false
		if err := s.invRepo.Update(txCtx, inv); err != nil {
			return fmt.Errorf("failed to deactivate shop inventory: %w", err)
		}

		audit := &model.AuditLog{
			UserID:   &actor.UserID,
			ShopID:   &sid,
			Action:   model.ActionUpdateInventorySetting,
			EntityID: inv.ID.String(),
			Details:  `{"is_active": false}`,
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
}

// AdjustStock lets admins correct a shop counter (shrinkage, recounts)
// through the same guarded ledger path fulfillment uses.
func (s *shopInventoryService) AdjustStock(ctx context.Context, actor Actor, shopID, productID string, req AdjustShopStockRequest) (ShopInventoryResponse, error) {
	if !actor.IsAdmin() {
		return ShopInventoryResponse{}, fmt.Errorf("adjusting shop stock requires admin: %w", ErrForbidden)
	}
	sid, pid, err := parsePair(shopID, productID)
	if err != nil {
		return ShopInventoryResponse{}, err
	}
	reason := req.Reason
	if reason == "" {
		reason = model.ReasonManualAdjustment
	}

	var inv *model.ShopInventory
	var update *StockUpdate
	var events []LowStockEvent

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		inv, update, events, err = s.ledger.AdjustShopInventory(txCtx, sid, pid, req.Delta, reason, nil)
		if err != nil {
			return err
		}

		details, _ := json.Marshal(map[string]interface{}{
			"delta":          req.Delta,
			"previous_stock": update.PreviousStock,
			"new_stock":      update.NewStock,
			"reason":         reason,
		})
		audit := &model.AuditLog{
			UserID:   &actor.UserID,
			ShopID:   &sid,
			Action:   model.ActionAdjustStock,
			EntityID: pid.String(),
			Details:  string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return ShopInventoryResponse{}, err
	}

	s.notifier.Broadcast("stock_update", update)
	for _, event := range events {
		s.dispatchLowStock(ctx, event)
	}

	return toShopInventoryResponse(inv), nil
}

func (s *shopInventoryService) dispatchLowStock(ctx context.Context, event LowStockEvent) {
	payload := NotificationPayload{
		Type:     model.NotificationTypeLowStock,
		Priority: model.NotificationPriorityHigh,
		Title:    "Low stock alert",
		Message: fmt.Sprintf("%s is at %d (threshold %d)",
			event.ProductName, event.CurrentStock, event.Threshold),
		Data: map[string]interface{}{
			"product_id":    event.ProductID.String(),
			"current_stock": event.CurrentStock,
			"threshold":     event.Threshold,
			"counter":       event.Counter,
		},
		RelatedID: &event.ProductID,
	}
	if event.ShopID != nil {
		s.notifier.NotifyShop(ctx, *event.ShopID, payload)
	} else {
		s.notifier.NotifyRole(ctx, model.RoleAdmin, payload)
	}
	if event.AutoRequestID != nil {
		s.notifier.NotifyRole(ctx, model.RoleAdmin, NotificationPayload{
			Type:      model.NotificationTypeRestock,
			Title:     "Restock request auto-generated",
			Message:   fmt.Sprintf("Low stock on %s triggered an automatic replenishment request", event.ProductName),
			Data:      map[string]interface{}{"request_id": event.AutoRequestID.String()},
			RelatedID: event.AutoRequestID,
		})
	}
}

func (s *shopInventoryService) authorize(ctx context.Context, actor Actor, shopID uuid.UUID) error {
	if actor.IsAdmin() {
		return nil
	}
	managed, err := s.shopRepo.IsManagedBy(ctx, shopID, actor.UserID)
	if err != nil {
		return fmt.Errorf("failed to check shop ownership: %w", err)
	}
	if !managed {
		return fmt.Errorf("shop is not managed by caller: %w", ErrForbidden)
	}
	return nil
}

func parsePair(shopID, productID string) (uuid.UUID, uuid.UUID, error) {
	sid, err := uuid.Parse(shopID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("shop id: %w", ErrValidation)
	}
	pid, err := uuid.Parse(productID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("product id: %w", ErrValidation)
	}
	return sid, pid, nil
}

func toShopInventoryResponse(inv *model.ShopInventory) ShopInventoryResponse {
	resp := ShopInventoryResponse{
		ID:                    inv.ID.String(),
		ShopID:                inv.ShopID.String(),
		ProductID:             inv.ProductID.String(),
		CurrentStock:          inv.CurrentStock,
		MinStockPerItem:       inv.MinStockPerItem,
		LowStockAlertsEnabled: inv.LowStockAlertsEnabled,
		IsActive:              inv.IsActive,
	}
	if inv.Product != nil {
		resp.ProductName = inv.Product.Name
		resp.ProductSKU = inv.Product.SKU
	}
	if inv.LastRestockDate != nil {
		v := inv.LastRestockDate.Format(time.RFC3339)
		resp.LastRestockDate = &v
	}
	return resp
}
