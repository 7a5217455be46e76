package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"retail-backend/internal/model"
	"retail-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LowStockEvent is produced when a mutation leaves a counter at or under
// its threshold. Events are collected inside the transaction and dispatched
// by the caller after commit.
type LowStockEvent struct {
	Counter       string     `json:"counter"` // FACTORY, SHOP
	ProductID     uuid.UUID  `json:"product_id"`
	ProductName   string     `json:"product_name"`
	ShopID        *uuid.UUID `json:"shop_id,omitempty"`
	CurrentStock  int        `json:"current_stock"`
	Threshold     int        `json:"threshold"`
	AutoRequestID *uuid.UUID `json:"auto_request_id,omitempty"` // set when a restock request was auto-generated
}

// StockUpdate describes a committed counter mutation for the broadcast feed.
type StockUpdate struct {
	Counter       string     `json:"counter"`
	ProductID     uuid.UUID  `json:"product_id"`
	ShopID        *uuid.UUID `json:"shop_id,omitempty"`
	PreviousStock int        `json:"previous_stock"`
	NewStock      int        `json:"new_stock"`
	Delta         int        `json:"delta"`
	Reason        string     `json:"reason"`
}

// StockLedger is the only sanctioned path to mutate the two stock counters.
// Both operations must run inside an ambient transaction (context carrying
// the tx) so the calling workflow can combine them atomically.
type StockLedger interface {
	AdjustFactoryStock(ctx context.Context, productID uuid.UUID, delta int, reason string, requestID *uuid.UUID) (*model.Product, *StockUpdate, []LowStockEvent, error)
	AdjustShopInventory(ctx context.Context, shopID, productID uuid.UUID, delta int, reason string, requestID *uuid.UUID) (*model.ShopInventory, *StockUpdate, []LowStockEvent, error)
}

type stockLedger struct {
	productRepo  repository.ProductRepository
	invRepo      repository.ShopInventoryRepository
	movementRepo repository.StockMovementRepository
	restockRepo  repository.RestockRepository
	auditRepo    repository.AuditRepository
}

func NewStockLedger(
	productRepo repository.ProductRepository,
	invRepo repository.ShopInventoryRepository,
	movementRepo repository.StockMovementRepository,
	restockRepo repository.RestockRepository,
	auditRepo repository.AuditRepository,
) StockLedger {
	return &stockLedger{
		productRepo:  productRepo,
		invRepo:      invRepo,
		movementRepo: movementRepo,
		restockRepo:  restockRepo,
		auditRepo:    auditRepo,
	}
}

// AdjustFactoryStock applies delta to Product.TotalStock under a row lock.
// The negative-stock guard runs against the locked read, so concurrent
// fulfillments of the same product serialize and the second one re-checks
// stock the first one already consumed.
func (l *stockLedger) AdjustFactoryStock(ctx context.Context, productID uuid.UUID, delta int, reason string, requestID *uuid.UUID) (*model.Product, *StockUpdate, []LowStockEvent, error) {
	product, err := l.productRepo.FindByIDForUpdate(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return nil, nil, nil, fmt.Errorf("failed to lock product: %w", err)
	}

	previous := product.TotalStock
	newStock := previous + delta
	if newStock < 0 {
		return nil, nil, nil, &InsufficientStockError{
			ProductName: product.Name,
			Available:   previous,
			Requested:   -delta,
		}
	}

	if err := l.productRepo.UpdateStock(ctx, product.ID, newStock); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to update factory stock: %w", err)
	}
	product.TotalStock = newStock

	movement := &model.StockMovement{
		Counter:          model.CounterFactory,
		ProductID:        product.ID,
		RestockRequestID: requestID,
		QuantityChanged:  delta,
		StockAfter:       newStock,
		Reason:           reason,
	}
	if err := l.movementRepo.Create(ctx, movement); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to record stock movement: %w", err)
	}

	update := &StockUpdate{
		Counter:       model.CounterFactory,
		ProductID:     product.ID,
		PreviousStock: previous,
		NewStock:      newStock,
		Delta:         delta,
		Reason:        reason,
	}

	var events []LowStockEvent
	if product.MinStockLevel != nil && newStock <= *product.MinStockLevel {
		events = append(events, LowStockEvent{
			Counter:      model.CounterFactory,
			ProductID:    product.ID,
			ProductName:  product.Name,
			CurrentStock: newStock,
			Threshold:    *product.MinStockLevel,
		})
	}

	return product, update, events, nil
}

// AdjustShopInventory applies delta to the shop's counter, lazily creating
// the row on the first stock event for the pair. A low-stock breach emits
// an event and, when no non-terminal request exists for the pair, also
// auto-generates a replenishment request inside the same transaction.
func (l *stockLedger) AdjustShopInventory(ctx context.Context, shopID, productID uuid.UUID, delta int, reason string, requestID *uuid.UUID) (*model.ShopInventory, *StockUpdate, []LowStockEvent, error) {
	product, err := l.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return nil, nil, nil, fmt.Errorf("failed to load product: %w", err)
	}

	now := time.Now()
	var inv *model.ShopInventory
	previous := 0

	inv, err = l.invRepo.FindByPairForUpdate(ctx, shopID, productID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		initial := delta
		if initial < 0 {
			initial = 0
		}
		inv = &model.ShopInventory{
			ShopID:                shopID,
			ProductID:             productID,
			CurrentStock:          initial,
			LowStockAlertsEnabled: true,
			IsActive:              true,
		}
		if delta > 0 {
			inv.LastRestockDate = &now
		}
		if err := l.invRepo.Create(ctx, inv); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create shop inventory: %w", err)
		}
	case err != nil:
		return nil, nil, nil, fmt.Errorf("failed to lock shop inventory: %w", err)
	default:
		previous = inv.CurrentStock
		newStock := previous + delta
		if newStock < 0 {
			return nil, nil, nil, &InsufficientStockError{
				ProductName: product.Name,
				Available:   previous,
				Requested:   -delta,
			}
		}
		inv.CurrentStock = newStock
		if delta > 0 {
			inv.LastRestockDate = &now
		}
		if err := l.invRepo.Update(ctx, inv); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to update shop inventory: %w", err)
		}
	}

	movement := &model.StockMovement{
		Counter:          model.CounterShop,
		ProductID:        productID,
		ShopID:           &shopID,
		RestockRequestID: requestID,
		QuantityChanged:  inv.CurrentStock - previous,
		StockAfter:       inv.CurrentStock,
		Reason:           reason,
	}
	if err := l.movementRepo.Create(ctx, movement); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to record stock movement: %w", err)
	}

	update := &StockUpdate{
		Counter:       model.CounterShop,
		ProductID:     productID,
		ShopID:        &shopID,
		PreviousStock: previous,
		NewStock:      inv.CurrentStock,
		Delta:         inv.CurrentStock - previous,
		Reason:        reason,
	}

	events, err := l.evaluateShopThreshold(ctx, inv, product, requestID)
	if err != nil {
		return nil, nil, nil, err
	}

	return inv, update, events, nil
}

// evaluateShopThreshold runs the low-stock trigger for one shop inventory
// row. Auto-generation is suppressed while any non-terminal request exists
// for the pair so pending requests do not pile up. The request driving the
// current mutation is excluded from that check: during fulfillment it is
// still approved_pending and must not suppress its own follow-up.
func (l *stockLedger) evaluateShopThreshold(ctx context.Context, inv *model.ShopInventory, product *model.Product, excludeRequestID *uuid.UUID) ([]LowStockEvent, error) {
	if !inv.LowStockAlertsEnabled {
		return nil, nil
	}
	threshold, ok := inv.EffectiveThreshold(product)
	if !ok || inv.CurrentStock > threshold {
		return nil, nil
	}

	event := LowStockEvent{
		Counter:      model.CounterShop,
		ProductID:    product.ID,
		ProductName:  product.Name,
		ShopID:       &inv.ShopID,
		CurrentStock: inv.CurrentStock,
		Threshold:    threshold,
	}

	exists, err := l.restockRepo.ActiveExists(ctx, inv.ShopID, product.ID, excludeRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active restock requests: %w", err)
	}
	if !exists {
		auto := &model.RestockRequest{
			ShopID:          inv.ShopID,
			ProductID:       product.ID,
			RequestedAmount: threshold * 2,
			RequestType:     model.RequestTypeRestock,
			Status:          model.RestockStatusWaiting,
			Notes:           "Auto-generated low stock replenishment",
		}
		if err := l.restockRepo.Create(ctx, auto); err != nil {
			return nil, fmt.Errorf("failed to auto-generate restock request: %w", err)
		}
		event.AutoRequestID = &auto.ID

		details, _ := json.Marshal(map[string]interface{}{
			"product":          product.Name,
			"current_stock":    inv.CurrentStock,
			"threshold":        threshold,
			"requested_amount": auto.RequestedAmount,
		})
		entry := &model.AuditLog{
			ShopID:     &inv.ShopID,
			Action:     model.ActionAutoGenerateRestock,
			EntityID:   auto.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}
		if err := l.auditRepo.Log(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to audit auto-generated request: %w", err)
		}
	}

	return []LowStockEvent{event}, nil
}
