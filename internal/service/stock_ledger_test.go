package service

import (
	"context"
	"errors"
	"testing"

	"retail-backend/internal/model"
	"retail-backend/internal/repository"

	"github.com/google/uuid"
)

func TestAdjustFactoryStock_AppliesDeltaAndRecordsMovement(t *testing.T) {
	f := newFixture()
	product := f.seedProduct("Widget", 100, nil)
	ctx := context.Background()

	updated, update, events, err := f.ledger.AdjustFactoryStock(ctx, product.ID, -30, model.ReasonManualAdjustment, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.TotalStock != 70 {
		t.Errorf("expected total stock 70, got %d", updated.TotalStock)
	}
	if update.PreviousStock != 100 || update.NewStock != 70 || update.Delta != -30 {
		t.Errorf("unexpected update: %+v", update)
	}
	if update.Counter != model.CounterFactory {
		t.Errorf("expected FACTORY counter, got %s", update.Counter)
	}
	if len(events) != 0 {
		t.Errorf("expected no low stock events, got %d", len(events))
	}
	if f.factoryStock(product.ID) != 70 {
		t.Errorf("stock not persisted, got %d", f.factoryStock(product.ID))
	}

	movements, _, err := (&memMovementRepo{state: f.state}).ListByProduct(ctx, product.ID, 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(movements))
	}
	if movements[0].QuantityChanged != -30 || movements[0].StockAfter != 70 {
		t.Errorf("unexpected movement: %+v", movements[0])
	}
}

func TestAdjustFactoryStock_NegativeGuard(t *testing.T) {
	f := newFixture()
	product := f.seedProduct("Widget", 10, nil)

	_, _, _, err := f.ledger.AdjustFactoryStock(context.Background(), product.ID, -11, model.ReasonManualAdjustment, nil)
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Available != 10 || stockErr.Requested != 11 {
		t.Errorf("unexpected error fields: %+v", stockErr)
	}
	if f.factoryStock(product.ID) != 10 {
		t.Errorf("stock changed despite guard, got %d", f.factoryStock(product.ID))
	}
}

func TestAdjustFactoryStock_UnknownProduct(t *testing.T) {
	f := newFixture()

	_, _, _, err := f.ledger.AdjustFactoryStock(context.Background(), uuid.New(), 5, model.ReasonManualAdjustment, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdjustFactoryStock_LowStockEventAtThreshold(t *testing.T) {
	f := newFixture()
	product := f.seedProduct("Widget", 50, intPtr(20))

	_, _, events, err := f.ledger.AdjustFactoryStock(context.Background(), product.ID, -30, model.ReasonManualAdjustment, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 low stock event, got %d", len(events))
	}
	event := events[0]
	if event.Counter != model.CounterFactory {
		t.Errorf("expected FACTORY event, got %s", event.Counter)
	}
	if event.CurrentStock != 20 || event.Threshold != 20 {
		t.Errorf("unexpected event: %+v", event)
	}
	if event.AutoRequestID != nil {
		t.Error("factory events must not auto-generate requests")
	}
}

func TestAdjustShopInventory_LazyCreate(t *testing.T) {
	f := newFixture()
	product := f.seedProduct("Widget", 100, nil)
	shop := f.seedShop("Downtown", nil)

	inv, update, _, err := f.ledger.AdjustShopInventory(context.Background(), shop.ID, product.ID, 40, model.ReasonRestockFulfillment, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.CurrentStock != 40 {
		t.Errorf("expected stock 40, got %d", inv.CurrentStock)
	}
	if inv.LastRestockDate == nil {
		t.Error("expected last restock date on positive delta")
	}
	if !inv.LowStockAlertsEnabled || !inv.IsActive {
		t.Errorf("new row missing defaults: %+v", inv)
	}
	if update.PreviousStock != 0 || update.NewStock != 40 {
		t.Errorf("unexpected update: %+v", update)
	}
	if f.shopStock(shop.ID, product.ID) != 40 {
		t.Errorf("inventory not persisted, got %d", f.shopStock(shop.ID, product.ID))
	}
}

func TestAdjustShopInventory_NegativeGuard(t *testing.T) {
	f := newFixture()
	product := f.seedProduct("Widget", 100, nil)
	shop := f.seedShop("Downtown", nil)
	ctx := context.Background()

	if _, _, _, err := f.ledger.AdjustShopInventory(ctx, shop.ID, product.ID, 5, model.ReasonRestockFulfillment, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, _, err := f.ledger.AdjustShopInventory(ctx, shop.ID, product.ID, -6, model.ReasonManualAdjustment, nil)
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Available != 5 || stockErr.Requested != 6 {
		t.Errorf("unexpected error fields: %+v", stockErr)
	}
	if f.shopStock(shop.ID, product.ID) != 5 {
		t.Errorf("stock changed despite guard, got %d", f.shopStock(shop.ID, product.ID))
	}
}

func TestAdjustShopInventory_LowStockAutoGeneratesRequest(t *testing.T) {
	f := newFixture()
	product := f.seedProduct("Widget", 100, intPtr(10))
	shop := f.seedShop("Downtown", nil)
	ctx := context.Background()

	if _, _, _, err := f.ledger.AdjustShopInventory(ctx, shop.ID, product.ID, 20, model.ReasonRestockFulfillment, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, events, err := f.ledger.AdjustShopInventory(ctx, shop.ID, product.ID, -12, model.ReasonManualAdjustment, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 low stock event, got %d", len(events))
	}
	event := events[0]
	if event.CurrentStock != 8 || event.Threshold != 10 {
		t.Errorf("unexpected event: %+v", event)
	}
	if event.AutoRequestID == nil {
		t.Fatal("expected auto-generated request")
	}

	auto, err := f.restockRepo.FindByID(ctx, *event.AutoRequestID)
	if err != nil {
		t.Fatalf("auto request not persisted: %v", err)
	}
	if auto.RequestedAmount != 20 {
		t.Errorf("expected requested amount 20 (threshold x2), got %d", auto.RequestedAmount)
	}
	if auto.Status != model.RestockStatusWaiting {
		t.Errorf("expected waiting status, got %s", auto.Status)
	}
	if auto.RequestedBy != nil {
		t.Error("auto-generated request must have no requester")
	}
	if auto.Notes != "Auto-generated low stock replenishment" {
		t.Errorf("unexpected notes: %q", auto.Notes)
	}

	audits, _, err := (&memAuditRepo{state: f.state}).List(ctx, repository.AuditFilter{Action: model.ActionAutoGenerateRestock})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(audits) != 1 {
		t.Fatalf("expected 1 audit entry for the auto-generated request, got %d", len(audits))
	}
	if audits[0].EntityID != auto.ID.String() {
		t.Errorf("audit entry references %s, want %s", audits[0].EntityID, auto.ID)
	}
	if audits[0].UserID != nil {
		t.Error("auto-generation audit entry must have no user")
	}
}

func TestAdjustShopInventory_AutoGenerationSuppressedByActiveRequest(t *testing.T) {
	f := newFixture()
	product := f.seedProduct("Widget", 100, intPtr(10))
	shop := f.seedShop("Downtown", nil)
	ctx := context.Background()

	f.seedRequest(shop.ID, product.ID, 15, model.RestockStatusWaiting)

	if _, _, _, err := f.ledger.AdjustShopInventory(ctx, shop.ID, product.ID, 20, model.ReasonRestockFulfillment, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _, events, err := f.ledger.AdjustShopInventory(ctx, shop.ID, product.ID, -12, model.ReasonManualAdjustment, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected the low stock event to fire, got %d", len(events))
	}
	if events[0].AutoRequestID != nil {
		t.Error("auto-generation must be suppressed while an active request exists")
	}

	count, _ := f.restockRepo.CountByProduct(ctx, product.ID)
	if count != 1 {
		t.Errorf("expected exactly 1 request, got %d", count)
	}
}

func TestAdjustShopInventory_AlertsDisabled(t *testing.T) {
	f := newFixture()
	product := f.seedProduct("Widget", 100, intPtr(10))
	shop := f.seedShop("Downtown", nil)
	ctx := context.Background()

	inv := &model.ShopInventory{
		ShopID:                shop.ID,
		ProductID:             product.ID,
		CurrentStock:          20,
		LowStockAlertsEnabled: false,
		IsActive:              true,
	}
	if err := f.invRepo.Create(ctx, inv); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, _, events, err := f.ledger.AdjustShopInventory(ctx, shop.ID, product.ID, -15, model.ReasonManualAdjustment, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events with alerts disabled, got %d", len(events))
	}
}

func TestAdjustShopInventory_PerItemThresholdOverridesProduct(t *testing.T) {
	f := newFixture()
	product := f.seedProduct("Widget", 100, intPtr(5))
	shop := f.seedShop("Downtown", nil)
	ctx := context.Background()

	inv := &model.ShopInventory{
		ShopID:                shop.ID,
		ProductID:             product.ID,
		CurrentStock:          20,
		MinStockPerItem:       intPtr(15),
		LowStockAlertsEnabled: true,
		IsActive:              true,
	}
	if err := f.invRepo.Create(ctx, inv); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// 12 is above the product default (5) but under the per-item override (15).
	_, _, events, err := f.ledger.AdjustShopInventory(ctx, shop.ID, product.ID, -8, model.ReasonManualAdjustment, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected the override threshold to fire, got %d events", len(events))
	}
	if events[0].Threshold != 15 {
		t.Errorf("expected threshold 15, got %d", events[0].Threshold)
	}
	if events[0].AutoRequestID == nil {
		t.Fatal("expected auto-generated request")
	}
	auto, _ := f.restockRepo.FindByID(ctx, *events[0].AutoRequestID)
	if auto.RequestedAmount != 30 {
		t.Errorf("expected amount 30 (override x2), got %d", auto.RequestedAmount)
	}
}

func TestAdjustShopInventory_NoThresholdConfigured(t *testing.T) {
	f := newFixture()
	product := f.seedProduct("Widget", 100, nil)
	shop := f.seedShop("Downtown", nil)
	ctx := context.Background()

	if _, _, _, err := f.ledger.AdjustShopInventory(ctx, shop.ID, product.ID, 3, model.ReasonRestockFulfillment, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _, events, err := f.ledger.AdjustShopInventory(ctx, shop.ID, product.ID, -3, model.ReasonManualAdjustment, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events without a threshold, got %d", len(events))
	}
}
