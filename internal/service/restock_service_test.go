package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"retail-backend/internal/model"
	"retail-backend/internal/repository"

	"github.com/google/uuid"
)

func TestRestockLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ownerID := uuid.New()
	shop := f.seedShop("Downtown", &ownerID)
	product := f.seedProduct("Widget", 100, nil)
	owner := ownerActorFor(shop)

	created, err := f.restock.Create(ctx, owner, CreateRestockRequestDTO{
		ShopID:          shop.ID.String(),
		ProductID:       product.ID.String(),
		RequestedAmount: 50,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Status != model.RestockStatusWaiting {
		t.Errorf("expected waiting status, got %s", created.Status)
	}
	if created.RequestedBy == nil || *created.RequestedBy != ownerID.String() {
		t.Errorf("expected requester %s, got %v", ownerID, created.RequestedBy)
	}

	approved, err := f.restock.Approve(ctx, adminActor, created.ID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != model.RestockStatusApproved {
		t.Errorf("expected approved status, got %s", approved.Status)
	}
	if approved.ApprovedBy == nil || approved.ApprovedAt == nil {
		t.Error("approval fields not set")
	}
	// Approval checks availability but must not move stock.
	if f.factoryStock(product.ID) != 100 {
		t.Errorf("approval moved stock: factory at %d", f.factoryStock(product.ID))
	}

	fulfilled, err := f.restock.Fulfill(ctx, adminActor, created.ID)
	if err != nil {
		t.Fatalf("fulfill failed: %v", err)
	}
	if fulfilled.Status != model.RestockStatusFulfilled {
		t.Errorf("expected fulfilled status, got %s", fulfilled.Status)
	}
	if fulfilled.FulfilledAt == nil {
		t.Error("fulfilled_at not set")
	}
	if got := f.factoryStock(product.ID); got != 50 {
		t.Errorf("expected factory stock 50, got %d", got)
	}
	if got := f.shopStock(shop.ID, product.ID); got != 50 {
		t.Errorf("expected shop stock 50, got %d", got)
	}
}

func TestCreate_RejectsUnmanagedShop(t *testing.T) {
	f := newFixture()
	ownerID := uuid.New()
	f.seedShop("Mine", &ownerID)
	other := f.seedShop("Theirs", nil)
	product := f.seedProduct("Widget", 100, nil)

	_, err := f.restock.Create(context.Background(), Actor{UserID: ownerID, Role: model.RoleShopOwner}, CreateRestockRequestDTO{
		ShopID:          other.ID.String(),
		ProductID:       product.ID.String(),
		RequestedAmount: 10,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCreate_RejectsInactiveProduct(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	shop := f.seedShop("Downtown", nil)
	product := f.seedProduct("Widget", 100, nil)
	product.IsActive = false
	if err := f.productRepo.Update(ctx, product); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, err := f.restock.Create(ctx, adminActor, CreateRestockRequestDTO{
		ShopID:          shop.ID.String(),
		ProductID:       product.ID.String(),
		RequestedAmount: 10,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestApprove_InsufficientStockLeavesStatus(t *testing.T) {
	f := newFixture()
	shop := f.seedShop("Downtown", nil)
	product := f.seedProduct("Widget", 5, nil)
	req := f.seedRequest(shop.ID, product.ID, 10, model.RestockStatusWaiting)

	_, err := f.restock.Approve(context.Background(), adminActor, req.ID.String())
	if !IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}
	if got := f.requestStatus(req.ID); got != model.RestockStatusWaiting {
		t.Errorf("status changed to %s on failed approval", got)
	}
}

func TestFulfill_InsufficientStockLeavesStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	shop := f.seedShop("Downtown", nil)
	product := f.seedProduct("Widget", 100, nil)
	req := f.seedRequest(shop.ID, product.ID, 60, model.RestockStatusApproved)

	// Stock moved elsewhere between approval and fulfillment.
	if _, _, _, err := f.ledger.AdjustFactoryStock(ctx, product.ID, -50, model.ReasonManualAdjustment, nil); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, err := f.restock.Fulfill(ctx, adminActor, req.ID.String())
	if !IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}
	if got := f.requestStatus(req.ID); got != model.RestockStatusApproved {
		t.Errorf("expected request to stay approved_pending, got %s", got)
	}
	if got := f.factoryStock(product.ID); got != 50 {
		t.Errorf("factory stock changed on failed fulfillment, got %d", got)
	}
	if got := f.shopStock(shop.ID, product.ID); got != 0 {
		t.Errorf("shop stock changed on failed fulfillment, got %d", got)
	}
}

func TestFulfill_RollsBackFactoryLegWhenShopLegFails(t *testing.T) {
	f := newFixture()
	shop := f.seedShop("Downtown", nil)
	product := f.seedProduct("Widget", 100, nil)
	req := f.seedRequest(shop.ID, product.ID, 40, model.RestockStatusApproved)

	f.invRepo.createErr = fmt.Errorf("connection reset")

	_, err := f.restock.Fulfill(context.Background(), adminActor, req.ID.String())
	if err == nil {
		t.Fatal("expected fulfillment to fail")
	}
	if got := f.factoryStock(product.ID); got != 100 {
		t.Errorf("factory decrement survived the rollback, stock %d", got)
	}
	if got := f.requestStatus(req.ID); got != model.RestockStatusApproved {
		t.Errorf("expected request to stay approved_pending, got %s", got)
	}
}

func TestFulfill_TerminalRequestsAreImmutable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	shop := f.seedShop("Downtown", nil)
	product := f.seedProduct("Widget", 100, nil)
	req := f.seedRequest(shop.ID, product.ID, 30, model.RestockStatusApproved)

	if _, err := f.restock.Fulfill(ctx, adminActor, req.ID.String()); err != nil {
		t.Fatalf("first fulfill failed: %v", err)
	}

	_, err := f.restock.Fulfill(ctx, adminActor, req.ID.String())
	if !IsStateTransition(err) {
		t.Fatalf("expected state transition error, got %v", err)
	}
	// The double fulfill must not move stock again.
	if got := f.factoryStock(product.ID); got != 70 {
		t.Errorf("expected factory stock 70, got %d", got)
	}

	_, err = f.restock.Reject(ctx, adminActor, req.ID.String(), "too late")
	if !IsStateTransition(err) {
		t.Fatalf("expected state transition error on rejecting fulfilled, got %v", err)
	}

	rejected := f.seedRequest(shop.ID, product.ID, 10, model.RestockStatusRejected)
	_, err = f.restock.Approve(ctx, adminActor, rejected.ID.String())
	if !IsStateTransition(err) {
		t.Fatalf("expected state transition error on approving rejected, got %v", err)
	}
}

func TestFulfill_ConcurrentRequestsOneWins(t *testing.T) {
	f := newFixture()
	shop := f.seedShop("Downtown", nil)
	product := f.seedProduct("Widget", 100, nil)
	first := f.seedRequest(shop.ID, product.ID, 60, model.RestockStatusApproved)
	second := f.seedRequest(shop.ID, product.ID, 60, model.RestockStatusApproved)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, id := range []uuid.UUID{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, results[i] = f.restock.Fulfill(context.Background(), adminActor, id.String())
		}(i, id)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else if !IsInsufficientStock(err) {
			t.Errorf("loser got unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one fulfillment to win, got %d", successes)
	}
	if got := f.factoryStock(product.ID); got != 40 {
		t.Errorf("expected factory stock 40, got %d", got)
	}
	if got := f.shopStock(shop.ID, product.ID); got != 60 {
		t.Errorf("expected shop stock 60, got %d", got)
	}
}

func TestFulfill_LowStockGeneratesFollowUpRequest(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	shop := f.seedShop("Downtown", nil)
	product := f.seedProduct("Widget", 100, intPtr(10))
	req := f.seedRequest(shop.ID, product.ID, 5, model.RestockStatusApproved)

	if _, err := f.restock.Fulfill(ctx, adminActor, req.ID.String()); err != nil {
		t.Fatalf("fulfill failed: %v", err)
	}
	if got := f.shopStock(shop.ID, product.ID); got != 5 {
		t.Fatalf("expected shop stock 5, got %d", got)
	}

	// Fulfillment left the shop under its threshold and the fulfilled
	// request is terminal, so a fresh replenishment request must exist.
	exists, err := f.restockRepo.ActiveExists(ctx, shop.ID, product.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Fatal("expected an auto-generated follow-up request for the pair")
	}
	count, _ := f.restockRepo.CountByProduct(ctx, product.ID)
	if count != 2 {
		t.Errorf("expected 2 requests for the product, got %d", count)
	}

	list, _, err := f.restockRepo.List(ctx, repository.RestockFilter{
		ShopIDs: []uuid.UUID{shop.ID},
		Status:  model.RestockStatusWaiting,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 waiting follow-up, got %d", len(list))
	}
	if list[0].RequestedAmount != 20 {
		t.Errorf("expected follow-up amount 20 (threshold x2), got %d", list[0].RequestedAmount)
	}
	if list[0].RequestedBy != nil {
		t.Error("follow-up request must have no requester")
	}
}

func TestReject_ApprovedRequestRequiresOverride(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ownerID := uuid.New()
	shop := f.seedShop("Downtown", &ownerID)
	product := f.seedProduct("Widget", 100, nil)
	req := f.seedRequest(shop.ID, product.ID, 10, model.RestockStatusApproved)

	_, err := f.restock.Reject(ctx, ownerActorFor(shop), req.ID.String(), "changed my mind")
	if !IsStateTransition(err) {
		t.Fatalf("expected state transition error, got %v", err)
	}
	if got := f.requestStatus(req.ID); got != model.RestockStatusApproved {
		t.Errorf("status changed to %s on refused rejection", got)
	}

	// Admins too must go through the status override once approved.
	_, err = f.restock.Reject(ctx, adminActor, req.ID.String(), "cancel")
	if !IsStateTransition(err) {
		t.Fatalf("expected state transition error for admin, got %v", err)
	}

	resp, err := f.restock.UpdateStatus(ctx, adminActor, req.ID.String(), UpdateRestockStatusDTO{
		Status: model.RestockStatusRejected,
		Notes:  "cancelled after approval",
	})
	if err != nil {
		t.Fatalf("override reject failed: %v", err)
	}
	if resp.Status != model.RestockStatusRejected {
		t.Errorf("expected rejected status, got %s", resp.Status)
	}
}

func TestFulfillByPair_ResolvesApprovedRequest(t *testing.T) {
	f := newFixture()
	shop := f.seedShop("Downtown", nil)
	product := f.seedProduct("Widget", 100, nil)
	f.seedRequest(shop.ID, product.ID, 25, model.RestockStatusWaiting)
	approved := f.seedRequest(shop.ID, product.ID, 30, model.RestockStatusApproved)

	resp, err := f.restock.FulfillByPair(context.Background(), adminActor, FulfillByPairDTO{
		ShopID:    shop.ID.String(),
		ProductID: product.ID.String(),
	})
	if err != nil {
		t.Fatalf("fulfill by pair failed: %v", err)
	}
	if resp.ID != approved.ID.String() {
		t.Errorf("fulfilled wrong request: %s", resp.ID)
	}
	if got := f.factoryStock(product.ID); got != 70 {
		t.Errorf("expected factory stock 70, got %d", got)
	}
}

func TestReject_SetsNotes(t *testing.T) {
	f := newFixture()
	shop := f.seedShop("Downtown", nil)
	product := f.seedProduct("Widget", 100, nil)
	req := f.seedRequest(shop.ID, product.ID, 10, model.RestockStatusWaiting)

	resp, err := f.restock.Reject(context.Background(), adminActor, req.ID.String(), "over budget")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if resp.Status != model.RestockStatusRejected {
		t.Errorf("expected rejected status, got %s", resp.Status)
	}
	if resp.Notes != "over budget" {
		t.Errorf("expected notes to carry the reason, got %q", resp.Notes)
	}
}

func TestUpdateStatus_RequiresAdmin(t *testing.T) {
	f := newFixture()
	ownerID := uuid.New()
	shop := f.seedShop("Downtown", &ownerID)
	product := f.seedProduct("Widget", 100, nil)
	req := f.seedRequest(shop.ID, product.ID, 10, model.RestockStatusWaiting)

	_, err := f.restock.UpdateStatus(context.Background(), ownerActorFor(shop), req.ID.String(), UpdateRestockStatusDTO{
		Status: model.RestockStatusFulfilled,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestUpdateStatus_OverrideFulfillsFromWaiting(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	shop := f.seedShop("Downtown", nil)
	product := f.seedProduct("Widget", 100, nil)
	req := f.seedRequest(shop.ID, product.ID, 30, model.RestockStatusWaiting)

	resp, err := f.restock.UpdateStatus(ctx, adminActor, req.ID.String(), UpdateRestockStatusDTO{
		Status: model.RestockStatusFulfilled,
	})
	if err != nil {
		t.Fatalf("override failed: %v", err)
	}
	if resp.Status != model.RestockStatusFulfilled {
		t.Errorf("expected fulfilled status, got %s", resp.Status)
	}
	// Skipping approval still records who forced it through.
	if resp.ApprovedBy == nil || *resp.ApprovedBy != adminActor.UserID.String() {
		t.Errorf("expected approval backfilled to %s, got %v", adminActor.UserID, resp.ApprovedBy)
	}
	if resp.ApprovedAt == nil || resp.FulfilledAt == nil {
		t.Error("expected approval and fulfillment timestamps")
	}
	if got := f.factoryStock(product.ID); got != 70 {
		t.Errorf("expected factory stock 70, got %d", got)
	}
	if got := f.shopStock(shop.ID, product.ID); got != 30 {
		t.Errorf("expected shop stock 30, got %d", got)
	}
}

func TestUpdateStatus_RejectsUnknownAndTerminal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	shop := f.seedShop("Downtown", nil)
	product := f.seedProduct("Widget", 100, nil)

	waiting := f.seedRequest(shop.ID, product.ID, 10, model.RestockStatusWaiting)
	_, err := f.restock.UpdateStatus(ctx, adminActor, waiting.ID.String(), UpdateRestockStatusDTO{Status: "shipped"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown status, got %v", err)
	}

	done := f.seedRequest(shop.ID, product.ID, 10, model.RestockStatusRejected)
	_, err = f.restock.UpdateStatus(ctx, adminActor, done.ID.String(), UpdateRestockStatusDTO{Status: model.RestockStatusApproved})
	if !IsStateTransition(err) {
		t.Fatalf("expected state transition error for terminal request, got %v", err)
	}
}

func TestHide_AdminOnlyAndFiltersListings(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ownerID := uuid.New()
	shop := f.seedShop("Downtown", &ownerID)
	product := f.seedProduct("Widget", 100, nil)
	req := f.seedRequest(shop.ID, product.ID, 10, model.RestockStatusWaiting)

	_, err := f.restock.Hide(ctx, ownerActorFor(shop), req.ID.String())
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for owner, got %v", err)
	}

	resp, err := f.restock.Hide(ctx, adminActor, req.ID.String())
	if err != nil {
		t.Fatalf("hide failed: %v", err)
	}
	if !resp.Hidden {
		t.Error("expected hidden flag")
	}
	if resp.Status != model.RestockStatusWaiting {
		t.Errorf("hiding must not touch status, got %s", resp.Status)
	}

	visible, _, err := f.restock.List(ctx, adminActor, RestockListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(visible) != 0 {
		t.Errorf("hidden request leaked into default listing: %d rows", len(visible))
	}

	all, _, err := f.restock.List(ctx, adminActor, RestockListFilter{IncludeHidden: true})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected hidden request for admin with include_hidden, got %d rows", len(all))
	}

	// include_hidden is ignored for non-admins.
	none, _, err := f.restock.List(ctx, ownerActorFor(shop), RestockListFilter{IncludeHidden: true})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("owner saw hidden request: %d rows", len(none))
	}
}

func TestList_ScopesOwnersToManagedShops(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ownerID := uuid.New()
	mine := f.seedShop("Mine", &ownerID)
	theirs := f.seedShop("Theirs", nil)
	product := f.seedProduct("Widget", 100, nil)

	f.seedRequest(mine.ID, product.ID, 10, model.RestockStatusWaiting)
	f.seedRequest(theirs.ID, product.ID, 20, model.RestockStatusWaiting)

	owner := Actor{UserID: ownerID, Role: model.RoleShopOwner}
	rows, total, err := f.restock.List(ctx, owner, RestockListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("expected 1 visible request, got %d", len(rows))
	}
	if rows[0].ShopID != mine.ID.String() {
		t.Errorf("owner saw request for foreign shop %s", rows[0].ShopID)
	}

	_, _, err = f.restock.List(ctx, owner, RestockListFilter{ShopID: theirs.ID.String()})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign shop filter, got %v", err)
	}

	rows, _, err = f.restock.List(ctx, adminActor, RestockListFilter{ShopID: "ALL"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected admin to see both requests, got %d", len(rows))
	}
}

func TestGet_EnforcesOwnership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ownerID := uuid.New()
	f.seedShop("Mine", &ownerID)
	theirs := f.seedShop("Theirs", nil)
	product := f.seedProduct("Widget", 100, nil)
	req := f.seedRequest(theirs.ID, product.ID, 10, model.RestockStatusWaiting)

	_, err := f.restock.Get(ctx, Actor{UserID: ownerID, Role: model.RoleShopOwner}, req.ID.String())
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if _, err := f.restock.Get(ctx, adminActor, req.ID.String()); err != nil {
		t.Fatalf("admin get failed: %v", err)
	}
}

func TestFulfill_NotifiesAndBroadcasts(t *testing.T) {
	f := newFixture()
	shop := f.seedShop("Downtown", nil)
	product := f.seedProduct("Widget", 100, intPtr(60))
	req := f.seedRequest(shop.ID, product.ID, 70, model.RestockStatusApproved)

	if _, err := f.restock.Fulfill(context.Background(), adminActor, req.ID.String()); err != nil {
		t.Fatalf("fulfill failed: %v", err)
	}

	// Dropping factory stock to 30 breaches its threshold of 60; the shop
	// side lands at 70, above it.
	if got := f.notifier.countType(model.NotificationTypeLowStock); got != 1 {
		t.Errorf("expected 1 low stock notification, got %d", got)
	}

	sawStockUpdate := false
	sawRequest := false
	f.notifier.mu.Lock()
	for _, b := range f.notifier.broadcasts {
		switch b.event {
		case "stock_update":
			sawStockUpdate = true
		case "restock_request":
			sawRequest = true
		}
	}
	f.notifier.mu.Unlock()
	if !sawStockUpdate || !sawRequest {
		t.Errorf("missing broadcasts: stock_update=%v restock_request=%v", sawStockUpdate, sawRequest)
	}
}
