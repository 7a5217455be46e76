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
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Actor is the resolved caller identity handed down by the auth middleware.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// --- DTOs ---

type CreateRestockRequestDTO struct {
	ShopID          string `json:"shop_id" binding:"required,uuid"`
	ProductID       string `json:"product_id" binding:"required,uuid"`
	RequestedAmount int    `json:"requested_amount" binding:"required,gt=0"`
	RequestType     string `json:"request_type" binding:"omitempty,oneof=RESTOCK INVENTORY_ADD"`
	Notes           string `json:"notes"`
}

type RejectRestockDTO struct {
	Notes string `json:"notes"`
}

type UpdateRestockStatusDTO struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

type FulfillByPairDTO struct {
	ShopID    string `json:"shop_id" binding:"required,uuid"`
	ProductID string `json:"product_id" binding:"required,uuid"`
}

type RestockListFilter struct {
	ShopID        string // empty or "ALL" for every visible shop
	Status        string
	IncludeHidden bool
	Page          int
	Limit         int
}

type RestockRequestResponse struct {
	ID              string  `json:"id"`
	ShopID          string  `json:"shop_id"`
	ShopName        string  `json:"shop_name,omitempty"`
	ProductID       string  `json:"product_id"`
	ProductName     string  `json:"product_name,omitempty"`
	ProductSKU      string  `json:"product_sku,omitempty"`
	RequestedAmount int     `json:"requested_amount"`
	RequestType     string  `json:"request_type"`
	Status          string  `json:"status"`
	Notes           string  `json:"notes"`
	Hidden          bool    `json:"hidden"`
	RequestedBy     *string `json:"requested_by"`
	RequesterName   string  `json:"requester_name,omitempty"`
	ApprovedBy      *string `json:"approved_by"`
	ApproverName    string  `json:"approver_name,omitempty"`
	ApprovedAt      *string `json:"approved_at"`
	FulfilledAt     *string `json:"fulfilled_at"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// --- Interface ---

// RestockService orchestrates the restock request state machine:
// waiting_for_approval -> approved_pending -> fulfilled, with rejection
// from waiting_for_approval only. Approval only reserves intent; the
// factory decrement and shop increment happen at fulfillment, as one
// transaction, after re-checking current stock.
type RestockService interface {
	Create(ctx context.Context, actor Actor, req CreateRestockRequestDTO) (RestockRequestResponse, error)
	Approve(ctx context.Context, actor Actor, id string) (RestockRequestResponse, error)
	Reject(ctx context.Context, actor Actor, id string, notes string) (RestockRequestResponse, error)
	Fulfill(ctx context.Context, actor Actor, id string) (RestockRequestResponse, error)
	FulfillByPair(ctx context.Context, actor Actor, req FulfillByPairDTO) (RestockRequestResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, id string, req UpdateRestockStatusDTO) (RestockRequestResponse, error)
	Hide(ctx context.Context, actor Actor, id string) (RestockRequestResponse, error)
	Get(ctx context.Context, actor Actor, id string) (RestockRequestResponse, error)
	List(ctx context.Context, actor Actor, filter RestockListFilter) ([]RestockRequestResponse, int64, error)
}

type restockService struct {
	restockRepo repository.RestockRepository
	productRepo repository.ProductRepository
	shopRepo    repository.ShopRepository
	auditRepo   repository.AuditRepository
	ledger      StockLedger
	txManager   repository.TransactionManager
	notifier    Notifier
}

func NewRestockService(
	restockRepo repository.RestockRepository,
	productRepo repository.ProductRepository,
	shopRepo repository.ShopRepository,
	auditRepo repository.AuditRepository,
	ledger StockLedger,
	txManager repository.TransactionManager,
	notifier Notifier,
) RestockService {
	return &restockService{
		restockRepo: restockRepo,
		productRepo: productRepo,
		shopRepo:    shopRepo,
		auditRepo:   auditRepo,
		ledger:      ledger,
		txManager:   txManager,
		notifier:    notifier,
	}
}

// stockEffects accumulates side effects produced inside the transaction so
// they can be dispatched best-effort after commit.
type stockEffects struct {
	updates  []*StockUpdate
	lowStock []LowStockEvent
}

// --- Implementation ---

func (s *restockService) Create(ctx context.Context, actor Actor, req CreateRestockRequestDTO) (RestockRequestResponse, error) {
	shopID, err := uuid.Parse(req.ShopID)
	if err != nil {
		return RestockRequestResponse{}, fmt.Errorf("shop_id: %w", ErrValidation)
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return RestockRequestResponse{}, fmt.Errorf("product_id: %w", ErrValidation)
	}
	if req.RequestedAmount <= 0 {
		return RestockRequestResponse{}, fmt.Errorf("requested_amount must be positive: %w", ErrValidation)
	}
	requestType := req.RequestType
	if requestType == "" {
		requestType = model.RequestTypeRestock
	}

	if err := s.authorizeShopAction(ctx, actor, shopID); err != nil {
		return RestockRequestResponse{}, err
	}

	shop, err := s.shopRepo.FindByID(ctx, shopID)
	if err != nil {
		return RestockRequestResponse{}, notFoundOr(err, "shop")
	}
	if !shop.IsActive {
		return RestockRequestResponse{}, fmt.Errorf("shop %s is inactive: %w", shop.Name, ErrValidation)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return RestockRequestResponse{}, notFoundOr(err, "product")
	}
	if !product.IsActive {
		return RestockRequestResponse{}, fmt.Errorf("product %s is inactive: %w", product.Name, ErrValidation)
	}

	request := &model.RestockRequest{
		ShopID:          shopID,
		ProductID:       productID,
		RequestedAmount: req.RequestedAmount,
		RequestType:     requestType,
		Status:          model.RestockStatusWaiting,
		Notes:           req.Notes,
		RequestedBy:     &actor.UserID,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.restockRepo.Create(txCtx, request); err != nil {
			return fmt.Errorf("failed to create restock request: %w", err)
		}
		return s.audit(txCtx, actor, model.ActionCreateRestockRequest, request, map[string]interface{}{
			"shop":             shop.Name,
			"product":          product.Name,
			"requested_amount": req.RequestedAmount,
			"request_type":     requestType,
		})
	})
	if err != nil {
		return RestockRequestResponse{}, err
	}

	s.notifier.NotifyRole(ctx, model.RoleAdmin, NotificationPayload{
		Type:      model.NotificationTypeRestock,
		Title:     "New restock request",
		Message:   fmt.Sprintf("%s requested %d x %s", shop.Name, req.RequestedAmount, product.Name),
		Data:      map[string]interface{}{"request_id": request.ID.String(), "status": request.Status},
		RelatedID: &request.ID,
	})
	s.broadcastRequest(request)

	return s.reload(ctx, request.ID)
}

func (s *restockService) Approve(ctx context.Context, actor Actor, id string) (RestockRequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RestockRequestResponse{}, fmt.Errorf("request id: %w", ErrValidation)
	}

	var request *model.RestockRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, err = s.restockRepo.FindByIDForUpdate(txCtx, requestID)
		if err != nil {
			return notFoundOr(err, "restock request")
		}
		if err := s.authorizeShopAction(txCtx, actor, request.ShopID); err != nil {
			return err
		}
		if !model.CanTransitionRestockStatus(request.Status, model.RestockStatusApproved) {
			return &StateTransitionError{RequestID: request.ID.String(), From: request.Status, To: model.RestockStatusApproved}
		}

		// Availability check only, stock is not reserved here. It is
		// re-checked at fulfillment because stock may move in between.
		product, err := s.productRepo.FindByID(txCtx, request.ProductID)
		if err != nil {
			return notFoundOr(err, "product")
		}
		if product.TotalStock < request.RequestedAmount {
			return &InsufficientStockError{
				ProductName: product.Name,
				Available:   product.TotalStock,
				Requested:   request.RequestedAmount,
			}
		}

		now := time.Now()
		previous := request.Status
		request.Status = model.RestockStatusApproved
		request.ApprovedBy = &actor.UserID
		request.ApprovedAt = &now
		if err := s.restockRepo.Update(txCtx, request); err != nil {
			return fmt.Errorf("failed to update restock request: %w", err)
		}

		return s.audit(txCtx, actor, model.ActionApproveRestockRequest, request, map[string]interface{}{
			"previous_status":  previous,
			"new_status":       request.Status,
			"requested_amount": request.RequestedAmount,
		})
	})
	if err != nil {
		return RestockRequestResponse{}, err
	}

	s.notifyStatusChange(ctx, request, "Restock request approved")
	s.broadcastRequest(request)

	return s.reload(ctx, request.ID)
}

func (s *restockService) Reject(ctx context.Context, actor Actor, id string, notes string) (RestockRequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RestockRequestResponse{}, fmt.Errorf("request id: %w", ErrValidation)
	}

	var request *model.RestockRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, err = s.restockRepo.FindByIDForUpdate(txCtx, requestID)
		if err != nil {
			return notFoundOr(err, "restock request")
		}
		if err := s.authorizeShopAction(txCtx, actor, request.ShopID); err != nil {
			return err
		}
		if !model.CanTransitionRestockStatus(request.Status, model.RestockStatusRejected) {
			return &StateTransitionError{RequestID: request.ID.String(), From: request.Status, To: model.RestockStatusRejected}
		}

		previous := request.Status
		request.Status = model.RestockStatusRejected
		if notes != "" {
			request.Notes = notes
		}
		if err := s.restockRepo.Update(txCtx, request); err != nil {
			return fmt.Errorf("failed to update restock request: %w", err)
		}

		return s.audit(txCtx, actor, model.ActionRejectRestockRequest, request, map[string]interface{}{
			"previous_status": previous,
			"new_status":      request.Status,
			"notes":           notes,
		})
	})
	if err != nil {
		return RestockRequestResponse{}, err
	}

	s.notifyStatusChange(ctx, request, "Restock request rejected")
	s.broadcastRequest(request)

	return s.reload(ctx, request.ID)
}

func (s *restockService) Fulfill(ctx context.Context, actor Actor, id string) (RestockRequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RestockRequestResponse{}, fmt.Errorf("request id: %w", ErrValidation)
	}
	return s.fulfillByID(ctx, actor, requestID, model.ActionFulfillRestockRequest)
}

// FulfillByPair resolves the single approved_pending request for the
// (shop, product) pair and fulfills it.
func (s *restockService) FulfillByPair(ctx context.Context, actor Actor, req FulfillByPairDTO) (RestockRequestResponse, error) {
	shopID, err := uuid.Parse(req.ShopID)
	if err != nil {
		return RestockRequestResponse{}, fmt.Errorf("shop_id: %w", ErrValidation)
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return RestockRequestResponse{}, fmt.Errorf("product_id: %w", ErrValidation)
	}

	request, err := s.restockRepo.FindApprovedByPair(ctx, shopID, productID)
	if err != nil {
		return RestockRequestResponse{}, notFoundOr(err, "approved restock request for pair")
	}
	return s.fulfillByID(ctx, actor, request.ID, model.ActionFulfillRestockRequest)
}

func (s *restockService) fulfillByID(ctx context.Context, actor Actor, requestID uuid.UUID, action string) (RestockRequestResponse, error) {
	var request *model.RestockRequest
	var fx stockEffects

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		request, err = s.restockRepo.FindByIDForUpdate(txCtx, requestID)
		if err != nil {
			return notFoundOr(err, "restock request")
		}
		if err := s.authorizeShopAction(txCtx, actor, request.ShopID); err != nil {
			return err
		}
		if !model.CanTransitionRestockStatus(request.Status, model.RestockStatusFulfilled) {
			return &StateTransitionError{RequestID: request.ID.String(), From: request.Status, To: model.RestockStatusFulfilled}
		}
		return s.applyFulfillment(txCtx, actor, request, action, &fx)
	})
	if err != nil {
		return RestockRequestResponse{}, err
	}

	s.dispatchStockEffects(ctx, request, &fx)
	s.notifyStatusChange(ctx, request, "Restock request fulfilled")
	s.broadcastRequest(request)

	return s.reload(ctx, request.ID)
}

// applyFulfillment runs both ledger legs and the status flip inside the
// caller's transaction. The request row is already locked. If either leg
// fails the transaction rolls back and the request status is unchanged.
func (s *restockService) applyFulfillment(txCtx context.Context, actor Actor, request *model.RestockRequest, action string, fx *stockEffects) error {
	_, factoryUpdate, factoryEvents, err := s.ledger.AdjustFactoryStock(
		txCtx, request.ProductID, -request.RequestedAmount, model.ReasonRestockFulfillment, &request.ID)
	if err != nil {
		return err
	}

	_, shopUpdate, shopEvents, err := s.ledger.AdjustShopInventory(
		txCtx, request.ShopID, request.ProductID, request.RequestedAmount, model.ReasonRestockFulfillment, &request.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	previous := request.Status
	request.Status = model.RestockStatusFulfilled
	request.FulfilledAt = &now
	if request.ApprovedAt == nil {
		// Admin override can fulfill straight from waiting_for_approval.
		request.ApprovedBy = &actor.UserID
		request.ApprovedAt = &now
	}
	if err := s.restockRepo.Update(txCtx, request); err != nil {
		return fmt.Errorf("failed to update restock request: %w", err)
	}

	fx.updates = append(fx.updates, factoryUpdate, shopUpdate)
	fx.lowStock = append(fx.lowStock, factoryEvents...)
	fx.lowStock = append(fx.lowStock, shopEvents...)

	return s.audit(txCtx, actor, action, request, map[string]interface{}{
		"previous_status":  previous,
		"new_status":       request.Status,
		"requested_amount": request.RequestedAmount,
		"factory_stock":    factoryUpdate.NewStock,
		"shop_stock":       shopUpdate.NewStock,
	})
}

// UpdateStatus is the admin override: it may force any non-terminal request
// to a later status. Forcing fulfilled performs the full fulfillment stock
// effects; terminal states stay immutable.
func (s *restockService) UpdateStatus(ctx context.Context, actor Actor, id string, req UpdateRestockStatusDTO) (RestockRequestResponse, error) {
	if !actor.IsAdmin() {
		return RestockRequestResponse{}, fmt.Errorf("status override requires admin: %w", ErrForbidden)
	}
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RestockRequestResponse{}, fmt.Errorf("request id: %w", ErrValidation)
	}
	if !model.IsValidRestockStatus(req.Status) {
		return RestockRequestResponse{}, fmt.Errorf("unknown status %q: %w", req.Status, ErrValidation)
	}

	var request *model.RestockRequest
	var fx stockEffects

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, err = s.restockRepo.FindByIDForUpdate(txCtx, requestID)
		if err != nil {
			return notFoundOr(err, "restock request")
		}
		if !model.CanOverrideRestockStatus(request.Status, req.Status) {
			return &StateTransitionError{RequestID: request.ID.String(), From: request.Status, To: req.Status}
		}
		if req.Notes != "" {
			request.Notes = req.Notes
		}

		switch req.Status {
		case model.RestockStatusFulfilled:
			return s.applyFulfillment(txCtx, actor, request, model.ActionOverrideRestockStatus, &fx)

		case model.RestockStatusApproved:
			product, err := s.productRepo.FindByID(txCtx, request.ProductID)
			if err != nil {
				return notFoundOr(err, "product")
			}
			if product.TotalStock < request.RequestedAmount {
				return &InsufficientStockError{
					ProductName: product.Name,
					Available:   product.TotalStock,
					Requested:   request.RequestedAmount,
				}
			}
			now := time.Now()
			previous := request.Status
			request.Status = model.RestockStatusApproved
			request.ApprovedBy = &actor.UserID
			request.ApprovedAt = &now
			if err := s.restockRepo.Update(txCtx, request); err != nil {
				return fmt.Errorf("failed to update restock request: %w", err)
			}
			return s.audit(txCtx, actor, model.ActionOverrideRestockStatus, request, map[string]interface{}{
				"previous_status": previous,
				"new_status":      request.Status,
			})

		case model.RestockStatusRejected:
			previous := request.Status
			request.Status = model.RestockStatusRejected
			if err := s.restockRepo.Update(txCtx, request); err != nil {
				return fmt.Errorf("failed to update restock request: %w", err)
			}
			return s.audit(txCtx, actor, model.ActionOverrideRestockStatus, request, map[string]interface{}{
				"previous_status": previous,
				"new_status":      request.Status,
			})
		}
		return &StateTransitionError{RequestID: request.ID.String(), From: request.Status, To: req.Status}
	})
	if err != nil {
		return RestockRequestResponse{}, err
	}

	s.dispatchStockEffects(ctx, request, &fx)
	s.notifyStatusChange(ctx, request, fmt.Sprintf("Restock request status changed to %s", request.Status))
	s.broadcastRequest(request)

	return s.reload(ctx, request.ID)
}

// Hide sets the soft-delete flag without touching status. Hidden requests
// drop out of default listings but remain mutable and auditable.
func (s *restockService) Hide(ctx context.Context, actor Actor, id string) (RestockRequestResponse, error) {
	if !actor.IsAdmin() {
		return RestockRequestResponse{}, fmt.Errorf("hiding requests requires admin: %w", ErrForbidden)
	}
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RestockRequestResponse{}, fmt.Errorf("request id: %w", ErrValidation)
	}

	var request *model.RestockRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, err = s.restockRepo.FindByIDForUpdate(txCtx, requestID)
		if err != nil {
			return notFoundOr(err, "restock request")
		}
		request.Hidden = true
		if err := s.restockRepo.Update(txCtx, request); err != nil {
			return fmt.Errorf("failed to update restock request: %w", err)
		}
		return s.audit(txCtx, actor, model.ActionHideRestockRequest, request, map[string]interface{}{
			"status": request.Status,
		})
	})
	if err != nil {
		return RestockRequestResponse{}, err
	}

	return s.reload(ctx, request.ID)
}

func (s *restockService) Get(ctx context.Context, actor Actor, id string) (RestockRequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RestockRequestResponse{}, fmt.Errorf("request id: %w", ErrValidation)
	}
	request, err := s.restockRepo.FindByIDWithRelations(ctx, requestID)
	if err != nil {
		return RestockRequestResponse{}, notFoundOr(err, "restock request")
	}
	if err := s.authorizeShopAction(ctx, actor, request.ShopID); err != nil {
		return RestockRequestResponse{}, err
	}
	return toRestockResponse(request), nil
}

func (s *restockService) List(ctx context.Context, actor Actor, filter RestockListFilter) ([]RestockRequestResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Status != "" && !model.IsValidRestockStatus(filter.Status) {
		return nil, 0, fmt.Errorf("unknown status %q: %w", filter.Status, ErrValidation)
	}

	repoFilter := repository.RestockFilter{
		Status: filter.Status,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	// Hidden requests are admin-only visibility.
	repoFilter.IncludeHidden = filter.IncludeHidden && actor.IsAdmin()

	if actor.IsAdmin() {
		if filter.ShopID != "" && filter.ShopID != "ALL" {
			shopID, err := uuid.Parse(filter.ShopID)
			if err != nil {
				return nil, 0, fmt.Errorf("shop_id: %w", ErrValidation)
			}
			repoFilter.ShopIDs = []uuid.UUID{shopID}
		}
	} else {
		shops, err := s.shopRepo.ListManagedBy(ctx, actor.UserID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to resolve managed shops: %w", err)
		}
		if len(shops) == 0 {
			return []RestockRequestResponse{}, 0, nil
		}
		for _, shop := range shops {
			repoFilter.ShopIDs = append(repoFilter.ShopIDs, shop.ID)
		}
		if filter.ShopID != "" && filter.ShopID != "ALL" {
			requested, err := uuid.Parse(filter.ShopID)
			if err != nil {
				return nil, 0, fmt.Errorf("shop_id: %w", ErrValidation)
			}
			managed := false
			for _, id := range repoFilter.ShopIDs {
				if id == requested {
					managed = true
					break
				}
			}
			if !managed {
				return nil, 0, fmt.Errorf("shop is not managed by caller: %w", ErrForbidden)
			}
			repoFilter.ShopIDs = []uuid.UUID{requested}
		}
	}

	requests, total, err := s.restockRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list restock requests: %w", err)
	}

	result := make([]RestockRequestResponse, 0, len(requests))
	for i := range requests {
		result = append(result, toRestockResponse(&requests[i]))
	}
	return result, total, nil
}

// --- Helpers ---

// authorizeShopAction passes admins through and requires shop ownership
// (manager pointer or membership) for everyone else.
func (s *restockService) authorizeShopAction(ctx context.Context, actor Actor, shopID uuid.UUID) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role != model.RoleShopOwner {
		return fmt.Errorf("role %q cannot act on restock requests: %w", actor.Role, ErrForbidden)
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

func (s *restockService) audit(ctx context.Context, actor Actor, action string, request *model.RestockRequest, details map[string]interface{}) error {
	raw, _ := json.Marshal(details)
	entry := &model.AuditLog{
		UserID:   &actor.UserID,
		ShopID:   &request.ShopID,
		Action:   action,
		EntityID: request.ID.String(),
		Details:  string(raw),
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// dispatchStockEffects pushes the post-commit side effects of a stock
// mutation: broadcast updates, low-stock alerts, and auto-generated
// request announcements. All best-effort.
func (s *restockService) dispatchStockEffects(ctx context.Context, request *model.RestockRequest, fx *stockEffects) {
	for _, update := range fx.updates {
		if update != nil {
			s.notifier.Broadcast("stock_update", update)
		}
	}
	for _, event := range fx.lowStock {
		s.dispatchLowStock(ctx, event)
	}
}

func (s *restockService) dispatchLowStock(ctx context.Context, event LowStockEvent) {
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

	if event.Counter == model.CounterFactory || event.ShopID == nil {
		s.notifier.NotifyRole(ctx, model.RoleAdmin, payload)
	} else {
		s.notifier.NotifyShop(ctx, *event.ShopID, payload)
	}

	if event.AutoRequestID != nil {
		s.notifier.NotifyRole(ctx, model.RoleAdmin, NotificationPayload{
			Type:      model.NotificationTypeRestock,
			Title:     "Restock request auto-generated",
			Message:   fmt.Sprintf("Low stock on %s triggered an automatic replenishment request", event.ProductName),
			Data:      map[string]interface{}{"request_id": event.AutoRequestID.String()},
			RelatedID: event.AutoRequestID,
		})
		if auto, err := s.restockRepo.FindByID(ctx, *event.AutoRequestID); err == nil {
			s.broadcastRequest(auto)
		} else {
			log.Warn().Err(err).Str("request_id", event.AutoRequestID.String()).
				Msg("failed to reload auto-generated request for broadcast")
		}
	}
}

func (s *restockService) notifyStatusChange(ctx context.Context, request *model.RestockRequest, title string) {
	s.notifier.NotifyShop(ctx, request.ShopID, NotificationPayload{
		Type:      model.NotificationTypeRestock,
		Title:     title,
		Message:   fmt.Sprintf("Request for %d units is now %s", request.RequestedAmount, request.Status),
		Data:      map[string]interface{}{"request_id": request.ID.String(), "status": request.Status},
		RelatedID: &request.ID,
	})
}

func (s *restockService) broadcastRequest(request *model.RestockRequest) {
	s.notifier.Broadcast("restock_request", map[string]interface{}{
		"id":               request.ID.String(),
		"shop_id":          request.ShopID.String(),
		"product_id":       request.ProductID.String(),
		"requested_amount": request.RequestedAmount,
		"status":           request.Status,
		"hidden":           request.Hidden,
	})
}

func (s *restockService) reload(ctx context.Context, id uuid.UUID) (RestockRequestResponse, error) {
	request, err := s.restockRepo.FindByIDWithRelations(ctx, id)
	if err != nil {
		return RestockRequestResponse{}, fmt.Errorf("failed to reload restock request: %w", err)
	}
	return toRestockResponse(request), nil
}

func notFoundOr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", entity, err)
}

func toRestockResponse(r *model.RestockRequest) RestockRequestResponse {
	resp := RestockRequestResponse{
		ID:              r.ID.String(),
		ShopID:          r.ShopID.String(),
		ProductID:       r.ProductID.String(),
		RequestedAmount: r.RequestedAmount,
		RequestType:     r.RequestType,
		Status:          r.Status,
		Notes:           r.Notes,
		Hidden:          r.Hidden,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       r.UpdatedAt.Format(time.RFC3339),
	}

	if r.Shop != nil {
		resp.ShopName = r.Shop.Name
	}
	if r.Product != nil {
		resp.ProductName = r.Product.Name
		resp.ProductSKU = r.Product.SKU
	}
	if r.RequestedBy != nil {
		v := r.RequestedBy.String()
		resp.RequestedBy = &v
	}
	if r.Requester != nil {
		resp.RequesterName = r.Requester.Username
	}
	if r.ApprovedBy != nil {
		v := r.ApprovedBy.String()
		resp.ApprovedBy = &v
	}
	if r.Approver != nil {
		resp.ApproverName = r.Approver.Username
	}
	if r.ApprovedAt != nil {
		v := r.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &v
	}
	if r.FulfilledAt != nil {
		v := r.FulfilledAt.Format(time.RFC3339)
		resp.FulfilledAt = &v
	}

	return resp
}
