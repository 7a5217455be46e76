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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateProductRequest struct {
	SKU           string `json:"sku" binding:"required"`
	Name          string `json:"name" binding:"required"`
	UnitPrice     string `json:"unit_price" binding:"required"`
	InitialStock  int    `json:"initial_stock" binding:"omitempty,min=0"`
	MinStockLevel *int   `json:"min_stock_level" binding:"omitempty,min=0"`
}

type UpdateProductRequest struct {
	SKU           string `json:"sku" binding:"required"`
	Name          string `json:"name" binding:"required"`
	UnitPrice     string `json:"unit_price" binding:"required"`
	MinStockLevel *int   `json:"min_stock_level" binding:"omitempty,min=0"`
	IsActive      *bool  `json:"is_active"`
}

// AdjustStockRequest accepts either a delta or an absolute target. An
// absolute target is translated into a delta against the locked current
// value so the negative-stock guard and low-stock trigger always apply.
type AdjustStockRequest struct {
	Delta      *int   `json:"delta"`
	TotalStock *int   `json:"total_stock" binding:"omitempty,min=0"`
	Reason     string `json:"reason"`
}

type ProductResponse struct {
	ID            string `json:"id"`
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	UnitPrice     string `json:"unit_price"`
	TotalStock    int    `json:"total_stock"`
	MinStockLevel *int   `json:"min_stock_level"`
	IsActive      bool   `json:"is_active"`
}

type StockMovementResponse struct {
	ID               string  `json:"id"`
	Counter          string  `json:"counter"`
	ShopID           *string `json:"shop_id,omitempty"`
	RestockRequestID *string `json:"restock_request_id,omitempty"`
	QuantityChanged  int     `json:"quantity_changed"`
	StockAfter       int     `json:"stock_after"`
	Reason           string  `json:"reason"`
	CreatedAt        string  `json:"created_at"`
}

type ProductService interface {
	GetProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error)
	GetProduct(ctx context.Context, id string) (ProductResponse, error)
	CreateProduct(ctx context.Context, actor Actor, req CreateProductRequest) (ProductResponse, error)
	UpdateProduct(ctx context.Context, actor Actor, id string, req UpdateProductRequest) (ProductResponse, error)
	DeleteProduct(ctx context.Context, actor Actor, id string) error
	AdjustStock(ctx context.Context, actor Actor, id string, req AdjustStockRequest) (ProductResponse, error)
	GetStockMovements(ctx context.Context, id string, page, limit int) ([]StockMovementResponse, int64, error)
}

type productService struct {
	productRepo  repository.ProductRepository
	restockRepo  repository.RestockRepository
	movementRepo repository.StockMovementRepository
	auditRepo    repository.AuditRepository
	ledger       StockLedger
	txManager    repository.TransactionManager
	notifier     Notifier
}

func NewProductService(
	productRepo repository.ProductRepository,
	restockRepo repository.RestockRepository,
	movementRepo repository.StockMovementRepository,
	auditRepo repository.AuditRepository,
	ledger StockLedger,
	txManager repository.TransactionManager,
	notifier Notifier,
) ProductService {
	return &productService{
		productRepo:  productRepo,
		restockRepo:  restockRepo,
		movementRepo: movementRepo,
		auditRepo:    auditRepo,
		ledger:       ledger,
		txManager:    txManager,
		notifier:     notifier,
	}
}

func (s *productService) GetProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	products, total, err := s.productRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, err
	}

	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, toProductResponse(&products[i]))
	}
	return res, total, nil
}

func (s *productService) GetProduct(ctx context.Context, id string) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("product id: %w", ErrValidation)
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductResponse{}, notFoundOr(err, "product")
	}
	return toProductResponse(product), nil
}

func (s *productService) CreateProduct(ctx context.Context, actor Actor, req CreateProductRequest) (ProductResponse, error) {
	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil || price.IsNegative() {
		return ProductResponse{}, fmt.Errorf("unit_price: %w", ErrValidation)
	}
	if _, err := s.productRepo.FindBySKU(ctx, req.SKU); err == nil {
		return ProductResponse{}, fmt.Errorf("sku %q already exists: %w", req.SKU, ErrValidation)
	}

	product := &model.Product{
		SKU:           req.SKU,
		Name:          req.Name,
		UnitPrice:     price,
		TotalStock:    0,
		MinStockLevel: req.MinStockLevel,
		IsActive:      true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		if req.InitialStock > 0 {
			if _, _, _, err := s.ledger.AdjustFactoryStock(txCtx, product.ID, req.InitialStock, model.ReasonInitialStock, nil); err != nil {
				return err
			}
			product.TotalStock = req.InitialStock
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     &actor.UserID,
			Action:     model.ActionCreateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return ProductResponse{}, err
	}

	return toProductResponse(product), nil
}

func (s *productService) UpdateProduct(ctx context.Context, actor Actor, id string, req UpdateProductRequest) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("product id: %w", ErrValidation)
	}
	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil || price.IsNegative() {
		return ProductResponse{}, fmt.Errorf("unit_price: %w", ErrValidation)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductResponse{}, notFoundOr(err, "product")
	}

	product.SKU = req.SKU
	product.Name = req.Name
	product.UnitPrice = price
	product.MinStockLevel = req.MinStockLevel
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     &actor.UserID,
			Action:     model.ActionUpdateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return ProductResponse{}, err
	}

	return toProductResponse(product), nil
}

// DeleteProduct refuses to remove a product that restock requests still
// reference; those keep their history forever.
func (s *productService) DeleteProduct(ctx context.Context, actor Actor, id string) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("product id: %w", ErrValidation)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return notFoundOr(err, "product")
	}

	references, err := s.restockRepo.CountByProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to count restock references: %w", err)
	}
	if references > 0 {
		return fmt.Errorf("product %s is referenced by %d restock requests: %w", product.Name, references, ErrValidation)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Delete(txCtx, productID); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}

		audit := &model.AuditLog{
			UserID:     &actor.UserID,
			Action:     model.ActionDeleteProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    `{"deleted": true}`,
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
}

// AdjustStock is the admin entry into the factory counter. Exactly one of
// delta / total_stock must be provided; the absolute form is resolved to a
// delta against the row-locked current value inside the transaction.
func (s *productService) AdjustStock(ctx context.Context, actor Actor, id string, req AdjustStockRequest) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("product id: %w", ErrValidation)
	}
	if (req.Delta == nil) == (req.TotalStock == nil) {
		return ProductResponse{}, fmt.Errorf("provide exactly one of delta or total_stock: %w", ErrValidation)
	}
	reason := req.Reason
	if reason == "" {
		reason = model.ReasonManualAdjustment
	}

	var product *model.Product
	var update *StockUpdate
	var events []LowStockEvent

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		delta := 0
		if req.Delta != nil {
			delta = *req.Delta
		} else {
			current, err := s.productRepo.FindByIDForUpdate(txCtx, productID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("product: %w", ErrNotFound)
				}
				return fmt.Errorf("failed to lock product: %w", err)
			}
			delta = *req.TotalStock - current.TotalStock
		}

		product, update, events, err = s.ledger.AdjustFactoryStock(txCtx, productID, delta, reason, nil)
		if err != nil {
			return err
		}

		details, _ := json.Marshal(map[string]interface{}{
			"delta":          delta,
			"previous_stock": update.PreviousStock,
			"new_stock":      update.NewStock,
			"reason":         reason,
		})
		audit := &model.AuditLog{
			UserID:     &actor.UserID,
			Action:     model.ActionAdjustStock,
			EntityID:   productID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return ProductResponse{}, err
	}

	s.notifier.Broadcast("stock_update", update)
	for _, event := range events {
		s.notifier.NotifyRole(ctx, model.RoleAdmin, NotificationPayload{
			Type:     model.NotificationTypeLowStock,
			Priority: model.NotificationPriorityHigh,
			Title:    "Low factory stock",
			Message: fmt.Sprintf("%s is at %d (threshold %d)",
				event.ProductName, event.CurrentStock, event.Threshold),
			Data: map[string]interface{}{
				"product_id":    event.ProductID.String(),
				"current_stock": event.CurrentStock,
				"threshold":     event.Threshold,
			},
			RelatedID: &event.ProductID,
		})
	}

	return toProductResponse(product), nil
}

func (s *productService) GetStockMovements(ctx context.Context, id string, page, limit int) ([]StockMovementResponse, int64, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, 0, fmt.Errorf("product id: %w", ErrValidation)
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	movements, total, err := s.movementRepo.ListByProduct(ctx, productID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]StockMovementResponse, 0, len(movements))
	for _, m := range movements {
		item := StockMovementResponse{
			ID:              m.ID.String(),
			Counter:         m.Counter,
			QuantityChanged: m.QuantityChanged,
			StockAfter:      m.StockAfter,
			Reason:          m.Reason,
			CreatedAt:       m.CreatedAt.Format(time.RFC3339),
		}
		if m.ShopID != nil {
			v := m.ShopID.String()
			item.ShopID = &v
		}
		if m.RestockRequestID != nil {
			v := m.RestockRequestID.String()
			item.RestockRequestID = &v
		}
		res = append(res, item)
	}

	return res, total, nil
}

func toProductResponse(p *model.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID.String(),
		SKU:           p.SKU,
		Name:          p.Name,
		UnitPrice:     p.UnitPrice.StringFixed(2),
		TotalStock:    p.TotalStock,
		MinStockLevel: p.MinStockLevel,
		IsActive:      p.IsActive,
	}
}
