package service

import (
	"context"
	"fmt"

	"retail-backend/internal/repository"

	"github.com/google/uuid"
)

type DashboardResponse struct {
	RequestCounts     []repository.RequestStatusCount `json:"request_counts"`
	LowStockProducts  []repository.LowStockProduct    `json:"low_stock_products,omitempty"`
	TotalFactoryUnits int64                           `json:"total_factory_units,omitempty"`
	ActiveShops       int64                           `json:"active_shops,omitempty"`
}

type DashboardService interface {
	GetDashboard(ctx context.Context, actor Actor) (*DashboardResponse, error)
}

type dashboardService struct {
	dashRepo repository.DashboardRepository
	shopRepo repository.ShopRepository
}

func NewDashboardService(dashRepo repository.DashboardRepository, shopRepo repository.ShopRepository) DashboardService {
	return &dashboardService{dashRepo: dashRepo, shopRepo: shopRepo}
}

// GetDashboard assembles operational counters. Admins get the network-wide
// view including factory stock; shop owners get request counts over their
// managed shops only.
func (s *dashboardService) GetDashboard(ctx context.Context, actor Actor) (*DashboardResponse, error) {
	var shopIDs []uuid.UUID
	if !actor.IsAdmin() {
		shops, err := s.shopRepo.ListManagedBy(ctx, actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to list managed shops: %w", err)
		}
		if len(shops) == 0 {
			return &DashboardResponse{RequestCounts: []repository.RequestStatusCount{}}, nil
		}
		for i := range shops {
			shopIDs = append(shopIDs, shops[i].ID)
		}
	}

	counts, err := s.dashRepo.CountRequestsByStatus(ctx, shopIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}

	resp := &DashboardResponse{RequestCounts: counts}

	if actor.IsAdmin() {
		lowStock, err := s.dashRepo.ListLowStockProducts(ctx, 20)
		if err != nil {
			return nil, fmt.Errorf("failed to list low stock products: %w", err)
		}
		totalUnits, err := s.dashRepo.TotalFactoryUnits(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to sum factory stock: %w", err)
		}
		activeShops, err := s.dashRepo.CountActiveShops(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count shops: %w", err)
		}
		resp.LowStockProducts = lowStock
		resp.TotalFactoryUnits = totalUnits
		resp.ActiveShops = activeShops
	}

	return resp, nil
}
