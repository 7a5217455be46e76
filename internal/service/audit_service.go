package service

import (
	"context"
	"fmt"
	"time"

	"retail-backend/internal/repository"

	"github.com/google/uuid"
)

type AuditLogResponse struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	Username   string  `json:"username"`
	ShopID     *string `json:"shop_id,omitempty"`
	Action     string  `json:"action"`
	EntityID   string  `json:"entity_id"`
	EntityName string  `json:"entity_name"`
	Details    string  `json:"details"`
	CreatedAt  string  `json:"created_at"`
}

type AuditListFilter struct {
	Action string
	ShopID string
	Page   int
	Limit  int
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, actor Actor, filter AuditListFilter) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
	shopRepo  repository.ShopRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository, shopRepo repository.ShopRepository) AuditService {
	return &auditService{auditRepo: auditRepo, shopRepo: shopRepo}
}

// GetAuditLogs retrieves paginated records with users pre-loaded. Admins see
// everything; shop owners only logs scoped to a shop they manage.
func (s *auditService) GetAuditLogs(ctx context.Context, actor Actor, filter AuditListFilter) ([]AuditLogResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := repository.AuditFilter{
		Action: filter.Action,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}

	if filter.ShopID != "" {
		shopID, err := uuid.Parse(filter.ShopID)
		if err != nil {
			return nil, 0, fmt.Errorf("shop id: %w", ErrValidation)
		}
		repoFilter.ShopID = &shopID
	}

	if !actor.IsAdmin() {
		if repoFilter.ShopID == nil {
			return nil, 0, fmt.Errorf("shop owners must scope audit queries to a shop: %w", ErrForbidden)
		}
		managed, err := s.shopRepo.IsManagedBy(ctx, *repoFilter.ShopID, actor.UserID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to check shop ownership: %w", err)
		}
		if !managed {
			return nil, 0, fmt.Errorf("shop is not managed by caller: %w", ErrForbidden)
		}
	}

	logs, total, err := s.auditRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		userID := ""
		if l.User != nil {
			username = l.User.Username
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		entry := AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Username:   username,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format(time.RFC3339),
		}
		if l.ShopID != nil {
			v := l.ShopID.String()
			entry.ShopID = &v
		}
		res = append(res, entry)
	}

	return res, total, nil
}
