package service

import (
	"context"
	"fmt"
	"time"

	"retail-backend/internal/model"
	"retail-backend/internal/repository"

	"github.com/google/uuid"
)

type NotificationResponse struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Priority  string  `json:"priority"`
	Title     string  `json:"title"`
	Message   string  `json:"message"`
	Data      string  `json:"data,omitempty"`
	Read      bool    `json:"read"`
	RelatedID *string `json:"related_id,omitempty"`
	CreatedAt string  `json:"created_at"`
}

type NotificationService interface {
	ListNotifications(ctx context.Context, actor Actor, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error)
	MarkRead(ctx context.Context, actor Actor, id string) error
	MarkAllRead(ctx context.Context, actor Actor) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) ListNotifications(ctx context.Context, actor Actor, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	notifications, total, err := s.repo.ListByUser(ctx, actor.UserID, unreadOnly, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]NotificationResponse, 0, len(notifications))
	for i := range notifications {
		res = append(res, toNotificationResponse(&notifications[i]))
	}
	return res, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor Actor, id string) error {
	nid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("notification id: %w", ErrValidation)
	}
	if err := s.repo.MarkRead(ctx, nid, actor.UserID); err != nil {
		return notFoundOr(err, "notification")
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor Actor) error {
	return s.repo.MarkAllRead(ctx, actor.UserID)
}

func toNotificationResponse(n *model.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID.String(),
		Type:      n.Type,
		Priority:  n.Priority,
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
	if n.RelatedID != nil {
		v := n.RelatedID.String()
		resp.RelatedID = &v
	}
	return resp
}
