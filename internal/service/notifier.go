package service

import (
	"context"
	"encoding/json"

	"retail-backend/internal/model"
	"retail-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Broadcaster pushes events to connected realtime clients. The websocket
// hub implements it; tests inject a recorder. Keeping it an interface means
// a multi-instance deployment can back it with a shared pub/sub.
type Broadcaster interface {
	BroadcastJSON(event string, data interface{})
}

// NotificationPayload is the delivery-transport-agnostic message shape.
type NotificationPayload struct {
	Type      string
	Priority  string
	Title     string
	Message   string
	Data      map[string]interface{}
	RelatedID *uuid.UUID
}

// Notifier is the best-effort side-effect sink: it persists notification
// rows and mirrors them onto the broadcast feed. Every method swallows
// failures after logging them; a committed stock transition is the source
// of truth regardless of delivery success.
type Notifier interface {
	NotifyUser(ctx context.Context, userID uuid.UUID, payload NotificationPayload)
	NotifyRole(ctx context.Context, role string, payload NotificationPayload)
	NotifyShop(ctx context.Context, shopID uuid.UUID, payload NotificationPayload)
	Broadcast(event string, data interface{})
}

type notifier struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	broadcaster      Broadcaster
}

func NewNotifier(
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	broadcaster Broadcaster,
) Notifier {
	return &notifier{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		broadcaster:      broadcaster,
	}
}

func (n *notifier) NotifyUser(ctx context.Context, userID uuid.UUID, payload NotificationPayload) {
	n.persist(ctx, userID, payload)
	n.Broadcast("notification", map[string]interface{}{
		"user_id": userID.String(),
		"type":    payload.Type,
		"title":   payload.Title,
		"message": payload.Message,
		"data":    payload.Data,
	})
}

func (n *notifier) NotifyRole(ctx context.Context, role string, payload NotificationPayload) {
	users, err := n.userRepo.ListByRole(ctx, role)
	if err != nil {
		log.Warn().Err(err).Str("role", role).Str("type", payload.Type).
			Msg("notification fan-out failed to resolve role recipients")
		return
	}
	for _, u := range users {
		n.persist(ctx, u.ID, payload)
	}
	n.Broadcast("notification", map[string]interface{}{
		"role":    role,
		"type":    payload.Type,
		"title":   payload.Title,
		"message": payload.Message,
		"data":    payload.Data,
	})
}

// NotifyShop targets everyone attached to the shop: the manager pointer
// plus user_shops members.
func (n *notifier) NotifyShop(ctx context.Context, shopID uuid.UUID, payload NotificationPayload) {
	users, err := n.userRepo.ListByShopMembership(ctx, shopID)
	if err != nil {
		log.Warn().Err(err).Str("shop_id", shopID.String()).Str("type", payload.Type).
			Msg("notification fan-out failed to resolve shop recipients")
		return
	}
	if len(users) == 0 {
		log.Debug().Str("shop_id", shopID.String()).Msg("shop has no recipients for notification")
		return
	}
	for _, u := range users {
		n.persist(ctx, u.ID, payload)
	}
	n.Broadcast("notification", map[string]interface{}{
		"shop_id": shopID.String(),
		"type":    payload.Type,
		"title":   payload.Title,
		"message": payload.Message,
		"data":    payload.Data,
	})
}

func (n *notifier) Broadcast(event string, data interface{}) {
	if n.broadcaster == nil {
		return
	}
	n.broadcaster.BroadcastJSON(event, data)
}

func (n *notifier) persist(ctx context.Context, userID uuid.UUID, payload NotificationPayload) {
	priority := payload.Priority
	if priority == "" {
		priority = model.NotificationPriorityNormal
	}

	var data string
	if payload.Data != nil {
		if raw, err := json.Marshal(payload.Data); err == nil {
			data = string(raw)
		}
	}

	notification := &model.Notification{
		UserID:    userID,
		Type:      payload.Type,
		Priority:  priority,
		Title:     payload.Title,
		Message:   payload.Message,
		Data:      data,
		RelatedID: payload.RelatedID,
	}
	if err := n.notificationRepo.Create(ctx, notification); err != nil {
		log.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("type", payload.Type).
			Msg("failed to persist notification")
	}
}
