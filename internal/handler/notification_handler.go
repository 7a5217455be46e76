package handler

import (
	"net/http"
	"strconv"

	"retail-backend/internal/middleware"
	"retail-backend/internal/model"
	"retail-backend/internal/service"
	"retail-backend/pkg/pagination"
	"retail-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/notifications")
	group.Use(middleware.RequireRole(model.RoleAdmin, model.RoleShopOwner))
	{
		group.GET("", h.ListNotifications)
		group.PATCH("/:id/read", h.MarkRead)
		group.PATCH("/read-all", h.MarkAllRead)
	}
}

// ListNotifications returns the caller's notifications
// @Summary      List notifications
// @Description  Retrieves the caller's paginated notifications, optionally unread only
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        unread  query     bool  false  "Only unread notifications"
// @Param        page    query     int   false  "Page number (default 1)"
// @Param        limit   query     int   false  "Number of items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	params := pagination.Parse(c)
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	notifications, total, err := h.notificationService.ListNotifications(c.Request.Context(), actor, unreadOnly, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "notifications", notifications, total, params.Page, params.Limit))
}

// MarkRead marks one notification as read
// @Summary      Mark notification read
// @Description  Marks a single notification belonging to the caller as read
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Notification ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Notification marked as read"))
}

// MarkAllRead marks every unread notification of the caller as read
// @Summary      Mark all notifications read
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/notifications/read-all [patch]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.notificationService.MarkAllRead(c.Request.Context(), actor); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "All notifications marked as read"))
}
