package handler

import (
	"net/http"

	"retail-backend/internal/middleware"
	"retail-backend/internal/model"
	"retail-backend/internal/service"
	"retail-backend/pkg/pagination"
	"retail-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs")
	group.Use(middleware.RequireRole(model.RoleAdmin, model.RoleShopOwner))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated audit records
// @Summary      Get audit logs
// @Description  Retrieves audit logs; shop owners must filter by a shop they manage
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action   query     string  false  "Action filter"
// @Param        shop_id  query     string  false  "Shop ID filter"
// @Param        page     query     int     false  "Page number (default 1)"
// @Param        limit    query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      403    {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), actor, service.AuditListFilter{
		Action: c.Query("action"),
		ShopID: c.Query("shop_id"),
		Page:   params.Page,
		Limit:  params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "logs", logs, total, params.Page, params.Limit))
}
