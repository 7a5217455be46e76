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

type InventoryHandler struct {
	inventoryService service.ShopInventoryService
}

func NewInventoryHandler(inventoryService service.ShopInventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	both := middleware.RequireRole(model.RoleAdmin, model.RoleShopOwner)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	inventory := router.Group("/shops/:id/inventory")
	{
		inventory.GET("", both, h.ListInventory)
		inventory.PATCH("/:productId/settings", both, h.UpdateSettings)
		inventory.PATCH("/:productId/stock", adminOnly, h.AdjustStock)
		inventory.DELETE("/:productId", adminOnly, h.Deactivate)
	}
}

// ListInventory returns a shop's per-product stock rows
// @Summary      List shop inventory
// @Description  Retrieves the paginated inventory of a shop with thresholds and alert settings
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Shop ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      403  {object}  response.Response
// @Router       /api/shops/{id}/inventory [get]
func (h *InventoryHandler) ListInventory(c *gin.Context) {
	params := pagination.Parse(c)

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	items, total, err := h.inventoryService.ListByShop(c.Request.Context(), actor, c.Param("id"), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "inventory", items, total, params.Page, params.Limit))
}

// UpdateSettings changes threshold and alert settings for one row
// @Summary      Update inventory settings
// @Description  Sets the per-item minimum stock threshold and low stock alert flag
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id         path      string                                   true  "Shop ID"
// @Param        productId  path      string                                   true  "Product ID"
// @Param        payload    body      service.UpdateInventorySettingsRequest   true  "Settings Payload"
// @Success      200        {object}  response.Response{data=service.ShopInventoryResponse}
// @Failure      400        {object}  response.Response
// @Failure      404        {object}  response.Response
// @Router       /api/shops/{id}/inventory/{productId}/settings [patch]
func (h *InventoryHandler) UpdateSettings(c *gin.Context) {
	var req service.UpdateInventorySettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	item, err := h.inventoryService.UpdateSettings(c.Request.Context(), actor, c.Param("id"), c.Param("productId"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// AdjustStock applies a manual correction to a shop's stock counter
// @Summary      Adjust shop stock
// @Description  Applies a delta to a shop inventory row under a row lock, firing low stock checks
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id         path      string                          true  "Shop ID"
// @Param        productId  path      string                          true  "Product ID"
// @Param        payload    body      service.AdjustShopStockRequest  true  "Stock Adjustment Payload"
// @Success      200        {object}  response.Response{data=service.ShopInventoryResponse}
// @Failure      400        {object}  response.Response
// @Failure      409        {object}  response.Response
// @Router       /api/shops/{id}/inventory/{productId}/stock [patch]
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	var req service.AdjustShopStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	item, err := h.inventoryService.AdjustStock(c.Request.Context(), actor, c.Param("id"), c.Param("productId"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Deactivate retires one inventory row without deleting history
// @Summary      Deactivate inventory row
// @Description  Marks a shop inventory row inactive; movement history is preserved
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id         path      string  true  "Shop ID"
// @Param        productId  path      string  true  "Product ID"
// @Success      200        {object}  response.Response
// @Failure      404        {object}  response.Response
// @Router       /api/shops/{id}/inventory/{productId} [delete]
func (h *InventoryHandler) Deactivate(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.inventoryService.Deactivate(c.Request.Context(), actor, c.Param("id"), c.Param("productId")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Inventory item deactivated"))
}
