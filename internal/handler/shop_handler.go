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

type ShopHandler struct {
	shopService service.ShopService
}

func NewShopHandler(shopService service.ShopService) *ShopHandler {
	return &ShopHandler{shopService: shopService}
}

func (h *ShopHandler) RegisterRoutes(router *gin.RouterGroup) {
	both := middleware.RequireRole(model.RoleAdmin, model.RoleShopOwner)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	shops := router.Group("/shops")
	{
		shops.GET("", both, h.ListShops)
		shops.GET("/:id", both, h.GetShop)
		shops.POST("", adminOnly, h.CreateShop)
		shops.PUT("/:id", adminOnly, h.UpdateShop)
		shops.DELETE("/:id", adminOnly, h.DeleteShop)
		shops.POST("/:id/manager", adminOnly, h.AssignManager)
	}
}

// ListShops returns shops visible to the caller
// @Summary      List shops
// @Description  Admins see every shop; shop owners only the shops they manage
// @Tags         shops
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        search  query     string  false  "Search by shop name"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/shops [get]
func (h *ShopHandler) ListShops(c *gin.Context) {
	params := pagination.Parse(c)

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	shops, total, err := h.shopService.ListShops(c.Request.Context(), actor, params.Page, params.Limit, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "shops", shops, total, params.Page, params.Limit))
}

// GetShop fetches one shop by ID
// @Summary      Get shop
// @Description  Retrieves a single shop, restricted to managers and admins
// @Tags         shops
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Shop ID"
// @Success      200  {object}  response.Response{data=service.ShopResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/shops/{id} [get]
func (h *ShopHandler) GetShop(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	shop, err := h.shopService.GetShop(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, shop))
}

// CreateShop registers a new shop
// @Summary      Create shop
// @Description  Creates a new shop
// @Tags         shops
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateShopRequest  true  "Create Shop Payload"
// @Success      201      {object}  response.Response{data=service.ShopResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/shops [post]
func (h *ShopHandler) CreateShop(c *gin.Context) {
	var req service.CreateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	shop, err := h.shopService.CreateShop(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, shop))
}

// UpdateShop mutates shop metadata
// @Summary      Update shop
// @Description  Updates a shop's details by ID
// @Tags         shops
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Shop ID"
// @Param        payload  body      service.UpdateShopRequest  true  "Update Shop Payload"
// @Success      200      {object}  response.Response{data=service.ShopResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/shops/{id} [put]
func (h *ShopHandler) UpdateShop(c *gin.Context) {
	var req service.UpdateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	shop, err := h.shopService.UpdateShop(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, shop))
}

// DeleteShop soft deletes a shop
// @Summary      Delete shop
// @Description  Soft deletes a shop by ID
// @Tags         shops
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Shop ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/shops/{id} [delete]
func (h *ShopHandler) DeleteShop(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.shopService.DeleteShop(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Shop deleted successfully"))
}

// AssignManager sets the managing shop owner
// @Summary      Assign shop manager
// @Description  Assigns a shop_owner user as the shop's manager and records membership
// @Tags         shops
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Shop ID"
// @Param        payload  body      service.AssignManagerRequest  true  "Manager Assignment Payload"
// @Success      200      {object}  response.Response{data=service.ShopResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/shops/{id}/manager [post]
func (h *ShopHandler) AssignManager(c *gin.Context) {
	var req service.AssignManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	shop, err := h.shopService.AssignManager(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, shop))
}
