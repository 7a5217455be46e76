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

type RestockHandler struct {
	restockService service.RestockService
}

func NewRestockHandler(restockService service.RestockService) *RestockHandler {
	return &RestockHandler{restockService: restockService}
}

func (h *RestockHandler) RegisterRoutes(router *gin.RouterGroup) {
	both := middleware.RequireRole(model.RoleAdmin, model.RoleShopOwner)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	requests := router.Group("/restock-requests")
	{
		requests.POST("", both, h.Create)
		requests.GET("", both, h.List)
		requests.GET("/:id", both, h.Get)
		requests.POST("/:id/approve", both, h.Approve)
		requests.POST("/:id/reject", both, h.Reject)
		requests.POST("/:id/fulfill", both, h.Fulfill)
		requests.POST("/fulfill", both, h.FulfillByPair)
		requests.PATCH("/:id/status", adminOnly, h.UpdateStatus)
		requests.DELETE("/:id", adminOnly, h.Hide)
	}
}

// Create submits a new restock request
// @Summary      Create restock request
// @Description  Creates a request in waiting_for_approval for a shop/product pair
// @Tags         restock
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRestockRequestDTO  true  "Create Restock Request Payload"
// @Success      201      {object}  response.Response{data=service.RestockRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/restock-requests [post]
func (h *RestockHandler) Create(c *gin.Context) {
	var req service.CreateRestockRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	result, err := h.restockService.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// List returns visible restock requests
// @Summary      List restock requests
// @Description  Lists requests scoped to the caller's shops, with status and shop filters
// @Tags         restock
// @Security     BearerAuth
// @Produce      json
// @Param        shop_id         query     string  false  "Shop ID or ALL"
// @Param        status          query     string  false  "Status filter"
// @Param        include_hidden  query     bool    false  "Include hidden requests (admin only)"
// @Param        page            query     int     false  "Page number (default 1)"
// @Param        limit           query     int     false  "Number of items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      400  {object}  response.Response
// @Router       /api/restock-requests [get]
func (h *RestockHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	includeHidden, _ := strconv.ParseBool(c.DefaultQuery("include_hidden", "false"))

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	requests, total, err := h.restockService.List(c.Request.Context(), actor, service.RestockListFilter{
		ShopID:        c.Query("shop_id"),
		Status:        c.Query("status"),
		IncludeHidden: includeHidden,
		Page:          params.Page,
		Limit:         params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "requests", requests, total, params.Page, params.Limit))
}

// Get fetches one request by ID
// @Summary      Get restock request
// @Description  Retrieves a single restock request with shop, product and actor details
// @Tags         restock
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RestockRequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/restock-requests/{id} [get]
func (h *RestockHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	result, err := h.restockService.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Approve moves a waiting request to approved_pending
// @Summary      Approve restock request
// @Description  Approves a waiting request after checking factory availability; stock is not moved yet
// @Tags         restock
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RestockRequestResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/restock-requests/{id}/approve [post]
func (h *RestockHandler) Approve(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	result, err := h.restockService.Approve(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Reject moves a non-terminal request to rejected
// @Summary      Reject restock request
// @Description  Rejects a request from waiting_for_approval or approved_pending
// @Tags         restock
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true   "Request ID"
// @Param        payload  body      service.RejectRestockDTO  false  "Rejection Notes"
// @Success      200      {object}  response.Response{data=service.RestockRequestResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/restock-requests/{id}/reject [post]
func (h *RestockHandler) Reject(c *gin.Context) {
	var req service.RejectRestockDTO
	_ = c.ShouldBindJSON(&req) // body is optional

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	result, err := h.restockService.Reject(c.Request.Context(), actor, c.Param("id"), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Fulfill executes the stock transfer for an approved request
// @Summary      Fulfill restock request
// @Description  Atomically decrements factory stock and increments shop inventory, re-checking availability
// @Tags         restock
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RestockRequestResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/restock-requests/{id}/fulfill [post]
func (h *RestockHandler) Fulfill(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	result, err := h.restockService.Fulfill(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// FulfillByPair fulfills the approved request for a shop/product pair
// @Summary      Fulfill by pair
// @Description  Resolves the approved_pending request for the shop/product pair and fulfills it
// @Tags         restock
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.FulfillByPairDTO  true  "Shop and Product Pair"
// @Success      200      {object}  response.Response{data=service.RestockRequestResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/restock-requests/fulfill [post]
func (h *RestockHandler) FulfillByPair(c *gin.Context) {
	var req service.FulfillByPairDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	result, err := h.restockService.FulfillByPair(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// UpdateStatus is the admin status override
// @Summary      Override request status
// @Description  Forces a non-terminal request to a new status; forcing fulfilled moves stock
// @Tags         restock
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Request ID"
// @Param        payload  body      service.UpdateRestockStatusDTO  true  "Target Status"
// @Success      200      {object}  response.Response{data=service.RestockRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/restock-requests/{id}/status [patch]
func (h *RestockHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateRestockStatusDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	result, err := h.restockService.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Hide soft-deletes a request from default listings
// @Summary      Hide restock request
// @Description  Marks a request hidden; it stays auditable and mutable
// @Tags         restock
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RestockRequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/restock-requests/{id} [delete]
func (h *RestockHandler) Hide(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	result, err := h.restockService.Hide(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
