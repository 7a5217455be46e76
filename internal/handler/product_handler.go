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

type ProductHandler struct {
	productService service.ProductService
}

func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/products")
	{
		products.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleShopOwner), h.GetProducts)
		products.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleShopOwner), h.GetProduct)
		products.POST("", middleware.RequireRole(model.RoleAdmin), h.CreateProduct)
		products.PUT("/:id", middleware.RequireRole(model.RoleAdmin), h.UpdateProduct)
		products.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteProduct)
		products.PATCH("/:id/stock", middleware.RequireRole(model.RoleAdmin), h.AdjustStock)
		products.GET("/:id/movements", middleware.RequireRole(model.RoleAdmin), h.GetStockMovements)
	}
}

// GetProducts handles retrieving the paginated factory catalog
// @Summary      List products
// @Description  Retrieves a paginated list of products with current factory stock
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        search  query     string  false  "Search by product name or SKU"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/products [get]
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := pagination.Parse(c)
	search := c.Query("search")

	products, total, err := h.productService.GetProducts(c.Request.Context(), params.Page, params.Limit, search)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "products", products, total, params.Page, params.Limit))
}

// GetProduct fetches one product by ID
// @Summary      Get product
// @Description  Retrieves a single product by ID
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.ProductResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// CreateProduct creates a new catalog entry
// @Summary      Create product
// @Description  Creates a new product, optionally seeding initial factory stock
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProductRequest  true  "Create Product Payload"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// UpdateProduct updates an existing product's metadata
// @Summary      Update product
// @Description  Updates an existing product's details by ID
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Product ID"
// @Param        payload  body      service.UpdateProductRequest  true  "Update Product Payload"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeleteProduct removes a product entry softly
// @Summary      Delete product
// @Description  Soft deletes a product; refused while restock requests reference it
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Product deleted successfully"))
}

// AdjustStock mutates the factory counter by delta or absolute target
// @Summary      Adjust factory stock
// @Description  Applies a delta or absolute stock value to the factory counter under a row lock
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Product ID"
// @Param        payload  body      service.AdjustStockRequest  true  "Stock Adjustment Payload"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/products/{id}/stock [patch]
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	product, err := h.productService.AdjustStock(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// GetStockMovements lists the movement ledger for a product
// @Summary      List stock movements
// @Description  Retrieves the paginated stock movement history of a product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Product ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      400    {object}  response.Response
// @Router       /api/products/{id}/movements [get]
func (h *ProductHandler) GetStockMovements(c *gin.Context) {
	params := pagination.Parse(c)

	movements, total, err := h.productService.GetStockMovements(c.Request.Context(), c.Param("id"), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "movements", movements, total, params.Page, params.Limit))
}
