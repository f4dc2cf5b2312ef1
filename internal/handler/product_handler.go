package handler

import (
	"net/http"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProductHandler struct {
	productService *service.ProductService
	logger         *zap.Logger
}

func NewProductHandler(productService *service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req domain.CreateProductRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, h.logger, err)
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create product", zap.String("sku", req.SKU))
		return
	}

	c.JSON(http.StatusCreated, domain.NewProductResponse(product))
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	sku := c.Param("sku")

	product, err := h.productService.GetProduct(c.Request.Context(), sku)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get product", zap.String("sku", sku))
		return
	}

	c.JSON(http.StatusOK, domain.NewProductResponse(product))
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	sku := c.Param("sku")

	var req domain.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, h.logger, err)
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), sku, req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update product", zap.String("sku", sku))
		return
	}

	c.JSON(http.StatusOK, domain.NewProductResponse(product))
}

// ListProducts serves the inventory list. ?q= filters by name and
// ?sort=quantity orders by stock ascending.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	q := domain.ListProductsQuery{
		Search: c.Query("q"),
		SortBy: domain.ProductSortField(c.DefaultQuery("sort", string(domain.SortByName))),
	}
	if q.SortBy != domain.SortByName && q.SortBy != domain.SortByQuantity {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "sort must be name or quantity",
		})
		return
	}

	products, err := h.productService.ListProducts(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err, "Failed to list products")
		return
	}

	response := make([]domain.ProductResponse, 0, len(products))
	for _, p := range products {
		response = append(response, domain.NewProductResponse(p))
	}
	c.JSON(http.StatusOK, response)
}
