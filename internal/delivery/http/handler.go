package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cadvision/backend/internal/domain"
	"github.com/cadvision/backend/internal/export"
	"github.com/cadvision/backend/internal/usecase"
)

// maxImageSize caps the uploaded photo at 10 MiB
const maxImageSize = 10 << 20

// Handler holds dependencies for HTTP handlers
type Handler struct {
	cascade  *usecase.Orchestrator
	products domain.ProductRepository
	exporter *export.Service
}

// NewHandler creates a new HTTP handler
func NewHandler(cascade *usecase.Orchestrator, products domain.ProductRepository, exporter *export.Service) *Handler {
	return &Handler{
		cascade:  cascade,
		products: products,
		exporter: exporter,
	}
}

// HealthCheck returns the health status of the API plus cascade counters
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "cadvision-backend",
		"version": "1.0.0",
		"cascade": h.cascade.Stats(),
	})
}

// Identify runs an uploaded product photo through the identification
// cascade. Multipart form: "image" (file, required), "vertical" (field,
// defaults to retail-goods).
func (h *Handler) Identify(c *gin.Context) {
	vertical, err := domain.ParseVertical(c.DefaultPostForm("vertical", string(domain.VerticalRetail)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing image file"})
		return
	}
	if fileHeader.Size > maxImageSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds 10MiB limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image file"})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil || len(image) > maxImageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image file"})
		return
	}

	result, err := h.cascade.Identify(c.Request.Context(), image, vertical)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidImage):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "image is not readable"})
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusRequestTimeout, gin.H{"error": "request cancelled"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "identification failed"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// saveProductRequest is the body for product registration
type saveProductRequest struct {
	Vertical    string            `json:"vertical" binding:"required"`
	GTIN        string            `json:"gtin"`
	Title       string            `json:"title"`
	Brand       string            `json:"brand"`
	Category    string            `json:"category"`
	Subcategory string            `json:"subcategory"`
	Price       string            `json:"price"`
	NCM         string            `json:"ncm"`
	CEST        string            `json:"cest"`
	Attributes  map[string]string `json:"attributes"`
	Fingerprint string            `json:"fingerprint"`
	Confidence  float64           `json:"confidence"`
}

// SaveProduct registers a (possibly operator-edited) identification result
func (h *Handler) SaveProduct(c *gin.Context) {
	var req saveProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	vertical, err := domain.ParseVertical(req.Vertical)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := &domain.IdentificationResult{
		Vertical:    vertical,
		GTIN:        req.GTIN,
		Title:       req.Title,
		Brand:       req.Brand,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		NCM:         req.NCM,
		CEST:        req.CEST,
		Attributes:  req.Attributes,
		Fingerprint: req.Fingerprint,
		Confidence:  req.Confidence,
	}
	if req.Price != "" {
		price, err := parsePriceField(req.Price)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
			return
		}
		result.Price = price
	}

	product := domain.FromResult(result)
	if err := h.products.Save(c.Request.Context(), product); err != nil {
		if errors.Is(err, domain.ErrDuplicateGTIN) {
			c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("product with GTIN %s already exists", req.GTIN)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save product"})
		return
	}

	c.JSON(http.StatusCreated, product)
}

// UpdateProduct overwrites a registered product after operator correction
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	var req saveProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	vertical, err := domain.ParseVertical(req.Vertical)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load product"})
		return
	}

	product.Vertical = vertical
	product.GTIN = req.GTIN
	product.Title = req.Title
	product.Brand = req.Brand
	product.Category = req.Category
	product.Subcategory = req.Subcategory
	product.NCM = req.NCM
	product.CEST = req.CEST
	product.Attributes = req.Attributes
	product.Confidence = req.Confidence
	if req.Fingerprint != "" {
		product.Fingerprint = req.Fingerprint
	}
	product.Price = nil
	if req.Price != "" {
		price, err := parsePriceField(req.Price)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
			return
		}
		product.Price = price
	}

	if err := h.products.Update(c.Request.Context(), product); err != nil {
		if errors.Is(err, domain.ErrDuplicateGTIN) {
			c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("product with GTIN %s already exists", req.GTIN)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update product"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// ListProducts returns a filtered, paged product listing
func (h *Handler) ListProducts(c *gin.Context) {
	filter := domain.ProductFilter{
		Category: c.Query("category"),
		Brand:    c.Query("brand"),
		Sort:     c.DefaultQuery("sort", "newest"),
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "page_size", 50),
	}

	products, total, err := h.products.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}

	c.JSON(http.StatusOK, gin.H{
		"products":  products,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

// GetProduct returns a single product by ID
func (h *Handler) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	product, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load product"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a product by ID
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete product"})
		return
	}

	c.Status(http.StatusNoContent)
}

// ExportProducts streams the catalog as CSV or XLSX (?format=csv|xlsx)
func (h *Handler) ExportProducts(c *gin.Context) {
	filter := domain.ProductFilter{
		Category: c.Query("category"),
		Brand:    c.Query("brand"),
		Sort:     "newest",
	}

	stamp := time.Now().Format("20060102-150405")
	switch c.DefaultQuery("format", "csv") {
	case "csv":
		data, err := h.exporter.ExportCSV(c.Request.Context(), filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=produtos-%s.csv", stamp))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", data)

	case "xlsx":
		data, err := h.exporter.ExportXLSX(c.Request.Context(), filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=produtos-%s.xlsx", stamp))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
	}
}

func intQuery(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

// parsePriceField accepts both "12,90" and "12.90"
func parsePriceField(s string) (*decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return nil, err
	}
	return &d, nil
}
