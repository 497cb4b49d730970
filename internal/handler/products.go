package handler

import (
	"context"
	"fmt"
	"net/http"

	"candycost/internal/dto"
	"candycost/internal/infra"
	"candycost/internal/middleware"
	"candycost/internal/service"

	"github.com/gin-gonic/gin"
)

// RecostQueue accepts background recalculation requests.
type RecostQueue interface {
	EnqueueRecost(ctx context.Context, requestedBy string) error
}

type ProductsHandler struct {
	svc   service.ProductService
	queue RecostQueue
}

// NewProductsHandler builds the handler. With a nil queue, recalculation
// runs inline.
func NewProductsHandler(svc service.ProductService, queue RecostQueue) *ProductsHandler {
	return &ProductsHandler{svc: svc, queue: queue}
}

// List godoc
// @Summary Paginated product list with derived costs
// @Tags products
// @Produce json
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size"
// @Param category query string false "Category filter"
// @Success 200 {object} dto.ProductListResponse
// @Router /products [get]
func (h *ProductsHandler) List(c *gin.Context) {
	var filter dto.ListFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) Search(c *gin.Context) {
	var q dto.SearchQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.svc.Search(c.Request.Context(), q.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) Categories(c *gin.Context) {
	resp, err := h.svc.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary Create a product; its cost is derived from the bill of materials
// @Tags products
// @Accept json
// @Produce json
// @Param body body dto.CreateProductRequest true "Product"
// @Success 201 {object} dto.ProductResponse
// @Failure 422 {object} apierror.APIError "unresolved reference, unit mismatch, cycle or invalid yield"
// @Router /products [post]
func (h *ProductsHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ProductsHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Cost godoc
// @Summary Line-by-line cost breakdown
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} dto.CostBreakdownResponse
// @Router /products/{id}/cost [get]
func (h *ProductsHandler) Cost(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.CostBreakdown(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) CostHistory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var filter dto.HistoryFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.CostHistory(c.Request.Context(), id, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CostSheet renders the breakdown as a printable PDF.
func (h *ProductsHandler) CostSheet(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	breakdown, err := h.svc.CostBreakdown(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	pdf, err := infra.RenderCostSheet(breakdown)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="cost-sheet-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// Recalculate godoc
// @Summary Queue a full cost recalculation
// @Tags products
// @Produce json
// @Success 202 {object} dto.RecalculateResponse
// @Router /products/recalculate [post]
func (h *ProductsHandler) Recalculate(c *gin.Context) {
	if h.queue == nil {
		if _, err := h.svc.RecalculateAll(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.RecalculateResponse{Status: "done"})
		return
	}

	requestedBy := ""
	if claims := middleware.GetClaims(c); claims != nil {
		requestedBy = claims.UserID
	}
	if err := h.queue.EnqueueRecost(c.Request.Context(), requestedBy); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.RecalculateResponse{Status: "queued"})
}
