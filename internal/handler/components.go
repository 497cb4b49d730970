package handler

import (
	"net/http"

	"candycost/internal/dto"
	"candycost/internal/service"

	"github.com/gin-gonic/gin"
)

type ComponentsHandler struct{ svc service.ComponentService }

func NewComponentsHandler(svc service.ComponentService) *ComponentsHandler {
	return &ComponentsHandler{svc: svc}
}

// List godoc
// @Summary Paginated component list
// @Tags components
// @Produce json
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size"
// @Param category query string false "Category filter"
// @Success 200 {object} dto.ComponentListResponse
// @Router /components [get]
func (h *ComponentsHandler) List(c *gin.Context) {
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

func (h *ComponentsHandler) Search(c *gin.Context) {
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

func (h *ComponentsHandler) Categories(c *gin.Context) {
	resp, err := h.svc.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ComponentsHandler) GetByID(c *gin.Context) {
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
// @Summary Create a component
// @Tags components
// @Accept json
// @Produce json
// @Param body body dto.CreateComponentRequest true "Component"
// @Success 201 {object} dto.ComponentResponse
// @Failure 409 {object} apierror.APIError
// @Router /components [post]
func (h *ComponentsHandler) Create(c *gin.Context) {
	var req dto.CreateComponentRequest
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

func (h *ComponentsHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.UpdateComponentRequest
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

func (h *ComponentsHandler) Delete(c *gin.Context) {
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
