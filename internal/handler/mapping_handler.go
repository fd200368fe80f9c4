// internal/handler/mapping_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quadica-engraving-core/internal/model"
	"quadica-engraving-core/internal/repository"
	"quadica-engraving-core/internal/sku"
	"quadica-engraving-core/internal/utils"
)

// MappingHandler administers the legacy SKU mapping table (§4.G).
type MappingHandler struct {
	repo     repository.MappingRepository
	resolver *sku.Resolver
	logger   *utils.ServiceLogger
}

// NewMappingHandler creates a new legacy SKU mapping handler.
func NewMappingHandler(repo repository.MappingRepository, resolver *sku.Resolver, logger *zap.Logger) *MappingHandler {
	return &MappingHandler{
		repo:     repo,
		resolver: resolver,
		logger:   utils.NewServiceLogger(logger, "mapping-handler"),
	}
}

// RegisterRoutes registers the legacy SKU mapping admin routes.
func (h *MappingHandler) RegisterRoutes(router *gin.RouterGroup) {
	mappings := router.Group("/sku-mappings")
	{
		mappings.GET("", h.List)
		mappings.POST("", h.Create)
		mappings.DELETE("", h.Deactivate)
	}
}

// List returns every active legacy mapping row.
// @Summary List active legacy SKU mappings
// @Tags SKU Mappings
// @Produce json
// @Success 200 {object} utils.APIResponse "Active mappings"
// @Router /sku-mappings [get]
func (h *MappingHandler) List(c *gin.Context) {
	mappings, err := h.repo.ListActive(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to list mappings", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "mappings retrieved", mappings)
}

type createMappingRequest struct {
	Pattern       string `json:"pattern" binding:"required"`
	MatchType     string `json:"match_type" binding:"required"`
	CanonicalCode string `json:"canonical_code" binding:"required"`
	Revision      string `json:"revision"`
	Priority      uint16 `json:"priority"`
	Description   string `json:"description"`
}

// Create inserts a new legacy SKU mapping row and invalidates the
// resolver's memoized lookups.
// @Summary Create a legacy SKU mapping
// @Tags SKU Mappings
// @Accept json
// @Produce json
// @Param request body createMappingRequest true "Mapping row"
// @Success 201 {object} utils.APIResponse "Mapping created"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Router /sku-mappings [post]
func (h *MappingHandler) Create(c *gin.Context) {
	var req createMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	m := model.SKUMapping{
		Pattern:       req.Pattern,
		MatchType:     model.MatchType(req.MatchType),
		CanonicalCode: req.CanonicalCode,
		Revision:      req.Revision,
		Priority:      req.Priority,
		Active:        true,
		Description:   req.Description,
	}

	if err := sku.ValidateMatchType(m); err != nil {
		respondDomainError(c, "invalid match type", err)
		return
	}

	if err := h.repo.Create(c.Request.Context(), m); err != nil {
		respondDomainError(c, "failed to create mapping", err)
		return
	}

	h.resolver.Invalidate()
	utils.SuccessResponse(c, http.StatusCreated, "mapping created", m)
}

type deactivateMappingRequest struct {
	Pattern   string `json:"pattern" binding:"required"`
	MatchType string `json:"match_type" binding:"required"`
}

// Deactivate marks a legacy mapping row inactive and invalidates the
// resolver's memoized lookups.
// @Summary Deactivate a legacy SKU mapping
// @Tags SKU Mappings
// @Accept json
// @Produce json
// @Param request body deactivateMappingRequest true "Mapping key"
// @Success 200 {object} utils.APIResponse "Mapping deactivated"
// @Router /sku-mappings [delete]
func (h *MappingHandler) Deactivate(c *gin.Context) {
	var req deactivateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.repo.Deactivate(c.Request.Context(), req.Pattern, model.MatchType(req.MatchType)); err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "mapping not found", err)
		return
	}

	h.resolver.Invalidate()
	utils.SuccessResponse(c, http.StatusOK, "mapping deactivated", nil)
}
