package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pawmed/billing-service/internal/service"
	"github.com/pawmed/billing-service/pkg/logger"
)

// CatalogHandler serves the purchasable catalog.
type CatalogHandler struct {
	catalog service.CatalogService
	log     *logger.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog service.CatalogService, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		log:     log,
	}
}

// Get returns the active plans and minute packages.
// GET /api/v1/catalog
func (h *CatalogHandler) Get(c *gin.Context) {
	plans, err := h.catalog.ListPlans(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to list plans")
		return
	}

	packages, err := h.catalog.ListMinutePackages(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to list minute packages")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plans":           plans,
		"minute_packages": packages,
	})
}
