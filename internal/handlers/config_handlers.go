package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/AnomFIN/AnomRadar/internal/services"
	"github.com/AnomFIN/AnomRadar/pkg/logger"
)

type CatalogHandler struct {
	catalogService services.CatalogServiceMethods
	logger         *logger.Logger
}

func NewCatalogHandler(catalogService services.CatalogServiceMethods) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger.NewLogger(logrus.Level(logrus.InfoLevel)),
	}
}

// GetScanPlans lists the plans a scan request may name, builtin and
// file-provided alike.
func (h *CatalogHandler) GetScanPlans(c *gin.Context) {
	c.JSON(200, h.catalogService.GetScanPlans())
}

// GetProbes lists the registered probes in execution order.
func (h *CatalogHandler) GetProbes(c *gin.Context) {
	c.JSON(200, h.catalogService.GetProbes())
}
