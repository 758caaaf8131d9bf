package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/AnomFIN/AnomRadar/internal/handlers"
	"github.com/AnomFIN/AnomRadar/internal/services"
)

func InitCatalogRoutes(router *gin.RouterGroup, catalogService services.CatalogServiceMethods) {
	handlers := handlers.NewCatalogHandler(catalogService)

	catalogRoutes := router.Group("/catalog")
	{
		catalogRoutes.GET("/plans", handlers.GetScanPlans)
		catalogRoutes.GET("/probes", handlers.GetProbes)
	}
}
