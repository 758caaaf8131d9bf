package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/AnomFIN/AnomRadar/internal/handlers"
	"github.com/AnomFIN/AnomRadar/internal/services"
)

func InitScanRoutes(router *gin.RouterGroup, scanService services.ScanServiceMethods) {
	handlers := handlers.NewScanHandler(scanService)

	scanRoutes := router.Group("/scans")
	{
		scanRoutes.POST("", handlers.StartScan)
		scanRoutes.GET("", handlers.ListScans)
		scanRoutes.GET("/:id", handlers.GetScanByUUID)
		scanRoutes.GET("/:id/findings", handlers.GetScanFindings)
		scanRoutes.GET("/:id/report", handlers.GetScanReport)
		scanRoutes.DELETE("/:id", handlers.DeleteScan)
	}
}
