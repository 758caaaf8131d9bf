package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/AnomFIN/AnomRadar/internal/config"
	"github.com/AnomFIN/AnomRadar/internal/dao"
	"github.com/AnomFIN/AnomRadar/internal/services"
)

// InitRouter wires the REST API. The returned scan service is handed back
// so the server can drain it on shutdown.
func InitRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, services.ScanServiceMethods) {
	router := gin.Default()
	router.Static("/reports", cfg.ReportDir)

	scanDao := dao.NewScanDAO(db)
	scanService := services.NewScanService(scanDao, cfg)
	catalogService := services.NewCatalogService()

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// REST APIs
	api := router.Group("/api")
	{
		InitScanRoutes(api, scanService)
		InitCatalogRoutes(api, catalogService)
	}

	return router, scanService
}
