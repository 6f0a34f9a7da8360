package api

import (
	"html/template"

	"ai-research-platform/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRoutes configures all API routes
func SetupRoutes(handlers *Handlers, templates *template.Template, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(cors.Config{
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowAllOrigins: true,
	}))

	if templates != nil {
		router.SetHTMLTemplate(templates)
	}

	api := router.Group("/api")
	{
		research := api.Group("/research")
		{
			research.POST("", handlers.StartResearchHandler)
			research.GET("/documents", handlers.ListDocumentsHandler)
			research.GET("/results", handlers.ListResultsHandler)
			research.GET("/previous", handlers.PreviousResultsHandler)
			research.GET("/:taskId/status", handlers.GetStatusHandler)
			research.GET("/:taskId/progressive", handlers.GetProgressiveHandler)
			research.GET("/:taskId/result", handlers.GetResultHandler)
			research.GET("/:taskId/download", handlers.DownloadHandler)
			research.DELETE("/:taskId", handlers.DeleteResearchHandler)
		}

		api.GET("/models", handlers.ListModelsHandler)

		dashboard := api.Group("/dashboard")
		{
			dashboard.GET("/overview", handlers.DashboardOverviewHandler)
			dashboard.GET("/ideas", handlers.DashboardIdeasHandler)
		}
	}

	router.GET("/research/:taskId", handlers.ReportPageHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", handlers.HealthHandler)

	return router
}
