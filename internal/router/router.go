package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ikkim/taxfiling-backend/config"
	"github.com/ikkim/taxfiling-backend/internal/app/controller"
	"github.com/ikkim/taxfiling-backend/internal/middleware"
)

type Router struct {
	reportController   *controller.TaxReportController
	profileController  *controller.TaxProfileController
	snapshotController *controller.TaxSnapshotController
	summaryController  *controller.TaxSummaryController
	eventsController   *controller.EventsController
	authMiddleware     *middleware.AuthMiddleware
	config             *config.Config
}

func NewRouter(
	reportController *controller.TaxReportController,
	profileController *controller.TaxProfileController,
	snapshotController *controller.TaxSnapshotController,
	summaryController *controller.TaxSummaryController,
	eventsController *controller.EventsController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		reportController:   reportController,
		profileController:  profileController,
		snapshotController: snapshotController,
		summaryController:  summaryController,
		eventsController:   eventsController,
		authMiddleware:     authMiddleware,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(cors.New(corsConfig(r.config.CORS.AllowedOrigins)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Tax filing API is running",
		})
	})

	v1 := router.Group("/api/v1")
	tax := v1.Group("/tax", r.authMiddleware.Authenticate())
	{
		reports := tax.Group("/reports")
		{
			reports.POST("/generate", r.reportController.Generate)
			reports.GET("", r.reportController.List)
			reports.POST("", r.reportController.Create)
			reports.GET("/:id", r.reportController.Get)
			reports.DELETE("/:id", r.reportController.Delete)
			reports.POST("/:id/submit", r.reportController.Submit)
			reports.POST("/:id/pay", r.reportController.Pay)
			reports.POST("/:id/archive", r.reportController.Archive)
			reports.POST("/:id/recalculate", r.reportController.Recalculate)
			reports.POST("/:id/document/upload-url", r.reportController.RequestUploadURL)
			reports.PUT("/:id/document", r.reportController.AttachDocument)
			reports.GET("/:id/document", r.reportController.GetDocument)
		}

		tax.GET("/periods", r.reportController.Periods)
		tax.GET("/summary", r.summaryController.GetSummary)

		tax.GET("/profile", r.profileController.GetProfile)
		tax.PUT("/profile", r.profileController.UpsertProfile)

		tax.POST("/snapshots", r.snapshotController.Lock)
		tax.GET("/snapshots/:source_type/:source_id", r.snapshotController.Get)

		if r.eventsController != nil {
			tax.GET("/events", r.eventsController.Stream)
		}
	}

	return router
}

// corsConfig allows every origin when none are configured or "*" is listed.
func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	cfg.ExposeHeaders = []string{middleware.RequestIDHeader}
	cfg.MaxAge = 12 * time.Hour

	for _, origin := range allowedOrigins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(allowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = allowedOrigins
	cfg.AllowCredentials = true
	return cfg
}
