package api

import (
	notificationshandler "backend/api/handlers/notifications"
	workflowhandler "backend/api/handlers/workflow"
	"backend/internal/auth"
	"backend/internal/config"
	"backend/internal/metrics"
	"backend/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// SetupRouter 装配 HTTP 路由
func SetupRouter(cfg *config.Config, db *gorm.DB, services *Services) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(TraceID())
	router.Use(RequestLogger())
	router.Use(CORS())
	router.Use(metrics.PrometheusMiddleware())

	// 探针与指标
	router.GET("/health", HealthCheck())
	router.GET("/ready", ReadinessCheck(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	wfHandler := workflowhandler.NewHandler(services.Manager, services.Scheduler, services.Registry, services.Stats)
	notifyHandler := notificationshandler.NewHandler(services.Dispatcher, services.Hub)

	apiGroup := router.Group("/api")
	apiGroup.Use(auth.AuthMiddleware(services.JWT))
	{
		wf := apiGroup.Group("/workflow")
		{
			wf.POST("/submit", wfHandler.Submit)
			wf.GET("/instances", wfHandler.List)
			wf.GET("/instances/:id", wfHandler.Get)
			wf.GET("/instances/:id/progress", wfHandler.GetProgress)
			wf.POST("/instances/:id/actions", wfHandler.ExecuteAction)
			wf.POST("/instances/:id/cancel",
				auth.RequireRole(workflow.RoleAdmin), wfHandler.Cancel)
			wf.GET("/pending", wfHandler.PendingReviews)
			wf.POST("/bulk-approve", wfHandler.BulkApprove)
			wf.GET("/statistics", wfHandler.Statistics)
		}

		notify := apiGroup.Group("/notifications")
		{
			notify.GET("", notifyHandler.List)
			notify.POST("/:id/read", notifyHandler.MarkRead)
			notify.GET("/stream", notifyHandler.Stream)
		}
	}

	return router
}
