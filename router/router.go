package router

import (
	"Go_Shelf/config"
	"Go_Shelf/internal/handler"
	"Go_Shelf/internal/logger"
	"Go_Shelf/internal/metrics"
	"Go_Shelf/utils"

	"github.com/gin-gonic/gin"
)

// InitRouter builds API routes.
func InitRouter() *gin.Engine {
	r := gin.New()
	r.Use(utils.Recovery(logger.L))
	r.Use(utils.RequestLogger(logger.L))
	r.Use(utils.CORSMiddleware(config.AppConfig.FrontendURL))
	r.Use(metrics.Middleware())
	r.NoRoute(utils.NotFound)

	r.GET("/", handler.Liveness)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	{
		api.GET("/health", handler.Health)

		admin := utils.AdminMiddleware()

		resources := api.Group("/resources")
		{
			resources.GET("", handler.ListResources)
			resources.GET("/allowed-types", handler.AllowedTypes)
			resources.GET("/download/:id", handler.DownloadResource)
			resources.GET("/preview/:id", handler.PreviewResource)
			resources.POST("/upload", admin, handler.UploadResource)
			resources.DELETE("/:id", admin, handler.DeleteResource)
		}

		videos := api.Group("/videos")
		{
			videos.GET("", handler.ListVideos)
			videos.POST("", admin, handler.CreateVideo)
			videos.DELETE("/:id", admin, handler.DeleteVideo)
		}

		catalog := api.Group("/catalog")
		{
			catalog.GET("/semesters/:semester", handler.SemesterCatalog)
			catalog.GET("/videos", handler.VideoCatalog)
		}

		session := api.Group("/admin")
		{
			session.POST("/login", handler.Login)
			session.GET("/session", utils.RequireAdmin, handler.Session)
			session.POST("/logout", utils.RequireAdmin, handler.Logout)
			session.GET("/cleanup-tasks", admin, handler.ListCleanupTasks)
		}
	}
	return r
}
