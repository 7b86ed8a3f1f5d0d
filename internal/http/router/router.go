package router

import (
	"net/http"

	"basegraph.app/intake/internal/http/handler"
	"basegraph.app/intake/internal/http/middleware"
	"basegraph.app/intake/internal/service"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	TraceHeaderName string
	IntakeKey       string
}

func SetupRoutes(router *gin.Engine, ingest service.SubmissionIngestService, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		submissionHandler := handler.NewSubmissionHandler(ingest, cfg.TraceHeaderName)
		SubmissionRouter(v1.Group("/submissions", middleware.RequireIntakeKey(cfg.IntakeKey)), submissionHandler)
	}
}
