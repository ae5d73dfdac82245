package router

import (
	"github.com/gin-gonic/gin"

	"github.com/mplacona/ThreadScout/internal/http/handler"
)

func SetupRoutes(router *gin.Engine, scanHandler *handler.ScanHandler, sessionHandler *handler.SessionHandler) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		ScanRouter(v1.Group("/scan"), scanHandler)
		SessionRouter(v1.Group("/sessions"), sessionHandler)
	}
}
