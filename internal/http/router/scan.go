package router

import (
	"github.com/gin-gonic/gin"

	"github.com/mplacona/ThreadScout/internal/http/handler"
)

func ScanRouter(rg *gin.RouterGroup, h *handler.ScanHandler) {
	rg.POST("", h.RequireAPIKey(), h.Start)
	rg.GET("/:id/events", h.Events)
	rg.POST("/:id/cancel", h.RequireAPIKey(), h.Cancel)
}
