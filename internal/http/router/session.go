package router

import (
	"github.com/gin-gonic/gin"

	"github.com/mplacona/ThreadScout/internal/http/handler"
)

func SessionRouter(rg *gin.RouterGroup, h *handler.SessionHandler) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
}
