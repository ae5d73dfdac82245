package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mplacona/ThreadScout/internal/http/dto"
	"github.com/mplacona/ThreadScout/internal/store"
)

type SessionHandler struct {
	sessions store.SessionStore
}

func NewSessionHandler(sessions store.SessionStore) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	keys, err := h.sessions.List(ctx, c.Query("prefix"))
	if err != nil {
		slog.ErrorContext(ctx, "failed to list sessions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}
	if keys == nil {
		keys = []string{}
	}

	c.JSON(http.StatusOK, dto.SessionListResponse{Sessions: keys})
}

func (h *SessionHandler) GetByID(c *gin.Context) {
	ctx := c.Request.Context()

	record, err := h.sessions.Read(ctx, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, store.ErrInvalidKey):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			slog.ErrorContext(ctx, "failed to read session", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read session"})
		}
		return
	}

	c.JSON(http.StatusOK, record)
}
