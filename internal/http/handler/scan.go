package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mplacona/ThreadScout/internal/http/dto"
	"github.com/mplacona/ThreadScout/internal/model"
	"github.com/mplacona/ThreadScout/internal/scan"
	"github.com/mplacona/ThreadScout/internal/store"
)

// ScanStarter starts scan sessions. Satisfied by *scan.Pipeline.
type ScanStarter interface {
	Start(ctx context.Context, req model.ScanRequest) (scan.Handle, error)
}

type ScanHandler struct {
	pipeline    ScanStarter
	registry    scan.Registry
	adminAPIKey string
}

func NewScanHandler(pipeline ScanStarter, registry scan.Registry, adminAPIKey string) *ScanHandler {
	return &ScanHandler{pipeline: pipeline, registry: registry, adminAPIKey: adminAPIKey}
}

func (h *ScanHandler) Start(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.StartScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid scan request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.pipeline.Start(ctx, req.ToScanRequest())
	if err != nil {
		switch {
		case errors.Is(err, scan.ErrDuplicateSession):
			c.JSON(http.StatusConflict, gin.H{"error": "a scan with this session id is already running"})
		case errors.Is(err, store.ErrInvalidKey),
			errors.Is(err, model.ErrNoSubreddits),
			errors.Is(err, model.ErrNoKeywords):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			slog.ErrorContext(ctx, "failed to start scan", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start scan"})
		}
		return
	}

	c.JSON(http.StatusAccepted, dto.StartScanResponse{
		SessionID: session.ID(),
		Status:    string(session.State()),
	})
}

// Events streams a running session's events over SSE until the terminal
// event. A session is expected to have a single stream consumer.
func (h *ScanHandler) Events(c *gin.Context) {
	sessionID := c.Param("id")
	session, ok := h.registry.Find(sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no running scan with this session id"})
		return
	}

	setSSEHeaders(c.Writer)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	sseWrite(c.Writer, "ping", "ready")
	flusher.Flush()

	clientClosed := c.Request.Context().Done()

	for {
		select {
		case <-clientClosed:
			return
		case event, open := <-session.Events():
			if !open {
				return
			}
			sseWrite(c.Writer, string(event.Type), event)
			flusher.Flush()
		}
	}
}

// Cancel requests cooperative cancellation. Cancelling an unknown or
// already-finished session is a no-op, not an error.
func (h *ScanHandler) Cancel(c *gin.Context) {
	sessionID := c.Param("id")
	cancelled := h.registry.Cancel(sessionID)
	if !cancelled {
		slog.InfoContext(c.Request.Context(), "cancel requested for unknown session", "session_id", sessionID)
	}
	c.JSON(http.StatusOK, dto.CancelScanResponse{SessionID: sessionID, Cancelled: cancelled})
}

// RequireAPIKey guards mutating endpoints when an admin API key is
// configured. Without one configured, requests pass through (development).
func (h *ScanHandler) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.adminAPIKey == "" {
			c.Next()
			return
		}

		apiKey := c.GetHeader("X-Admin-API-Key")
		if apiKey == "" {
			apiKey = c.GetHeader("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}

		if apiKey != h.adminAPIKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
}

func sseWrite(w http.ResponseWriter, event string, data any) {
	payload := marshalPayload(data)
	if event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event)
	}
	for _, line := range strings.Split(payload, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
}

func marshalPayload(data any) string {
	switch payload := data.(type) {
	case string:
		return payload
	case []byte:
		return string(payload)
	default:
		bytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Sprintf("%v", data)
		}
		return string(bytes)
	}
}
