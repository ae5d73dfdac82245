package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mplacona/ThreadScout/internal/http/handler"
	"github.com/mplacona/ThreadScout/internal/model"
	"github.com/mplacona/ThreadScout/internal/scan"
)

var _ = Describe("ScanHandler", func() {
	var (
		router   *gin.Engine
		starter  *mockStarter
		registry scan.Registry
	)

	const adminAPIKey = "test-admin-key"

	setup := func(apiKey string) {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		starter = &mockStarter{}
		registry = scan.NewRegistry()
		h := handler.NewScanHandler(starter, registry, apiKey)
		router.POST("/scan", h.RequireAPIKey(), h.Start)
		router.GET("/scan/:id/events", h.Events)
		router.POST("/scan/:id/cancel", h.RequireAPIKey(), h.Cancel)
	}

	startBody := func() *bytes.Buffer {
		body, _ := json.Marshal(map[string]any{
			"subreddits": []string{"golang"},
			"keywords":   []string{"cache"},
		})
		return bytes.NewBuffer(body)
	}

	Describe("Start", func() {
		BeforeEach(func() { setup("") })

		It("returns 202 with the session id", func() {
			starter.startFn = func(_ context.Context, req model.ScanRequest) (scan.Handle, error) {
				Expect(req.Subreddits).To(Equal([]string{"golang"}))
				return newFakeSession("scan_1", scan.StateRunning), nil
			}

			req := httptest.NewRequest(http.MethodPost, "/scan", startBody())
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["session_id"]).To(Equal("scan_1"))
			Expect(resp["status"]).To(Equal("running"))
		})

		It("returns 400 on invalid request body", func() {
			req := httptest.NewRequest(http.MethodPost, "/scan", bytes.NewBufferString(`{"subreddits": []}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 409 when the session id is already running", func() {
			starter.startFn = func(_ context.Context, _ model.ScanRequest) (scan.Handle, error) {
				return nil, fmt.Errorf("%w: scan_1", scan.ErrDuplicateSession)
			}

			req := httptest.NewRequest(http.MethodPost, "/scan", startBody())
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusConflict))
		})
	})

	Describe("RequireAPIKey", func() {
		BeforeEach(func() { setup(adminAPIKey) })

		It("rejects requests without a key", func() {
			req := httptest.NewRequest(http.MethodPost, "/scan", startBody())
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("accepts the X-Admin-API-Key header", func() {
			starter.startFn = func(_ context.Context, _ model.ScanRequest) (scan.Handle, error) {
				return newFakeSession("scan_1", scan.StateRunning), nil
			}

			req := httptest.NewRequest(http.MethodPost, "/scan", startBody())
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Admin-API-Key", adminAPIKey)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))
		})

		It("accepts a bearer token", func() {
			starter.startFn = func(_ context.Context, _ model.ScanRequest) (scan.Handle, error) {
				return newFakeSession("scan_1", scan.StateRunning), nil
			}

			req := httptest.NewRequest(http.MethodPost, "/scan", startBody())
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+adminAPIKey)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))
		})
	})

	Describe("Cancel", func() {
		BeforeEach(func() { setup("") })

		It("cancels a running session", func() {
			session := newFakeSession("scan_1", scan.StateRunning)
			Expect(registry.Register("scan_1", session)).To(Succeed())

			req := httptest.NewRequest(http.MethodPost, "/scan/scan_1/cancel", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(session.wasCancelled()).To(BeTrue())

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["cancelled"]).To(BeTrue())
		})

		It("is a no-op for an unknown session", func() {
			req := httptest.NewRequest(http.MethodPost, "/scan/nope/cancel", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["cancelled"]).To(BeFalse())
		})
	})

	Describe("Events", func() {
		BeforeEach(func() { setup("") })

		It("returns 404 for an unknown session", func() {
			req := httptest.NewRequest(http.MethodGet, "/scan/nope/events", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("streams events until the channel closes", func() {
			session := newFakeSession("scan_1", scan.StateRunning)
			Expect(registry.Register("scan_1", session)).To(Succeed())

			session.events <- model.ScanEvent{Type: model.EventStatus, Message: "discovering threads"}
			session.events <- model.ScanEvent{Type: model.EventCompleted, TotalThreads: 1}
			close(session.events)

			req := httptest.NewRequest(http.MethodGet, "/scan/scan_1/events", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Header().Get("Content-Type")).To(Equal("text/event-stream"))
			body := w.Body.String()
			Expect(body).To(ContainSubstring("event: ping"))
			Expect(body).To(ContainSubstring("event: status"))
			Expect(body).To(ContainSubstring("event: completed"))
			Expect(body).To(ContainSubstring(`"total_threads":1`))
		})
	})
})
