package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mplacona/ThreadScout/internal/http/handler"
	"github.com/mplacona/ThreadScout/internal/model"
	"github.com/mplacona/ThreadScout/internal/store"
)

var _ = Describe("SessionHandler", func() {
	var (
		router   *gin.Engine
		sessions *mockSessionStore
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		sessions = &mockSessionStore{}
		h := handler.NewSessionHandler(sessions)
		router.GET("/sessions", h.List)
		router.GET("/sessions/:id", h.GetByID)
	})

	Describe("List", func() {
		It("returns session keys", func() {
			sessions.listFn = func(_ context.Context, prefix string) ([]string, error) {
				Expect(prefix).To(Equal("scan_"))
				return []string{"scan_1", "scan_2"}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/sessions?prefix=scan_", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string][]string
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["sessions"]).To(Equal([]string{"scan_1", "scan_2"}))
		})

		It("returns an empty list rather than null", func() {
			req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"sessions":[]`))
		})

		It("returns 500 when the store fails", func() {
			sessions.listFn = func(_ context.Context, _ string) ([]string, error) {
				return nil, errors.New("disk on fire")
			}

			req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("GetByID", func() {
		It("returns the session record", func() {
			sessions.readFn = func(_ context.Context, key string) (*model.SessionRecord, error) {
				Expect(key).To(Equal("scan_1"))
				return &model.SessionRecord{
					SessionID: "scan_1",
					CreatedAt: time.Now().UTC(),
				}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/sessions/scan_1", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["session_id"]).To(Equal("scan_1"))
		})

		It("returns 404 for a missing session", func() {
			sessions.readFn = func(_ context.Context, _ string) (*model.SessionRecord, error) {
				return nil, store.ErrNotFound
			}

			req := httptest.NewRequest(http.MethodGet, "/sessions/nope", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for an invalid key", func() {
			sessions.readFn = func(_ context.Context, key string) (*model.SessionRecord, error) {
				return nil, store.ValidateKey(key)
			}

			req := httptest.NewRequest(http.MethodGet, "/sessions/bad.key", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
