package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/relaypost/relaypost/internal/domain"
	"github.com/relaypost/relaypost/internal/service"
	"github.com/relaypost/relaypost/pkg/logger"
)

func newTrackingRouter(t *testing.T, svc domain.TrackingService) http.Handler {
	r := chi.NewRouter()
	NewTrackingHandler(svc, logger.NewTestLogger(t)).RegisterRoutes(r)
	return r
}

func TestTrackingHandler_Open(t *testing.T) {
	t.Run("serves the 42-byte GIF and records the hit", func(t *testing.T) {
		svc := &service.MockTrackingService{}
		svc.On("RecordOpen", mock.Anything, "abc123", "1.2.3.4", "TestUA").Return()

		router := newTrackingRouter(t, svc)
		req := httptest.NewRequest(http.MethodGet, "/t/o/abc123", nil)
		req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
		req.Header.Set("User-Agent", "TestUA")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/gif", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
		assert.Len(t, rec.Body.Bytes(), 42)
		assert.Equal(t, pixelGIF, rec.Body.Bytes())
		svc.AssertExpectations(t)
	})

	t.Run("unknown id still serves the GIF", func(t *testing.T) {
		svc := &service.MockTrackingService{}
		svc.On("RecordOpen", mock.Anything, "missing", mock.Anything, mock.Anything).Return()

		router := newTrackingRouter(t, svc)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/t/o/missing", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, pixelGIF, rec.Body.Bytes())
	})

	t.Run("falls back to X-Real-IP", func(t *testing.T) {
		svc := &service.MockTrackingService{}
		svc.On("RecordOpen", mock.Anything, "abc123", "9.8.7.6", mock.Anything).Return()

		router := newTrackingRouter(t, svc)
		req := httptest.NewRequest(http.MethodGet, "/t/o/abc123", nil)
		req.Header.Set("X-Real-IP", "9.8.7.6")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		svc.AssertExpectations(t)
	})
}

func TestTrackingHandler_Click(t *testing.T) {
	t.Run("redirects to the original URL", func(t *testing.T) {
		svc := &service.MockTrackingService{}
		svc.On("RecordClick", mock.Anything, "click1", mock.Anything, mock.Anything).
			Return("https://a.example.com/page", nil)

		router := newTrackingRouter(t, svc)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/t/c/click1", nil))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://a.example.com/page", rec.Header().Get("Location"))
		assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
	})

	t.Run("unknown id returns 404 JSON", func(t *testing.T) {
		svc := &service.MockTrackingService{}
		svc.On("RecordClick", mock.Anything, "missing", mock.Anything, mock.Anything).
			Return("", &domain.ErrNotFound{Entity: "tracking link", ID: "missing"})

		router := newTrackingRouter(t, svc)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/t/c/missing", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "not_found")
	})
}

func TestPixelGIFIsWellFormed(t *testing.T) {
	require.Len(t, pixelGIF, 42)
	assert.Equal(t, "GIF89a", string(pixelGIF[:6]))
	assert.Equal(t, byte(0x3b), pixelGIF[len(pixelGIF)-1])
}
