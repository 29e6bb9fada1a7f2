package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/relaypost/relaypost/internal/domain"
	"github.com/relaypost/relaypost/pkg/logger"
)

// pixelGIF is a 42-byte transparent 1x1 GIF.
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, // GIF89a
	0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00,
	0x00, 0x00, 0x00, 0xff, 0xff, 0xff,
	0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00,
	0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
	0x02, 0x01, 0x44, 0x00, 0x3b,
}

const (
	maxIPLength        = 45
	maxUserAgentLength = 500
)

// TrackingHandler serves the public open-pixel and click-redirect
// endpoints. Neither is authenticated; the ids are opaque capability
// tokens.
type TrackingHandler struct {
	service domain.TrackingService
	logger  logger.Logger
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(service domain.TrackingService, logger logger.Logger) *TrackingHandler {
	return &TrackingHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts the tracking routes onto the public router.
func (h *TrackingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/t/o/{id}", h.handleOpen)
	r.Get("/t/c/{id}", h.handleClick)
}

// handleOpen registers the hit and always serves the pixel, whatever
// happened in the backend. Mail clients must never see an error here.
func (h *TrackingHandler) handleOpen(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.service.RecordOpen(r.Context(), id, clientIP(r), clientUserAgent(r))
	servePixel(w)
}

func (h *TrackingHandler) handleClick(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	url, err := h.service.RecordClick(r.Context(), id, clientIP(r), clientUserAgent(r))
	if err != nil {
		WriteJSONError(w, http.StatusNotFound, "Tracking link not found")
		return
	}

	setNoCacheHeaders(w)
	http.Redirect(w, r, url, http.StatusFound)
}

func servePixel(w http.ResponseWriter) {
	setNoCacheHeaders(w)
	w.Header().Set("Content-Type", "image/gif")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pixelGIF)
}

func setNoCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

// clientIP takes the first hop from X-Forwarded-For, then X-Real-IP,
// truncated to fit the column.
func clientIP(r *http.Request) string {
	ip := ""
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	} else if real := r.Header.Get("X-Real-IP"); real != "" {
		ip = strings.TrimSpace(real)
	}
	if len(ip) > maxIPLength {
		ip = ip[:maxIPLength]
	}
	return ip
}

func clientUserAgent(r *http.Request) string {
	ua := r.UserAgent()
	if len(ua) > maxUserAgentLength {
		ua = ua[:maxUserAgentLength]
	}
	return ua
}
