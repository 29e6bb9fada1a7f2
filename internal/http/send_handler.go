// Package http exposes the JSON API and the public tracking endpoints.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaypost/relaypost/internal/domain"
	"github.com/relaypost/relaypost/pkg/logger"
)

// SendHandler serves message submission and the identity echo.
type SendHandler struct {
	service domain.SendService
	logger  logger.Logger
}

// NewSendHandler creates a new send handler
func NewSendHandler(service domain.SendService, logger logger.Logger) *SendHandler {
	return &SendHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts the handler's routes onto an authenticated router.
func (h *SendHandler) RegisterRoutes(r chi.Router) {
	r.Post("/send", h.handleSend)
	r.Get("/me", h.handleMe)
}

func (h *SendHandler) handleSend(w http.ResponseWriter, r *http.Request) {
	auth, ok := domain.AuthFromContext(r.Context())
	if !ok {
		WriteJSONError(w, http.StatusUnauthorized, "Missing Authorization header")
		return
	}

	var req domain.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Send(r.Context(), auth, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *SendHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	auth, ok := domain.AuthFromContext(r.Context())
	if !ok {
		WriteJSONError(w, http.StatusUnauthorized, "Missing Authorization header")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": map[string]string{
			"id":    auth.User.ID,
			"email": auth.User.Email,
			"name":  auth.User.Name,
		},
		"domain": map[string]interface{}{
			"id":           auth.Domain.ID,
			"name":         auth.Domain.Name,
			"txt_verified": auth.Domain.TXTVerified,
		},
		"api_key": map[string]string{
			"id":   auth.APIKey.ID,
			"name": auth.APIKey.Name,
		},
	})
}
