package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaypost/relaypost/internal/domain"
	"github.com/relaypost/relaypost/pkg/logger"
)

// SuppressionHandler serves the suppression list API.
type SuppressionHandler struct {
	service domain.SuppressionService
	logger  logger.Logger
}

// NewSuppressionHandler creates a new suppression handler
func NewSuppressionHandler(service domain.SuppressionService, logger logger.Logger) *SuppressionHandler {
	return &SuppressionHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts the handler's routes onto an authenticated router.
func (h *SuppressionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/suppressions", h.handleList)
	r.Get("/suppressions/check", h.handleCheck)
	r.Get("/suppressions/stats", h.handleStats)
	r.Post("/suppressions", h.handleCreate)
	r.Delete("/suppressions/{id}", h.handleDelete)
}

func (h *SuppressionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	auth, ok := domain.AuthFromContext(r.Context())
	if !ok {
		WriteJSONError(w, http.StatusUnauthorized, "Missing Authorization header")
		return
	}

	var params domain.SuppressionListParams
	if err := params.FromQuery(r.URL.Query()); err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	suppressions, pagination, err := h.service.List(r.Context(), auth.User.ID, params)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       suppressions,
		"pagination": pagination,
	})
}

func (h *SuppressionHandler) handleCheck(w http.ResponseWriter, r *http.Request) {
	auth, ok := domain.AuthFromContext(r.Context())
	if !ok {
		WriteJSONError(w, http.StatusUnauthorized, "Missing Authorization header")
		return
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		WriteJSONError(w, http.StatusBadRequest, "email parameter is required")
		return
	}
	email = domain.NormalizeEmail(email)

	// The check endpoint answers for the whole tenant, so domain scope is
	// left open to match every row including domain-scoped ones.
	suppressed, err := h.service.CheckSuppressed(r.Context(), auth.User.ID, []string{email}, auth.Domain.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"email":      email,
		"suppressed": len(suppressed) > 0,
	})
}

func (h *SuppressionHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	auth, ok := domain.AuthFromContext(r.Context())
	if !ok {
		WriteJSONError(w, http.StatusUnauthorized, "Missing Authorization header")
		return
	}

	stats, err := h.service.GetStats(r.Context(), auth.User.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *SuppressionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	auth, ok := domain.AuthFromContext(r.Context())
	if !ok {
		WriteJSONError(w, http.StatusUnauthorized, "Missing Authorization header")
		return
	}

	var req domain.CreateSuppressionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	suppression, err := h.service.Add(r.Context(), auth.User.ID, req.Email, req.Reason, nil, req.DomainID, req.Metadata)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, suppression)
}

func (h *SuppressionHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	auth, ok := domain.AuthFromContext(r.Context())
	if !ok {
		WriteJSONError(w, http.StatusUnauthorized, "Missing Authorization header")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Remove(r.Context(), auth.User.ID, id); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
