package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaypost/relaypost/internal/domain"
	"github.com/relaypost/relaypost/pkg/logger"
)

// EventHandler serves the event API and external event ingestion.
type EventHandler struct {
	service domain.EventService
	logger  logger.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(service domain.EventService, logger logger.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts the handler's routes onto an authenticated router.
func (h *EventHandler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.handleList)
	r.Get("/events/stats", h.handleStats)
	r.Get("/events/{messageID}", h.handleGetByMessageID)
	r.Post("/events", h.handleIngest)
}

func (h *EventHandler) handleList(w http.ResponseWriter, r *http.Request) {
	auth, ok := domain.AuthFromContext(r.Context())
	if !ok {
		WriteJSONError(w, http.StatusUnauthorized, "Missing Authorization header")
		return
	}

	var params domain.EventListParams
	if err := params.FromQuery(r.URL.Query()); err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, pagination, err := h.service.List(r.Context(), auth.User.ID, params)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       events,
		"pagination": pagination,
	})
}

func (h *EventHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	auth, ok := domain.AuthFromContext(r.Context())
	if !ok {
		WriteJSONError(w, http.StatusUnauthorized, "Missing Authorization header")
		return
	}

	query := r.URL.Query()
	var params domain.EventListParams
	if err := params.FromQuery(query); err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.service.GetStats(r.Context(), auth.User.ID, params.StartDate, params.EndDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *EventHandler) handleGetByMessageID(w http.ResponseWriter, r *http.Request) {
	auth, ok := domain.AuthFromContext(r.Context())
	if !ok {
		WriteJSONError(w, http.StatusUnauthorized, "Missing Authorization header")
		return
	}

	messageID := chi.URLParam(r, "messageID")
	grouped, err := h.service.GetByMessageID(r.Context(), auth.User.ID, messageID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messageId":  messageID,
		"recipients": grouped,
	})
}

func (h *EventHandler) handleIngest(w http.ResponseWriter, r *http.Request) {
	auth, ok := domain.AuthFromContext(r.Context())
	if !ok {
		WriteJSONError(w, http.StatusUnauthorized, "Missing Authorization header")
		return
	}

	var req domain.IngestEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	event, err := h.service.Ingest(r.Context(), auth, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}
