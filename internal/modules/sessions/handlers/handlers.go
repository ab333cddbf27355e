// Package handlers provides HTTP handlers for session correlation state.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/fundrisk/internal/modules/risk"
	"github.com/aristath/fundrisk/internal/modules/sessions"
)

// Store is the subset of the session repository the handlers use.
type Store interface {
	Save(ctx context.Context, sessionID string, m risk.CorrelationMatrix) error
	Get(ctx context.Context, sessionID string) (*sessions.Entry, error)
	Delete(ctx context.Context, sessionID string) (bool, error)
	TTL() time.Duration
}

// Handler handles session HTTP requests
type Handler struct {
	store Store
	log   zerolog.Logger
}

// NewHandler creates a new session handler
func NewHandler(store Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "sessions").Logger(),
	}
}

// RegisterRoutes registers session routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/{id}/correlation", h.HandleGetCorrelation)
		r.Put("/{id}/correlation", h.HandlePutCorrelation)
		r.Delete("/{id}/correlation", h.HandleDeleteCorrelation)
	})
}

// HandleCreate handles POST /api/sessions
// Sessions are created lazily on first save; this only hands out an id.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": map[string]interface{}{
			"session_id":  uuid.New().String(),
			"ttl_seconds": int64(h.store.TTL().Seconds()),
		},
		"metadata": metadata(),
	})
}

// HandleGetCorrelation handles GET /api/sessions/{id}/correlation
func (h *Handler) HandleGetCorrelation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entry, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, id, err)
		return
	}
	if entry == nil {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     entry,
		"metadata": metadata(),
	})
}

// HandlePutCorrelation handles PUT /api/sessions/{id}/correlation
// The matrix is sanitized before it is stored.
func (h *Handler) HandlePutCorrelation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var m risk.CorrelationMatrix
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	clean, err := risk.SanitizeCorrelation(m)
	if err != nil {
		var ve *risk.ValidationError
		if errors.As(err, &ve) {
			h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"error": ve})
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to sanitize matrix")
		return
	}

	if err := h.store.Save(r.Context(), id, clean); err != nil {
		h.handleStoreError(w, id, err)
		return
	}

	h.log.Debug().Str("session_id", id).Int("classes", len(clean.Labels)).Msg("Session correlation stored")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     clean,
		"metadata": metadata(),
	})
}

// HandleDeleteCorrelation handles DELETE /api/sessions/{id}/correlation
func (h *Handler) HandleDeleteCorrelation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	removed, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, id, err)
		return
	}
	if !removed {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStoreError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, sessions.ErrInvalidSessionID) {
		h.writeError(w, http.StatusBadRequest, "Invalid session id")
		return
	}
	h.log.Error().Err(err).Str("session_id", id).Msg("Session store failed")
	h.writeError(w, http.StatusInternalServerError, "Session store failed")
}

func metadata() map[string]interface{} {
	return map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{"message": message},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
