// internal/lifecycle/handler.go
package lifecycle

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"guildpulse/internal/events"
)

type Handler struct {
	service Service
	sweeper Sweeper
}

// NewHandler exposes the admin cancel endpoints and, when sweeper is non-nil,
// a manual sweep trigger.
func NewHandler(service Service, sweeper Sweeper) *Handler {
	return &Handler{service: service, sweeper: sweeper}
}

// Routes mounts the cancel endpoints on the events router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/cancel", h.HandleCancelLatest)
	r.Post("/{id}/cancel", h.HandleCancel)
}

// SweepEnabled reports whether HandleSweep can be mounted.
func (h *Handler) SweepEnabled() bool {
	return h.sweeper != nil
}

type cancelRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

func decodeCancel(r *http.Request) (cancelRequest, error) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	if req.Actor == "" {
		req.Actor = "admin"
	}
	return req, nil
}

func (h *Handler) HandleCancelLatest(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCancel(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	event, err := h.service.CancelLatest(r.Context(), req.Actor, req.Reason)
	if err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid event ID", http.StatusBadRequest)
		return
	}
	req, err := decodeCancel(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ok, err := h.service.Cancel(r.Context(), id, req.Actor, req.Reason)
	if err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}
	if !ok {
		http.Error(w, ErrNothingToCancel.Error(), http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": events.StatusCancelled})
}

func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"report": report,
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// StatusFor maps lifecycle errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNothingToCancel), errors.Is(err, events.ErrEventNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
