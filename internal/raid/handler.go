// internal/raid/handler.go
package raid

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"guildpulse/internal/events"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the per-raid endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/{id}/adjustments", h.HandleAdjustment)
	r.Get("/{id}/factions", h.HandleFactionTotals)
	r.Get("/{id}/top", h.HandleTopContributors)
}

func (h *Handler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID  string `json:"actor_id"`
		Category string `json:"category"`
		RawValue int64  `json:"raw_value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	contribution, err := h.service.RecordActivity(r.Context(), req.ActorID, req.Category, req.RawValue)
	if err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}

	writeJSON(w, http.StatusCreated, contribution)
}

func (h *Handler) HandleAdjustment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid event ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Points  int64  `json:"points"`
		Faction string `json:"faction"`
		Actor   string `json:"actor"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	contribution, err := h.service.RecordManualAdjustment(r.Context(), id, req.Points, req.Faction, req.Actor, req.Reason)
	if err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}

	writeJSON(w, http.StatusCreated, contribution)
}

func (h *Handler) HandleFactionTotals(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid event ID", http.StatusBadRequest)
		return
	}

	totals, err := h.service.FactionTotals(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, totals)
}

func (h *Handler) HandleTopContributors(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid event ID", http.StatusBadRequest)
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}

	top, err := h.service.TopContributors(r.Context(), id, limit)
	if err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, top)
}

// StatusFor maps raid errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidPoints), errors.Is(err, ErrInvalidValue), errors.Is(err, ErrUnknownFaction),
		errors.Is(err, ErrUnknownCategory), errors.Is(err, ErrMissingActor):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoActiveRaid), errors.Is(err, events.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEventNotActive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
