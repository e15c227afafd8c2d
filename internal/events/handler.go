// internal/events/handler.go
package events

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"guildpulse/internal/journal"
)

type Handler struct {
	service           Service
	journal           journal.Journal
	defaultMultiplier float64
}

func NewHandler(service Service, j journal.Journal, defaultMultiplier float64) *Handler {
	return &Handler{service: service, journal: j, defaultMultiplier: defaultMultiplier}
}

// Routes mounts the event endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.HandleCreate)
	r.Post("/weekend", h.HandleCreateWeekend)
	r.Get("/active", h.HandleActive)
	r.Get("/{id}", h.HandleGet)
	r.Get("/{id}/journal", h.HandleJournal)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	event, err := h.service.CreateEvent(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

func (h *Handler) HandleCreateWeekend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CreatedBy  string  `json:"created_by"`
		Multiplier float64 `json:"multiplier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Multiplier == 0 {
		req.Multiplier = h.defaultMultiplier
	}

	event, err := h.service.CreateWeekendEvent(r.Context(), req.CreatedBy, req.Multiplier)
	if err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

func (h *Handler) HandleActive(w http.ResponseWriter, r *http.Request) {
	event, err := h.service.Active(r.Context())
	if err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}
	if event == nil {
		http.Error(w, "no active event", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid event ID", http.StatusBadRequest)
		return
	}

	event, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func (h *Handler) HandleJournal(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid event ID", http.StatusBadRequest)
		return
	}

	entries, err := h.journal.List(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}

	writeJSON(w, http.StatusOK, entries)
}

// StatusFor maps event errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidWindow), errors.Is(err, ErrInvalidModifier), errors.Is(err, ErrInvalidKind):
		return http.StatusBadRequest
	case errors.Is(err, ErrEventNotFound):
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
