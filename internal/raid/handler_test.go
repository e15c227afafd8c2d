package raid_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guildpulse/internal/events"
	"guildpulse/internal/raid"
)

func TestHandler(t *testing.T) {
	svc, _, e := newRaid(t, raid.StaticResolver{"alice": "light"})
	h := raid.NewHandler(svc)
	r := chi.NewRouter()
	r.Post("/contributions", h.HandleActivity)
	r.Route("/raids", h.Routes)

	base := "/raids/" + e.ID.String()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"activity", http.MethodPost, "/contributions", `{"actor_id":"alice","category":"quest","raw_value":2}`, http.StatusCreated},
		{"activity unknown category", http.MethodPost, "/contributions", `{"actor_id":"alice","category":"emoji","raw_value":2}`, http.StatusBadRequest},
		{"activity overflowing value", http.MethodPost, "/contributions", `{"actor_id":"alice","category":"quest","raw_value":368934881474191033}`, http.StatusBadRequest},
		{"activity bad json", http.MethodPost, "/contributions", `{`, http.StatusBadRequest},
		{"adjustment", http.MethodPost, base + "/adjustments", `{"points":40,"faction":"dark","actor":"admin"}`, http.StatusCreated},
		{"adjustment unknown faction", http.MethodPost, base + "/adjustments", `{"points":40,"faction":"chaos","actor":"admin"}`, http.StatusBadRequest},
		{"adjustment missing event", http.MethodPost, "/raids/" + uuid.NewString() + "/adjustments", `{"points":40,"faction":"dark","actor":"admin"}`, http.StatusConflict},
		{"adjustment bad id", http.MethodPost, "/raids/x/adjustments", `{}`, http.StatusBadRequest},
		{"top bad limit", http.MethodGet, base + "/top?limit=0", "", http.StatusBadRequest},
		{"factions bad id", http.MethodGet, "/raids/x/factions", "", http.StatusBadRequest},
		{"factions unknown event", http.MethodGet, "/raids/" + uuid.NewString() + "/factions", "", http.StatusNotFound},
		{"top unknown event", http.MethodGet, "/raids/" + uuid.NewString() + "/top", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, base+"/factions", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var totals raid.FactionTotals
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&totals))
	assert.Equal(t, raid.FactionTotals{"light": 100, "dark": 40, raid.Unaffiliated: 0}, totals)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, base+"/top?limit=5", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var top []raid.Contributor
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&top))
	assert.Equal(t, []raid.Contributor{{ActorID: "alice", Points: 100}}, top)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, raid.StatusFor(raid.ErrNoActiveRaid))
	assert.Equal(t, http.StatusNotFound, raid.StatusFor(fmt.Errorf("%w: x", events.ErrEventNotFound)))
	assert.Equal(t, http.StatusConflict, raid.StatusFor(raid.ErrEventNotActive))
	assert.Equal(t, http.StatusBadRequest, raid.StatusFor(raid.ErrInvalidPoints))
	assert.Equal(t, http.StatusInternalServerError, raid.StatusFor(assert.AnError))
}
