package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guildpulse/internal/announce"
	"guildpulse/internal/auth"
	"guildpulse/internal/clock"
	"guildpulse/internal/events"
	"guildpulse/internal/httpapi"
	"guildpulse/internal/lifecycle"
	"guildpulse/internal/memstore"
	"guildpulse/internal/metrics"
	"guildpulse/internal/raid"
	"guildpulse/internal/xp"
)

const token = "s3cret-admin-token"

type server struct {
	handler http.Handler
	clock   *clock.FakeClock
}

func newServer(t *testing.T) *server {
	t.Helper()
	store := memstore.New()
	clk := clock.NewFakeClock(time.Date(2026, 10, 16, 13, 0, 0, 0, time.UTC))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	window := events.WeeklyWindow{Location: loc, StartDay: time.Friday, StartHour: 10, EndDay: time.Sunday, EndHour: 21, Grace: 5 * time.Minute}

	manager, err := lifecycle.NewManager(lifecycle.Params{
		Events:    store,
		Ledger:    store,
		Announcer: announce.NewLog(nil),
		Journal:   store,
		Clock:     clk,
		Config:    lifecycle.Config{TickInterval: 5 * time.Minute, ReminderPeriod: 4 * time.Hour, ReminderTolerance: 5 * time.Minute},
		Metrics:   m,
	})
	require.NoError(t, err)

	hash, err := auth.HashToken(token)
	require.NoError(t, err)

	raidSvc := raid.NewService(store, store, raid.StaticResolver{"alice": "light"}, store, clk,
		raid.Config{Factions: []string{"light", "dark"}, Scorer: raid.Scorer{"message": 1}}, m, nil)

	h := httpapi.NewRouter(httpapi.Deps{
		Events:         events.NewHandler(events.NewService(store, store, clk, window, nil), store, 2),
		Lifecycle:      lifecycle.NewHandler(manager, manager),
		Raid:           raid.NewHandler(raidSvc),
		Booster:        xp.NewBooster(store, clk),
		AdminTokenHash: hash,
		Gatherer:       reg,
	})
	return &server{handler: h, clock: clk}
}

func (s *server) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func TestRouterRequiresToken(t *testing.T) {
	s := newServer(t)

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/xp/multiplier", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/xp/multiplier", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr = httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	s.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterWeekendFlow(t *testing.T) {
	s := newServer(t)

	rr := s.do(t, http.MethodPost, "/api/v1/events/weekend", `{"created_by":"admin"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var weekend events.Event
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&weekend))

	rr = s.do(t, http.MethodPost, "/api/v1/events/", `{"kind":"raid","title":"Weekend raid","starts_at":"2026-10-16T14:00:00Z","ends_at":"2026-10-17T14:00:00Z","modifier":50,"created_by":"admin"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	s.clock.Set(time.Date(2026, 10, 16, 14, 1, 0, 0, time.UTC))
	rr = s.do(t, http.MethodPost, "/api/v1/sweep", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var report lifecycle.SweepReport
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&report))
	assert.Len(t, report.Started, 2)

	rr = s.do(t, http.MethodGet, "/api/v1/xp/multiplier", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"multiplier":2}`, rr.Body.String())

	rr = s.do(t, http.MethodPost, "/api/v1/contributions", `{"actor_id":"alice","category":"message","raw_value":60}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodPost, "/api/v1/sweep", "")
	require.Equal(t, http.StatusOK, rr.Code)
	report = lifecycle.SweepReport{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&report))
	assert.Len(t, report.Goals, 1)

	rr = s.do(t, http.MethodPost, "/api/v1/events/"+weekend.ID.String()+"/cancel", `{"actor":"mod","reason":"rollback"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodGet, "/api/v1/xp/multiplier", "")
	assert.JSONEq(t, `{"multiplier":1}`, rr.Body.String())

	rr = s.do(t, http.MethodGet, "/api/v1/events/"+weekend.ID.String()+"/journal", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"cancelled"`)

	rr = httptest.NewRecorder()
	s.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `guildpulse_events_transitions_total{to="active"} 2`)
}
