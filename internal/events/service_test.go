package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guildpulse/internal/clock"
	"guildpulse/internal/events"
	"guildpulse/internal/journal"
	"guildpulse/internal/memstore"
)

var monday = time.Date(2026, 10, 12, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (events.Service, *memstore.Store, *clock.FakeClock) {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	window := events.WeeklyWindow{
		Location:  loc,
		StartDay:  time.Friday,
		StartHour: 10,
		EndDay:    time.Sunday,
		EndHour:   21,
		Grace:     5 * time.Minute,
	}
	store := memstore.New()
	clk := clock.NewFakeClock(monday)
	return events.NewService(store, store, clk, window, nil), store, clk
}

func TestCreateWeekendEvent(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	e, err := svc.CreateWeekendEvent(ctx, "admin-1", 2)
	require.NoError(t, err)
	assert.Equal(t, events.KindDoubleXP, e.Kind)
	assert.Equal(t, time.Date(2026, 10, 16, 14, 0, 0, 0, time.UTC), e.StartsAt)
	assert.Equal(t, time.Date(2026, 10, 19, 1, 0, 0, 0, time.UTC), e.EndsAt)
	assert.Equal(t, events.StatusScheduled, e.Status)

	got, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)

	entries, err := store.List(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, journal.ActionCreated, entries[0].Action)
	assert.Equal(t, "admin-1", entries[0].Actor)
}

func TestCreateEventRejectsInvalidInput(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.CreateEvent(context.Background(), events.CreateEventRequest{
		Kind:     events.KindDoubleXP,
		StartsAt: monday.Add(2 * time.Hour),
		EndsAt:   monday.Add(time.Hour),
		Modifier: 2,
	})
	assert.ErrorIs(t, err, events.ErrInvalidWindow)

	_, err = svc.CreateWeekendEvent(context.Background(), "admin", 0)
	assert.ErrorIs(t, err, events.ErrInvalidModifier)
}

func TestActiveFiltersByWindow(t *testing.T) {
	svc, store, clk := newService(t)
	ctx := context.Background()

	e, err := svc.CreateEvent(ctx, events.CreateEventRequest{
		Kind:     events.KindDoubleXP,
		StartsAt: monday.Add(-time.Hour),
		EndsAt:   monday.Add(time.Hour),
		Modifier: 2,
	})
	require.NoError(t, err)

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Nil(t, active, "scheduled events are not active")

	ok, err := store.MarkActive(ctx, e.ID)
	require.NoError(t, err)
	require.True(t, ok)

	active, err = svc.Active(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, e.ID, active.ID)

	clk.Advance(2 * time.Hour)
	active, err = svc.Active(ctx)
	require.NoError(t, err)
	assert.Nil(t, active, "status lags but the window has closed")
}

func TestHandler(t *testing.T) {
	svc, store, _ := newService(t)
	r := chi.NewRouter()
	r.Route("/events", events.NewHandler(svc, store, 2).Routes)

	body, _ := json.Marshal(map[string]interface{}{
		"kind":       "raid",
		"title":      "Autumn raid",
		"starts_at":  monday.Add(time.Hour),
		"ends_at":    monday.Add(5 * time.Hour),
		"modifier":   1000,
		"created_by": "admin",
	})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/events/", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created events.Event
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	assert.Equal(t, "Autumn raid", created.Title)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events/"+created.ID.String(), nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events/"+created.ID.String()+"/journal", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	var entries []journal.Entry
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&entries))
	assert.Len(t, entries, 1)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/events/weekend", bytes.NewReader([]byte(`{"created_by":"admin"}`))))
	require.Equal(t, http.StatusCreated, rr.Code)
	var weekend events.Event
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&weekend))
	assert.Equal(t, 2.0, weekend.Modifier)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events/active", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/events/", bytes.NewReader([]byte(`{"kind":"raid","modifier":0}`))))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
