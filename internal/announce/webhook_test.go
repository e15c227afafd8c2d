package announce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guildpulse/internal/events"
	"guildpulse/internal/lifecycle"
)

func testNotice() lifecycle.Notice {
	return lifecycle.Notice{
		Kind:  lifecycle.NoticeGoal,
		Event: events.Event{ID: uuid.New(), Kind: events.KindRaid, Title: "Autumn raid", Modifier: 10, CurrentPoints: 12},
	}
}

func TestWebhookBroadcast(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(map[string]string{"raids": srv.URL}, 0, time.Second, nil)
	require.NoError(t, wh.Broadcast(context.Background(), "raids", testNotice()))
	assert.Equal(t, "**Autumn raid** goal reached: 12 / 10 points!", got.Content)
}

func TestWebhookRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	wh := NewWebhook(map[string]string{"raids": srv.URL}, 0, time.Second, nil)
	err := wh.Broadcast(context.Background(), "raids", testNotice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "slow down")
}

func TestWebhookUnknownDestination(t *testing.T) {
	wh := NewWebhook(map[string]string{"raids": ""}, 0, time.Second, nil)
	assert.ErrorIs(t, wh.Broadcast(context.Background(), "raids", testNotice()), ErrUnknownDestination)
	assert.ErrorIs(t, wh.Broadcast(context.Background(), "double-xp", testNotice()), ErrUnknownDestination)
}

func TestWebhookRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	wh := NewWebhook(map[string]string{"raids": srv.URL}, 1, time.Second, nil)
	require.NoError(t, wh.Broadcast(context.Background(), "raids", testNotice()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := wh.Broadcast(ctx, "raids", testNotice())
	assert.Error(t, err)
}

func TestLogBroadcast(t *testing.T) {
	assert.NoError(t, NewLog(nil).Broadcast(context.Background(), "raids", testNotice()))
}
