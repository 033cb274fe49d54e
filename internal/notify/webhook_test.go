package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/notify"
)

func sampleEvent() notify.Event {
	return notify.Event{
		Provider:      "openai",
		Tier:          domain.TierPremium,
		OldCredential: "sk-proj-...roj-",
		NewCredential: "sk-next-...ext-",
		Trigger:       domain.TriggerScheduled,
		OccurredAt:    time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC),
	}
}

func TestWebhookNotifierPostsEvent(t *testing.T) {
	var got notify.Event
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := notify.NewWebhookNotifier(5 * time.Second)
	require.NoError(t, n.Notify(context.Background(), srv.URL, sampleEvent()))

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "openai", got.Provider)
	assert.Equal(t, domain.TierPremium, got.Tier)
	assert.Equal(t, "sk-proj-...roj-", got.OldCredential)
	assert.Equal(t, domain.TriggerScheduled, got.Trigger)
}

func TestWebhookNotifierRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := notify.NewWebhookNotifier(5 * time.Second)
	require.NoError(t, n.Notify(context.Background(), srv.URL, sampleEvent()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookNotifierReportsTerminalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	n := notify.NewWebhookNotifier(time.Second)
	err := n.Notify(context.Background(), srv.URL, sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestLogNotifierNeverFails(t *testing.T) {
	n := &notify.LogNotifier{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	assert.NoError(t, n.Notify(context.Background(), "ops-channel", sampleEvent()))
}
