package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukex/facilitator/pkg/cmd"
	"github.com/dukex/facilitator/pkg/config"
	"github.com/dukex/facilitator/pkg/eventbus"
	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/persistence/keyvalue"
	"github.com/dukex/facilitator/pkg/storage/memory"
	"github.com/dukex/facilitator/pkg/testutil"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSyncConfig() *config.SyncConfig {
	return &config.SyncConfig{
		PollInterval:     time.Minute,
		TickInterval:     time.Second,
		LeaseTTL:         3 * time.Second,
		JoinCodeAttempts: 10,
	}
}

func setupTestAPI(t *testing.T, bus eventbus.EventBus) *API {
	t.Helper()

	persistence := keyvalue.NewPersistence(memory.NewStore())

	api, err := NewAPI(slog.New(slog.DiscardHandler), persistence, bus, testSyncConfig())
	require.NoError(t, err)

	t.Cleanup(func() {
		api.Close()
		_ = persistence.Close(context.Background())
	})

	return api
}

func get(t *testing.T, app *fiber.App, path string) (int, []byte) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, body
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestAPI(t, nil).App()

	status, body := get(t, app, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Facilitator API", string(body))
}

func TestAPI_HealthCheck(t *testing.T) {
	app := setupTestAPI(t, nil).App()

	status, body := get(t, app, "/livez")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", string(body))

	status, _ = get(t, app, "/health")
	assert.Equal(t, http.StatusOK, status)
}

func TestAPI_GetWorkshops_Empty(t *testing.T) {
	app := setupTestAPI(t, nil).App()

	status, body := get(t, app, "/workshops")
	require.Equal(t, http.StatusOK, status)

	var result map[string]any
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Empty(t, result["workshops"])
	assert.InDelta(t, 0, result["total_count"], 0)
}

func TestAPI_JoinNotifiesWatchers(t *testing.T) {
	bus := cmd.NewEventBus("gochannel", slog.New(slog.DiscardHandler), "facilitator-api-test")
	t.Cleanup(func() { _ = bus.Close() })

	api := setupTestAPI(t, bus)
	require.NoError(t, api.StartSync(t.Context()))

	session, err := api.sessions.CreateSession(t.Context(), testutil.CreateTestWorkshop())
	require.NoError(t, err)

	snapshots := make(chan *models.SessionSnapshot, 8)
	stop, err := api.notifier.Subscribe(t.Context(), session.ID, func(_ context.Context, s *models.SessionSnapshot) {
		select {
		case snapshots <- s:
		default:
		}
	})
	require.NoError(t, err)
	defer stop()

	require.Empty(t, (<-snapshots).Session.Participants)

	body, err := json.Marshal(map[string]string{"code": session.JoinCode, "name": "Ana"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/join", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := api.App().Test(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	timeout := time.After(5 * time.Second)

	for {
		select {
		case s := <-snapshots:
			require.NotNil(t, s)

			if len(s.Session.Participants) == 1 {
				assert.Equal(t, "Ana", s.Session.Participants[0].Name)

				return
			}
		case <-timeout:
			t.Fatal("watcher was not notified of the join")
		}
	}
}
