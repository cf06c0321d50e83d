package api

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mescon/Hassarr/internal/config"
	"github.com/mescon/Hassarr/internal/integration"
	"github.com/mescon/Hassarr/internal/logger"
	"github.com/mescon/Hassarr/internal/testutil"
)

// =============================================================================
// User mapping tests
// =============================================================================

func TestUserMappings_CRUD(t *testing.T) {
	ts := newTestServer(t)
	ts.completeSetup(t)

	w := ts.authed(t, http.MethodGet, "/api/user-mappings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))

	w = ts.authed(t, http.MethodPut, "/api/user-mappings/ha-alice", map[string]any{
		"overseerr_user_id": 7,
		"username":          "alice",
	})
	require.Equal(t, http.StatusOK, w.Code)
	saved := decode(t, w)
	assert.Equal(t, "ha-alice", saved["ha_user_id"])
	assert.Equal(t, float64(7), saved["overseerr_user_id"])

	// Upsert replaces the Overseerr user
	w = ts.authed(t, http.MethodPut, "/api/user-mappings/ha-alice", map[string]any{"overseerr_user_id": 9})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.authed(t, http.MethodGet, "/api/user-mappings", nil)
	list := decodeList(t, w)
	require.Len(t, list, 1)
	assert.Equal(t, float64(9), list[0]["overseerr_user_id"])

	w = ts.authed(t, http.MethodDelete, "/api/user-mappings/ha-alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.authed(t, http.MethodDelete, "/api/user-mappings/ha-alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User mapping not found", decode(t, w)["error"])
}

func TestUserMappings_Validation(t *testing.T) {
	ts := newTestServer(t)
	ts.completeSetup(t)

	tests := []struct {
		name string
		body any
	}{
		{"zero id", map[string]any{"overseerr_user_id": 0}},
		{"negative id", map[string]any{"overseerr_user_id": -3}},
		{"wrong type", map[string]any{"overseerr_user_id": "seven"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.authed(t, http.MethodPut, "/api/user-mappings/ha-bob", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestUserMappings_EnableAdds(t *testing.T) {
	ts := newTestServer(t)
	ts.completeSetup(t)
	testutil.SeedUserMapping(t, ts.repo, "ha-alice", 7, "alice")

	ts.fake.Reply(http.MethodGet, "/api/v1/search", http.StatusOK,
		testutil.SearchPageOf(testutil.NewMovie(438631, "Dune")))
	ts.fake.Reply(http.MethodGet, "/api/v1/request", http.StatusOK, testutil.RequestPageOf())
	ts.fake.Reply(http.MethodPost, "/api/v1/request", http.StatusCreated, map[string]any{"id": 99, "status": 1})

	w := ts.authed(t, http.MethodPost, "/api/services/add_media", map[string]any{"title": "Dune"},
		headerUserID, "ha-alice", headerUsername, "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, "user_not_mapped", decode(t, w)["action"])

	posts := ts.fake.CallsTo(http.MethodPost, "/api/v1/request")
	require.Len(t, posts, 1)
	assert.Equal(t, float64(7), posts[0].Body["userId"])
}

func TestGetOverseerrUsers(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ts := newTestServer(t)
		ts.completeSetup(t)
		ts.fake.Reply(http.MethodGet, "/api/v1/user", http.StatusOK, integration.UserPage{
			Results: []integration.User{{ID: 1, DisplayName: "Admin"}, {ID: 7, Username: "alice"}},
		})

		w := ts.authed(t, http.MethodGet, "/api/overseerr/users", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decodeList(t, w), 2)
	})

	t.Run("upstream failure", func(t *testing.T) {
		ts := newTestServer(t)
		ts.completeSetup(t)
		ts.fake.Reply(http.MethodGet, "/api/v1/user", http.StatusUnauthorized, `{"message":"bad key"}`)

		w := ts.authed(t, http.MethodGet, "/api/overseerr/users", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, ErrMsgOverseerrError, decode(t, w)["error"])
	})
}

// =============================================================================
// Radarr / Sonarr tests
// =============================================================================

func TestArrEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.completeSetup(t)
	ts.radar.QualityProfilesFn = func(ctx context.Context) ([]integration.QualityProfile, error) {
		return []integration.QualityProfile{{ID: 1, Name: "Any"}, {ID: 4, Name: "HD-1080p"}}, nil
	}
	ts.radar.RootFoldersFn = func(ctx context.Context) ([]integration.RootFolder, error) {
		return nil, errors.New("connection refused")
	}

	w := ts.authed(t, http.MethodGet, "/api/arr/radarr/quality-profiles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	profiles := decodeList(t, w)
	require.Len(t, profiles, 2)
	assert.Equal(t, "HD-1080p", profiles[1]["name"])

	w = ts.authed(t, http.MethodGet, "/api/arr/radarr/root-folders", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Failed to fetch root folders from radarr", decode(t, w)["error"])

	w = ts.authed(t, http.MethodGet, "/api/arr/sonarr/quality-profiles", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "sonarr is not configured", decode(t, w)["error"])

	w = ts.authed(t, http.MethodGet, "/api/arr/lidarr/quality-profiles", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =============================================================================
// Event tests
// =============================================================================

func TestGetEvents(t *testing.T) {
	ts := newTestServer(t)
	ts.completeSetup(t)

	old := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, testutil.SeedEvents(ts.repo,
		testutil.NewJobTriggeredEvent("plex-sync", testutil.WithCreatedAt(old)),
		testutil.NewJobTriggeredEvent("download-sync"),
		testutil.NewMediaAddedEvent("Dune", 438631),
	))

	w := ts.authed(t, http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["data"], 3)
	pagination := body["pagination"].(map[string]any)
	assert.Equal(t, float64(3), pagination["total"])
	assert.Equal(t, float64(50), pagination["limit"])

	w = ts.authed(t, http.MethodGet, "/api/events?event_type=JobTriggered", nil)
	assert.Len(t, decode(t, w)["data"], 2)

	w = ts.authed(t, http.MethodGet, "/api/events?aggregate_id=plex-sync", nil)
	assert.Len(t, decode(t, w)["data"], 1)

	since := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	w = ts.authed(t, http.MethodGet, "/api/events?since="+since, nil)
	assert.Len(t, decode(t, w)["data"], 2)

	w = ts.authed(t, http.MethodGet, "/api/events?limit=1&page=2", nil)
	body = decode(t, w)
	assert.Len(t, body["data"], 1)
	assert.Equal(t, float64(3), body["pagination"].(map[string]any)["total_pages"])

	w = ts.authed(t, http.MethodGet, "/api/events?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =============================================================================
// Schedule tests
// =============================================================================

func TestSchedules_Lifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.completeSetup(t)

	w := ts.authed(t, http.MethodPost, "/api/schedules", map[string]string{
		"job_id":          "download-sync",
		"cron_expression": "*/5 * * * *",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(float64)
	path := fmt.Sprintf("/api/schedules/%d", int64(id))

	w = ts.authed(t, http.MethodGet, "/api/schedules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeList(t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "download-sync", list[0]["job_id"])
	assert.Equal(t, true, list[0]["enabled"])
	assert.Equal(t, true, list[0]["active"])

	// Disabling removes the cron entry but keeps the row
	w = ts.authed(t, http.MethodPut, path, map[string]any{"enabled": false})
	require.Equal(t, http.StatusOK, w.Code)
	list = decodeList(t, ts.authed(t, http.MethodGet, "/api/schedules", nil))
	assert.Equal(t, false, list[0]["enabled"])
	assert.Equal(t, false, list[0]["active"])
	assert.Equal(t, "*/5 * * * *", list[0]["cron_expression"])

	// A new expression alone keeps the disabled state
	w = ts.authed(t, http.MethodPut, path, map[string]any{"cron_expression": "0 3 * * *"})
	require.Equal(t, http.StatusOK, w.Code)
	list = decodeList(t, ts.authed(t, http.MethodGet, "/api/schedules", nil))
	assert.Equal(t, false, list[0]["enabled"])
	assert.Equal(t, "0 3 * * *", list[0]["cron_expression"])

	w = ts.authed(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.authed(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSchedules_Validation(t *testing.T) {
	ts := newTestServer(t)
	ts.completeSetup(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{"missing job id", http.MethodPost, "/api/schedules", map[string]string{"cron_expression": "* * * * *"}, http.StatusBadRequest},
		{"bad cron", http.MethodPost, "/api/schedules", map[string]string{"job_id": "plex-sync", "cron_expression": "every tuesday"}, http.StatusBadRequest},
		{"invalid id", http.MethodDelete, "/api/schedules/abc", nil, http.StatusBadRequest},
		{"non-positive id", http.MethodPut, "/api/schedules/0", map[string]any{"enabled": true}, http.StatusBadRequest},
		{"unknown id", http.MethodPut, "/api/schedules/999", map[string]any{"enabled": true}, http.StatusNotFound},
		{"unknown id without enabled", http.MethodPut, "/api/schedules/999", map[string]any{}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.authed(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

// =============================================================================
// Settings tests
// =============================================================================

func TestSettings_UpdateAndRead(t *testing.T) {
	ts := newTestServer(t)
	ts.completeSetup(t)

	w := ts.authed(t, http.MethodPut, "/api/settings", map[string]string{
		"overseerr_url":     "http://overseerr.local:5055/",
		"overseerr_api_key": "abcdefgh12345678",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["restart_required"])
	assert.Equal(t, []any{"overseerr_api_key", "overseerr_url"}, body["updated"])

	// Applied to the running config, trailing slash trimmed
	assert.Equal(t, "http://overseerr.local:5055", config.Get().OverseerrURL)
	assert.Equal(t, "abcdefgh12345678", config.Get().OverseerrAPIKey)

	w = ts.authed(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	effective := body["effective"].(map[string]any)
	assert.Equal(t, "********5678", effective["overseerr_api_key"])
	assert.Equal(t, "http://overseerr.local:5055", effective["overseerr_url"])

	stored := body["stored"].(map[string]any)
	assert.Equal(t, "********5678", stored["overseerr_api_key"])
	assert.NotContains(t, stored, settingAPIKey)
	assert.NotContains(t, stored, settingPasswordHash)
}

func TestSettings_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]string
		wantErr string
	}{
		{"empty", map[string]string{}, "No settings provided"},
		{"unknown key", map[string]string{"api_key": "x"}, "Unknown setting: api_key"},
		{"bad url", map[string]string{"radarr_url": "radarr:7878"}, "radarr_url must start with http:// or https://"},
		{"bad profile", map[string]string{"sonarr_quality_profile_id": "-1"}, "sonarr_quality_profile_id must be a non-negative integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.completeSetup(t)

			w := ts.authed(t, http.MethodPut, "/api/settings", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantErr, decode(t, w)["error"])
		})
	}

	t.Run("nothing written when one key is invalid", func(t *testing.T) {
		ts := newTestServer(t)
		ts.completeSetup(t)

		w := ts.authed(t, http.MethodPut, "/api/settings", map[string]string{
			"overseerr_url": "http://ok.local",
			"radarr_url":    "ftp://nope",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		_, err := ts.repo.GetSetting(context.Background(), "overseerr_url")
		assert.Error(t, err)
	})
}

func TestNormalizeBasePath(t *testing.T) {
	tests := map[string]string{
		"":          "/",
		"/":         "/",
		"hassarr":   "/hassarr",
		"/hassarr/": "/hassarr",
		" /a/b/ ":   "/a/b",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeBasePath(in), "input %q", in)
	}
}

// =============================================================================
// Notification tests
// =============================================================================

func TestNotifications(t *testing.T) {
	ts := newTestServer(t)
	ts.completeSetup(t)

	w := ts.authed(t, http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	targets := body["targets"].([]any)
	require.Len(t, targets, 1)
	assert.Equal(t, "generic", targets[0].(map[string]any)["service"])
	assert.NotContains(t, w.Body.String(), "example.com")
	assert.NotEmpty(t, body["events"])

	w = ts.authed(t, http.MethodPost, "/api/notifications/test", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Hassarr test notification"}, ts.sent)
}

func TestNotifications_TestFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.completeSetup(t)
	ts.deps.Notifier.WithSender(func(string, string) error { return errors.New("webhook returned 500") })

	w := ts.authed(t, http.MethodPost, "/api/notifications/test", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Test notification failed", body["error"])
	assert.Contains(t, body["details"], "webhook returned 500")
}

// =============================================================================
// Log tests
// =============================================================================

func TestParseLogLine(t *testing.T) {
	tests := []struct {
		line string
		ok   bool
		want logger.LogEntry
	}{
		{
			line: "2026-03-10T09:00:00Z [INFO] Server started on :8080",
			ok:   true,
			want: logger.LogEntry{Timestamp: "2026-03-10T09:00:00Z", Level: logger.LogLevel("INFO"), Message: "Server started on :8080"},
		},
		{line: "stack trace continuation", ok: false},
		{line: "2026-03-10T09:00:00Z INFO no brackets", ok: false},
		{line: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := parseLogLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func writeLogFile(t *testing.T, lines ...string) {
	t.Helper()
	path := filepath.Join(config.Get().LogDir, logger.LogFileName)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func TestRecentLogs(t *testing.T) {
	ts := newTestServer(t)
	ts.completeSetup(t)

	w := ts.authed(t, http.MethodGet, "/api/logs/recent", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))

	lines := make([]string, 0, 150)
	for i := 0; i < 150; i++ {
		lines = append(lines, "2026-03-10T09:00:00Z [DEBUG] line "+strconv.Itoa(i))
	}
	lines = append(lines, "not a log line")
	writeLogFile(t, lines...)

	w = ts.authed(t, http.MethodGet, "/api/logs/recent", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decodeList(t, w)
	// The last 100 lines, minus the unparseable one
	require.Len(t, entries, 99)
	assert.Equal(t, "line 51", entries[0]["message"])
	assert.Equal(t, "line 149", entries[98]["message"])
}

func TestDownloadLogs(t *testing.T) {
	ts := newTestServer(t)
	ts.completeSetup(t)
	writeLogFile(t, "2026-03-10T09:00:00Z [INFO] hello")

	w := ts.authed(t, http.MethodGet, "/api/logs/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "hassarr.txt", zr.File[0].Name)

	f, err := zr.File[0].Open()
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
