package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mescon/Hassarr/internal/domain"
	"github.com/mescon/Hassarr/internal/integration"
	"github.com/mescon/Hassarr/internal/testutil"
)

var coordinatorNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func sensorRequest(id int64, status integration.RequestStatus, mediaType, user string, age time.Duration) integration.Request {
	return integration.Request{
		ID:          id,
		Status:      status,
		Type:        mediaType,
		CreatedAt:   coordinatorNow.Add(-age).Format(time.RFC3339),
		RequestedBy: integration.User{ID: id, DisplayName: user},
	}
}

func sampleRequests() []integration.Request {
	return []integration.Request{
		sensorRequest(1, 2, integration.MediaTypeMovie, "alice", 24*time.Hour),
		sensorRequest(2, 3, integration.MediaTypeTV, "alice", 10*24*time.Hour),
		sensorRequest(3, 5, integration.MediaTypeMovie, "bob", 48*time.Hour),
		sensorRequest(4, 7, integration.MediaTypeMovie, "", 30*24*time.Hour),
	}
}

func sampleJobs() []integration.Job {
	return []integration.Job{
		{ID: "plex-sync", Name: "Plex Sync", Type: "process", Running: true, NextExecutionTime: "2026-03-10T09:30:00Z"},
		{ID: "download-sync", Name: "Download Sync", Type: "process", NextExecutionTime: "2026-03-10T10:00:00Z"},
		{ID: "image-cache", Name: "Image Cache Cleanup", Type: "process", NextExecutionTime: "2026-03-10T09:15:00Z"},
		{ID: "broken", Name: "Broken", NextExecutionTime: "soon"},
	}
}

type coordinatorFixture struct {
	coord *Coordinator
	fake  *testutil.FakeOverseerr
	bus   *testutil.MockEventBus
	rec   *testutil.MockRecorder
}

func newCoordinatorFixture(t *testing.T) *coordinatorFixture {
	t.Helper()
	f := &coordinatorFixture{
		fake: testutil.NewFakeOverseerr(t),
		bus:  testutil.NewMockEventBus(),
		rec:  testutil.NewMockRecorder(),
	}
	f.coord = NewCoordinator(Deps{
		Overseerr: f.fake.Client(),
		Bus:       f.bus,
		Metrics:   f.rec,
		Clock:     testutil.NewMockClockAt(coordinatorNow),
	}, f.fake.Server.URL)
	return f
}

func (f *coordinatorFixture) online() {
	f.fake.Reply(http.MethodGet, "/api/v1/request", http.StatusOK, testutil.RequestPageOf(sampleRequests()...))
	f.fake.Reply(http.MethodGet, "/api/v1/settings/jobs", http.StatusOK, sampleJobs())
}

func (f *coordinatorFixture) offline() {
	f.fake.Reply(http.MethodGet, "/api/v1/request", http.StatusServiceUnavailable, "")
}

// =============================================================================
// computeSnapshot tests
// =============================================================================

func TestComputeSnapshot(t *testing.T) {
	s := computeSnapshot(sampleRequests(), sampleJobs(), coordinatorNow)

	assert.Equal(t, 4, s.TotalRequests)
	assert.Equal(t, 1, s.PendingRequests)
	assert.Equal(t, 1, s.ActiveDownloads)
	assert.Equal(t, 1, s.AvailableRequests)
	assert.Equal(t, 1, s.FailedRequests)
	assert.Equal(t, 3, s.MovieRequests)
	assert.Equal(t, 1, s.TVRequests)
	assert.Equal(t, 2, s.RecentRequests)
	assert.Equal(t, "alice", s.TopRequester)
	assert.Equal(t, 2, s.TopRequesterCount)
	assert.Equal(t, 1, s.RunningJobs)
	assert.Equal(t, 4, s.TotalJobs)
	assert.Equal(t, "Degraded - High failure rate", s.SystemHealth)
	assert.Equal(t, NextJob{ID: "image-cache", Name: "Image Cache Cleanup", NextExecution: "2026-03-10T09:15:00Z", Type: "process"}, s.NextJob)
}

func TestComputeSnapshot_Empty(t *testing.T) {
	s := computeSnapshot(nil, nil, coordinatorNow)

	assert.Equal(t, "No requests", s.TopRequester)
	assert.Equal(t, "Healthy - No activity", s.SystemHealth)
	assert.Equal(t, noScheduledJob, s.NextJob)
	assert.NotNil(t, s.Jobs)
}

func TestComputeSnapshot_TopRequesterTie(t *testing.T) {
	reqs := []integration.Request{
		sensorRequest(1, 2, integration.MediaTypeMovie, "bob", time.Hour),
		sensorRequest(2, 2, integration.MediaTypeMovie, "alice", time.Hour),
		sensorRequest(3, 2, integration.MediaTypeMovie, "alice", time.Hour),
		sensorRequest(4, 2, integration.MediaTypeMovie, "bob", time.Hour),
	}
	s := computeSnapshot(reqs, nil, coordinatorNow)
	assert.Equal(t, "bob", s.TopRequester)
}

func TestSystemHealth(t *testing.T) {
	tests := []struct {
		total, failed, running int
		want                   string
	}{
		{0, 0, 0, "Healthy - No activity"},
		{10, 3, 0, "Degraded - High failure rate"},
		{10, 2, 0, "Warning - Some failures detected"},
		{10, 1, 4, "Busy - Multiple jobs running"},
		{10, 1, 3, "Healthy - Operating normally"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, systemHealth(tt.total, tt.failed, tt.running))
		})
	}
}

// =============================================================================
// Refresh tests
// =============================================================================

func TestCoordinator_Refresh(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.online()

	snap, err := f.coord.Refresh(context.Background())
	require.NoError(t, err)

	assert.True(t, snap.OverseerrOnline)
	assert.Equal(t, coordinatorNow, snap.LastUpdate)
	assert.Equal(t, 4, snap.TotalRequests)
	assert.True(t, f.coord.Refreshed())
	assert.Equal(t, snap.TotalRequests, f.coord.Snapshot().TotalRequests)

	// A first successful refresh is not a transition.
	assert.Equal(t, 0, f.bus.EventCount(domain.OverseerrOnline))

	values, ok := f.rec.LastRefresh()
	require.True(t, ok)
	assert.True(t, values.Online)
	assert.Equal(t, 4, values.TotalRequests)
	assert.Equal(t, 1, values.AvailableMedia)
}

func TestCoordinator_RefreshToleratesJobFailure(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.fake.Reply(http.MethodGet, "/api/v1/request", http.StatusOK, testutil.RequestPageOf(sampleRequests()...))
	f.fake.Reply(http.MethodGet, "/api/v1/settings/jobs", http.StatusForbidden, "")

	snap, err := f.coord.Refresh(context.Background())
	require.NoError(t, err)

	assert.True(t, snap.OverseerrOnline)
	assert.Equal(t, 0, snap.TotalJobs)
	assert.Equal(t, noScheduledJob, snap.NextJob)
}

func TestCoordinator_ConnectivityTransitions(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()

	f.offline()
	_, err := f.coord.Refresh(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, f.bus.EventCount(domain.OverseerrOffline))
	snap := f.coord.Snapshot()
	assert.False(t, snap.OverseerrOnline)
	assert.Contains(t, snap.LastError, "503")

	_, err = f.coord.Refresh(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, f.bus.EventCount(domain.OverseerrOffline), "still offline is not a transition")

	f.online()
	_, err = f.coord.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, f.bus.EventCount(domain.OverseerrOnline))
	assert.Equal(t, f.fake.Server.URL, f.bus.GetEvents(domain.OverseerrOnline)[0].EventData["url"])

	_, err = f.coord.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.bus.EventCount(domain.OverseerrOnline))

	values, ok := f.rec.LastRefresh()
	require.True(t, ok)
	assert.True(t, values.Online)
	assert.Len(t, f.rec.Refreshes, 4)
}

func TestCoordinator_OfflineKeepsCounts(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()

	f.online()
	_, err := f.coord.Refresh(ctx)
	require.NoError(t, err)

	f.offline()
	_, err = f.coord.Refresh(ctx)
	require.Error(t, err)

	snap := f.coord.Snapshot()
	assert.False(t, snap.OverseerrOnline)
	assert.Equal(t, 4, snap.TotalRequests)
	assert.Equal(t, 1, f.bus.EventCount(domain.OverseerrOffline))
}

// =============================================================================
// Sensor tests
// =============================================================================

func TestSnapshot_StatusTexts(t *testing.T) {
	tests := []struct {
		name      string
		snap      Snapshot
		wantQueue string
		wantJobs  string
	}{
		{"offline", Snapshot{TotalRequests: 3, ActiveDownloads: 1}, "Offline", "Offline"},
		{"empty", Snapshot{OverseerrOnline: true, TotalJobs: 5}, "Empty", "Idle (5 jobs available)"},
		{"queued", Snapshot{OverseerrOnline: true, TotalRequests: 4}, "Idle (4 queued)", "Idle (0 jobs available)"},
		{"downloading", Snapshot{OverseerrOnline: true, TotalRequests: 4, ActiveDownloads: 2, RunningJobs: 1, TotalJobs: 6}, "2 downloading (4 total)", "1 running (6 total)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantQueue, tt.snap.QueueStatus())
			assert.Equal(t, tt.wantJobs, tt.snap.JobsStatus())
		})
	}
}

func sensorByKey(t *testing.T, sensors []Sensor, key string) Sensor {
	t.Helper()
	for _, s := range sensors {
		if s.Key == key {
			return s
		}
	}
	t.Fatalf("sensor %s not found", key)
	return Sensor{}
}

func TestCoordinator_Sensors(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.online()
	_, err := f.coord.Refresh(context.Background())
	require.NoError(t, err)

	sensors := f.coord.Sensors()

	assert.Equal(t, 1, sensorByKey(t, sensors, "active_downloads").State)
	assert.Equal(t, "Hassarr Active Downloads", sensorByKey(t, sensors, "active_downloads").Name)
	assert.Equal(t, "1 downloading (4 total)", sensorByKey(t, sensors, "queue_status").State)
	assert.Equal(t, "1 running (4 total)", sensorByKey(t, sensors, "jobs_status").State)
	assert.Equal(t, "Image Cache Cleanup (process)", sensorByKey(t, sensors, "next_job").State)
	assert.Equal(t, "alice", sensorByKey(t, sensors, "top_requester").State)
	assert.Equal(t, 2, sensorByKey(t, sensors, "top_requester").Attributes["request_count"])

	jobs := sensorByKey(t, sensors, "jobs_status").Attributes["currently_running"].([]map[string]any)
	require.Len(t, jobs, 1)
	assert.Equal(t, "plex-sync", jobs[0]["id"])

	total := sensorByKey(t, sensors, "total_requests")
	assert.Equal(t, 4, total.State)
	assert.Equal(t, "requests", total.Unit)
	assert.Equal(t, coordinatorNow.Format(time.RFC3339), total.Attributes["last_update"])
}

func TestCoordinator_BinarySensors(t *testing.T) {
	f := newCoordinatorFixture(t)

	before := f.coord.BinarySensors()
	require.Len(t, before, 2)
	for _, b := range before {
		assert.False(t, b.Available, b.Key)
		assert.False(t, b.On, b.Key)
	}

	f.online()
	_, err := f.coord.Refresh(context.Background())
	require.NoError(t, err)

	after := f.coord.BinarySensors()
	byKey := map[string]BinarySensor{}
	for _, b := range after {
		byKey[b.Key] = b
	}
	assert.True(t, byKey["overseerr_online"].On)
	assert.True(t, byKey["overseerr_online"].Available)
	assert.Equal(t, "connected", byKey["overseerr_online"].Attributes["connection_status"])
	assert.True(t, byKey["downloads_active"].On)
}
