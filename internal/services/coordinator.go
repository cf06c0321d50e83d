package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mescon/Hassarr/internal/clock"
	"github.com/mescon/Hassarr/internal/domain"
	"github.com/mescon/Hassarr/internal/eventbus"
	"github.com/mescon/Hassarr/internal/integration"
	"github.com/mescon/Hassarr/internal/logger"
	"github.com/mescon/Hassarr/internal/metrics"
)

const recentWindow = 7 * 24 * time.Hour

// Request status codes as counted by the sensors. They are compared against
// the request's own status field.
const (
	sensorStatusPending     = 2
	sensorStatusDownloading = 3
	sensorStatusAvailable   = 5
	sensorStatusFailed      = 7
)

// NextJob is the next scheduled Overseerr job.
type NextJob struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	NextExecution string `json:"next_execution"`
	Type          string `json:"type"`
}

var noScheduledJob = NextJob{ID: "none", Name: "No scheduled jobs", NextExecution: "unknown", Type: "none"}

// Snapshot is the result of the latest refresh.
type Snapshot struct {
	OverseerrOnline   bool              `json:"overseerr_online"`
	LastUpdate        time.Time         `json:"last_update"`
	LastError         string            `json:"last_error,omitempty"`
	APIResponseTime   float64           `json:"api_response_time"`
	TotalRequests     int               `json:"total_requests"`
	PendingRequests   int               `json:"pending_requests"`
	ActiveDownloads   int               `json:"active_downloads"`
	AvailableRequests int               `json:"available_requests"`
	FailedRequests    int               `json:"failed_requests"`
	MovieRequests     int               `json:"movie_requests"`
	TVRequests        int               `json:"tv_requests"`
	RecentRequests    int               `json:"recent_requests"`
	TopRequester      string            `json:"top_requester"`
	TopRequesterCount int               `json:"top_requester_count"`
	RunningJobs       int               `json:"running_jobs"`
	TotalJobs         int               `json:"total_jobs"`
	NextJob           NextJob           `json:"next_job"`
	SystemHealth      string            `json:"system_health"`
	Jobs              []integration.Job `json:"jobs"`
}

// Coordinator periodically polls Overseerr and derives the sensor states.
type Coordinator struct {
	client  integration.OverseerrAPI
	bus     eventbus.Publisher
	metrics MetricsRecorder
	clock   clock.Clock
	baseURL string

	refreshMu sync.Mutex

	mu    sync.RWMutex
	snap  Snapshot
	known bool
}

// NewCoordinator creates a coordinator over deps.Overseerr. baseURL is
// only used in connectivity events.
func NewCoordinator(deps Deps, baseURL string) *Coordinator {
	return &Coordinator{
		client:  deps.Overseerr,
		bus:     deps.Bus,
		metrics: deps.Metrics,
		clock:   clock.OrDefault(deps.Clock),
		baseURL: baseURL,
		snap:    Snapshot{NextJob: noScheduledJob, TopRequester: "No requests", SystemHealth: "Unknown"},
	}
}

// Refresh fetches requests and jobs and replaces the snapshot. A failed
// request listing marks Overseerr offline and keeps the previous counts.
// A failed job listing is tolerated.
func (c *Coordinator) Refresh(ctx context.Context) (Snapshot, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	logger.Debugf("Fetching sensor data from Overseerr...")
	start := c.clock.Now()

	page, err := c.client.GetRequests(ctx, integration.FilterAll, requestPageSize, 0)
	if err != nil {
		logger.Errorf("Error fetching data: %v", err)
		c.markOffline(ctx, err)
		return c.Snapshot(), fmt.Errorf("error communicating with Overseerr: %w", err)
	}

	jobs, err := c.client.ListJobs(ctx)
	if err != nil {
		logger.Warnf("Failed to fetch jobs data from Overseerr: %v", err)
		jobs = nil
	}
	elapsed := c.clock.Since(start)

	snap := computeSnapshot(page.Results, jobs, c.clock.Now())
	snap.OverseerrOnline = true
	snap.LastUpdate = c.clock.Now()
	snap.APIResponseTime = elapsed.Seconds()

	c.mu.Lock()
	wasOnline, known := c.snap.OverseerrOnline, c.known
	c.snap = snap
	c.known = true
	c.mu.Unlock()

	if known && !wasOnline {
		logger.Infof("Overseerr is back online")
		c.publish(ctx, domain.NewConnectivityEvent(true, c.baseURL, ""))
	}
	c.record(snap, elapsed)
	logger.Debugf("Updated sensor data: %d requests, %d jobs, %.2fs response time", snap.TotalRequests, snap.TotalJobs, snap.APIResponseTime)
	return snap, nil
}

func (c *Coordinator) markOffline(ctx context.Context, cause error) {
	c.mu.Lock()
	wasOnline, known := c.snap.OverseerrOnline, c.known
	c.snap.OverseerrOnline = false
	c.snap.LastError = cause.Error()
	c.snap.LastUpdate = c.clock.Now()
	c.known = true
	snap := c.snap
	c.mu.Unlock()

	if wasOnline || !known {
		logger.Warnf("Overseerr is offline: %v", cause)
		c.publish(ctx, domain.NewConnectivityEvent(false, c.baseURL, cause.Error()))
	}
	c.record(snap, 0)
}

func (c *Coordinator) publish(ctx context.Context, ev domain.Event) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(ctx, ev); err != nil {
		logger.Errorf("Failed to publish %s event: %v", ev.EventType, err)
	}
}

func (c *Coordinator) record(s Snapshot, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordRefresh(metrics.SensorValues{
		Online:          s.OverseerrOnline,
		ResponseTime:    elapsed,
		TotalRequests:   s.TotalRequests,
		PendingRequests: s.PendingRequests,
		ActiveDownloads: s.ActiveDownloads,
		AvailableMedia:  s.AvailableRequests,
		FailedRequests:  s.FailedRequests,
		MovieRequests:   s.MovieRequests,
		TVRequests:      s.TVRequests,
		RecentRequests:  s.RecentRequests,
		RunningJobs:     s.RunningJobs,
		TotalJobs:       s.TotalJobs,
	})
}

// Snapshot returns the latest snapshot.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.snap
	s.Jobs = append([]integration.Job(nil), c.snap.Jobs...)
	return s
}

// Refreshed reports whether at least one refresh has completed.
func (c *Coordinator) Refreshed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.known
}

func computeSnapshot(requests []integration.Request, jobs []integration.Job, now time.Time) Snapshot {
	s := Snapshot{TotalRequests: len(requests), TotalJobs: len(jobs), Jobs: jobs}
	if s.Jobs == nil {
		s.Jobs = []integration.Job{}
	}

	users := map[string]int{}
	var order []string
	cutoff := now.Add(-recentWindow)
	for _, r := range requests {
		switch int(r.Status.OrPending()) {
		case sensorStatusPending:
			s.PendingRequests++
		case sensorStatusDownloading:
			s.ActiveDownloads++
		case sensorStatusAvailable:
			s.AvailableRequests++
		case sensorStatusFailed:
			s.FailedRequests++
		}

		switch r.Type {
		case integration.MediaTypeMovie:
			s.MovieRequests++
		case integration.MediaTypeTV:
			s.TVRequests++
		}

		name := r.RequestedBy.DisplayName
		if name == "" {
			name = "Unknown"
		}
		if _, seen := users[name]; !seen {
			order = append(order, name)
		}
		users[name]++

		if created, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil && !created.Before(cutoff) {
			s.RecentRequests++
		}
	}

	s.TopRequester, s.TopRequesterCount = "No requests", 0
	for _, name := range order {
		if users[name] > s.TopRequesterCount {
			s.TopRequester, s.TopRequesterCount = name, users[name]
		}
	}

	for _, j := range jobs {
		if j.Running {
			s.RunningJobs++
		}
	}
	s.NextJob = nextScheduledJob(jobs)
	s.SystemHealth = systemHealth(s.TotalRequests, s.FailedRequests, s.RunningJobs)
	return s
}

func nextScheduledJob(jobs []integration.Job) NextJob {
	next := noScheduledJob
	var nextTime time.Time
	for _, j := range jobs {
		if j.Running || j.NextExecutionTime == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, j.NextExecutionTime)
		if err != nil {
			continue
		}
		if nextTime.IsZero() || t.Before(nextTime) {
			nextTime = t
			next = NextJob{
				ID:            orDefault(j.ID, "unknown"),
				Name:          orDefault(j.Name, "Unknown Job"),
				NextExecution: j.NextExecutionTime,
				Type:          orDefault(j.Type, "unknown"),
			}
		}
	}
	return next
}

func systemHealth(total, failed, runningJobs int) string {
	if total == 0 {
		return "Healthy - No activity"
	}
	rate := float64(failed) / float64(total)
	switch {
	case rate > 0.2:
		return "Degraded - High failure rate"
	case rate > 0.1:
		return "Warning - Some failures detected"
	case runningJobs > 3:
		return "Busy - Multiple jobs running"
	}
	return "Healthy - Operating normally"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
