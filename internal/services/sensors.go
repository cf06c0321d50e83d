package services

import (
	"fmt"
	"math"
	"time"
)

// Sensor is the dashboard view of one coordinator value.
type Sensor struct {
	Key        string         `json:"key"`
	Name       string         `json:"name"`
	Icon       string         `json:"icon"`
	State      any            `json:"state"`
	Unit       string         `json:"unit,omitempty"`
	Attributes map[string]any `json:"attributes"`
}

// BinarySensor is an on/off coordinator value. Available is false until the
// first refresh.
type BinarySensor struct {
	Key        string         `json:"key"`
	Name       string         `json:"name"`
	Icon       string         `json:"icon"`
	On         bool           `json:"on"`
	Available  bool           `json:"available"`
	Attributes map[string]any `json:"attributes"`
}

// QueueStatus summarises the download queue.
func (s Snapshot) QueueStatus() string {
	switch {
	case !s.OverseerrOnline:
		return "Offline"
	case s.ActiveDownloads == 0 && s.TotalRequests > 0:
		return fmt.Sprintf("Idle (%d queued)", s.TotalRequests)
	case s.ActiveDownloads == 0:
		return "Empty"
	}
	return fmt.Sprintf("%d downloading (%d total)", s.ActiveDownloads, s.TotalRequests)
}

// JobsStatus summarises the Overseerr jobs.
func (s Snapshot) JobsStatus() string {
	switch {
	case !s.OverseerrOnline:
		return "Offline"
	case s.RunningJobs == 0:
		return fmt.Sprintf("Idle (%d jobs available)", s.TotalJobs)
	}
	return fmt.Sprintf("%d running (%d total)", s.RunningJobs, s.TotalJobs)
}

// NextJobText renders the next job as "name (type)".
func (s Snapshot) NextJobText() string {
	return fmt.Sprintf("%s (%s)", s.NextJob.Name, s.NextJob.Type)
}

func (s Snapshot) lastUpdate() any {
	if s.LastUpdate.IsZero() {
		return nil
	}
	return s.LastUpdate.UTC().Format(time.RFC3339)
}

func (s Snapshot) baseAttributes() map[string]any {
	return map[string]any{
		"overseerr_online": s.OverseerrOnline,
		"last_update":      s.lastUpdate(),
	}
}

func (s Snapshot) withBase(extra map[string]any) map[string]any {
	attrs := s.baseAttributes()
	for k, v := range extra {
		attrs[k] = v
	}
	return attrs
}

func (s Snapshot) countSensor(key, name, icon string, value int) Sensor {
	return Sensor{Key: key, Name: name, Icon: icon, State: value, Unit: "requests", Attributes: s.baseAttributes()}
}

// Sensors returns every sensor derived from the latest snapshot.
func (c *Coordinator) Sensors() []Sensor {
	s := c.Snapshot()

	jobs := make([]map[string]any, 0, len(s.Jobs))
	running := []map[string]any{}
	for _, j := range s.Jobs {
		info := map[string]any{
			"id":             orDefault(j.ID, "unknown"),
			"name":           orDefault(j.Name, "Unknown Job"),
			"type":           orDefault(j.Type, "unknown"),
			"interval":       orDefault(j.Interval, "unknown"),
			"running":        j.Running,
			"next_execution": orDefault(j.NextExecutionTime, "unknown"),
			"cron_schedule":  orDefault(j.CronSchedule, "unknown"),
		}
		jobs = append(jobs, info)
		if j.Running {
			running = append(running, info)
		}
	}

	return []Sensor{
		{
			Key: "active_downloads", Name: "Hassarr Active Downloads", Icon: "mdi:download",
			State: s.ActiveDownloads, Unit: "downloads",
			Attributes: s.withBase(map[string]any{"total_requests": s.TotalRequests}),
		},
		{
			Key: "queue_status", Name: "Hassarr Queue Status", Icon: "mdi:playlist-check",
			State: s.QueueStatus(),
			Attributes: s.withBase(map[string]any{
				"active_downloads": s.ActiveDownloads,
				"total_requests":   s.TotalRequests,
			}),
		},
		{
			Key: "jobs_status", Name: "Hassarr Jobs Status", Icon: "mdi:cog",
			State: s.JobsStatus(),
			Attributes: s.withBase(map[string]any{
				"running_jobs":      s.RunningJobs,
				"total_jobs":        s.TotalJobs,
				"jobs":              jobs,
				"currently_running": running,
			}),
		},
		s.countSensor("total_requests", "Hassarr Total Requests", "mdi:file-multiple", s.TotalRequests),
		s.countSensor("pending_requests", "Hassarr Pending Requests", "mdi:file-clock", s.PendingRequests),
		s.countSensor("available_requests", "Hassarr Available Requests", "mdi:file-check", s.AvailableRequests),
		s.countSensor("recent_requests", "Hassarr Recent Requests", "mdi:file-plus", s.RecentRequests),
		s.countSensor("failed_requests", "Hassarr Failed Requests", "mdi:file-remove", s.FailedRequests),
		s.countSensor("movie_requests", "Hassarr Movie Requests", "mdi:movie", s.MovieRequests),
		s.countSensor("tv_requests", "Hassarr TV Requests", "mdi:television", s.TVRequests),
		{
			Key: "top_requester", Name: "Hassarr Top Requester", Icon: "mdi:account-star",
			State:      s.TopRequester,
			Attributes: s.withBase(map[string]any{"request_count": s.TopRequesterCount}),
		},
		{
			Key: "system_health", Name: "Hassarr System Health", Icon: "mdi:heart-pulse",
			State: s.SystemHealth,
			Attributes: s.withBase(map[string]any{
				"total_requests":  s.TotalRequests,
				"failed_requests": s.FailedRequests,
				"running_jobs":    s.RunningJobs,
			}),
		},
		{
			Key: "next_job", Name: "Hassarr Next Job", Icon: "mdi:calendar-clock",
			State: s.NextJobText(),
			Attributes: s.withBase(map[string]any{
				"job_id":         s.NextJob.ID,
				"job_name":       s.NextJob.Name,
				"next_execution": s.NextJob.NextExecution,
				"job_type":       s.NextJob.Type,
			}),
		},
		{
			Key: "api_response_time", Name: "Hassarr API Response Time", Icon: "mdi:timer",
			State: math.Round(s.APIResponseTime*1000) / 1000, Unit: "s",
			Attributes: s.baseAttributes(),
		},
	}
}

// BinarySensors returns the overseerr_online and downloads_active sensors.
func (c *Coordinator) BinarySensors() []BinarySensor {
	s := c.Snapshot()
	available := c.Refreshed()

	connection := "disconnected"
	if s.OverseerrOnline {
		connection = "connected"
	}
	return []BinarySensor{
		{
			Key: "downloads_active", Name: "Downloads Active", Icon: "mdi:download",
			On: s.ActiveDownloads > 0, Available: available,
			Attributes: map[string]any{
				"active_downloads": s.ActiveDownloads,
				"total_requests":   s.TotalRequests,
				"last_update":      s.lastUpdate(),
			},
		},
		{
			Key: "overseerr_online", Name: "Overseerr Online", Icon: "mdi:server-network",
			On: s.OverseerrOnline, Available: available,
			Attributes: map[string]any{
				"last_update":       s.lastUpdate(),
				"connection_status": connection,
			},
		},
	}
}
