package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mescon/Hassarr/internal/clock"
	"github.com/mescon/Hassarr/internal/db"
	"github.com/mescon/Hassarr/internal/eventbus"
	"github.com/mescon/Hassarr/internal/integration"
	"github.com/mescon/Hassarr/internal/metrics"
)

// Service names. They double as the keys of the last-result store and the
// service label of the service-call metric.
const (
	ServiceTestConnection    = "test_connection"
	ServiceCheckMediaStatus  = "check_media_status"
	ServiceAddMedia          = "add_media"
	ServiceSearchMedia       = "search_media"
	ServiceRemoveMedia       = "remove_media"
	ServiceGetActiveRequests = "get_active_requests"
	ServiceGetAllMedia       = "get_all_media"
	ServiceRunJob            = "run_job"
	ServiceAddRadarrMovie    = "add_radarr_movie"
	ServiceAddSonarrShow     = "add_sonarr_tv_show"
)

// MappingLookup resolves a front-end user id to an Overseerr user.
type MappingLookup interface {
	GetUserMapping(ctx context.Context, haUserID string) (*db.UserMapping, error)
}

// ResultPersister stores the last result of each service.
type ResultPersister interface {
	SaveServiceResult(ctx context.Context, name string, result json.RawMessage) error
	LoadServiceResults(ctx context.Context) (map[string]json.RawMessage, error)
}

// MetricsRecorder receives service outcomes and sensor refreshes.
type MetricsRecorder interface {
	RecordServiceCall(service, action string)
	RecordRefresh(v metrics.SensorValues)
}

var (
	_ MappingLookup   = (*db.Repository)(nil)
	_ ResultPersister = (*db.Repository)(nil)
	_ MetricsRecorder = (*metrics.MetricsService)(nil)
)

// Deps are the collaborators of the service layer. Only Overseerr is
// required; nil optional members are skipped.
type Deps struct {
	Overseerr integration.OverseerrAPI
	Radarr    integration.ArrAPI
	Sonarr    integration.ArrAPI
	Mappings  MappingLookup
	Results   *ResultStore
	Bus       eventbus.Publisher
	Metrics   MetricsRecorder
	Clock     clock.Clock

	// AddCooldown is how long a successful add is replayed for repeats.
	// Zero disables replay; concurrent repeats are still merged.
	AddCooldown time.Duration

	RadarrQualityProfileID int64
	SonarrQualityProfileID int64
}
