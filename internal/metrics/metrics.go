package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mescon/Hassarr/internal/domain"
	"github.com/mescon/Hassarr/internal/eventbus"
	"github.com/mescon/Hassarr/internal/integration"
	"github.com/mescon/Hassarr/internal/logger"
)

// SensorValues is the subset of a sensor refresh exported as gauges.
type SensorValues struct {
	Online          bool
	ResponseTime    time.Duration
	TotalRequests   int
	PendingRequests int
	ActiveDownloads int
	AvailableMedia  int
	FailedRequests  int
	MovieRequests   int
	TVRequests      int
	RecentRequests  int
	RunningJobs     int
	TotalJobs       int
}

// MetricsService exposes Prometheus metrics for Hassarr
type MetricsService struct {
	eventBus *eventbus.EventBus
	gatherer prometheus.Gatherer

	// Counters
	serviceCalls       *prometheus.CounterVec
	eventsTotal        *prometheus.CounterVec
	eventsDropped      prometheus.Counter
	notificationsTotal *prometheus.CounterVec
	refreshesTotal     *prometheus.CounterVec

	// Gauges
	requests        *prometheus.GaugeVec
	mediaRequests   *prometheus.GaugeVec
	jobs            *prometheus.GaugeVec
	overseerrOnline prometheus.Gauge
	responseTime    prometheus.Gauge

	// Histograms
	upstreamDuration *prometheus.HistogramVec
}

var _ integration.Observer = (*MetricsService)(nil)

// NewMetricsService creates metrics registered with the default registry.
func NewMetricsService(eb *eventbus.EventBus) *MetricsService {
	return NewMetricsServiceWithRegistry(eb, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewMetricsServiceWithRegistry registers with reg and serves from gatherer.
// Tests pass a fresh prometheus.NewRegistry for both.
func NewMetricsServiceWithRegistry(eb *eventbus.EventBus, reg prometheus.Registerer, gatherer prometheus.Gatherer) *MetricsService {
	m := &MetricsService{
		eventBus: eb,
		gatherer: gatherer,

		serviceCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hassarr_service_calls_total",
				Help: "Service invocations by service and resulting action",
			},
			[]string{"service", "action"},
		),

		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hassarr_events_total",
				Help: "Domain events published by type",
			},
			[]string{"event_type"},
		),

		eventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hassarr_events_dropped_total",
				Help: "Events a full subscriber buffer could not take",
			},
		),

		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hassarr_notifications_total",
				Help: "Total number of notifications sent by outcome",
			},
			[]string{"outcome"}, // sent, failed
		),

		refreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hassarr_sensor_refreshes_total",
				Help: "Sensor refreshes by outcome",
			},
			[]string{"outcome"}, // success, failed
		),

		requests: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hassarr_requests",
				Help: "Overseerr requests in the last refresh by state",
			},
			[]string{"state"}, // total, pending, downloading, available, failed, recent
		),

		mediaRequests: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hassarr_media_requests",
				Help: "Overseerr requests in the last refresh by media type",
			},
			[]string{"media_type"},
		),

		jobs: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hassarr_jobs",
				Help: "Overseerr jobs in the last refresh",
			},
			[]string{"state"}, // running, total
		),

		overseerrOnline: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hassarr_overseerr_online",
				Help: "1 when the last refresh reached Overseerr",
			},
		),

		responseTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hassarr_overseerr_response_time_ms",
				Help: "Overseerr response time measured by the last refresh",
			},
		),

		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hassarr_upstream_request_duration_seconds",
				Help:    "Duration of calls to Overseerr, Radarr and Sonarr",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
			},
			[]string{"service", "route", "status"},
		),
	}

	reg.MustRegister(
		m.serviceCalls,
		m.eventsTotal,
		m.eventsDropped,
		m.notificationsTotal,
		m.refreshesTotal,
		m.requests,
		m.mediaRequests,
		m.jobs,
		m.overseerrOnline,
		m.responseTime,
		m.upstreamDuration,
	)

	return m
}

// Start subscribes to events and updates metrics
func (m *MetricsService) Start() {
	if m.eventBus == nil {
		return
	}
	m.eventBus.SubscribeAll(m.handleEvent)
	m.eventBus.OnDrop(func(domain.Event) { m.eventsDropped.Inc() })
	logger.Infof("Metrics service started")
}

// Handler returns the Prometheus HTTP handler for /metrics endpoint
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *MetricsService) handleEvent(event domain.Event) {
	m.eventsTotal.WithLabelValues(string(event.EventType)).Inc()

	switch event.EventType {
	case domain.NotificationSent:
		m.notificationsTotal.WithLabelValues("sent").Inc()
	case domain.NotificationFailed:
		m.notificationsTotal.WithLabelValues("failed").Inc()
	}
}

// ObserveRequest records one upstream round trip. status 0 means the
// request never got a response.
func (m *MetricsService) ObserveRequest(service, route string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.upstreamDuration.WithLabelValues(service, route, label).Observe(d.Seconds())
}

// RecordServiceCall counts one service invocation and the action it returned.
func (m *MetricsService) RecordServiceCall(service, action string) {
	m.serviceCalls.WithLabelValues(service, action).Inc()
}

// RecordRefresh publishes a sensor refresh. Counts are left untouched when
// Overseerr was offline so dashboards keep the last known values.
func (m *MetricsService) RecordRefresh(v SensorValues) {
	if !v.Online {
		m.refreshesTotal.WithLabelValues("failed").Inc()
		m.overseerrOnline.Set(0)
		return
	}
	m.refreshesTotal.WithLabelValues("success").Inc()
	m.overseerrOnline.Set(1)
	m.responseTime.Set(float64(v.ResponseTime.Milliseconds()))

	m.requests.WithLabelValues("total").Set(float64(v.TotalRequests))
	m.requests.WithLabelValues("pending").Set(float64(v.PendingRequests))
	m.requests.WithLabelValues("downloading").Set(float64(v.ActiveDownloads))
	m.requests.WithLabelValues("available").Set(float64(v.AvailableMedia))
	m.requests.WithLabelValues("failed").Set(float64(v.FailedRequests))
	m.requests.WithLabelValues("recent").Set(float64(v.RecentRequests))

	m.mediaRequests.WithLabelValues(integration.MediaTypeMovie).Set(float64(v.MovieRequests))
	m.mediaRequests.WithLabelValues(integration.MediaTypeTV).Set(float64(v.TVRequests))

	m.jobs.WithLabelValues("running").Set(float64(v.RunningJobs))
	m.jobs.WithLabelValues("total").Set(float64(v.TotalJobs))
}
