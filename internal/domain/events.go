// Package domain holds the events Hassarr records and fans out.
package domain

import (
	"strconv"
	"time"
)

type EventType string

const (
	MediaAdded         EventType = "MediaAdded"
	MediaAddFailed     EventType = "MediaAddFailed"
	MediaRemoved       EventType = "MediaRemoved"
	JobTriggered       EventType = "JobTriggered"
	OverseerrOffline   EventType = "OverseerrOffline"
	OverseerrOnline    EventType = "OverseerrOnline"
	NotificationSent   EventType = "NotificationSent"
	NotificationFailed EventType = "NotificationFailed"
)

// AllEventTypes lists every type in display order.
var AllEventTypes = []EventType{
	MediaAdded, MediaAddFailed, MediaRemoved, JobTriggered,
	OverseerrOffline, OverseerrOnline, NotificationSent, NotificationFailed,
}

// Aggregate types group events by what they are about.
const (
	AggregateMedia     = "media"
	AggregateJob       = "job"
	AggregateOverseerr = "overseerr"
	AggregateNotify    = "notification"
)

type Event struct {
	ID            int64                  `json:"id"`
	AggregateType string                 `json:"aggregate_type"`
	AggregateID   string                 `json:"aggregate_id"`
	EventType     EventType              `json:"event_type"`
	EventData     map[string]interface{} `json:"event_data"`
	EventVersion  int                    `json:"event_version"`
	CreatedAt     time.Time              `json:"created_at"`
	UserID        string                 `json:"user_id,omitempty"`
}

// GetString safely extracts a string field from EventData.
func (e *Event) GetString(key string) (string, bool) {
	if e.EventData == nil {
		return "", false
	}
	v, ok := e.EventData[key].(string)
	return v, ok
}

// GetStringOr extracts a string field or returns the default value.
func (e *Event) GetStringOr(key, defaultVal string) string {
	if v, ok := e.GetString(key); ok {
		return v
	}
	return defaultVal
}

// GetInt64 extracts an integer field; JSON round trips produce float64.
func (e *Event) GetInt64(key string) (int64, bool) {
	if e.EventData == nil {
		return 0, false
	}
	switch v := e.EventData[key].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// GetInt64Or extracts an int64 field or returns the default value.
func (e *Event) GetInt64Or(key string, defaultVal int64) int64 {
	if v, ok := e.GetInt64(key); ok {
		return v
	}
	return defaultVal
}

// GetBoolOr extracts a bool field or returns the default value.
func (e *Event) GetBoolOr(key string, defaultVal bool) bool {
	if e.EventData == nil {
		return defaultVal
	}
	if v, ok := e.EventData[key].(bool); ok {
		return v
	}
	return defaultVal
}

// MediaEventData describes an add, add failure or removal.
type MediaEventData struct {
	Title     string `json:"title"`
	TmdbID    int64  `json:"tmdb_id,omitempty"`
	MediaID   int64  `json:"media_id,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Seasons   string `json:"seasons,omitempty"`
	Is4k      bool   `json:"is_4k,omitempty"`
	Error     string `json:"error,omitempty"`
	Username  string `json:"username,omitempty"`
}

// NewMediaEvent builds a media event. The aggregate id is the TMDB id when
// known, else the title.
func NewMediaEvent(t EventType, d MediaEventData) Event {
	id := d.Title
	if d.TmdbID != 0 {
		id = strconv.FormatInt(d.TmdbID, 10)
	}
	data := map[string]interface{}{"title": d.Title}
	if d.TmdbID != 0 {
		data["tmdb_id"] = d.TmdbID
	}
	if d.MediaID != 0 {
		data["media_id"] = d.MediaID
	}
	if d.MediaType != "" {
		data["media_type"] = d.MediaType
	}
	if d.Seasons != "" {
		data["seasons"] = d.Seasons
	}
	if d.Is4k {
		data["is_4k"] = true
	}
	if d.Error != "" {
		data["error"] = d.Error
	}
	if d.Username != "" {
		data["username"] = d.Username
	}
	return Event{AggregateType: AggregateMedia, AggregateID: id, EventType: t, EventData: data}
}

// ParseMediaEventData is the inverse of NewMediaEvent.
func (e *Event) ParseMediaEventData() (MediaEventData, bool) {
	title, ok := e.GetString("title")
	if !ok {
		return MediaEventData{}, false
	}
	return MediaEventData{
		Title:     title,
		TmdbID:    e.GetInt64Or("tmdb_id", 0),
		MediaID:   e.GetInt64Or("media_id", 0),
		MediaType: e.GetStringOr("media_type", ""),
		Seasons:   e.GetStringOr("seasons", ""),
		Is4k:      e.GetBoolOr("is_4k", false),
		Error:     e.GetStringOr("error", ""),
		Username:  e.GetStringOr("username", ""),
	}, true
}

// NewJobEvent records a triggered Overseerr job. source is "service" or "schedule".
func NewJobEvent(jobID, jobName, source string) Event {
	return Event{
		AggregateType: AggregateJob,
		AggregateID:   jobID,
		EventType:     JobTriggered,
		EventData:     map[string]interface{}{"job_id": jobID, "job_name": jobName, "source": source},
	}
}

// NewConnectivityEvent records an Overseerr online/offline transition.
func NewConnectivityEvent(online bool, baseURL, reason string) Event {
	t := OverseerrOffline
	if online {
		t = OverseerrOnline
	}
	data := map[string]interface{}{"url": baseURL}
	if reason != "" {
		data["error"] = reason
	}
	return Event{AggregateType: AggregateOverseerr, AggregateID: "overseerr", EventType: t, EventData: data}
}
