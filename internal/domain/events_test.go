package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Accessor tests
// =============================================================================

func TestEvent_GetString(t *testing.T) {
	tests := []struct {
		name      string
		eventData map[string]interface{}
		key       string
		wantValue string
		wantOk    bool
	}{
		{"existing string key", map[string]interface{}{"title": "The Godfather"}, "title", "The Godfather", true},
		{"missing key", map[string]interface{}{"other": "value"}, "title", "", false},
		{"nil event data", nil, "title", "", false},
		{"wrong type", map[string]interface{}{"count": 123}, "count", "", false},
		{"empty string", map[string]interface{}{"empty": ""}, "empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Event{EventData: tt.eventData}
			got, ok := e.GetString(tt.key)
			assert.Equal(t, tt.wantValue, got)
			assert.Equal(t, tt.wantOk, ok)
		})
	}
}

func TestEvent_GetInt64(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{}
		want   int64
		wantOk bool
	}{
		{"int64", int64(238), 238, true},
		{"float64 from json", float64(238), 238, true},
		{"int", 238, 238, true},
		{"string", "238", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Event{EventData: map[string]interface{}{"tmdb_id": tt.value}}
			got, ok := e.GetInt64("tmdb_id")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOk, ok)
		})
	}

	assert.Equal(t, int64(7), (&Event{}).GetInt64Or("missing", 7))
}

func TestEvent_GetBoolOr(t *testing.T) {
	e := &Event{EventData: map[string]interface{}{"is_4k": true, "bad": "yes"}}
	assert.True(t, e.GetBoolOr("is_4k", false))
	assert.True(t, e.GetBoolOr("bad", true))
	assert.False(t, (&Event{}).GetBoolOr("is_4k", false))
}

// =============================================================================
// Constructor tests
// =============================================================================

func TestNewMediaEvent_AggregateID(t *testing.T) {
	withID := NewMediaEvent(MediaAdded, MediaEventData{Title: "The Godfather", TmdbID: 238})
	assert.Equal(t, "238", withID.AggregateID)
	assert.Equal(t, AggregateMedia, withID.AggregateType)

	withoutID := NewMediaEvent(MediaAddFailed, MediaEventData{Title: "Unknown Thing", Error: "boom"})
	assert.Equal(t, "Unknown Thing", withoutID.AggregateID)
	assert.NotContains(t, withoutID.EventData, "tmdb_id")
}

func TestMediaEventData_SurvivesJSON(t *testing.T) {
	in := MediaEventData{
		Title: "Breaking Bad", TmdbID: 1396, MediaID: 42, MediaType: "tv",
		Seasons: "1, 2", Is4k: true, Username: "alice",
	}
	ev := NewMediaEvent(MediaAdded, in)

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))

	out, ok := decoded.ParseMediaEventData()
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestParseMediaEventData_RequiresTitle(t *testing.T) {
	e := &Event{EventData: map[string]interface{}{"tmdb_id": 1}}
	_, ok := e.ParseMediaEventData()
	assert.False(t, ok)
}

func TestNewConnectivityEvent(t *testing.T) {
	off := NewConnectivityEvent(false, "http://overseerr:5055", "connection refused")
	assert.Equal(t, OverseerrOffline, off.EventType)
	assert.Equal(t, "connection refused", off.GetStringOr("error", ""))

	on := NewConnectivityEvent(true, "http://overseerr:5055", "")
	assert.Equal(t, OverseerrOnline, on.EventType)
	_, hasErr := on.GetString("error")
	assert.False(t, hasErr)
}

func TestNewJobEvent(t *testing.T) {
	e := NewJobEvent("plex-sync", "Plex Full Library Scan", "schedule")
	assert.Equal(t, JobTriggered, e.EventType)
	assert.Equal(t, "plex-sync", e.AggregateID)
	assert.Equal(t, "schedule", e.GetStringOr("source", ""))
}
