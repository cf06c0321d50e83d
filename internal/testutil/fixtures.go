package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mescon/Hassarr/internal/domain"
	"github.com/mescon/Hassarr/internal/integration"
)

// =============================================================================
// FakeOverseerr - scripted Overseerr HTTP server
// =============================================================================

// RecordedCall is one request received by FakeOverseerr.
type RecordedCall struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

// FakeOverseerr records every call and serves handlers keyed by "METHOD path".
// Unregistered routes answer 404.
type FakeOverseerr struct {
	mu       sync.Mutex
	calls    []RecordedCall
	handlers map[string]http.HandlerFunc
	Server   *httptest.Server
}

// NewFakeOverseerr starts a server that is closed when the test ends.
func NewFakeOverseerr(t testing.TB) *FakeOverseerr {
	t.Helper()
	f := &FakeOverseerr{handlers: map[string]http.HandlerFunc{}}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := RecordedCall{Method: r.Method, Path: r.URL.EscapedPath(), Query: r.URL.RawQuery}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &call.Body)
		}
		f.mu.Lock()
		f.calls = append(f.calls, call)
		h := f.handlers[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if h == nil {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.Server.Close)
	return f
}

// Handle registers h for method and path.
func (f *FakeOverseerr) Handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method+" "+path] = h
}

// Reply answers method and path with status and v encoded as JSON. A string
// v is written verbatim.
func (f *FakeOverseerr) Reply(method, path string, status int, v any) {
	var body []byte
	switch b := v.(type) {
	case string:
		body = []byte(b)
	case nil:
	default:
		body, _ = json.Marshal(b)
	}
	f.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	})
}

// Calls returns a copy of the recorded calls.
func (f *FakeOverseerr) Calls() []RecordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedCall(nil), f.calls...)
}

// CallsTo returns the recorded calls for method and path.
func (f *FakeOverseerr) CallsTo(method, path string) []RecordedCall {
	var out []RecordedCall
	for _, c := range f.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// Client returns an Overseerr client for the fake with fast retries.
func (f *FakeOverseerr) Client() *integration.OverseerrClient {
	return integration.NewOverseerrClient(f.Server.URL, "test-key", integration.ClientOptions{
		HTTPClient: f.Server.Client(),
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})
}

// =============================================================================
// Media fixtures
// =============================================================================

const gib = int64(1) << 30

// GodfatherMovie is a movie that is processing with one download at 42%.
func GodfatherMovie() integration.SearchResult {
	return integration.SearchResult{
		ID:          238,
		MediaType:   integration.MediaTypeMovie,
		Title:       "The Godfather",
		ReleaseDate: "1972-03-14",
		Overview:    "Spanning the years 1945 to 1955, a chronicle of the fictional Italian-American Corleone crime family.",
		VoteAverage: 8.7,
		MediaInfo: &integration.MediaInfo{
			ID:        11,
			TmdbID:    238,
			MediaType: integration.MediaTypeMovie,
			Status:    integration.MediaStatusProcessing,
			DownloadStatus: []integration.DownloadStatus{{
				ExternalID: 1,
				Title:      "The.Godfather.1972.1080p",
				Size:       10 * gib,
				SizeLeft:   6227702579,
				TimeLeft:   "00:25:00",
				Status:     "downloading",
			}},
		},
	}
}

// NewMovie is a movie that has never been requested.
func NewMovie(tmdbID int64, title string) integration.SearchResult {
	return integration.SearchResult{
		ID:          tmdbID,
		MediaType:   integration.MediaTypeMovie,
		Title:       title,
		ReleaseDate: "2021-09-15",
		Overview:    title + " overview",
	}
}

// NewShow is a TV show that has never been requested.
func NewShow(tmdbID int64, name string) integration.SearchResult {
	return integration.SearchResult{
		ID:           tmdbID,
		MediaType:    integration.MediaTypeTV,
		Name:         name,
		FirstAirDate: "2008-01-20",
		Overview:     name + " overview",
	}
}

// InLibrary returns r with a media record of the given id and status.
func InLibrary(r integration.SearchResult, mediaID int64, status integration.MediaStatus) integration.SearchResult {
	r.MediaInfo = &integration.MediaInfo{ID: mediaID, TmdbID: r.ID, MediaType: r.MediaType, Status: status}
	return r
}

// SearchPageOf wraps results in a single search page.
func SearchPageOf(results ...integration.SearchResult) integration.SearchPage {
	if results == nil {
		results = []integration.SearchResult{}
	}
	return integration.SearchPage{Page: 1, TotalPages: 1, TotalResults: len(results), Results: results}
}

// ShowDetails is the TV details payload for a show with seasons seasons.
func ShowDetails(tmdbID int64, name string, seasons int) integration.MediaDetails {
	return integration.MediaDetails{
		ID:              tmdbID,
		Name:            name,
		Status:          "Ended",
		FirstAirDate:    "2008-01-20",
		NumberOfSeasons: seasons,
	}
}

// TVRequest is an existing request for seasons of a show.
func TVRequest(id, tmdbID int64, status integration.RequestStatus, seasons ...int) integration.Request {
	req := integration.Request{
		ID:     id,
		Status: status,
		Type:   integration.MediaTypeTV,
		Media:  integration.MediaInfo{TmdbID: tmdbID, MediaType: integration.MediaTypeTV, Status: integration.MediaStatusProcessing},
	}
	for _, s := range seasons {
		req.Seasons = append(req.Seasons, integration.RequestSeason{SeasonNumber: s, Status: status})
	}
	return req
}

// RequestPageOf wraps requests in a single request page.
func RequestPageOf(reqs ...integration.Request) integration.RequestPage {
	if reqs == nil {
		reqs = []integration.Request{}
	}
	n := len(reqs)
	return integration.RequestPage{PageInfo: integration.PageInfo{Page: 1, Pages: 1, PageSize: n, Results: n}, Results: reqs}
}

// =============================================================================
// Event fixtures
// =============================================================================

// EventOption is a functional option for configuring test events.
type EventOption func(*domain.Event)

// WithAggregateID sets a specific aggregate ID.
func WithAggregateID(id string) EventOption {
	return func(e *domain.Event) {
		e.AggregateID = id
	}
}

// WithCreatedAt sets the event creation time.
func WithCreatedAt(t time.Time) EventOption {
	return func(e *domain.Event) {
		e.CreatedAt = t
	}
}

// WithUserID sets the user the event is attributed to.
func WithUserID(id string) EventOption {
	return func(e *domain.Event) {
		e.UserID = id
	}
}

// WithEventData merges additional data into EventData.
func WithEventData(data map[string]interface{}) EventOption {
	return func(e *domain.Event) {
		if e.EventData == nil {
			e.EventData = make(map[string]interface{})
		}
		for k, v := range data {
			e.EventData[k] = v
		}
	}
}

// NewMediaAddedEvent creates a MediaAdded event for testing.
func NewMediaAddedEvent(title string, tmdbID int64, opts ...EventOption) domain.Event {
	event := domain.NewMediaEvent(domain.MediaAdded, domain.MediaEventData{
		Title:     title,
		TmdbID:    tmdbID,
		MediaType: integration.MediaTypeMovie,
	})
	event.CreatedAt = time.Now().UTC()
	for _, opt := range opts {
		opt(&event)
	}
	return event
}

// NewJobTriggeredEvent creates a JobTriggered event for testing.
func NewJobTriggeredEvent(jobID string, opts ...EventOption) domain.Event {
	event := domain.NewJobEvent(jobID, jobID, "service")
	event.CreatedAt = time.Now().UTC()
	for _, opt := range opts {
		opt(&event)
	}
	return event
}
