package integration

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
	APIKey string
}

// fakeOverseerr records every call and serves handlers keyed by "METHOD path".
type fakeOverseerr struct {
	mu       sync.Mutex
	calls    []recordedCall
	handlers map[string]http.HandlerFunc
	srv      *httptest.Server
}

func newFakeOverseerr(t *testing.T) *fakeOverseerr {
	t.Helper()
	f := &fakeOverseerr{handlers: map[string]http.HandlerFunc{}}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recordedCall{Method: r.Method, Path: r.URL.EscapedPath(), Query: r.URL.RawQuery, APIKey: r.Header.Get("X-Api-Key")}
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
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeOverseerr) handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method+" "+path] = h
}

func (f *fakeOverseerr) json(method, path string, status int, body string) {
	f.handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

func (f *fakeOverseerr) Calls() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

func newTestOverseerr(f *fakeOverseerr) *OverseerrClient {
	return NewOverseerrClient(f.srv.URL, "test-key", ClientOptions{
		HTTPClient: f.srv.Client(),
		RetryDelay: time.Millisecond,
	})
}

// =============================================================================
// URL handling tests
// =============================================================================

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"overseerr.local:5055", "https://overseerr.local:5055"},
		{"http://10.0.0.2:5055/", "http://10.0.0.2:5055"},
		{"  https://req.example.com//  ", "https://req.example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBaseURL(tt.in))
		})
	}
}

func TestEncodeQuery(t *testing.T) {
	assert.Equal(t, "Star%20Wars%20%20A%20New%20Hope", encodeQuery("Star Wars: A New Hope"))
	assert.Equal(t, "Tom%20%26%20Jerry%2B%2F", encodeQuery("Tom & Jerry+/"))
	assert.Equal(t, "abc-_.~", encodeQuery("abc-_.~"))
}

// =============================================================================
// Request helper tests
// =============================================================================

func TestOverseerr_SendsAPIKey(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("GET", "/api/v1/settings/jobs", 200, `[]`)

	_, err := newTestOverseerr(f).ListJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-key", f.Calls()[0].APIKey)
}

func TestOverseerr_NonSuccessReturnsAPIError(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("GET", "/api/v1/search", 403, `{"message":"forbidden"}`)

	_, err := newTestOverseerr(f).Search(context.Background(), "Dune")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 403, apiErr.StatusCode)
	assert.Equal(t, "GET", apiErr.Method)
	assert.Contains(t, apiErr.Body, "forbidden")
	assert.True(t, IsStatus(err, 403))
	assert.False(t, IsStatus(err, 500))
	assert.Equal(t, 403, StatusCode(err))
}

func TestOverseerr_InvalidJSONReturnsDecodeError(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("GET", "/api/v1/search", 200, `{not json`)

	_, err := newTestOverseerr(f).Search(context.Background(), "Dune")

	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Contains(t, err.Error(), "invalid JSON response from")
	assert.NotNil(t, errors.Unwrap(err))
}

func TestOverseerr_EmptyBodyIsSuccess(t *testing.T) {
	f := newFakeOverseerr(t)
	f.handle("DELETE", "/api/v1/media/12/file", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	f.handle("DELETE", "/api/v1/media/12", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	res, err := newTestOverseerr(f).DeleteMedia(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, &DeleteResult{FileDeleted: true, RecordDeleted: true}, res)
}

func TestOverseerr_RetriesTransientGETErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			// Drop the connection to produce an EOF on the client.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, _ := hj.Hijack()
			_ = conn.Close()
			return
		}
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := NewOverseerrClient(srv.URL, "k", ClientOptions{RetryDelay: time.Millisecond})
	jobs, err := c.ListJobs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, int32(2), hits.Load())
}

func TestOverseerr_NotConfigured(t *testing.T) {
	c := NewOverseerrClient("", "", ClientOptions{})
	assert.False(t, c.Configured())

	_, err := c.Search(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOverseerr_CircuitOpenRejects(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("GET", "/api/v1/settings/jobs", 503, `down`)

	cb := NewCircuitBreaker(ServiceOverseerr, CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	c := NewOverseerrClient(f.srv.URL, "k", ClientOptions{Breaker: cb, RetryDelay: time.Millisecond})

	_, err := c.ListJobs(context.Background())
	require.True(t, IsStatus(err, 503))

	_, err = c.ListJobs(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Len(t, f.Calls(), 1)
}

type observerFunc func(service, route string, status int, d time.Duration)

func (f observerFunc) ObserveRequest(service, route string, status int, d time.Duration) {
	f(service, route, status, d)
}

func TestOverseerr_ObserverSeesEveryRoundTrip(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("GET", "/api/v1/search", 200, `{"results":[]}`)

	var got []string
	c := NewOverseerrClient(f.srv.URL, "k", ClientOptions{
		Observer: observerFunc(func(service, route string, status int, d time.Duration) {
			got = append(got, service+"/"+route+"/"+http.StatusText(status))
		}),
	})
	_, err := c.Search(context.Background(), "Alien")
	require.NoError(t, err)
	assert.Equal(t, []string{"overseerr/search/OK"}, got)
}

func TestOverseerr_ContextCancelled(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("GET", "/api/v1/search", 200, `{}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestOverseerr(f).Search(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Endpoint tests
// =============================================================================

func TestOverseerr_Search(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("GET", "/api/v1/search", 200, `{
		"page":1,"totalPages":1,"totalResults":1,
		"results":[{"id":238,"mediaType":"movie","title":"The Godfather","releaseDate":"1972-03-14",
			"mediaInfo":{"id":5,"tmdbId":238,"status":3,"downloadStatus":[{"size":1000,"sizeLeft":580}]}}]
	}`)

	page, err := newTestOverseerr(f).Search(context.Background(), "The Godfather: Part")
	require.NoError(t, err)
	require.Len(t, page.Results, 1)

	r := page.Results[0]
	assert.Equal(t, "The Godfather", r.DisplayTitle())
	require.NotNil(t, r.MediaInfo)
	assert.Equal(t, MediaStatusProcessing, r.MediaInfo.Status)
	assert.InDelta(t, 0.42, r.MediaInfo.DownloadStatus[0].Progress(), 1e-9)

	assert.Equal(t, "query=The%20Godfather%20%20Part", f.Calls()[0].Query)
}

func TestOverseerr_GetRequestsFilters(t *testing.T) {
	body := `{"pageInfo":{"page":1,"pages":3,"pageSize":100,"results":250},"results":[
		{"id":1,"media":{"status":2}},
		{"id":2,"media":{"status":3}},
		{"id":3,"media":{"status":4}},
		{"id":4,"media":{"status":5}},
		{"id":5,"media":{"status":7}},
		{"id":6,"media":{}}
	]}`

	tests := []struct {
		filter string
		want   []int64
	}{
		{"pending", []int64{1}},
		{"processing", []int64{2}},
		{"partial", []int64{3}},
		{"available", []int64{4}},
		{"allavailable", []int64{3, 4}},
		{"deleted", []int64{5}},
		{"bogus", []int64{1, 2, 3, 4, 5, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			f := newFakeOverseerr(t)
			f.json("GET", "/api/v1/request", 200, body)

			page, err := newTestOverseerr(f).GetRequests(context.Background(), tt.filter, 0, 0)
			require.NoError(t, err)

			var ids []int64
			for _, r := range page.Results {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
			n := len(tt.want)
			assert.Equal(t, n, page.TotalResults)
			assert.Equal(t, PageInfo{Page: 1, Pages: 1, PageSize: n, Results: n}, page.PageInfo)
			assert.Equal(t, "take=100&skip=0", f.Calls()[0].Query)
		})
	}
}

func TestOverseerr_GetRequestsAllKeepsPaging(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("GET", "/api/v1/request", 200, `{"pageInfo":{"page":2,"pages":3,"pageSize":10,"results":25},"results":[{"id":1}]}`)

	page, err := newTestOverseerr(f).GetRequests(context.Background(), "all", 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, page.PageInfo.Pages)
	assert.Equal(t, "take=10&skip=10", f.Calls()[0].Query)
}

func TestOverseerr_GetMediaInvalidFilterFallsBack(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("GET", "/api/v1/media", 200, `{"results":[{"id":9,"status":5}]}`)

	page, err := newTestOverseerr(f).GetMedia(context.Background(), "everything", 0, -1, "")
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "filter=all&take=20&skip=0&sort=mediaAdded", f.Calls()[0].Query)
}

func TestOverseerr_GetMediaDetails(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("GET", "/api/v1/tv/1396", 200, `{"id":1396,"name":"Breaking Bad","numberOfSeasons":5,"genres":[{"id":18,"name":"Drama"}]}`)

	d, err := newTestOverseerr(f).GetMediaDetails(context.Background(), "tv", 1396)
	require.NoError(t, err)
	assert.Equal(t, "Breaking Bad", d.DisplayTitle())
	assert.Equal(t, 5, d.NumberOfSeasons)
	assert.Equal(t, "Drama", d.Genres[0].Name)
}

func TestOverseerr_AddRequestMovie4k(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("POST", "/api/v1/request", 201, `{"id":77,"status":1}`)

	res, err := newTestOverseerr(f).AddRequest(context.Background(), AddRequestParams{
		MediaType: MediaTypeMovie, TmdbID: 603, UserID: 4, Is4k: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(77), res.Request.ID)
	assert.False(t, res.SeasonFallback)

	body := f.Calls()[0].Body
	assert.Equal(t, map[string]any{"mediaType": "movie", "mediaId": float64(603), "userId": float64(4), "is4k": true}, body)
}

func TestOverseerr_AddRequestTVSeasonValidation(t *testing.T) {
	tests := []struct {
		name    string
		seasons []int
		want    []any
	}{
		{"default", nil, []any{float64(1)}},
		{"drops invalid", []int{0, -2, 3}, []any{float64(3)}},
		{"none valid", []int{0}, []any{float64(1)}},
		{"keeps order", []int{2, 1}, []any{float64(2), float64(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeOverseerr(t)
			f.json("POST", "/api/v1/request", 201, `{"id":1}`)

			_, err := newTestOverseerr(f).AddRequest(context.Background(), AddRequestParams{
				MediaType: MediaTypeTV, TmdbID: 1396, Seasons: tt.seasons, Is4k: true,
			})
			require.NoError(t, err)

			body := f.Calls()[0].Body
			assert.Equal(t, tt.want, body["seasons"])
			assert.NotContains(t, body, "is4k", "4K is never sent for TV")
			assert.NotContains(t, body, "userId")
		})
	}
}

func TestOverseerr_AddRequestFallsBackOn500(t *testing.T) {
	f := newFakeOverseerr(t)
	f.handle("POST", "/api/v1/request", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["seasons"]; ok {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"message":"season error"}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":99}`)
	})

	res, err := newTestOverseerr(f).AddRequest(context.Background(), AddRequestParams{
		MediaType: MediaTypeTV, TmdbID: 1396, UserID: 2, Seasons: []int{3},
	})
	require.NoError(t, err)
	assert.True(t, res.SeasonFallback)
	assert.Nil(t, res.Seasons)
	assert.Equal(t, int64(99), res.Request.ID)

	calls := f.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].Body, "seasons")
	assert.NotContains(t, calls[1].Body, "seasons")
	assert.Equal(t, float64(2), calls[1].Body["userId"])
}

func TestOverseerr_AddRequestNoFallback(t *testing.T) {
	tests := []struct {
		name      string
		mediaType string
		status    int
	}{
		{"tv 502", MediaTypeTV, 502},
		{"tv 409", MediaTypeTV, 409},
		{"movie 500", MediaTypeMovie, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeOverseerr(t)
			f.json("POST", "/api/v1/request", tt.status, `{"message":"nope"}`)

			_, err := newTestOverseerr(f).AddRequest(context.Background(), AddRequestParams{MediaType: tt.mediaType, TmdbID: 1})
			assert.True(t, IsStatus(err, tt.status))
			assert.Len(t, f.Calls(), 1)
		})
	}
}

func TestOverseerr_DeleteMediaFileFailureSkipsRecord(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("DELETE", "/api/v1/media/12/file", 500, `boom`)
	f.json("DELETE", "/api/v1/media/12", 204, ``)

	res, err := newTestOverseerr(f).DeleteMedia(context.Background(), 12)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Len(t, f.Calls(), 1)
}

func TestOverseerr_DeleteMediaRecordFailure(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("DELETE", "/api/v1/media/12/file", 204, ``)
	f.json("DELETE", "/api/v1/media/12", 404, `missing`)

	res, err := newTestOverseerr(f).DeleteMedia(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, &DeleteResult{FileDeleted: true, RecordDeleted: false}, res)

	calls := f.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "/api/v1/media/12/file", calls[0].Path)
	assert.Equal(t, "/api/v1/media/12", calls[1].Path)
}

func TestOverseerr_ListJobsShapes(t *testing.T) {
	for name, body := range map[string]string{
		"list":    `[{"id":"plex-sync","name":"Plex Sync","type":"process","running":false}]`,
		"wrapped": `{"results":[{"id":"plex-sync","name":"Plex Sync","type":"process","running":false}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFakeOverseerr(t)
			f.json("GET", "/api/v1/settings/jobs", 200, body)

			jobs, err := newTestOverseerr(f).ListJobs(context.Background())
			require.NoError(t, err)
			require.Len(t, jobs, 1)
			assert.Equal(t, "Plex Sync", jobs[0].Name)
		})
	}
}

func TestOverseerr_RunJobEncodesID(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("POST", "/api/v1/settings/jobs/my job/run", 200, `{"id":"my job","name":"My Job","running":true}`)

	job, err := newTestOverseerr(f).RunJob(context.Background(), "my job")
	require.NoError(t, err)
	assert.True(t, job.Running)
	assert.Equal(t, "/api/v1/settings/jobs/my%20job/run", f.Calls()[0].Path)
}

func TestOverseerr_ListUsers(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("GET", "/api/v1/user", 200, `{"results":[{"id":1,"displayName":"Admin"},{"id":2,"username":"kid"}]}`)

	users, err := newTestOverseerr(f).ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Admin", users[0].Name())
	assert.Equal(t, "kid", users[1].Name())
}

// =============================================================================
// Season analysis tests
// =============================================================================

const showRequests = `{"results":[
	{"id":1,"media":{"tmdbId":1396,"mediaType":"tv"},"seasons":[
		{"seasonNumber":1,"status":5},{"seasonNumber":2,"status":2}]},
	{"id":2,"media":{"tmdbId":1396,"mediaType":"tv"},"seasons":[
		{"seasonNumber":2,"status":3},{"seasonNumber":0,"status":5}]},
	{"id":3,"media":{"tmdbId":1396,"mediaType":"movie"},"seasons":[{"seasonNumber":4,"status":5}]},
	{"id":4,"media":{"tmdbId":9999,"mediaType":"tv"},"seasons":[{"seasonNumber":5,"status":5}]}
]}`

func TestOverseerr_AnalyzeTVSeasons(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("GET", "/api/v1/tv/1396", 200, `{"id":1396,"name":"Breaking Bad","status":"Ended","firstAirDate":"2008-01-20","numberOfSeasons":5}`)
	f.json("GET", "/api/v1/request", 200, showRequests)

	a, err := newTestOverseerr(f).AnalyzeTVSeasons(context.Background(), 1396)
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.Equal(t, 5, a.TotalSeasons)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, a.AllSeasons)
	assert.Equal(t, []int{1, 2}, a.RequestedSeasons)
	assert.Equal(t, []int{1}, a.AvailableSeasons)
	assert.Equal(t, []int{2}, a.ProcessingSeasons)
	assert.Equal(t, []int{3, 4, 5}, a.MissingSeasons)
	assert.Equal(t, TVDetails{Title: "Breaking Bad", Status: "Ended", AirDate: "2008-01-20"}, a.TVDetails)
	assert.True(t, a.HasRequested(2))
	assert.False(t, a.HasRequested(3))
}

func TestOverseerr_AnalyzeTVSeasonsIsIdempotent(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("GET", "/api/v1/tv/1396", 200, `{"id":1396,"numberOfSeasons":3}`)
	f.json("GET", "/api/v1/request", 200, showRequests)
	c := newTestOverseerr(f)

	first, err := c.AnalyzeTVSeasons(context.Background(), 1396)
	require.NoError(t, err)
	second, err := c.AnalyzeTVSeasons(context.Background(), 1396)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "Unknown", first.TVDetails.Title)
}

func TestOverseerr_AnalyzeTVSeasonsNoSeasons(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("GET", "/api/v1/tv/1", 200, `{"id":1}`)

	a, err := newTestOverseerr(f).AnalyzeTVSeasons(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestOverseerr_AnalyzeTVSeasonsRequestsFail(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("GET", "/api/v1/tv/1", 200, `{"id":1,"numberOfSeasons":4}`)
	f.json("GET", "/api/v1/request", 401, `unauthorized`)

	a, err := newTestOverseerr(f).AnalyzeTVSeasons(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, &SeasonAnalysis{TotalSeasons: 4, RequestedSeasons: []int{}, AvailableSeasons: []int{}}, a)
}

// =============================================================================
// DTO tests
// =============================================================================

func TestDownloadStatus_ProgressBounds(t *testing.T) {
	tests := []struct {
		size, left int64
		want       float64
	}{
		{0, 0, 0},
		{-5, 0, 0},
		{100, 100, 0},
		{100, 0, 1},
		{100, 150, 0},
		{100, -50, 1},
		{200, 50, 0.75},
	}
	for _, tt := range tests {
		p := DownloadStatus{Size: tt.size, SizeLeft: tt.left}.Progress()
		assert.InDelta(t, tt.want, p, 1e-9, "size=%d left=%d", tt.size, tt.left)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestMediaInfo_AllDownloads(t *testing.T) {
	var nilInfo *MediaInfo
	assert.Nil(t, nilInfo.AllDownloads())

	m := &MediaInfo{
		DownloadStatus:   []DownloadStatus{{Title: "a"}},
		DownloadStatus4k: []DownloadStatus{{Title: "b"}},
	}
	all := m.AllDownloads()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Title)
	assert.Equal(t, "b", all[1].Title)
}

func TestStatusVocabulariesAreSeparate(t *testing.T) {
	assert.Equal(t, "Pending Approval", MediaStatus(2).Text())
	assert.Equal(t, "Approved & Downloading", RequestStatus(2).Text())
	assert.Equal(t, "processing", MediaStatus(3).Key())
	assert.Equal(t, "declined", RequestStatus(3).Key())
	assert.Equal(t, "unknown", MediaStatus(6).Key())
	assert.Equal(t, "Status 6", MediaStatus(6).Text())
	assert.Equal(t, "unknown", RequestStatus(7).Key())
	assert.Equal(t, "Status 7", RequestStatus(7).Text())
	assert.Equal(t, MediaStatusUnknown, MediaStatus(0).OrUnknown())
	assert.Equal(t, RequestStatusPending, RequestStatus(0).OrPending())
}

func TestInFlightSeasonStatus(t *testing.T) {
	tests := []struct {
		status RequestStatus
		want   bool
	}{
		{RequestStatusPending, false},
		{RequestStatus(MediaStatusPending), true},
		{RequestStatus(MediaStatusProcessing), true},
		{RequestStatusFailed, false},
		{RequestStatusAvailable, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inFlightSeasonStatus(tt.status), "status %d", tt.status)
	}
}

func TestJobList_RejectsGarbage(t *testing.T) {
	var l JobList
	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &l))
}

func TestOverseerr_AddRequestWholeSeries(t *testing.T) {
	f := newFakeOverseerr(t)
	f.json("POST", "/api/v1/request", 500, `{"message":"boom"}`)

	_, err := newTestOverseerr(f).AddRequest(context.Background(), AddRequestParams{
		MediaType: MediaTypeTV, TmdbID: 1396, Seasons: []int{2}, WholeSeries: true,
	})
	require.Error(t, err)

	calls := f.Calls()
	require.Len(t, calls, 1, "no season fallback when no seasons were sent")
	assert.NotContains(t, calls[0].Body, "seasons")
}
