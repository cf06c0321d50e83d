package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ServiceOverseerr is the breaker, metrics and log name of the Overseerr client.
const ServiceOverseerr = "overseerr"

// Request and media list filters accepted by Overseerr.
const (
	FilterAll          = "all"
	FilterAvailable    = "available"
	FilterPartial      = "partial"
	FilterAllAvailable = "allavailable"
	FilterProcessing   = "processing"
	FilterPending      = "pending"
	FilterDeleted      = "deleted"
)

var validMediaFilters = map[string]bool{
	FilterAll:          true,
	FilterAvailable:    true,
	FilterPartial:      true,
	FilterAllAvailable: true,
	FilterProcessing:   true,
	FilterPending:      true,
	FilterDeleted:      true,
}

// OverseerrClient talks to the Overseerr v1 REST API.
type OverseerrClient struct {
	rest *restClient
}

// NewOverseerrClient creates a client for baseURL. A URL without a scheme is
// treated as https.
func NewOverseerrClient(baseURL, apiKey string, opts ClientOptions) *OverseerrClient {
	return &OverseerrClient{rest: newRESTClient(ServiceOverseerr, baseURL, apiKey, opts)}
}

// BaseURL returns the normalized base URL.
func (c *OverseerrClient) BaseURL() string { return c.rest.base }

// Configured reports whether both URL and API key are set.
func (c *OverseerrClient) Configured() bool { return c.rest.configured() }

// Breaker exposes the client's circuit breaker for health reporting.
func (c *OverseerrClient) Breaker() *CircuitBreaker { return c.rest.breaker }

// encodeQuery percent-encodes a search query with no safe characters. Colons
// are replaced by spaces first; Overseerr rejects them in search terms.
func encodeQuery(q string) string {
	q = strings.ReplaceAll(q, ":", " ")
	return strings.ReplaceAll(url.QueryEscape(q), "+", "%20")
}

// encodePath percent-encodes a single path segment with no safe characters.
func encodePath(p string) string {
	return strings.ReplaceAll(url.QueryEscape(p), "+", "%20")
}

// Search runs a TMDB multi-search through Overseerr.
func (c *OverseerrClient) Search(ctx context.Context, query string) (*SearchPage, error) {
	encoded := encodeQuery(query)
	c.rest.log.Infof("Overseerr search: '%s' -> encoded: '%s'", query, encoded)

	var page SearchPage
	if err := c.rest.do(ctx, "search", http.MethodGet, "api/v1/search?query="+encoded, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetRequests returns one page of requests. Filters other than "all" are
// applied locally on media.status, which replaces the paging info with a
// single page describing the filtered set.
func (c *OverseerrClient) GetRequests(ctx context.Context, filter string, take, skip int) (*RequestPage, error) {
	if take <= 0 {
		take = 100
	}
	if skip < 0 {
		skip = 0
	}
	endpoint := fmt.Sprintf("api/v1/request?take=%d&skip=%d", take, skip)

	var page RequestPage
	if err := c.rest.do(ctx, "request", http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	if filter != "" && filter != FilterAll && len(page.Results) > 0 {
		filterRequests(&page, filter)
	}
	return &page, nil
}

func matchesFilter(status MediaStatus, filter string) bool {
	switch filter {
	case FilterPending:
		return status == MediaStatusPending
	case FilterProcessing:
		return status == MediaStatusProcessing
	case FilterPartial:
		return status == MediaStatusPartiallyAvailable
	case FilterAvailable:
		return status == MediaStatusAvailable
	case FilterAllAvailable:
		return status == MediaStatusPartiallyAvailable || status == MediaStatusAvailable
	case FilterDeleted:
		return status == MediaStatusFailed
	default:
		return true
	}
}

func filterRequests(page *RequestPage, filter string) {
	kept := make([]Request, 0, len(page.Results))
	for _, r := range page.Results {
		if matchesFilter(r.Media.Status.OrUnknown(), filter) {
			kept = append(kept, r)
		}
	}
	n := len(kept)
	page.Results = kept
	page.TotalResults = n
	page.PageInfo = PageInfo{Page: 1, Pages: 1, PageSize: n, Results: n}
}

// GetMedia lists library media. Unknown filters fall back to "all".
func (c *OverseerrClient) GetMedia(ctx context.Context, filter string, take, skip int, sortBy string) (*MediaPage, error) {
	if filter == "" {
		filter = FilterAll
	}
	if !validMediaFilters[filter] {
		c.rest.log.Warnf("Invalid filter type '%s', defaulting to 'all'", filter)
		filter = FilterAll
	}
	if take <= 0 {
		take = 20
	}
	if skip < 0 {
		skip = 0
	}
	if sortBy == "" {
		sortBy = "mediaAdded"
	}
	endpoint := fmt.Sprintf("api/v1/media?filter=%s&take=%d&skip=%d&sort=%s", filter, take, skip, url.QueryEscape(sortBy))

	var page MediaPage
	if err := c.rest.do(ctx, "media", http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetMediaDetails fetches the TMDB details of a movie or show.
func (c *OverseerrClient) GetMediaDetails(ctx context.Context, mediaType string, tmdbID int64) (*MediaDetails, error) {
	endpoint := fmt.Sprintf("api/v1/%s/%s", encodePath(mediaType), encodePath(strconv.FormatInt(tmdbID, 10)))

	var details MediaDetails
	if err := c.rest.do(ctx, "details_"+mediaType, http.MethodGet, endpoint, nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// validSeasons keeps seasons >= 1, defaulting to season 1.
func (c *OverseerrClient) validSeasons(seasons []int) []int {
	if len(seasons) == 0 {
		c.rest.log.Debugf("No seasons specified for TV show, defaulting to season 1")
		return []int{1}
	}
	valid := make([]int, 0, len(seasons))
	for _, s := range seasons {
		if s < 1 {
			c.rest.log.Warnf("Invalid season number: %d, skipping", s)
			continue
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		c.rest.log.Warnf("No valid seasons found in %v, defaulting to season 1", seasons)
		return []int{1}
	}
	return valid
}

type addRequestBody struct {
	MediaType string `json:"mediaType"`
	MediaID   int64  `json:"mediaId"`
	UserID    int64  `json:"userId,omitempty"`
	Is4k      bool   `json:"is4k,omitempty"`
	Seasons   []int  `json:"seasons,omitempty"`
}

// AddRequest creates a request. A season-scoped TV request rejected with
// HTTP 500 is retried once for the whole series.
func (c *OverseerrClient) AddRequest(ctx context.Context, p AddRequestParams) (*AddRequestResult, error) {
	body := addRequestBody{
		MediaType: p.MediaType,
		MediaID:   p.TmdbID,
		UserID:    p.UserID,
		Is4k:      p.MediaType == MediaTypeMovie && p.Is4k,
	}
	if p.MediaType == MediaTypeTV && !p.WholeSeries {
		body.Seasons = c.validSeasons(p.Seasons)
	}
	c.rest.log.Debugf("Sending request to Overseerr: %+v", body)

	var created Request
	err := c.rest.do(ctx, "request_create", http.MethodPost, "api/v1/request", body, &created)
	if err == nil {
		return &AddRequestResult{Request: created, Seasons: body.Seasons}, nil
	}
	if body.Seasons == nil || !IsStatus(err, http.StatusInternalServerError) {
		return nil, err
	}

	c.rest.log.Warnf("Request with seasons failed (500 error), trying without seasons parameter")
	body.Seasons = nil
	created = Request{}
	if err := c.rest.do(ctx, "request_create", http.MethodPost, "api/v1/request", body, &created); err != nil {
		return nil, err
	}
	c.rest.log.Infof("Fallback request succeeded - requested entire series instead of specific seasons")
	return &AddRequestResult{Request: created, SeasonFallback: true}, nil
}

// DeleteMedia removes the files of a media item and then its record. A
// failed file deletion returns an error without touching the record.
func (c *OverseerrClient) DeleteMedia(ctx context.Context, mediaID int64) (*DeleteResult, error) {
	id := encodePath(strconv.FormatInt(mediaID, 10))
	if err := c.rest.do(ctx, "media_file_delete", http.MethodDelete, "api/v1/media/"+id+"/file", nil, nil); err != nil {
		return nil, err
	}
	res := &DeleteResult{FileDeleted: true}
	if err := c.rest.do(ctx, "media_delete", http.MethodDelete, "api/v1/media/"+id, nil, nil); err != nil {
		c.rest.log.Warnf("Files for media %d deleted but record removal failed: %v", mediaID, err)
		return res, nil
	}
	res.RecordDeleted = true
	return res, nil
}

// ListJobs returns the scheduled maintenance jobs.
func (c *OverseerrClient) ListJobs(ctx context.Context) ([]Job, error) {
	var jobs JobList
	if err := c.rest.do(ctx, "jobs", http.MethodGet, "api/v1/settings/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// RunJob triggers a job immediately and returns the job as reported back.
func (c *OverseerrClient) RunJob(ctx context.Context, jobID string) (*Job, error) {
	endpoint := "api/v1/settings/jobs/" + encodePath(jobID) + "/run"
	c.rest.log.Debugf("Run job: '%s' -> endpoint: '%s'", jobID, endpoint)

	job := Job{ID: jobID}
	if err := c.rest.do(ctx, "job_run", http.MethodPost, endpoint, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListUsers returns the Overseerr accounts (first page of up to 100).
func (c *OverseerrClient) ListUsers(ctx context.Context) ([]User, error) {
	var page UserPage
	if err := c.rest.do(ctx, "user", http.MethodGet, "api/v1/user?take=100&skip=0", nil, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// AnalyzeTVSeasons compares a show's season count with its requested seasons.
// It returns nil without error when the show has no season information.
func (c *OverseerrClient) AnalyzeTVSeasons(ctx context.Context, tmdbID int64) (*SeasonAnalysis, error) {
	details, err := c.GetMediaDetails(ctx, MediaTypeTV, tmdbID)
	if err != nil {
		return nil, err
	}
	if details == nil || details.NumberOfSeasons == 0 {
		return nil, nil
	}
	total := details.NumberOfSeasons

	requests, err := c.GetRequests(ctx, FilterAll, 100, 0)
	if err != nil {
		c.rest.log.Warnf("Season analysis for %d without request data: %v", tmdbID, err)
		return &SeasonAnalysis{TotalSeasons: total, RequestedSeasons: []int{}, AvailableSeasons: []int{}}, nil
	}
	return analyzeSeasons(tmdbID, details, requests.Results), nil
}

// inFlightSeasonStatus reports whether a requested season row is still being
// processed. Season rows carry media states here, so 2 and 3 are pending and
// processing rather than approved and declined.
func inFlightSeasonStatus(s RequestStatus) bool {
	return MediaStatus(s) == MediaStatusPending || MediaStatus(s) == MediaStatusProcessing
}

func analyzeSeasons(tmdbID int64, details *MediaDetails, requests []Request) *SeasonAnalysis {
	requested := map[int]bool{}
	available := map[int]bool{}
	processing := map[int]bool{}
	for _, r := range requests {
		if r.Media.TmdbID != tmdbID || r.Media.MediaType != MediaTypeTV {
			continue
		}
		for _, s := range r.Seasons {
			if s.SeasonNumber == 0 {
				continue
			}
			requested[s.SeasonNumber] = true
			switch {
			case s.Status == RequestStatusAvailable:
				available[s.SeasonNumber] = true
			case inFlightSeasonStatus(s.Status):
				processing[s.SeasonNumber] = true
			}
		}
	}

	all := make([]int, 0, details.NumberOfSeasons)
	missing := []int{}
	for n := 1; n <= details.NumberOfSeasons; n++ {
		all = append(all, n)
		if !requested[n] {
			missing = append(missing, n)
		}
	}

	return &SeasonAnalysis{
		TotalSeasons:      details.NumberOfSeasons,
		AllSeasons:        all,
		RequestedSeasons:  sortedKeys(requested),
		AvailableSeasons:  sortedKeys(available),
		ProcessingSeasons: sortedKeys(processing),
		MissingSeasons:    missing,
		TVDetails: TVDetails{
			Title:   orDefault(details.Name, "Unknown"),
			Status:  orDefault(details.Status, "Unknown"),
			AirDate: orDefault(details.FirstAirDate, "Unknown"),
		},
	}
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
