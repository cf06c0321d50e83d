package responses

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/mescon/Hassarr/internal/integration"
)

// DetailsFetcher loads TMDB details used to enrich request listings.
type DetailsFetcher interface {
	GetMediaDetails(ctx context.Context, mediaType string, tmdbID int64) (*integration.MediaDetails, error)
}

// RequestInfo is one formatted entry of a request or media listing.
type RequestInfo struct {
	Title               string        `json:"title"`
	Year                string        `json:"year"`
	MediaType           string        `json:"media_type"`
	Status              string        `json:"status"`
	TmdbID              int64         `json:"tmdb_id"`
	MediaID             int64         `json:"media_id"`
	RequestID           *int64        `json:"request_id"`
	RequestedDate       string        `json:"requested_date"`
	RequestedBy         string        `json:"requested_by"`
	Overview            string        `json:"overview"`
	DownloadInfo        *DownloadInfo `json:"download_info"`
	SeasonInfo          *SeasonInfo   `json:"season_info,omitempty"`
	RequestedSeasons    []int         `json:"requested_seasons,omitempty"`
	SeasonCount         int           `json:"season_count,omitempty"`
	SeasonStatusSummary string        `json:"season_status_summary,omitempty"`
}

// StatusBreakdown counts listing entries per bucket.
type StatusBreakdown struct {
	ProcessingCount         int `json:"processing_count"`
	PendingCount            int `json:"pending_count"`
	AvailableCount          int `json:"available_count"`
	FailedCount             int `json:"failed_count"`
	PartiallyAvailableCount int `json:"partially_available_count"`
	OtherCount              int `json:"other_count"`
}

// RequestsGuidance tells the LLM how to present a listing.
type RequestsGuidance struct {
	ResponseGuidance string            `json:"response_guidance"`
	PriorityNote     string            `json:"priority_note"`
	StatusMeanings   map[string]string `json:"status_meanings"`
	SeasonInfoNote   string            `json:"season_info_note"`
	EpisodeInfoNote  string            `json:"episode_info_note"`
	StructureNote    string            `json:"structure_note"`
}

var requestsGuidance = RequestsGuidance{
	ResponseGuidance: "Focus on active requests (downloading/pending) first, then show other requests. " +
		"Include specific season information for TV shows.",
	PriorityNote: "Active requests (processing/pending) are shown first, followed by all other requests",
	StatusMeanings: map[string]string{
		"processing":          "Currently downloading or being processed",
		"pending":             "Waiting for approval",
		"available":           "Completed and available in library",
		"failed":              "Failed to download or unavailable",
		"partially_available": "Some content available, some missing",
	},
	SeasonInfoNote: "For TV shows, season-specific details are included showing which specific seasons " +
		"are downloading, available, or pending",
	EpisodeInfoNote: "Download progress includes individual episode information when available",
	StructureNote:   "Results are limited by the take parameter. Active requests are prioritized first.",
}

// RequestsFound is a non-empty request or media listing.
type RequestsFound struct {
	Envelope
	TotalRequests    int              `json:"total_requests"`
	ReturnedRequests int              `json:"returned_requests"`
	StatusBreakdown  StatusBreakdown  `json:"status_breakdown"`
	ActiveRequests   []RequestInfo    `json:"active_requests"`
	OtherRequests    []RequestInfo    `json:"other_requests"`
	LLMInstructions  RequestsGuidance `json:"llm_instructions"`
	NextSteps        NextSteps        `json:"next_steps"`
}

// NoRequests is an empty listing.
type NoRequests struct {
	Envelope
	TotalRequests   int             `json:"total_requests"`
	StatusBreakdown StatusBreakdown `json:"status_breakdown"`
	ActiveRequests  []RequestInfo   `json:"active_requests"`
	RecentCompleted []RequestInfo   `json:"recent_completed"`
	NextSteps       NextSteps       `json:"next_steps"`
}

// NoRequestsFound builds the empty listing result.
func NoRequestsFound() *NoRequests {
	return &NoRequests{
		Envelope:        env("no_requests", "No requests found in Overseerr"),
		ActiveRequests:  []RequestInfo{},
		RecentCompleted: []RequestInfo{},
		NextSteps: NextSteps{
			Suggestion: "Add media using the add_media service to start new downloads",
			Note:       "This is good - it means your request history is empty!",
		},
	}
}

// RequestsConnectionError reports a failed listing call.
func RequestsConnectionError(details string) *ConnectionError {
	return &ConnectionError{
		Envelope:        env("connection_error", "Could not connect to Overseerr to get active requests"),
		ErrorDetails:    details,
		Troubleshooting: serviceTroubleshooting,
		NextSteps:       &NextSteps{Suggestion: "Try running test_connection service first to verify setup"},
	}
}

// listingItem is the shape-independent view of a request or media entry.
type listingItem struct {
	status    integration.MediaStatus
	downloads bool
	createdAt string
	mediaType string
	tmdbID    int64
	build     func(*integration.MediaDetails) RequestInfo
}

// RequestsFromRequests formats a request-endpoint listing. limit <= 0 means
// no limit.
func RequestsFromRequests(ctx context.Context, f DetailsFetcher, requests []integration.Request, limit int) *RequestsFound {
	items := make([]listingItem, 0, len(requests))
	for i := range requests {
		req := requests[i]
		items = append(items, listingItem{
			status:    req.Media.Status.OrUnknown(),
			downloads: len(req.Media.AllDownloads()) > 0,
			createdAt: req.CreatedAt,
			mediaType: orDefault(req.Media.MediaType, integration.MediaTypeMovie),
			tmdbID:    req.Media.TmdbID,
			build: func(d *integration.MediaDetails) RequestInfo {
				return requestInfoFromRequest(req, d)
			},
		})
	}
	return buildListing(ctx, f, items, limit)
}

// RequestsFromMedia formats a media-endpoint listing.
func RequestsFromMedia(ctx context.Context, f DetailsFetcher, media []integration.MediaInfo, limit int) *RequestsFound {
	items := make([]listingItem, 0, len(media))
	for i := range media {
		mi := media[i]
		items = append(items, listingItem{
			status:    mi.Status.OrUnknown(),
			downloads: len(mi.AllDownloads()) > 0,
			createdAt: mi.CreatedAt,
			mediaType: orDefault(mi.MediaType, integration.MediaTypeMovie),
			tmdbID:    mi.TmdbID,
			build: func(d *integration.MediaDetails) RequestInfo {
				return requestInfoFromMedia(mi, d)
			},
		})
	}
	return buildListing(ctx, f, items, limit)
}

func buildListing(ctx context.Context, f DetailsFetcher, items []listingItem, limit int) *RequestsFound {
	var processing, pending, available, partial, failed, other []listingItem
	for _, it := range items {
		switch {
		case it.downloads:
			processing = append(processing, it)
		case it.status == integration.MediaStatusPending:
			pending = append(pending, it)
		case it.status == integration.MediaStatusProcessing:
			processing = append(processing, it)
		case it.status == integration.MediaStatusPartiallyAvailable:
			partial = append(partial, it)
		case it.status == integration.MediaStatusAvailable:
			available = append(available, it)
		case it.status == integration.MediaStatusFailed:
			failed = append(failed, it)
		default:
			other = append(other, it)
		}
	}
	for _, bucket := range [][]listingItem{processing, pending, available, partial, failed, other} {
		sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].createdAt > bucket[j].createdAt })
	}

	maxItems := limit
	if maxItems <= 0 {
		maxItems = len(items)
	}
	added := 0
	take := func(dst []RequestInfo, bucket []listingItem) []RequestInfo {
		for _, it := range bucket {
			if added >= maxItems {
				break
			}
			dst = append(dst, it.build(fetchDetails(ctx, f, it)))
			added++
		}
		return dst
	}

	active := take(take([]RequestInfo{}, processing), pending)
	rest := []RequestInfo{}
	for _, bucket := range [][]listingItem{available, partial, failed, other} {
		rest = take(rest, bucket)
	}

	bd := StatusBreakdown{
		ProcessingCount:         len(processing),
		PendingCount:            len(pending),
		AvailableCount:          len(available),
		FailedCount:             len(failed),
		PartiallyAvailableCount: len(partial),
		OtherCount:              len(other),
	}
	msg := "Found " + strconv.Itoa(len(items)) + " total requests, showing " + strconv.Itoa(added) +
		" (" + breakdownText(bd) + ")"

	return &RequestsFound{
		Envelope:         env("requests_found", msg),
		TotalRequests:    len(items),
		ReturnedRequests: added,
		StatusBreakdown:  bd,
		ActiveRequests:   active,
		OtherRequests:    rest,
		LLMInstructions:  requestsGuidance,
		NextSteps: NextSteps{
			Suggestion: "Use check_media_status with a specific title for detailed progress information",
			Note:       "Processing requests are actively downloading and will complete automatically",
		},
	}
}

// fetchDetails enriches an entry; lookup failures leave it without details.
func fetchDetails(ctx context.Context, f DetailsFetcher, it listingItem) *integration.MediaDetails {
	if f == nil || it.tmdbID == 0 {
		return nil
	}
	d, err := f.GetMediaDetails(ctx, it.mediaType, it.tmdbID)
	if err != nil {
		return nil
	}
	return d
}

func breakdownText(bd StatusBreakdown) string {
	var parts []string
	add := func(n int, label string) {
		if n > 0 {
			parts = append(parts, strconv.Itoa(n)+" "+label)
		}
	}
	add(bd.ProcessingCount, "downloading")
	add(bd.PendingCount, "pending approval")
	add(bd.AvailableCount, "completed")
	add(bd.FailedCount, "failed")
	add(bd.PartiallyAvailableCount, "partially available")
	add(bd.OtherCount, "other status")
	if len(parts) == 0 {
		return "no requests"
	}
	return strings.Join(parts, ", ")
}

func yearOf(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	if date == "" {
		return "Unknown"
	}
	return date
}

func requestInfoFromRequest(req integration.Request, d *integration.MediaDetails) RequestInfo {
	media := req.Media
	mediaType := integration.MediaTypeTV
	if req.Type == integration.MediaTypeMovie {
		mediaType = integration.MediaTypeMovie
	}

	title := d.DisplayTitle()
	if title == "" {
		title = orDefault(orDefault(media.Title, media.Name), "Unknown Title")
	}
	status := media.Status.Key()
	if media.Status == 0 {
		status = req.Status.OrPending().Key()
	}
	overview := media.Overview
	if d != nil {
		overview = d.Overview
	}
	id := req.ID

	info := RequestInfo{
		Title:         title,
		Year:          yearOf(orDefault(media.ReleaseDate, media.FirstAirDate)),
		MediaType:     mediaType,
		Status:        status,
		TmdbID:        media.TmdbID,
		MediaID:       media.ID,
		RequestID:     &id,
		RequestedDate: formatCreated(req.CreatedAt),
		RequestedBy:   orDefault(req.RequestedBy.DisplayName, "Unknown User"),
		Overview:      truncate(overview, 200, "..."),
		DownloadInfo:  BuildDownloadInfo(&media),
	}
	if mediaType == integration.MediaTypeTV {
		withSeasons(&info, SeasonsFromRequest(&req, d))
	}
	return info
}

func requestInfoFromMedia(mi integration.MediaInfo, d *integration.MediaDetails) RequestInfo {
	mediaType := orDefault(mi.MediaType, integration.MediaTypeMovie)
	var overview, date string
	if d != nil {
		overview = d.Overview
		date = orDefault(d.ReleaseDate, d.FirstAirDate)
	}

	info := RequestInfo{
		Title:         orDefault(d.DisplayTitle(), "Unknown Title"),
		Year:          yearOf(date),
		MediaType:     mediaType,
		Status:        mi.Status.Key(),
		TmdbID:        mi.TmdbID,
		MediaID:       mi.ID,
		RequestedDate: formatCreated(mi.CreatedAt),
		RequestedBy:   "System",
		Overview:      truncate(overview, 200, "..."),
		DownloadInfo:  BuildDownloadInfo(&mi),
	}
	if mediaType == integration.MediaTypeTV {
		withSeasons(&info, SeasonsFromMedia(&mi, d))
	}
	return info
}

func withSeasons(info *RequestInfo, s *SeasonInfo) {
	if s == nil {
		return
	}
	info.SeasonInfo = s
	info.RequestedSeasons = s.RequestedSeasons
	info.SeasonCount = s.SeasonCount

	var downloading, available, pending []int
	for _, row := range s.SeasonDetails {
		if row.IsDownloading {
			downloading = append(downloading, row.SeasonNumber)
		}
		if row.IsAvailable {
			available = append(available, row.SeasonNumber)
		}
		if row.IsPending {
			pending = append(pending, row.SeasonNumber)
		}
	}
	var parts []string
	if len(downloading) > 0 {
		parts = append(parts, seasonPhrase(downloading, "downloading", "downloading"))
	}
	if len(available) > 0 {
		parts = append(parts, seasonPhrase(available, "available", "available"))
	}
	if len(pending) > 0 {
		parts = append(parts, seasonPhrase(pending, "pending", "pending"))
	}
	info.SeasonStatusSummary = "Season status unknown"
	if len(parts) > 0 {
		info.SeasonStatusSummary = strings.Join(parts, "; ")
	}
}
