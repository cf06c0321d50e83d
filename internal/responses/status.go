package responses

import (
	"github.com/mescon/Hassarr/internal/integration"
)

// MissingTitle is returned by status and add when no title was given.
func MissingTitle() *MissingInput {
	return &MissingInput{
		Envelope: env("missing_title", "Please provide a movie or TV show title to search for"),
		Error:    "No search title provided",
	}
}

// TitleConnectionError reports a failed call made while looking up title.
func TitleConnectionError(title, details string) *ConnectionError {
	r := serverConnectionError(details)
	r.SearchedTitle = title
	return r
}

// TitleNotFound reports a search for title that returned nothing.
func TitleNotFound(title string) *NotFound {
	return &NotFound{
		Envelope:      env("not_found", "No movies or TV shows found matching '"+title+"'"),
		SearchedTitle: title,
	}
}

// RequestDetails summarizes who requested a title and which seasons.
type RequestDetails struct {
	RequestedBy      string `json:"requested_by"`
	RequestDate      string `json:"request_date"`
	RequestID        *int64 `json:"request_id"`
	SeasonCount      int    `json:"season_count"`
	RequestedSeasons []int  `json:"requested_seasons"`
	Is4kRequest      *bool  `json:"is_4k_request,omitempty"`
}

// MediaSpecific holds the movie- or show-only facts of a status check. Only
// the fields relevant to the media type are set.
type MediaSpecific struct {
	TotalSeasons        *int   `json:"total_seasons,omitempty"`
	TotalEpisodes       *int   `json:"total_episodes,omitempty"`
	EpisodeRuntime      *int   `json:"episode_runtime,omitempty"`
	SeriesStatus        string `json:"series_status,omitempty"`
	Networks            string `json:"networks,omitempty"`
	Runtime             *int   `json:"runtime,omitempty"`
	Budget              *int64 `json:"budget,omitempty"`
	Revenue             *int64 `json:"revenue,omitempty"`
	ProductionCompanies string `json:"production_companies,omitempty"`
	Note                string `json:"note,omitempty"`
}

// SearchInfo is the library view of the primary search hit.
type SearchInfo struct {
	Title          string         `json:"title"`
	Type           string         `json:"type"`
	TmdbID         int64          `json:"tmdb_id"`
	MediaID        *int64         `json:"media_id"`
	Status         *int           `json:"status"`
	StatusText     string         `json:"status_text"`
	ReleaseDate    string         `json:"release_date"`
	Rating         float64        `json:"rating"`
	DownloadInfo   *DownloadInfo  `json:"download_info"`
	RequestDetails RequestDetails `json:"request_details"`
	SeasonInfo     *SeasonInfo    `json:"season_info"`
}

// ContentDetails is the descriptive part of a status check.
type ContentDetails struct {
	Overview      string        `json:"overview"`
	Genres        []string      `json:"genres"`
	MediaSpecific MediaSpecific `json:"media_specific"`
}

// PrimaryResult groups the two halves of a status check.
type PrimaryResult struct {
	SearchInfo     SearchInfo     `json:"search_info"`
	ContentDetails ContentDetails `json:"content_details"`
}

// FoundMedia is the successful status check result.
type FoundMedia struct {
	Envelope
	LLMInstructions string        `json:"llm_instructions"`
	SearchedTitle   string        `json:"searched_title"`
	PrimaryResult   PrimaryResult `json:"primary_result"`
}

// MediaFound builds the status of result. requests is the current request
// listing; the first one for the same TMDB id is used. details is optional.
func MediaFound(title string, result integration.SearchResult, details *integration.MediaDetails, requests []integration.Request) *FoundMedia {
	var match *integration.Request
	for i := range requests {
		if requests[i].Media.TmdbID == result.ID {
			match = &requests[i]
			break
		}
	}
	seasons := SeasonsFromRequest(match, details)

	info := SearchInfo{
		Title:          resultTitle(result),
		Type:           orDefault(result.MediaType, "unknown"),
		TmdbID:         result.ID,
		ReleaseDate:    orDefault(orDefault(result.ReleaseDate, result.FirstAirDate), "Unknown"),
		Rating:         result.VoteAverage,
		DownloadInfo:   BuildDownloadInfo(result.MediaInfo),
		RequestDetails: buildRequestDetails(match),
		SeasonInfo:     seasons,
	}
	info.Status, info.StatusText = mediaStatus(result.MediaInfo, "Not Requested")
	if result.MediaInfo != nil {
		id := result.MediaInfo.ID
		info.MediaID = &id
	}

	content := ContentDetails{
		Overview:      "Overview not available",
		Genres:        genreNames(details, 3),
		MediaSpecific: buildMediaSpecific(result.MediaType, details, seasons),
	}
	if details != nil && details.Overview != "" {
		content.Overview = truncate(details.Overview, 300, "")
	}

	return &FoundMedia{
		Envelope: env("found_media", "Found detailed information for '"+result.DisplayTitle()+
			"'. Includes requested seasons, download progress, total seasons available, and missing seasons information."),
		LLMInstructions: "Focus on requested seasons, download progress, and who requested it. " +
			"Include information about total seasons available and missing seasons when relevant for TV shows.",
		SearchedTitle: title,
		PrimaryResult: PrimaryResult{SearchInfo: info, ContentDetails: content},
	}
}

func buildRequestDetails(req *integration.Request) RequestDetails {
	if req == nil {
		return RequestDetails{
			RequestedBy:      "Information not available",
			RequestDate:      "Unknown",
			RequestedSeasons: []int{},
		}
	}
	seasons := []int{}
	for _, s := range req.Seasons {
		if s.SeasonNumber != 0 {
			seasons = append(seasons, s.SeasonNumber)
		}
	}
	seasons = sortedInts(seasons)
	id, is4k := req.ID, req.Is4k
	return RequestDetails{
		RequestedBy:      orDefault(req.RequestedBy.Name(), "Unknown User"),
		RequestDate:      orDefault(req.CreatedAt, "Unknown"),
		RequestID:        &id,
		SeasonCount:      len(seasons),
		RequestedSeasons: seasons,
		Is4kRequest:      &is4k,
	}
}

func buildMediaSpecific(mediaType string, d *integration.MediaDetails, seasons *SeasonInfo) MediaSpecific {
	switch {
	case mediaType == integration.MediaTypeTV && seasons != nil:
		ms := MediaSpecific{
			SeriesStatus: "Unknown",
			Networks:     "Unknown",
			Note:         "Season details available in season_info section",
		}
		if d != nil {
			ms.EpisodeRuntime = firstInt(d.EpisodeRunTime)
			ms.SeriesStatus = orDefault(d.Status, "Unknown")
			ms.Networks = firstName(d.Networks)
		}
		return ms
	case mediaType == integration.MediaTypeTV && d != nil:
		total, episodes := d.NumberOfSeasons, d.NumberOfEpisodes
		return MediaSpecific{
			TotalSeasons:   &total,
			TotalEpisodes:  &episodes,
			EpisodeRuntime: firstInt(d.EpisodeRunTime),
			SeriesStatus:   orDefault(d.Status, "Unknown"),
			Networks:       firstName(d.Networks),
			Note:           "No specific seasons requested yet",
		}
	case mediaType == integration.MediaTypeTV:
		return MediaSpecific{Note: "TV show information not available"}
	case mediaType == integration.MediaTypeMovie && d != nil:
		runtime, budget, revenue := d.Runtime, d.Budget, d.Revenue
		return MediaSpecific{
			Runtime:             &runtime,
			Budget:              &budget,
			Revenue:             &revenue,
			ProductionCompanies: firstName(d.ProductionCompanies),
		}
	}
	return MediaSpecific{}
}

func firstInt(ns []int) *int {
	if len(ns) == 0 {
		return nil
	}
	n := ns[0]
	return &n
}

func firstName(ns []integration.Named) string {
	if len(ns) == 0 {
		return "Unknown"
	}
	return orDefault(ns[0].Name, "Unknown")
}
