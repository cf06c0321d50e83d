package responses

import (
	"strconv"

	"github.com/mescon/Hassarr/internal/integration"
)

const maxSearchResults = 10

// MissingQuery is returned when search was called without a query.
func MissingQuery() *MissingInput {
	return &MissingInput{
		Envelope: env("missing_query", "Please provide a search term to look for movies or TV shows"),
		Error:    "No search query provided",
	}
}

// QueryConnectionError reports a failed search call.
func QueryConnectionError(query, details string) *ConnectionError {
	r := serverConnectionError(details)
	r.SearchedQuery = query
	return r
}

// NoResults is returned when a search matched nothing.
type NoResults struct {
	Envelope
	SearchedQuery string `json:"searched_query"`
	TotalResults  int    `json:"total_results"`
}

// SearchNoResults builds a "no_results" result for query.
func SearchNoResults(query string) *NoResults {
	return &NoResults{
		Envelope:      env("no_results", "No movies or TV shows found matching '"+query+"'"),
		SearchedQuery: query,
	}
}

// LibraryStatus tells whether a search hit is already known to Overseerr.
type LibraryStatus struct {
	Available  bool   `json:"available"`
	Status     *int   `json:"status"`
	StatusText string `json:"status_text"`
}

// TVInfo holds show-only search fields.
type TVInfo struct {
	FirstAirDate  string   `json:"first_air_date"`
	OriginCountry []string `json:"origin_country"`
}

// MovieInfo holds movie-only search fields.
type MovieInfo struct {
	ReleaseDate   string `json:"release_date"`
	OriginalTitle string `json:"original_title"`
}

// SearchItem is one formatted search hit.
type SearchItem struct {
	Title             string        `json:"title"`
	MediaType         string        `json:"media_type"`
	TmdbID            int64         `json:"tmdb_id"`
	Year              string        `json:"year"`
	Rating            float64       `json:"rating"`
	OverviewShort     string        `json:"overview_short"`
	PosterPath        *string       `json:"poster_path"`
	BackdropPath      *string       `json:"backdrop_path"`
	Popularity        float64       `json:"popularity"`
	Adult             bool          `json:"adult"`
	OriginalLanguage  string        `json:"original_language"`
	StatusInOverseerr LibraryStatus `json:"status_in_overseerr"`
	DownloadInfo      *DownloadInfo `json:"download_info"`
	TVInfo            *TVInfo       `json:"tv_info,omitempty"`
	MovieInfo         *MovieInfo    `json:"movie_info,omitempty"`
}

// SearchResults is the successful search result.
type SearchResults struct {
	Envelope
	SearchedQuery      string       `json:"searched_query"`
	TotalResults       int          `json:"total_results"`
	ResultsShown       int          `json:"results_shown"`
	Results            []SearchItem `json:"results"`
	LLMInstructions    string       `json:"llm_instructions"`
	SuggestedFollowups []string     `json:"suggested_followups"`
}

// SearchFound formats the first results of page.
func SearchFound(query string, page *integration.SearchPage) *SearchResults {
	var results []integration.SearchResult
	total := 0
	if page != nil {
		results = page.Results
		total = page.TotalResults
	}
	if total == 0 {
		total = len(results)
	}
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}

	items := make([]SearchItem, 0, len(results))
	for _, r := range results {
		items = append(items, searchItem(r))
	}

	return &SearchResults{
		Envelope: env("search_results", "Found "+strconv.Itoa(total)+" results for '"+query+
			"'. Showing top "+strconv.Itoa(len(items))+" matches."),
		SearchedQuery: query,
		TotalResults:  total,
		ResultsShown:  len(items),
		Results:       items,
		LLMInstructions: "Present the search results to the user in a clear, organized way. " +
			"Focus on title, year, type, and rating. Mention if any are already in their library. " +
			"Ask which one they'd like more information about or want to add.",
		SuggestedFollowups: []string{
			"Tell me more about [specific title]",
			"Add [specific title] to my library",
			"What's the status of [specific title]?",
		},
	}
}

func searchItem(r integration.SearchResult) SearchItem {
	item := SearchItem{
		Title:            resultTitle(r),
		MediaType:        orDefault(r.MediaType, "unknown"),
		TmdbID:           r.ID,
		Year:             extractYear(r),
		Rating:           r.VoteAverage,
		OverviewShort:    orDefault(truncate(r.Overview, 200, "..."), "No overview available"),
		PosterPath:       r.PosterPath,
		BackdropPath:     r.BackdropPath,
		Popularity:       r.Popularity,
		Adult:            r.Adult,
		OriginalLanguage: orDefault(r.OriginalLanguage, "en"),
		StatusInOverseerr: LibraryStatus{
			Available: r.MediaInfo != nil,
		},
		DownloadInfo: BuildDownloadInfo(r.MediaInfo),
	}
	item.StatusInOverseerr.Status, item.StatusInOverseerr.StatusText = mediaStatus(r.MediaInfo, "Not in library")

	if r.MediaType == integration.MediaTypeTV {
		countries := r.OriginCountry
		if countries == nil {
			countries = []string{}
		}
		item.TVInfo = &TVInfo{FirstAirDate: r.FirstAirDate, OriginCountry: countries}
	} else {
		item.MovieInfo = &MovieInfo{ReleaseDate: r.ReleaseDate, OriginalTitle: r.OriginalTitle}
	}
	return item
}
