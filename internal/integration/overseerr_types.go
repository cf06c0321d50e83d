package integration

import (
	"encoding/json"
	"fmt"
)

// SearchPage is the body of GET api/v1/search.
type SearchPage struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"totalPages"`
	TotalResults int            `json:"totalResults"`
	Results      []SearchResult `json:"results"`
}

// SearchResult is a single TMDB search hit. MediaInfo is nil when the title
// has never been requested through Overseerr.
type SearchResult struct {
	ID               int64      `json:"id"`
	MediaType        string     `json:"mediaType"`
	Title            string     `json:"title,omitempty"`
	Name             string     `json:"name,omitempty"`
	OriginalTitle    string     `json:"originalTitle,omitempty"`
	ReleaseDate      string     `json:"releaseDate,omitempty"`
	FirstAirDate     string     `json:"firstAirDate,omitempty"`
	Overview         string     `json:"overview,omitempty"`
	VoteAverage      float64    `json:"voteAverage"`
	Popularity       float64    `json:"popularity"`
	PosterPath       *string    `json:"posterPath"`
	BackdropPath     *string    `json:"backdropPath"`
	Adult            bool       `json:"adult"`
	OriginalLanguage string     `json:"originalLanguage,omitempty"`
	OriginCountry    []string   `json:"originCountry,omitempty"`
	MediaInfo        *MediaInfo `json:"mediaInfo,omitempty"`
}

// DisplayTitle returns the movie title or the show name.
func (r SearchResult) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// MediaInfo is Overseerr's library record for a title.
type MediaInfo struct {
	ID               int64            `json:"id"`
	TmdbID           int64            `json:"tmdbId"`
	MediaType        string           `json:"mediaType,omitempty"`
	Status           MediaStatus      `json:"status"`
	Status4k         MediaStatus      `json:"status4k,omitempty"`
	DownloadStatus   []DownloadStatus `json:"downloadStatus,omitempty"`
	DownloadStatus4k []DownloadStatus `json:"downloadStatus4k,omitempty"`
	Seasons          []MediaSeason    `json:"seasons,omitempty"`
	Requests         []Request        `json:"requests,omitempty"`
	CreatedAt        string           `json:"createdAt,omitempty"`
	UpdatedAt        string           `json:"updatedAt,omitempty"`
	MediaURL         *string          `json:"mediaUrl,omitempty"`
	ServiceURL       string           `json:"serviceUrl,omitempty"`

	// Present on the media objects embedded in request listings.
	Title        string `json:"title,omitempty"`
	Name         string `json:"name,omitempty"`
	ReleaseDate  string `json:"releaseDate,omitempty"`
	FirstAirDate string `json:"firstAirDate,omitempty"`
	Overview     string `json:"overview,omitempty"`
}

// AllDownloads returns the regular and 4K queue entries in that order.
func (m *MediaInfo) AllDownloads() []DownloadStatus {
	if m == nil {
		return nil
	}
	all := make([]DownloadStatus, 0, len(m.DownloadStatus)+len(m.DownloadStatus4k))
	all = append(all, m.DownloadStatus...)
	return append(all, m.DownloadStatus4k...)
}

// DownloadStatus is one entry of the download queue for a title.
type DownloadStatus struct {
	ExternalID              int64    `json:"externalId"`
	Title                   string   `json:"title,omitempty"`
	Size                    int64    `json:"size"`
	SizeLeft                int64    `json:"sizeLeft"`
	TimeLeft                string   `json:"timeLeft,omitempty"`
	EstimatedCompletionTime string   `json:"estimatedCompletionTime,omitempty"`
	Status                  string   `json:"status,omitempty"`
	DownloadID              string   `json:"downloadId,omitempty"`
	MediaType               string   `json:"mediaType,omitempty"`
	Episode                 *Episode `json:"episode,omitempty"`
}

// Progress returns the completed fraction in [0,1]; 0 when size is unknown.
func (d DownloadStatus) Progress() float64 {
	if d.Size <= 0 {
		return 0
	}
	p := float64(d.Size-d.SizeLeft) / float64(d.Size)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// Episode is the episode a TV download belongs to.
type Episode struct {
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
	Title         string `json:"title,omitempty"`
	AirDate       string `json:"airDate,omitempty"`
	Runtime       int    `json:"runtime,omitempty"`
	Overview      string `json:"overview,omitempty"`
}

// MediaSeason is a season on a media record (MediaStatus vocabulary).
type MediaSeason struct {
	ID           int64       `json:"id,omitempty"`
	SeasonNumber int         `json:"seasonNumber"`
	Status       MediaStatus `json:"status"`
	CreatedAt    string      `json:"createdAt,omitempty"`
	UpdatedAt    string      `json:"updatedAt,omitempty"`
}

// RequestSeason is a season on a request (RequestStatus vocabulary).
type RequestSeason struct {
	ID           int64         `json:"id,omitempty"`
	SeasonNumber int           `json:"seasonNumber"`
	Status       RequestStatus `json:"status"`
	CreatedAt    string        `json:"createdAt,omitempty"`
	UpdatedAt    string        `json:"updatedAt,omitempty"`
}

// Request is a media request as returned by api/v1/request.
type Request struct {
	ID          int64           `json:"id"`
	Status      RequestStatus   `json:"status"`
	Type        string          `json:"type,omitempty"`
	Is4k        bool            `json:"is4k"`
	CreatedAt   string          `json:"createdAt,omitempty"`
	UpdatedAt   string          `json:"updatedAt,omitempty"`
	RequestedBy User            `json:"requestedBy"`
	Media       MediaInfo       `json:"media"`
	Seasons     []RequestSeason `json:"seasons,omitempty"`
}

// PageInfo is the paging envelope used by list endpoints.
type PageInfo struct {
	Page     int `json:"page"`
	Pages    int `json:"pages"`
	PageSize int `json:"pageSize"`
	Results  int `json:"results"`
}

// RequestPage is the body of GET api/v1/request.
type RequestPage struct {
	PageInfo     PageInfo  `json:"pageInfo"`
	TotalResults int       `json:"totalResults,omitempty"`
	Results      []Request `json:"results"`
}

// MediaPage is the body of GET api/v1/media.
type MediaPage struct {
	PageInfo PageInfo    `json:"pageInfo"`
	Results  []MediaInfo `json:"results"`
}

// User is an Overseerr account.
type User struct {
	ID           int64  `json:"id"`
	DisplayName  string `json:"displayName,omitempty"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
	RequestCount int    `json:"requestCount,omitempty"`
}

// Name returns displayName, falling back to username.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// UserPage is the body of GET api/v1/user.
type UserPage struct {
	PageInfo PageInfo `json:"pageInfo"`
	Results  []User   `json:"results"`
}

// Job is a scheduled Overseerr maintenance job.
type Job struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Type              string `json:"type"`
	Interval          string `json:"interval,omitempty"`
	CronSchedule      string `json:"cronSchedule,omitempty"`
	NextExecutionTime string `json:"nextExecutionTime,omitempty"`
	Running           bool   `json:"running"`
}

// JobList accepts both a bare array and a {"results": [...]} wrapper.
type JobList []Job

func (l *JobList) UnmarshalJSON(data []byte) error {
	var list []Job
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var wrapped struct {
		Results []Job `json:"results"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return fmt.Errorf("jobs payload is neither a list nor a results object: %w", err)
	}
	*l = wrapped.Results
	return nil
}

// Named is a {id, name} pair (genres, networks, production companies).
type Named struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MediaDetails is the body of GET api/v1/{movie|tv}/{id}.
type MediaDetails struct {
	ID                  int64      `json:"id"`
	Title               string     `json:"title,omitempty"`
	Name                string     `json:"name,omitempty"`
	Overview            string     `json:"overview,omitempty"`
	Genres              []Named    `json:"genres,omitempty"`
	Status              string     `json:"status,omitempty"`
	ReleaseDate         string     `json:"releaseDate,omitempty"`
	FirstAirDate        string     `json:"firstAirDate,omitempty"`
	Runtime             int        `json:"runtime,omitempty"`
	Budget              int64      `json:"budget,omitempty"`
	Revenue             int64      `json:"revenue,omitempty"`
	ProductionCompanies []Named    `json:"productionCompanies,omitempty"`
	NumberOfSeasons     int        `json:"numberOfSeasons,omitempty"`
	NumberOfEpisodes    int        `json:"numberOfEpisodes,omitempty"`
	EpisodeRunTime      []int      `json:"episodeRunTime,omitempty"`
	Networks            []Named    `json:"networks,omitempty"`
	MediaInfo           *MediaInfo `json:"mediaInfo,omitempty"`
}

// DisplayTitle returns the movie title or the show name.
func (d *MediaDetails) DisplayTitle() string {
	if d == nil {
		return ""
	}
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// AddRequestParams describes a new Overseerr request.
type AddRequestParams struct {
	MediaType string
	TmdbID    int64
	UserID    int64 // 0 means "request as the API key owner"
	Seasons   []int
	Is4k      bool

	// WholeSeries omits seasons so Overseerr requests every season.
	WholeSeries bool
}

// AddRequestResult reports the created request and whether the season-scoped
// attempt was replaced by a whole-series request.
type AddRequestResult struct {
	Request        Request
	Seasons        []int
	SeasonFallback bool
}

// DeleteResult reports which deletion steps succeeded.
type DeleteResult struct {
	FileDeleted   bool `json:"file_deleted"`
	RecordDeleted bool `json:"record_deleted"`
}

// TVDetails is the short show summary attached to a season analysis.
type TVDetails struct {
	Title   string `json:"title"`
	Status  string `json:"status"`
	AirDate string `json:"air_date"`
}

// SeasonAnalysis compares a show's seasons against what has been requested.
type SeasonAnalysis struct {
	TotalSeasons      int       `json:"total_seasons"`
	AllSeasons        []int     `json:"all_seasons"`
	RequestedSeasons  []int     `json:"requested_seasons"`
	AvailableSeasons  []int     `json:"available_seasons"`
	ProcessingSeasons []int     `json:"processing_seasons"`
	MissingSeasons    []int     `json:"missing_seasons"`
	TVDetails         TVDetails `json:"tv_details"`
}

// HasRequested reports whether season has already been requested.
func (a *SeasonAnalysis) HasRequested(season int) bool {
	if a == nil {
		return false
	}
	for _, s := range a.RequestedSeasons {
		if s == season {
			return true
		}
	}
	return false
}

// Radarr/Sonarr v3 payloads.

// QualityProfile is an *arr quality profile.
type QualityProfile struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RootFolder is an *arr root folder.
type RootFolder struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	FreeSpace int64  `json:"freeSpace,omitempty"`
}

// ArrLookup is a movie or series lookup hit. Raw keeps the full payload so it
// can be posted back to the add endpoint unchanged apart from the add fields.
type ArrLookup struct {
	ID     int64          `json:"id"`
	Title  string         `json:"title"`
	Year   int            `json:"year"`
	TmdbID int64          `json:"tmdbId,omitempty"`
	TvdbID int64          `json:"tvdbId,omitempty"`
	Raw    map[string]any `json:"-"`
}

func (a *ArrLookup) UnmarshalJSON(data []byte) error {
	type plain ArrLookup
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = ArrLookup(p)
	a.Raw = raw
	return nil
}

// Exists reports whether the lookup hit is already in the library.
func (a ArrLookup) Exists() bool { return a.ID > 0 }
