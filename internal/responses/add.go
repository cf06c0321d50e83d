package responses

import (
	"strconv"
	"strings"

	"github.com/mescon/Hassarr/internal/integration"
)

// ParseTypeAll marks an add that asked for every season.
const ParseTypeAll = "all"

// AddOutcome carries everything known about an add attempt.
type AddOutcome struct {
	Title     string
	Result    integration.SearchResult
	Details   *integration.MediaDetails
	Analysis  *integration.SeasonAnalysis
	Season    *int  // the single requested season, if any
	Seasons   []int // the seasons sent to Overseerr
	ParseType string
	Is4k      bool
}

// AddedMedia describes the title an add was about.
type AddedMedia struct {
	Title         string        `json:"title"`
	TmdbID        int64         `json:"tmdb_id"`
	Status        *int          `json:"status,omitempty"`
	StatusText    string        `json:"status_text,omitempty"`
	Year          string        `json:"year"`
	Rating        float64       `json:"rating"`
	OverviewShort string        `json:"overview_short"`
	Genres        []string      `json:"genres"`
	WatchURL      *string       `json:"watch_url,omitempty"`
	DownloadInfo  *DownloadInfo `json:"download_info,omitempty"`
	Requested4k   bool          `json:"requested_4k,omitempty"`
}

// SeasonContext explains which seasons an add targeted. RequestedSeason is an
// int, a list of ints or "all".
type SeasonContext struct {
	RequestedSeason any    `json:"requested_season"`
	Note            string `json:"note"`
}

// SeasonOverview is the season analysis as shown to the user.
type SeasonOverview struct {
	TotalSeasons      int      `json:"total_seasons"`
	StatusSummary     string   `json:"status_summary"`
	AvailableSeasons  []int    `json:"available_seasons"`
	ProcessingSeasons []int    `json:"processing_seasons"`
	MissingSeasons    []int    `json:"missing_seasons"`
	RequestedSeason   *int     `json:"requested_season"`
	Suggestions       []string `json:"suggestions"`
}

// LLMSuggestions offers follow-up prompts for the assistant.
type LLMSuggestions struct {
	ConversationStarters []string `json:"conversation_starters"`
}

// AlreadyExists is returned when Overseerr already tracks the title.
type AlreadyExists struct {
	Envelope
	MediaType      string          `json:"media_type"`
	SearchedTitle  string          `json:"searched_title"`
	Media          AddedMedia      `json:"media"`
	SeasonAnalysis *SeasonOverview `json:"season_analysis,omitempty"`
	LLMSuggestions *LLMSuggestions `json:"llm_suggestions,omitempty"`
	SeasonContext  *SeasonContext  `json:"season_context,omitempty"`
}

// FallbackInfo records that a season-scoped request became a whole-series one.
type FallbackInfo struct {
	OriginalSeasonRequest any    `json:"original_season_request"`
	ActualRequest         string `json:"actual_request"`
	Reason                string `json:"reason"`
}

// MediaAdded is returned after a successful request.
type MediaAdded struct {
	Envelope
	MediaType     string         `json:"media_type"`
	SearchedTitle string         `json:"searched_title"`
	Media         AddedMedia     `json:"media"`
	NextSteps     NextSteps      `json:"next_steps"`
	SeasonContext *SeasonContext `json:"season_context,omitempty"`
	FallbackInfo  *FallbackInfo  `json:"fallback_info,omitempty"`

	// DuplicateSuppressed is set when this result is replayed for a repeat
	// of a request that just succeeded.
	DuplicateSuppressed bool `json:"duplicate_suppressed,omitempty"`
}

// AddFailed is returned when Overseerr rejected the request.
type AddFailed struct {
	Envelope
	Error           string   `json:"error"`
	ErrorDetails    string   `json:"error_details"`
	SearchedTitle   string   `json:"searched_title"`
	Troubleshooting []string `json:"troubleshooting"`
}

func addedMedia(o AddOutcome) AddedMedia {
	m := AddedMedia{
		Title:  resultTitle(o.Result),
		TmdbID: o.Result.ID,
		Year:   extractYear(o.Result),
		Rating: o.Result.VoteAverage,
		Genres: genreNames(o.Details, 2),
	}
	if o.Details != nil {
		m.OverviewShort = truncate(o.Details.Overview, 150, "...")
	}
	return m
}

func typeLabel(mediaType string) string {
	return capitalize(orDefault(mediaType, "media"))
}

// MediaAlreadyExists reports a title already known to Overseerr.
func MediaAlreadyExists(o AddOutcome) *AlreadyExists {
	r := o.Result
	media := addedMedia(o)
	media.Status, media.StatusText = mediaStatus(r.MediaInfo, "Not Requested")
	media.DownloadInfo = BuildDownloadInfo(r.MediaInfo)
	if r.MediaInfo != nil {
		media.WatchURL = r.MediaInfo.MediaURL
	}

	out := &AlreadyExists{
		Envelope:      env("media_already_exists", typeLabel(r.MediaType)+" already exists in Overseerr"),
		MediaType:     orDefault(r.MediaType, "unknown"),
		SearchedTitle: o.Title,
		Media:         media,
	}

	if r.MediaType == integration.MediaTypeMovie && o.Is4k {
		out.Media.Requested4k = true
		out.Message = "Movie already exists in Overseerr (4K version was requested)"
	}
	if r.MediaType != integration.MediaTypeTV {
		return out
	}

	if a := o.Analysis; a != nil {
		overview := seasonOverview(a, o.Season)
		out.SeasonAnalysis = overview
		switch {
		case o.Season == nil:
			out.Message = "TV show already exists in Overseerr (" + overview.StatusSummary + ")"
		case contains(a.AvailableSeasons, *o.Season):
			out.Message = "TV show already exists - Season " + strconv.Itoa(*o.Season) + " is available in your library"
		case contains(a.ProcessingSeasons, *o.Season):
			out.Message = "TV show already exists - Season " + strconv.Itoa(*o.Season) + " is currently downloading"
		default:
			out.Message = "TV show already exists - Season " + strconv.Itoa(*o.Season) + " is not yet requested"
		}
		out.LLMSuggestions = conversationStarters(a.MissingSeasons)
		return out
	}

	if o.Season != nil {
		s := strconv.Itoa(*o.Season)
		out.SeasonContext = &SeasonContext{
			RequestedSeason: *o.Season,
			Note:            "You requested season " + s + ", but the series is already in your library",
		}
		out.Message = "TV show already exists in Overseerr (you requested season " + s + ")"
	}
	return out
}

func seasonOverview(a *integration.SeasonAnalysis, season *int) *SeasonOverview {
	var parts []string
	if len(a.AvailableSeasons) > 0 {
		parts = append(parts, seasonPhrase(a.AvailableSeasons, "is available", "are available"))
	}
	if len(a.ProcessingSeasons) > 0 {
		parts = append(parts, seasonPhrase(a.ProcessingSeasons, "is downloading", "are downloading"))
	}
	summary := "No seasons available yet"
	if len(parts) > 0 {
		summary = strings.Join(parts, "; ")
	}

	suggestions := []string{}
	switch missing := a.MissingSeasons; {
	case len(missing) == 1:
		suggestions = append(suggestions, "Request season "+strconv.Itoa(missing[0]))
	case len(missing) > 1 && len(missing) <= 3:
		suggestions = append(suggestions, "Request seasons "+joinInts(missing))
	case len(missing) > 3:
		suggestions = append(suggestions, "Request remaining "+strconv.Itoa(len(missing))+" seasons ("+
			strconv.Itoa(missing[0])+"-"+strconv.Itoa(missing[len(missing)-1])+")")
	}

	return &SeasonOverview{
		TotalSeasons:      a.TotalSeasons,
		StatusSummary:     summary,
		AvailableSeasons:  nonNil(a.AvailableSeasons),
		ProcessingSeasons: nonNil(a.ProcessingSeasons),
		MissingSeasons:    nonNil(a.MissingSeasons),
		RequestedSeason:   season,
		Suggestions:       suggestions,
	}
}

func conversationStarters(missing []int) *LLMSuggestions {
	if len(missing) == 0 {
		return &LLMSuggestions{ConversationStarters: []string{
			"All seasons are already requested or available",
			"You have the complete series",
		}}
	}
	first := missing
	if len(first) > 3 {
		first = first[:3]
	}
	return &LLMSuggestions{ConversationStarters: []string{
		"Would you like me to add the missing seasons?",
		"Should I request the remaining episodes?",
		"I can add seasons " + joinInts(first) + " if you'd like",
	}}
}

func nonNil(ns []int) []int {
	if ns == nil {
		return []int{}
	}
	return ns
}

// MediaAddedSuccessfully reports a submitted request.
func MediaAddedSuccessfully(o AddOutcome) *MediaAdded {
	r := o.Result
	out := &MediaAdded{
		Envelope:      env("media_added_successfully", typeLabel(r.MediaType)+" successfully added to Overseerr"),
		MediaType:     orDefault(r.MediaType, "unknown"),
		SearchedTitle: o.Title,
		Media:         addedMedia(o),
		NextSteps: NextSteps{
			Suggestion:   "Would you like me to check the status of this media request?",
			ActionPrompt: "Ask me: 'What's the status of " + orDefault(r.DisplayTitle(), o.Title) + "?'",
			TypicalWorkflow: []string{
				"Request submitted to Overseerr",
				"Admin approval (if required)",
				"Download begins",
				"Media available in library",
			},
		},
	}

	if r.MediaType == integration.MediaTypeMovie && o.Is4k {
		out.Media.Requested4k = true
		out.Message = "Movie successfully added to Overseerr in 4K quality"
	}
	if r.MediaType != integration.MediaTypeTV {
		return out
	}

	switch {
	case o.ParseType == ParseTypeAll:
		out.setEntireSeries()
	case len(o.Seasons) > 1:
		list := joinInts(o.Seasons)
		out.SeasonContext = &SeasonContext{RequestedSeason: o.Seasons, Note: "Requested seasons " + list}
		out.Message = "TV show successfully added to Overseerr (seasons " + list + " requested)"
	case o.Season != nil:
		s := strconv.Itoa(*o.Season)
		out.SeasonContext = &SeasonContext{RequestedSeason: *o.Season, Note: "Requested season " + s + " specifically"}
		out.Message = "TV show successfully added to Overseerr (season " + s + " requested)"
	default:
		out.SeasonContext = &SeasonContext{RequestedSeason: 1, Note: "No season specified, defaulted to season 1"}
		out.Message = "TV show successfully added to Overseerr (defaulted to season 1)"
	}
	return out
}

func (m *MediaAdded) setEntireSeries() {
	m.SeasonContext = &SeasonContext{RequestedSeason: "all", Note: "Requested entire series (all seasons)"}
	m.Message = "TV show successfully added to Overseerr (entire series requested)"
}

// WithSeasonFallback marks that Overseerr rejected the season-scoped request
// and the whole series was requested instead. requested is what was asked for.
func (m *MediaAdded) WithSeasonFallback(requested []int) *MediaAdded {
	m.setEntireSeries()
	var original any = requested
	label := "Seasons " + joinInts(requested)
	if len(requested) == 1 {
		original = requested[0]
		label = "Season " + strconv.Itoa(requested[0])
	}
	m.FallbackInfo = &FallbackInfo{
		OriginalSeasonRequest: original,
		ActualRequest:         "entire_series",
		Reason:                "Season-specific request failed on server",
	}
	m.Message += " (Note: " + label + " request failed, so the entire series was requested instead)"
	return m
}

// Replayed returns a copy of m marked as a suppressed duplicate.
func (m *MediaAdded) Replayed() *MediaAdded {
	cp := *m
	cp.UserContext = nil
	cp.DuplicateSuppressed = true
	return &cp
}

// MediaAddFailed reports a rejected request.
func MediaAddFailed(title, details string) *AddFailed {
	return &AddFailed{
		Envelope:      env("media_add_failed", "Media request failed - check Overseerr configuration and permissions"),
		Error:         "Media could not be added to Overseerr",
		ErrorDetails:  details,
		SearchedTitle: title,
		Troubleshooting: []string{
			"Check if user has permission to make requests",
			"Verify media is available on configured indexers",
			"Confirm Overseerr quality profiles are set up",
			"Check Overseerr logs for specific errors",
		},
	}
}

// AddUserNotMapped refuses an add by an unmapped caller.
func AddUserNotMapped(title, username string) *UserNotMapped {
	r := userNotMapped("make media requests", "media requests", "make requests", notMappedDetails(username))
	r.SearchedTitle = title
	return r
}
