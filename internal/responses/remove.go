package responses

import (
	"strconv"

	"github.com/mescon/Hassarr/internal/integration"
)

// MissingRemoveParams is returned when neither a title nor a media id was given.
func MissingRemoveParams() *MissingInput {
	return &MissingInput{
		Envelope: env("missing_params", "Please provide either a title to search for or a specific media_id to remove"),
		Error:    "No title or media_id provided",
	}
}

// RemoveConnectionError reports a failed call during removal.
func RemoveConnectionError(title string, mediaID int64, details string) *ConnectionError {
	r := serverConnectionError(details)
	r.SearchedTitle = title
	r.MediaID = mediaID
	return r
}

// RemoveUserNotMapped refuses a removal by an unmapped caller.
func RemoveUserNotMapped(title, username string) *UserNotMapped {
	r := userNotMapped("perform media operations", "media operations", "remove media", notMappedDetails(username))
	r.SearchedTitle = title
	return r
}

func notMappedDetails(username string) string {
	return "User " + username + " is not mapped to any Overseerr user"
}

// RemovalTarget is the media a removal was attempted on.
type RemovalTarget struct {
	Title      string   `json:"title"`
	TmdbID     int64    `json:"tmdb_id"`
	Year       string   `json:"year"`
	Rating     *float64 `json:"rating,omitempty"`
	StatusText string   `json:"status_text,omitempty"`
	MediaType  string   `json:"media_type,omitempty"`
}

// RemoveResult covers every removal outcome other than the shared ones.
type RemoveResult struct {
	Envelope
	MediaID         int64          `json:"media_id,omitempty"`
	SearchedTitle   string         `json:"searched_title,omitempty"`
	Media           *RemovalTarget `json:"media,omitempty"`
	Error           string         `json:"error,omitempty"`
	ErrorDetails    string         `json:"error_details,omitempty"`
	Troubleshooting []string       `json:"troubleshooting,omitempty"`
	NextSteps       *NextSteps     `json:"next_steps,omitempty"`
}

func target(r integration.SearchResult) *RemovalTarget {
	return &RemovalTarget{
		Title:  resultTitle(r),
		TmdbID: r.ID,
		Year:   extractYear(r),
	}
}

// MediaNotFound reports a removal search that returned nothing.
func MediaNotFound(title string) *RemoveResult {
	return &RemoveResult{
		Envelope:      env("media_not_found", "Could not find '"+title+"' in your Overseerr library to remove"),
		SearchedTitle: title,
	}
}

// NotInLibrary reports a search hit that Overseerr has no record of.
func NotInLibrary(title string, r integration.SearchResult) *RemoveResult {
	t := target(r)
	rating := r.VoteAverage
	t.Rating = &rating
	return &RemoveResult{
		Envelope:      env("not_in_library", "'"+title+"' is not in your Overseerr library, so it cannot be removed"),
		SearchedTitle: title,
		Media:         t,
	}
}

// NoMediaID reports a library record without a usable id.
func NoMediaID(title string, r integration.SearchResult) *RemoveResult {
	t := target(r)
	_, t.StatusText = mediaStatus(r.MediaInfo, "Unknown")
	return &RemoveResult{
		Envelope:      env("no_media_id", "Found '"+title+"' but couldn't get the media ID needed for removal"),
		SearchedTitle: title,
		Media:         t,
		Troubleshooting: []string{
			"Try using check_media_status to get more details",
			"Media might be in an unusual state",
			"Check Overseerr web interface for status",
		},
	}
}

// RemovalFailed reports a rejected delete call.
func RemovalFailed(title string, mediaID int64, details string) *RemoveResult {
	return &RemoveResult{
		Envelope:      env("removal_failed", "Could not remove media ID "+strconv.FormatInt(mediaID, 10)+" from Overseerr"),
		MediaID:       mediaID,
		SearchedTitle: title,
		Error:         "Failed to remove media from Overseerr",
		ErrorDetails:  details,
		Troubleshooting: []string{
			"Check if media ID exists and is valid",
			"Verify user has permission to delete media",
			"Check if media is currently downloading",
			"Look at Overseerr server logs for details",
		},
	}
}

// MediaRemoved reports a successful removal. r is nil when the caller removed
// by id without searching.
func MediaRemoved(title string, mediaID int64, r *integration.SearchResult) *RemoveResult {
	name := title
	serviceURL := "N/A"
	var media *RemovalTarget
	if r != nil {
		media = target(*r)
		media.MediaType = orDefault(r.MediaType, "unknown")
		name = orDefault(r.DisplayTitle(), title)
		if r.MediaInfo != nil && r.MediaInfo.ServiceURL != "" {
			serviceURL = r.MediaInfo.ServiceURL
		}
	}
	return &RemoveResult{
		Envelope:      env("media_removed", "Successfully removed "+name+" from Overseerr"),
		MediaID:       mediaID,
		SearchedTitle: title,
		Media:         media,
		NextSteps: &NextSteps{
			Suggestion: "The media has been removed from your download queue and library.",
			Note: "If files were being downloaded at the time of removal, they may need to be manually removed " +
				"from your media library, link here: " + serviceURL,
		},
	}
}
