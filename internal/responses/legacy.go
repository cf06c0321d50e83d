package responses

import (
	"strconv"

	"github.com/mescon/Hassarr/internal/integration"
)

// Connection test statuses.
const (
	TestSuccess = "success"
	TestFailed  = "failed"
	TestError   = "error"
)

// ConnectionTest is the result of test_connection.
type ConnectionTest struct {
	Envelope
	Status        string `json:"status"`
	TotalRequests int    `json:"total_requests"`
}

// ConnectionOK reports a reachable Overseerr.
func ConnectionOK(total int) *ConnectionTest {
	return &ConnectionTest{
		Envelope:      env("connection_test", "Connected to Overseerr successfully. Found "+strconv.Itoa(total)+" requests."),
		Status:        TestSuccess,
		TotalRequests: total,
	}
}

// ConnectionFailed reports an Overseerr that answered with an error.
func ConnectionFailed() *ConnectionTest {
	return &ConnectionTest{
		Envelope: env("connection_test", "Failed to connect to Overseerr"),
		Status:   TestFailed,
	}
}

// ConnectionErrored reports an Overseerr that could not be reached at all.
func ConnectionErrored(err error) *ConnectionTest {
	return &ConnectionTest{
		Envelope: env("connection_test", "Error: "+err.Error()),
		Status:   TestError,
	}
}

// ArrMedia is a Radarr or Sonarr library entry.
type ArrMedia struct {
	Title  string `json:"title"`
	Year   int    `json:"year,omitempty"`
	TmdbID int64  `json:"tmdb_id,omitempty"`
	TvdbID int64  `json:"tvdb_id,omitempty"`
	ArrID  int64  `json:"arr_id,omitempty"`
}

// ArrResult covers the direct Radarr and Sonarr add outcomes.
type ArrResult struct {
	Envelope
	Service         string    `json:"service"`
	SearchedTitle   string    `json:"searched_title,omitempty"`
	Media           *ArrMedia `json:"media,omitempty"`
	Error           string    `json:"error,omitempty"`
	ErrorDetails    string    `json:"error_details,omitempty"`
	Troubleshooting []string  `json:"troubleshooting,omitempty"`
}

func arrName(kind string) string {
	return capitalize(kind)
}

func arrMedia(l integration.ArrLookup) *ArrMedia {
	return &ArrMedia{Title: l.Title, Year: l.Year, TmdbID: l.TmdbID, TvdbID: l.TvdbID, ArrID: l.ID}
}

// ArrNotConfigured is returned when the requested *arr has no URL or key.
func ArrNotConfigured(kind string) *ArrResult {
	name := arrName(kind)
	return &ArrResult{
		Envelope: env("not_configured", name+" is not configured. Set its URL and API key in the Hassarr settings."),
		Service:  kind,
		Error:    name + " not configured",
	}
}

// ArrConnectionError reports a failed *arr call.
func ArrConnectionError(kind, title, details string) *ConnectionError {
	name := arrName(kind)
	return &ConnectionError{
		Envelope:      env("connection_error", "Connection error - check "+name+" configuration and server status"),
		Error:         "Failed to connect to " + name + " server",
		ErrorDetails:  details,
		SearchedTitle: title,
		Troubleshooting: []string{
			"Verify " + name + " server is running",
			"Check URL and API key configuration",
			"Confirm network connectivity",
			"Check Hassarr logs for details",
		},
	}
}

// ArrNotFound reports a lookup with no hits.
func ArrNotFound(kind, title string) *ArrResult {
	return &ArrResult{
		Envelope:      env("not_found", "No matches for '"+title+"' in "+arrName(kind)),
		Service:       kind,
		SearchedTitle: title,
	}
}

// ArrAlreadyExists reports a title that is already in the *arr library.
func ArrAlreadyExists(kind, title string, hit integration.ArrLookup) *ArrResult {
	return &ArrResult{
		Envelope:      env("media_already_exists", "'"+hit.Title+"' is already in "+arrName(kind)),
		Service:       kind,
		SearchedTitle: title,
		Media:         arrMedia(hit),
	}
}

// ArrAdded reports a title added to the *arr library.
func ArrAdded(kind, title string, added integration.ArrLookup) *ArrResult {
	return &ArrResult{
		Envelope:      env("media_added_successfully", "Added '"+added.Title+"' to "+arrName(kind)),
		Service:       kind,
		SearchedTitle: title,
		Media:         arrMedia(added),
	}
}

// ArrAddFailed reports a rejected *arr add.
func ArrAddFailed(kind, title, details string) *ArrResult {
	name := arrName(kind)
	return &ArrResult{
		Envelope:      env("media_add_failed", "Could not add '"+title+"' to "+name),
		Service:       kind,
		SearchedTitle: title,
		Error:         "Media could not be added to " + name,
		ErrorDetails:  details,
		Troubleshooting: []string{
			"Check the configured quality profile id",
			"Make sure " + name + " has at least one root folder",
			"Check " + name + " logs for specific errors",
		},
	}
}

// Fallback messages for unexpected failures, one per operation.
const (
	UnexpectedStatus   = "Unexpected error occurred"
	UnexpectedSearch   = "Unexpected error occurred in search"
	UnexpectedRemove   = "Unexpected error occurred in remove media operation"
	UnexpectedRequests = "Unexpected error occurred in get active requests operation"
	UnexpectedJob      = "Unexpected error occurred in run job operation"
)
