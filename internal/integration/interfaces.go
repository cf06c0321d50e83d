package integration

import "context"

// OverseerrAPI is the set of Overseerr operations used by the service layer.
type OverseerrAPI interface {
	Search(ctx context.Context, query string) (*SearchPage, error)
	GetRequests(ctx context.Context, filter string, take, skip int) (*RequestPage, error)
	GetMedia(ctx context.Context, filter string, take, skip int, sortBy string) (*MediaPage, error)
	GetMediaDetails(ctx context.Context, mediaType string, tmdbID int64) (*MediaDetails, error)
	AddRequest(ctx context.Context, p AddRequestParams) (*AddRequestResult, error)
	DeleteMedia(ctx context.Context, mediaID int64) (*DeleteResult, error)
	ListJobs(ctx context.Context) ([]Job, error)
	RunJob(ctx context.Context, jobID string) (*Job, error)
	ListUsers(ctx context.Context) ([]User, error)
	AnalyzeTVSeasons(ctx context.Context, tmdbID int64) (*SeasonAnalysis, error)
}

// ArrAPI is the set of Radarr/Sonarr operations used for direct adds.
type ArrAPI interface {
	Kind() string
	Configured() bool
	QualityProfiles(ctx context.Context) ([]QualityProfile, error)
	RootFolders(ctx context.Context) ([]RootFolder, error)
	Lookup(ctx context.Context, term string) ([]ArrLookup, error)
	Add(ctx context.Context, item ArrLookup, qualityProfileID int64) (*ArrLookup, error)
}

var (
	_ OverseerrAPI = (*OverseerrClient)(nil)
	_ ArrAPI       = (*ArrClient)(nil)
)
