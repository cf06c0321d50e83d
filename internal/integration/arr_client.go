package integration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Arr instance type constants
const (
	ArrTypeSonarr = "sonarr"
	ArrTypeRadarr = "radarr"
)

// ErrNoRootFolder is returned when an *arr instance has no root folder to add into.
var ErrNoRootFolder = errors.New("no root folder configured")

// ArrClient talks to the v3 API of a single Radarr or Sonarr instance.
type ArrClient struct {
	kind string
	rest *restClient
}

// NewArrClient creates a client for a Radarr or Sonarr instance.
func NewArrClient(kind, baseURL, apiKey string, opts ClientOptions) *ArrClient {
	return &ArrClient{kind: kind, rest: newRESTClient(kind, baseURL, apiKey, opts)}
}

// Kind returns ArrTypeRadarr or ArrTypeSonarr.
func (c *ArrClient) Kind() string { return c.kind }

// Configured reports whether both URL and API key are set.
func (c *ArrClient) Configured() bool { return c.rest.configured() }

func (c *ArrClient) resource() string {
	if c.kind == ArrTypeSonarr {
		return "series"
	}
	return "movie"
}

// QualityProfiles lists the instance's quality profiles.
func (c *ArrClient) QualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	var profiles []QualityProfile
	if err := c.rest.do(ctx, "qualityprofile", http.MethodGet, "api/v3/qualityprofile", nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// RootFolders lists the instance's root folders.
func (c *ArrClient) RootFolders(ctx context.Context) ([]RootFolder, error) {
	var folders []RootFolder
	if err := c.rest.do(ctx, "rootfolder", http.MethodGet, "api/v3/rootfolder", nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// Lookup searches the instance's metadata source by title.
func (c *ArrClient) Lookup(ctx context.Context, term string) ([]ArrLookup, error) {
	endpoint := fmt.Sprintf("api/v3/%s/lookup?term=%s", c.resource(), url.QueryEscape(term))
	var hits []ArrLookup
	if err := c.rest.do(ctx, c.resource()+"_lookup", http.MethodGet, endpoint, nil, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// Add adds a lookup hit to the library, monitored, into the first root folder,
// and starts a search for it.
func (c *ArrClient) Add(ctx context.Context, item ArrLookup, qualityProfileID int64) (*ArrLookup, error) {
	folders, err := c.RootFolders(ctx)
	if err != nil {
		return nil, err
	}
	if len(folders) == 0 {
		return nil, fmt.Errorf("%s: %w", c.kind, ErrNoRootFolder)
	}

	body := make(map[string]any, len(item.Raw)+4)
	for k, v := range item.Raw {
		body[k] = v
	}
	body["qualityProfileId"] = qualityProfileID
	body["rootFolderPath"] = folders[0].Path
	body["monitored"] = true
	if c.kind == ArrTypeSonarr {
		body["addOptions"] = map[string]any{"searchForMissingEpisodes": true}
		body["seasonFolder"] = true
	} else {
		body["addOptions"] = map[string]any{"searchForMovie": true}
	}

	var added ArrLookup
	if err := c.rest.do(ctx, c.resource()+"_add", http.MethodPost, "api/v3/"+c.resource(), body, &added); err != nil {
		return nil, err
	}
	return &added, nil
}
