package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/mescon/Hassarr/internal/db"
	"github.com/mescon/Hassarr/internal/domain"
	"github.com/mescon/Hassarr/internal/integration"
	"github.com/mescon/Hassarr/internal/logger"
	"github.com/mescon/Hassarr/internal/responses"
)

// requestPageSize is the number of requests fetched for status lookups,
// connection tests and active-request listings.
const requestPageSize = 100

// AddMediaInput is the input of AddMedia. Season is free-form ("2",
// "season two", "all", "1-3", "remaining").
type AddMediaInput struct {
	Title  string `json:"title"`
	Season string `json:"season,omitempty"`
	Is4k   bool   `json:"is4k,omitempty"`
}

// RemoveMediaInput is the input of RemoveMedia. Title wins over MediaID.
type RemoveMediaInput struct {
	Title   string `json:"title,omitempty"`
	MediaID string `json:"media_id,omitempty"`
}

// ListInput pages and filters the request and media listings.
type ListInput struct {
	Filter string `json:"filter,omitempty"`
	Take   int    `json:"take,omitempty"`
	Skip   int    `json:"skip,omitempty"`
	Sort   string `json:"sort,omitempty"`
}

// MediaService implements the Hassarr operations on top of Overseerr and the
// optional Radarr/Sonarr instances.
type MediaService struct {
	deps  Deps
	guard *addGuard
}

// NewMediaService creates the service. deps.Overseerr must be set.
func NewMediaService(deps Deps) *MediaService {
	return &MediaService{
		deps:  deps,
		guard: newAddGuard(deps.Clock, deps.AddCooldown),
	}
}

// Overseerr returns the Overseerr client the service runs against.
func (s *MediaService) Overseerr() integration.OverseerrAPI {
	return s.deps.Overseerr
}

// Arr returns the Radarr or Sonarr client for kind, or nil.
func (s *MediaService) Arr(kind string) integration.ArrAPI {
	switch kind {
	case integration.ArrTypeRadarr:
		return s.deps.Radarr
	case integration.ArrTypeSonarr:
		return s.deps.Sonarr
	}
	return nil
}

// run executes op, turning a panic into an error result, and then records
// the result for service.
func (s *MediaService) run(ctx context.Context, service string, uc responses.UserContext, unexpected string, op func() responses.Response) (r responses.Response) {
	defer func() {
		if p := recover(); p != nil {
			logger.Errorf("Panic in %s: %v\n%s", service, p, debug.Stack())
			r = s.finish(ctx, service, uc, responses.NewError(unexpected))
		}
	}()
	return s.finish(ctx, service, uc, op())
}

func (s *MediaService) finish(ctx context.Context, service string, uc responses.UserContext, r responses.Response) responses.Response {
	responses.WithUser(r, uc)
	if s.deps.Results != nil {
		s.deps.Results.Put(ctx, service, r)
	}
	s.recordCall(service, responses.ActionOf(r))
	return r
}

func (s *MediaService) recordCall(service, action string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordServiceCall(service, action)
	}
}

func (s *MediaService) publish(ctx context.Context, ev domain.Event, uc responses.UserContext) {
	if s.deps.Bus == nil {
		return
	}
	ev.UserID = uc.UserID
	if err := s.deps.Bus.Publish(ctx, ev); err != nil {
		logger.Errorf("Failed to publish %s event: %v", ev.EventType, err)
	}
}

// mappedUser returns the Overseerr mapping of the caller, or nil when the
// caller has no user id or is not mapped. Lookup errors count as unmapped.
func (s *MediaService) mappedUser(ctx context.Context, uc responses.UserContext) *db.UserMapping {
	if uc.UserID == "" || s.deps.Mappings == nil {
		return nil
	}
	m, err := s.deps.Mappings.GetUserMapping(ctx, uc.UserID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			logger.Errorf("Failed to look up user mapping for %s: %v", uc.UserID, err)
		}
		return nil
	}
	return m
}

// rejectsUnmapped reports whether a caller with a user id lacks a mapping.
// Callers without a user id are let through.
func (s *MediaService) rejectsUnmapped(ctx context.Context, uc responses.UserContext) bool {
	if uc.UserID == "" {
		return false
	}
	if s.mappedUser(ctx, uc) != nil {
		return false
	}
	logger.Warnf("User %s (ID: %s) is not mapped to any Overseerr user", uc.Username, uc.UserID)
	return true
}

func (s *MediaService) logUnmappedReader(ctx context.Context, uc responses.UserContext, what string) {
	if uc.UserID != "" && s.mappedUser(ctx, uc) == nil {
		logger.Infof("Unmapped user %s %s - allowing read-only access", uc.Username, what)
	}
}

func (s *MediaService) details(ctx context.Context, mediaType string, tmdbID int64) *integration.MediaDetails {
	if tmdbID == 0 {
		return nil
	}
	d, err := s.deps.Overseerr.GetMediaDetails(ctx, mediaType, tmdbID)
	if err != nil {
		logger.Warnf("Failed to get media details for %s %d: %v", mediaType, tmdbID, err)
		return nil
	}
	return d
}

func (s *MediaService) analysis(ctx context.Context, tmdbID int64) *integration.SeasonAnalysis {
	a, err := s.deps.Overseerr.AnalyzeTVSeasons(ctx, tmdbID)
	if err != nil {
		logger.Warnf("Failed to get season analysis for %d: %v", tmdbID, err)
		return nil
	}
	return a
}

func mediaTypeOf(r integration.SearchResult) string {
	if r.MediaType == "" {
		return integration.MediaTypeMovie
	}
	return r.MediaType
}

// =============================================================================
// test_connection
// =============================================================================

// TestConnection lists requests to verify URL and API key.
func (s *MediaService) TestConnection(ctx context.Context, uc responses.UserContext) responses.Response {
	return s.run(ctx, ServiceTestConnection, uc, responses.UnexpectedStatus, func() responses.Response {
		logger.Infof("Testing Overseerr connection (called by %s)", uc.Username)
		if c, ok := s.deps.Overseerr.(interface{ Configured() bool }); ok && !c.Configured() {
			return responses.ConnectionErrored(errors.New("Overseerr is not configured"))
		}
		page, err := s.deps.Overseerr.GetRequests(ctx, integration.FilterAll, requestPageSize, 0)
		if err != nil {
			logger.Errorf("Connection test failed: %v", err)
			return responses.ConnectionFailed()
		}
		logger.Infof("Connection test successful: %d requests", len(page.Results))
		return responses.ConnectionOK(len(page.Results))
	})
}

// =============================================================================
// check_media_status
// =============================================================================

// CheckMediaStatus reports the Overseerr status of the best match for title.
func (s *MediaService) CheckMediaStatus(ctx context.Context, uc responses.UserContext, title string) responses.Response {
	return s.run(ctx, ServiceCheckMediaStatus, uc, responses.UnexpectedStatus, func() responses.Response {
		title = strings.TrimSpace(title)
		if title == "" {
			return responses.MissingTitle()
		}
		s.logUnmappedReader(ctx, uc, "checking media status")
		logger.Infof("Checking media status for: %s (called by %s)", title, uc.Username)

		page, err := s.deps.Overseerr.Search(ctx, title)
		if err != nil {
			return responses.TitleConnectionError(title, err.Error())
		}
		if len(page.Results) == 0 {
			return responses.TitleNotFound(title)
		}
		first := page.Results[0]
		details := s.details(ctx, mediaTypeOf(first), first.ID)

		var requests []integration.Request
		if reqs, err := s.deps.Overseerr.GetRequests(ctx, integration.FilterAll, requestPageSize, 0); err != nil {
			logger.Warnf("Failed to get requests data: %v", err)
		} else {
			requests = reqs.Results
		}

		r := responses.MediaFound(title, first, details, requests)
		logger.Infof("Media status check completed for '%s': %s", title, r.Action)
		return r
	})
}

// =============================================================================
// search_media
// =============================================================================

// SearchMedia lists the search hits for query.
func (s *MediaService) SearchMedia(ctx context.Context, uc responses.UserContext, query string) responses.Response {
	return s.run(ctx, ServiceSearchMedia, uc, responses.UnexpectedSearch, func() responses.Response {
		query = strings.TrimSpace(query)
		if query == "" {
			return responses.MissingQuery()
		}
		s.logUnmappedReader(ctx, uc, "searching media")
		logger.Infof("Searching for media: %s (called by %s)", query, uc.Username)

		page, err := s.deps.Overseerr.Search(ctx, query)
		if err != nil {
			return responses.QueryConnectionError(query, err.Error())
		}
		if len(page.Results) == 0 {
			return responses.SearchNoResults(query)
		}
		logger.Infof("Found %d results for search: %s", len(page.Results), query)
		return responses.SearchFound(query, page)
	})
}

// =============================================================================
// remove_media
// =============================================================================

// RemoveMedia deletes the files and the Overseerr record of a title or of an
// explicit media id.
func (s *MediaService) RemoveMedia(ctx context.Context, uc responses.UserContext, in RemoveMediaInput) responses.Response {
	return s.run(ctx, ServiceRemoveMedia, uc, responses.UnexpectedRemove, func() responses.Response {
		title := strings.TrimSpace(in.Title)
		rawID := strings.TrimSpace(in.MediaID)
		if title == "" && rawID == "" {
			return responses.MissingRemoveParams()
		}
		logger.Infof("Remove media request (called by %s): title='%s', media_id='%s'", uc.Username, title, rawID)

		if s.rejectsUnmapped(ctx, uc) {
			return responses.RemoveUserNotMapped(title, uc.Username)
		}

		var found *integration.SearchResult
		var mediaID int64
		if title != "" {
			page, err := s.deps.Overseerr.Search(ctx, title)
			if err != nil {
				return responses.RemoveConnectionError(title, 0, err.Error())
			}
			if len(page.Results) == 0 {
				return responses.MediaNotFound(title)
			}
			first := page.Results[0]
			if first.MediaInfo == nil {
				return responses.NotInLibrary(title, first)
			}
			if first.MediaInfo.ID == 0 {
				return responses.NoMediaID(title, first)
			}
			found = &first
			mediaID = first.MediaInfo.ID
		} else {
			id, err := strconv.ParseInt(rawID, 10, 64)
			if err != nil || id <= 0 {
				return responses.RemoveConnectionError(title, 0, fmt.Sprintf("invalid media_id %q", rawID))
			}
			mediaID = id
		}

		logger.Infof("Attempting to remove media ID: %d", mediaID)
		if _, err := s.deps.Overseerr.DeleteMedia(ctx, mediaID); err != nil {
			logger.Errorf("Failed to remove media ID %d: %v", mediaID, err)
			if integration.StatusCode(err) == 0 {
				return responses.RemoveConnectionError(title, mediaID, err.Error())
			}
			return responses.RemovalFailed(title, mediaID, err.Error())
		}

		data := domain.MediaEventData{Title: title, MediaID: mediaID, Username: uc.Username}
		if found != nil {
			data.Title = found.DisplayTitle()
			data.TmdbID = found.ID
			data.MediaType = found.MediaType
		}
		if data.Title == "" {
			data.Title = "media " + strconv.FormatInt(mediaID, 10)
		}
		s.publish(ctx, domain.NewMediaEvent(domain.MediaRemoved, data), uc)
		logger.Infof("Successfully removed media ID %d", mediaID)
		return responses.MediaRemoved(title, mediaID, found)
	})
}

// =============================================================================
// get_active_requests / get_all_media
// =============================================================================

// GetActiveRequests lists requests, active ones first. in.Take limits the
// listing as well as the fetch.
func (s *MediaService) GetActiveRequests(ctx context.Context, uc responses.UserContext, in ListInput) responses.Response {
	return s.run(ctx, ServiceGetActiveRequests, uc, responses.UnexpectedRequests, func() responses.Response {
		logger.Infof("Getting active requests (called by %s)", uc.Username)
		take := in.Take
		if take <= 0 {
			take = requestPageSize
		}
		page, err := s.deps.Overseerr.GetRequests(ctx, orFilter(in.Filter), take, in.Skip)
		if err != nil {
			logger.Errorf("Failed to get active requests: %v", err)
			return responses.RequestsConnectionError(err.Error())
		}
		if len(page.Results) == 0 {
			logger.Infof("No active requests found")
			return responses.NoRequestsFound()
		}
		logger.Infof("Retrieved %d requests from Overseerr", len(page.Results))
		return responses.RequestsFromRequests(ctx, s.deps.Overseerr, page.Results, in.Take)
	})
}

// GetAllMedia lists library media through the media endpoint.
func (s *MediaService) GetAllMedia(ctx context.Context, uc responses.UserContext, in ListInput) responses.Response {
	return s.run(ctx, ServiceGetAllMedia, uc, responses.UnexpectedRequests, func() responses.Response {
		logger.Infof("Getting all media with filter '%s' (called by %s)", orFilter(in.Filter), uc.Username)
		page, err := s.deps.Overseerr.GetMedia(ctx, orFilter(in.Filter), in.Take, in.Skip, in.Sort)
		if err != nil {
			logger.Errorf("Failed to get media: %v", err)
			return responses.RequestsConnectionError(err.Error())
		}
		if len(page.Results) == 0 {
			return responses.NoRequestsFound()
		}
		return responses.RequestsFromMedia(ctx, s.deps.Overseerr, page.Results, in.Take)
	})
}

func orFilter(f string) string {
	if f == "" {
		return integration.FilterAll
	}
	return f
}

// =============================================================================
// run_job
// =============================================================================

// RunJob triggers an Overseerr job by id.
func (s *MediaService) RunJob(ctx context.Context, uc responses.UserContext, jobID string) responses.Response {
	return s.run(ctx, ServiceRunJob, uc, responses.UnexpectedJob, func() responses.Response {
		return s.runJob(ctx, uc, strings.TrimSpace(jobID), "service")
	})
}

// RunScheduledJob triggers a job on behalf of a stored schedule.
func (s *MediaService) RunScheduledJob(ctx context.Context, jobID string) responses.Response {
	uc := responses.UserContext{Username: "scheduler", IsAdmin: true}
	return s.run(ctx, ServiceRunJob, uc, responses.UnexpectedJob, func() responses.Response {
		return s.runJob(ctx, uc, jobID, "schedule")
	})
}

func (s *MediaService) runJob(ctx context.Context, uc responses.UserContext, jobID, source string) responses.Response {
	logger.Infof("Running job %s (called by %s)", jobID, uc.Username)
	if jobID == "" {
		return responses.JobNotFound(jobID, "No job_id provided")
	}
	if s.rejectsUnmapped(ctx, uc) {
		return responses.JobUserNotMapped(jobID, uc.Username)
	}

	jobs, err := s.deps.Overseerr.ListJobs(ctx)
	if err != nil {
		logger.Errorf("Failed to get jobs list to validate job_id %s: %v", jobID, err)
		return responses.JobConnectionError(jobID, err.Error())
	}
	var job *integration.Job
	for i := range jobs {
		if jobs[i].ID == jobID {
			job = &jobs[i]
			break
		}
	}
	if job == nil {
		logger.Errorf("Job not found: %s", jobID)
		return responses.JobNotFound(jobID, fmt.Sprintf("Job '%s' not found in available jobs list", jobID))
	}
	name := job.Name
	if name == "" {
		name = jobID
	}

	if _, err := s.deps.Overseerr.RunJob(ctx, jobID); err != nil {
		logger.Errorf("Failed to run job %s: %v", jobID, err)
		return responses.JobRunFailed(jobID, err.Error())
	}
	s.publish(ctx, domain.NewJobEvent(jobID, name, source), uc)
	logger.Infof("Successfully triggered job: %s (%s)", name, jobID)
	return responses.JobStarted(jobID, name)
}

// =============================================================================
// add_radarr_movie / add_sonarr_tv_show
// =============================================================================

// AddRadarrMovie adds the best Radarr lookup hit for title.
func (s *MediaService) AddRadarrMovie(ctx context.Context, uc responses.UserContext, title string) responses.Response {
	return s.run(ctx, ServiceAddRadarrMovie, uc, responses.UnexpectedStatus, func() responses.Response {
		return s.addToArr(ctx, uc, s.deps.Radarr, integration.ArrTypeRadarr, s.deps.RadarrQualityProfileID, title)
	})
}

// AddSonarrShow adds the best Sonarr lookup hit for title.
func (s *MediaService) AddSonarrShow(ctx context.Context, uc responses.UserContext, title string) responses.Response {
	return s.run(ctx, ServiceAddSonarrShow, uc, responses.UnexpectedStatus, func() responses.Response {
		return s.addToArr(ctx, uc, s.deps.Sonarr, integration.ArrTypeSonarr, s.deps.SonarrQualityProfileID, title)
	})
}

func (s *MediaService) addToArr(ctx context.Context, uc responses.UserContext, arr integration.ArrAPI, kind string, profileID int64, title string) responses.Response {
	title = strings.TrimSpace(title)
	if title == "" {
		return responses.MissingTitle()
	}
	if arr == nil || !arr.Configured() {
		return responses.ArrNotConfigured(kind)
	}
	logger.Infof("Adding '%s' to %s (called by %s)", title, kind, uc.Username)

	hits, err := arr.Lookup(ctx, title)
	if err != nil {
		return responses.ArrConnectionError(kind, title, err.Error())
	}
	if len(hits) == 0 {
		return responses.ArrNotFound(kind, title)
	}
	hit := hits[0]
	if hit.Exists() {
		return responses.ArrAlreadyExists(kind, title, hit)
	}

	added, err := arr.Add(ctx, hit, profileID)
	if err != nil {
		logger.Errorf("Failed to add '%s' to %s: %v", hit.Title, kind, err)
		return responses.ArrAddFailed(kind, title, err.Error())
	}

	mediaType := integration.MediaTypeMovie
	if kind == integration.ArrTypeSonarr {
		mediaType = integration.MediaTypeTV
	}
	s.publish(ctx, domain.NewMediaEvent(domain.MediaAdded, domain.MediaEventData{
		Title:     added.Title,
		TmdbID:    added.TmdbID,
		MediaType: mediaType,
		Username:  uc.Username,
	}), uc)
	return responses.ArrAdded(kind, title, *added)
}
