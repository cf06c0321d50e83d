package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/mescon/Hassarr/internal/domain"
	"github.com/mescon/Hassarr/internal/integration"
	"github.com/mescon/Hassarr/internal/logger"
	"github.com/mescon/Hassarr/internal/responses"
)

// seasonPlan is the resolved season selection of a TV add.
type seasonPlan struct {
	season      *int
	seasons     []int
	wholeSeries bool
	parseType   string
}

func resolveSeasons(req SeasonRequest) seasonPlan {
	plan := seasonPlan{parseType: req.Type}
	switch {
	case req.Type == ParseAll, req.Type == ParseAllUnknown:
		// Known seasons only feed the already-requested check
		plan.seasons = req.Seasons
		plan.wholeSeries = true
		plan.parseType = ParseAll
		return plan
	case len(req.Seasons) > 0:
		valid := make([]int, 0, len(req.Seasons))
		for _, n := range req.Seasons {
			if n < 1 {
				logger.Warnf("Invalid season number: %d, skipping", n)
				continue
			}
			valid = append(valid, n)
		}
		if len(valid) == 0 {
			logger.Warnf("No valid seasons found, defaulting to season 1")
			valid = []int{1}
		}
		plan.seasons = valid
	default:
		plan.seasons = []int{1}
	}
	if len(plan.seasons) == 1 {
		n := plan.seasons[0]
		plan.season = &n
	}
	return plan
}

// AddMedia requests the best match for in.Title. Identical concurrent calls
// share one upstream request, and a success is replayed to repeats for the
// configured cool-down.
func (s *MediaService) AddMedia(ctx context.Context, uc responses.UserContext, in AddMediaInput) responses.Response {
	in.Title = strings.TrimSpace(in.Title)
	in.Season = strings.TrimSpace(in.Season)
	if in.Title != "" && in.Season == "" {
		if cleaned, n, ok := ParseTitleSeason(in.Title); ok {
			logger.Infof("Extracted season %d from title '%s'", n, in.Title)
			in.Title = cleaned
			in.Season = strconv.Itoa(n)
		}
	}

	key := addKey(in.Title, in.Season, in.Is4k, uc.UserID)
	r, leader := s.guard.do(key, func() responses.Response {
		return s.run(ctx, ServiceAddMedia, uc, responses.UnexpectedStatus, func() responses.Response {
			return s.addMedia(ctx, uc, in)
		})
	})
	if leader {
		return r
	}
	logger.Infof("Duplicate add request for '%s' (called by %s) suppressed", in.Title, uc.Username)
	s.recordCall(ServiceAddMedia, "duplicate_suppressed")
	return responses.WithUser(r, uc)
}

func (s *MediaService) addMedia(ctx context.Context, uc responses.UserContext, in AddMediaInput) responses.Response {
	title := in.Title
	if title == "" {
		return responses.MissingTitle()
	}
	seasonInfo := ""
	if in.Season != "" {
		seasonInfo = " (season: " + in.Season + ")"
	}
	logger.Infof("Adding media to Overseerr: %s%s (called by %s)", title, seasonInfo, uc.Username)

	page, err := s.deps.Overseerr.Search(ctx, title)
	if err != nil {
		return responses.TitleConnectionError(title, err.Error())
	}
	if len(page.Results) == 0 {
		return responses.TitleNotFound(title)
	}
	first := page.Results[0]
	mediaType := mediaTypeOf(first)
	isTV := mediaType == integration.MediaTypeTV

	var analysis *integration.SeasonAnalysis
	analysed := false
	if isTV && in.Season != "" {
		analysis = s.analysis(ctx, first.ID)
		analysed = true
	}
	parsed := ParseSeasonRequest(in.Season, analysis)
	plan := seasonPlan{parseType: parsed.Type}
	if isTV {
		plan = resolveSeasons(parsed)
		logger.Infof("Parsed season request '%s' -> %s %v", in.Season, plan.parseType, plan.seasons)
	}

	outcome := responses.AddOutcome{
		Title:     title,
		Result:    first,
		Season:    plan.season,
		Seasons:   plan.seasons,
		ParseType: plan.parseType,
		Is4k:      in.Is4k,
	}

	if first.MediaInfo != nil {
		if isTV && !analysed {
			analysis = s.analysis(ctx, first.ID)
		}
		outcome.Analysis = analysis
		switch {
		case isTV && plan.season != nil:
			if analysis.HasRequested(*plan.season) {
				logger.Infof("Season %d of '%s' is already requested in Overseerr", *plan.season, title)
				outcome.Details = s.details(ctx, mediaType, first.ID)
				return responses.MediaAlreadyExists(outcome)
			}
			logger.Infof("Season %d of '%s' is not yet requested, proceeding with request", *plan.season, title)
		case isTV && (len(plan.seasons) > 1 || plan.wholeSeries && len(plan.seasons) > 0):
			remaining := make([]int, 0, len(plan.seasons))
			for _, n := range plan.seasons {
				if !analysis.HasRequested(n) {
					remaining = append(remaining, n)
				}
			}
			if len(remaining) == 0 {
				logger.Infof("All requested seasons of '%s' are already requested in Overseerr", title)
				outcome.Details = s.details(ctx, mediaType, first.ID)
				return responses.MediaAlreadyExists(outcome)
			}
			if plan.wholeSeries {
				break
			}
			plan.seasons = remaining
			outcome.Seasons = remaining
			if len(remaining) == 1 {
				n := remaining[0]
				plan.season = &n
				outcome.Season = &n
			}
		default:
			outcome.Details = s.details(ctx, mediaType, first.ID)
			logger.Infof("Media '%s' already exists in Overseerr", title)
			return responses.MediaAlreadyExists(outcome)
		}
	}

	mapping := s.mappedUser(ctx, uc)
	if mapping == nil {
		logger.Warnf("User %s (ID: %s) is not mapped to any Overseerr user", uc.Username, uc.UserID)
		return responses.AddUserNotMapped(title, uc.Username)
	}
	logger.Infof("User %s mapped to Overseerr user ID %d", uc.Username, mapping.OverseerrUserID)

	event := domain.MediaEventData{
		Title:     first.DisplayTitle(),
		TmdbID:    first.ID,
		MediaType: mediaType,
		Is4k:      in.Is4k && mediaType == integration.MediaTypeMovie,
		Username:  uc.Username,
	}
	if event.Title == "" {
		event.Title = title
	}

	res, err := s.deps.Overseerr.AddRequest(ctx, integration.AddRequestParams{
		MediaType:   mediaType,
		TmdbID:      first.ID,
		UserID:      mapping.OverseerrUserID,
		Seasons:     plan.seasons,
		Is4k:        in.Is4k,
		WholeSeries: plan.wholeSeries,
	})
	if err != nil {
		logger.Errorf("Failed to add '%s' to Overseerr: %v", title, err)
		event.Error = err.Error()
		s.publish(ctx, domain.NewMediaEvent(domain.MediaAddFailed, event), uc)
		return responses.MediaAddFailed(title, err.Error())
	}

	outcome.Details = s.details(ctx, mediaType, first.ID)
	if isTV && res.Seasons != nil {
		outcome.Seasons = res.Seasons
	}
	added := responses.MediaAddedSuccessfully(outcome)
	switch {
	case isTV && res.SeasonFallback:
		added.WithSeasonFallback(plan.seasons)
		event.Seasons = "all"
	case isTV && plan.wholeSeries:
		event.Seasons = "all"
	case isTV:
		event.Seasons = joinSeasons(outcome.Seasons)
	}
	s.publish(ctx, domain.NewMediaEvent(domain.MediaAdded, event), uc)
	logger.Infof("Successfully added '%s'%s to Overseerr", title, seasonInfo)
	return added
}

func joinSeasons(seasons []int) string {
	parts := make([]string, len(seasons))
	for i, n := range seasons {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
