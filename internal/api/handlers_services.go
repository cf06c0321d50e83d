package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mescon/Hassarr/internal/responses"
	"github.com/mescon/Hassarr/internal/services"
)

// Headers identifying the front-end user a call is made for. A
// user_context object in the body takes precedence.
const (
	headerUserID   = "X-Hassarr-User-ID"
	headerUsername = "X-Hassarr-Username"
	headerIsAdmin  = "X-Hassarr-Admin"
)

// serviceRequest is the union of the service call parameters.
type serviceRequest struct {
	Title    string                 `json:"title"`
	Season   string                 `json:"season"`
	Is4k     bool                   `json:"is4k"`
	Query    string                 `json:"query"`
	MediaID  string                 `json:"media_id"`
	JobID    string                 `json:"job_id"`
	Filter   string                 `json:"filter"`
	Take     int                    `json:"take"`
	Skip     int                    `json:"skip"`
	Sort     string                 `json:"sort"`
	UserInfo *responses.UserContext `json:"user_context"`
}

// userContext resolves the caller from the body or the identity headers.
func userContext(c *gin.Context, body *responses.UserContext) responses.UserContext {
	if body != nil && (body.UserID != "" || body.Username != "") {
		uc := *body
		if uc.Username == "" {
			uc.Username = "Unknown"
		}
		return uc
	}
	uc := responses.UserContext{
		UserID:   c.GetHeader(headerUserID),
		Username: c.GetHeader(headerUsername),
	}
	uc.IsAdmin, _ = strconv.ParseBool(c.GetHeader(headerIsAdmin))
	if uc.Username == "" {
		uc.Username = "Unknown"
	}
	return uc
}

// dispatch runs the named service. ok is false for unknown names.
func (s *RESTServer) dispatch(ctx context.Context, name string, uc responses.UserContext, req serviceRequest) (responses.Response, bool) {
	list := services.ListInput{Filter: req.Filter, Take: req.Take, Skip: req.Skip, Sort: req.Sort}
	switch name {
	case services.ServiceTestConnection:
		return s.media.TestConnection(ctx, uc), true
	case services.ServiceCheckMediaStatus:
		return s.media.CheckMediaStatus(ctx, uc, req.Title), true
	case services.ServiceAddMedia:
		return s.media.AddMedia(ctx, uc, services.AddMediaInput{Title: req.Title, Season: req.Season, Is4k: req.Is4k}), true
	case services.ServiceSearchMedia:
		return s.media.SearchMedia(ctx, uc, req.Query), true
	case services.ServiceRemoveMedia:
		return s.media.RemoveMedia(ctx, uc, services.RemoveMediaInput{Title: req.Title, MediaID: req.MediaID}), true
	case services.ServiceGetActiveRequests:
		return s.media.GetActiveRequests(ctx, uc, list), true
	case services.ServiceGetAllMedia:
		return s.media.GetAllMedia(ctx, uc, list), true
	case services.ServiceRunJob:
		return s.media.RunJob(ctx, uc, req.JobID), true
	case services.ServiceAddRadarrMovie:
		return s.media.AddRadarrMovie(ctx, uc, req.Title), true
	case services.ServiceAddSonarrShow:
		return s.media.AddSonarrShow(ctx, uc, req.Title), true
	}
	return nil, false
}

// callService runs a service and returns its result. Results always use
// 200; the action field carries the outcome.
func (s *RESTServer) callService(c *gin.Context) {
	name := c.Param("name")

	var req serviceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err, true)
			return
		}
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Query = strings.TrimSpace(req.Query)

	result, ok := s.dispatch(c.Request.Context(), name, userContext(c, req.UserInfo), req)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown service: " + name})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *RESTServer) getResults(c *gin.Context) {
	if s.results == nil {
		respondServiceUnavailable(c, "Result store")
		return
	}
	c.JSON(http.StatusOK, s.results.All())
}

func (s *RESTServer) getResult(c *gin.Context) {
	if s.results == nil {
		respondServiceUnavailable(c, "Result store")
		return
	}
	raw, ok := s.results.Get(c.Param("name"))
	if !ok {
		respondNotFound(c, "Result")
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}
