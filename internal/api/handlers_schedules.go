package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mescon/Hassarr/internal/db"
)

// scheduleView is a stored schedule plus whether it is registered with cron.
type scheduleView struct {
	db.JobSchedule
	Active bool `json:"active"`
}

func (s *RESTServer) scheduleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrMsgInvalidID})
		return 0, false
	}
	return id, true
}

// scheduleError maps scheduler errors: unknown ids are 404, validation
// failures 400.
func scheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		respondNotFound(c, "Schedule")
	case strings.Contains(err.Error(), "invalid cron expression"), strings.Contains(err.Error(), "job_id is required"):
		respondBadRequest(c, err, true)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *RESTServer) getSchedules(c *gin.Context) {
	if s.scheduler == nil {
		respondServiceUnavailable(c, "Scheduler")
		return
	}
	list, err := s.scheduler.ListSchedules(c.Request.Context())
	if err != nil {
		respondDatabaseError(c, err)
		return
	}
	views := make([]scheduleView, 0, len(list))
	for _, sch := range list {
		views = append(views, scheduleView{JobSchedule: sch, Active: s.scheduler.Active(sch.ID)})
	}
	c.JSON(http.StatusOK, views)
}

func (s *RESTServer) addSchedule(c *gin.Context) {
	if s.scheduler == nil {
		respondServiceUnavailable(c, "Scheduler")
		return
	}
	var req struct {
		JobID          string `json:"job_id"`
		CronExpression string `json:"cron_expression"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err, true)
		return
	}

	id, err := s.scheduler.AddSchedule(c.Request.Context(), strings.TrimSpace(req.JobID), strings.TrimSpace(req.CronExpression))
	if err != nil {
		scheduleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id, "message": "Schedule added"})
}

func (s *RESTServer) deleteSchedule(c *gin.Context) {
	if s.scheduler == nil {
		respondServiceUnavailable(c, "Scheduler")
		return
	}
	id, ok := s.scheduleID(c)
	if !ok {
		return
	}

	if err := s.scheduler.DeleteSchedule(c.Request.Context(), id); err != nil {
		scheduleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Schedule deleted"})
}

// updateSchedule changes the expression and/or the enabled flag. A missing
// cron_expression keeps the current one; a missing enabled keeps the
// current state.
func (s *RESTServer) updateSchedule(c *gin.Context) {
	if s.scheduler == nil {
		respondServiceUnavailable(c, "Scheduler")
		return
	}
	id, ok := s.scheduleID(c)
	if !ok {
		return
	}

	var req struct {
		CronExpression string `json:"cron_expression"`
		Enabled        *bool  `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err, true)
		return
	}

	ctx := c.Request.Context()
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	} else {
		current, err := s.repo.GetJobSchedule(ctx, id)
		if err != nil {
			scheduleError(c, err)
			return
		}
		enabled = current.Enabled
	}

	if err := s.scheduler.UpdateSchedule(ctx, id, strings.TrimSpace(req.CronExpression), enabled); err != nil {
		scheduleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Schedule updated"})
}
