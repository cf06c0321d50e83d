package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mescon/Hassarr/internal/db"
	"github.com/mescon/Hassarr/internal/domain"
)

// getEvents lists stored events newest first. Filters: event_type,
// aggregate_id and since (RFC3339).
func (s *RESTServer) getEvents(c *gin.Context) {
	p := ParsePagination(c, DefaultPaginationConfig())

	q := db.EventQuery{
		EventType:   domain.EventType(c.Query("event_type")),
		AggregateID: c.Query("aggregate_id"),
		Limit:       p.Limit,
		Offset:      p.Offset,
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC3339 timestamp"})
			return
		}
		q.Since = t
	}

	events, total, err := s.repo.ListEvents(c.Request.Context(), q)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       events,
		"pagination": NewPaginationResponse(p, total),
	})
}
