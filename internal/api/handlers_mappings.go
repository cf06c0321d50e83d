package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mescon/Hassarr/internal/db"
	"github.com/mescon/Hassarr/internal/logger"
)

func (s *RESTServer) getUserMappings(c *gin.Context) {
	mappings, err := s.repo.ListUserMappings(c.Request.Context())
	if err != nil {
		respondDatabaseError(c, err)
		return
	}
	if mappings == nil {
		mappings = []db.UserMapping{}
	}
	c.JSON(http.StatusOK, mappings)
}

func (s *RESTServer) putUserMapping(c *gin.Context) {
	haUserID := strings.TrimSpace(c.Param("ha_user_id"))

	var req struct {
		OverseerrUserID int64  `json:"overseerr_user_id"`
		Username        string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err, true)
		return
	}
	if req.OverseerrUserID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "overseerr_user_id must be positive"})
		return
	}

	ctx := c.Request.Context()
	m := db.UserMapping{HAUserID: haUserID, OverseerrUserID: req.OverseerrUserID, Username: req.Username}
	if err := s.repo.UpsertUserMapping(ctx, m); err != nil {
		respondDatabaseError(c, err)
		return
	}

	saved, err := s.repo.GetUserMapping(ctx, haUserID)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}
	logger.Infof("Mapped user %s to Overseerr user %d", haUserID, req.OverseerrUserID)
	c.JSON(http.StatusOK, saved)
}

func (s *RESTServer) deleteUserMapping(c *gin.Context) {
	err := s.repo.DeleteUserMapping(c.Request.Context(), c.Param("ha_user_id"))
	if errors.Is(err, db.ErrNotFound) {
		respondNotFound(c, "User mapping")
		return
	}
	if err != nil {
		respondDatabaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User mapping deleted"})
}

// getOverseerrUsers lists Overseerr users so mappings can be picked from them.
func (s *RESTServer) getOverseerrUsers(c *gin.Context) {
	users, err := s.media.Overseerr().ListUsers(c.Request.Context())
	if err != nil {
		respondUpstreamError(c, ErrMsgOverseerrError, err)
		return
	}
	c.JSON(http.StatusOK, users)
}
