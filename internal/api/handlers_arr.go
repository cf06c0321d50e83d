package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mescon/Hassarr/internal/integration"
)

// arrForRequest resolves the :service parameter to a configured client.
// It writes the error response and returns nil otherwise.
func (s *RESTServer) arrForRequest(c *gin.Context) integration.ArrAPI {
	kind := c.Param("service")
	if kind != integration.ArrTypeRadarr && kind != integration.ArrTypeSonarr {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service must be radarr or sonarr"})
		return nil
	}
	arr := s.media.Arr(kind)
	if arr == nil || !arr.Configured() {
		c.JSON(http.StatusNotFound, gin.H{"error": kind + " is not configured"})
		return nil
	}
	return arr
}

func (s *RESTServer) getArrQualityProfiles(c *gin.Context) {
	arr := s.arrForRequest(c)
	if arr == nil {
		return
	}
	profiles, err := arr.QualityProfiles(c.Request.Context())
	if err != nil {
		respondUpstreamError(c, "Failed to fetch quality profiles from "+arr.Kind(), err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}

func (s *RESTServer) getArrRootFolders(c *gin.Context) {
	arr := s.arrForRequest(c)
	if arr == nil {
		return
	}
	folders, err := arr.RootFolders(c.Request.Context())
	if err != nil {
		respondUpstreamError(c, "Failed to fetch root folders from "+arr.Kind(), err)
		return
	}
	c.JSON(http.StatusOK, folders)
}
