package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *RESTServer) getSensors(c *gin.Context) {
	if s.coordinator == nil {
		respondServiceUnavailable(c, "Sensor coordinator")
		return
	}
	c.JSON(http.StatusOK, s.coordinator.Sensors())
}

func (s *RESTServer) getBinarySensors(c *gin.Context) {
	if s.coordinator == nil {
		respondServiceUnavailable(c, "Sensor coordinator")
		return
	}
	c.JSON(http.StatusOK, s.coordinator.BinarySensors())
}

// refreshSensors runs a refresh now. An offline Overseerr is reported in
// the snapshot rather than as an HTTP error.
func (s *RESTServer) refreshSensors(c *gin.Context) {
	if s.coordinator == nil {
		respondServiceUnavailable(c, "Sensor coordinator")
		return
	}
	snap, err := s.coordinator.Refresh(c.Request.Context())
	resp := gin.H{
		"message":  "Sensors refreshed",
		"snapshot": snap,
	}
	if err != nil {
		resp["message"] = "Refresh failed, Overseerr is offline"
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}
