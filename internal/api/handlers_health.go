package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mescon/Hassarr/internal/config"
)

// formatUptime returns a human-readable uptime string
func formatUptime(uptime time.Duration) string {
	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// checkDatabaseHealth pings the database and reports its size.
func (s *RESTServer) checkDatabaseHealth(ctx context.Context) (gin.H, bool) {
	if err := s.repo.DB.PingContext(ctx); err != nil {
		return gin.H{"status": "error", "error": err.Error()}, false
	}
	dbHealth := gin.H{"status": "connected"}
	if stats, err := s.repo.GetDatabaseStats(ctx); err == nil {
		dbHealth["size_bytes"] = stats.SizeBytes
	}
	return dbHealth, true
}

// overseerrHealth reports the connectivity seen by the last sensor refresh.
// Before the first refresh the state is "unknown".
func (s *RESTServer) overseerrHealth() (gin.H, bool) {
	if s.coordinator == nil || !s.coordinator.Refreshed() {
		return gin.H{"status": "unknown"}, true
	}
	snap := s.coordinator.Snapshot()
	h := gin.H{
		"status":            "connected",
		"last_update":       snap.LastUpdate,
		"api_response_time": snap.APIResponseTime,
	}
	if !snap.OverseerrOnline {
		h["status"] = "disconnected"
		h["error"] = snap.LastError
	}
	return h, snap.OverseerrOnline
}

// handleHealth returns server health for container orchestration and
// must answer within 5 seconds for Docker healthchecks.
func (s *RESTServer) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealth, dbHealthy := s.checkDatabaseHealth(ctx)
	overseerr, overseerrOnline := s.overseerrHealth()

	status := "healthy"
	if !dbHealthy || !overseerrOnline {
		status = "degraded"
	}

	wsClients := 0
	if s.hub != nil {
		wsClients = s.hub.ClientCount()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            status,
		"version":           config.Version,
		"uptime":            formatUptime(time.Since(s.startTime)),
		"database":          dbHealth,
		"overseerr":         overseerr,
		"websocket_clients": wsClients,
	})
}
