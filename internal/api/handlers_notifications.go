package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mescon/Hassarr/internal/domain"
	"github.com/mescon/Hassarr/internal/notifier"
)

func (s *RESTServer) requireNotifier(c *gin.Context) bool {
	if s.notifier == nil {
		respondServiceUnavailable(c, "Notifier")
		return false
	}
	return true
}

// getNotifications lists the configured targets (service names only) and
// the events that notify.
func (s *RESTServer) getNotifications(c *gin.Context) {
	if !s.requireNotifier(c) {
		return
	}
	targets := s.notifier.Targets()
	if targets == nil {
		targets = []notifier.Target{}
	}
	events := notifier.NotifyEvents
	if events == nil {
		events = []domain.EventType{}
	}
	c.JSON(http.StatusOK, gin.H{
		"targets": targets,
		"events":  events,
	})
}

func (s *RESTServer) testNotification(c *gin.Context) {
	if !s.requireNotifier(c) {
		return
	}
	if err := s.notifier.SendTest(); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Test notification failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Test notification sent"})
}
