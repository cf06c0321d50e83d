package api

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mescon/Hassarr/internal/config"
	"github.com/mescon/Hassarr/internal/crypto"
	"github.com/mescon/Hassarr/internal/logger"
)

const settingBasePath = "base_path"

// getSettings returns the effective configuration and the stored overrides.
// Credentials are masked in both.
func (s *RESTServer) getSettings(c *gin.Context) {
	stored, err := s.repo.ListSettings(c.Request.Context())
	if err != nil {
		respondDatabaseError(c, err)
		return
	}
	delete(stored, settingPasswordHash)
	delete(stored, settingAPIKey)

	cfg := config.Get()
	c.JSON(http.StatusOK, gin.H{
		"effective": gin.H{
			"overseerr_url":             cfg.OverseerrURL,
			"overseerr_api_key":         crypto.Mask(cfg.OverseerrAPIKey),
			"radarr_url":                cfg.RadarrURL,
			"radarr_api_key":            crypto.Mask(cfg.RadarrAPIKey),
			"radarr_quality_profile_id": cfg.RadarrQualityProfileID,
			"sonarr_url":                cfg.SonarrURL,
			"sonarr_api_key":            crypto.Mask(cfg.SonarrAPIKey),
			"sonarr_quality_profile_id": cfg.SonarrQualityProfileID,
			"base_path":                 cfg.BasePath,
			"base_path_source":          cfg.BasePathSource,
			"refresh_schedule":          cfg.RefreshSchedule,
			"retention_days":            cfg.RetentionDays,
			"version":                   config.Version,
		},
		"stored": stored,
	})
}

// normalizeBasePath ensures a leading slash and no trailing slash.
func normalizeBasePath(basePath string) string {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" || basePath == "/" {
		return "/"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return strings.TrimSuffix(basePath, "/")
}

// validateSetting normalizes value for key or reports why it is rejected.
func validateSetting(key, value string) (string, string) {
	value = strings.TrimSpace(value)
	switch {
	case key == settingBasePath:
		return normalizeBasePath(value), ""
	case !config.IsConnectionSetting(key):
		return "", "Unknown setting: " + key
	case strings.HasSuffix(key, "_url"):
		if value != "" && !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return "", key + " must start with http:// or https://"
		}
		return strings.TrimSuffix(value, "/"), ""
	case strings.HasSuffix(key, "_quality_profile_id"):
		if n, err := strconv.Atoi(value); err != nil || n < 0 {
			return "", key + " must be a non-negative integer"
		}
	}
	return value, ""
}

// updateSettings stores connection settings. They are applied to the
// running config right away; clients pick them up on restart.
func (s *RESTServer) updateSettings(c *gin.Context) {
	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err, true)
		return
	}
	if len(req) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No settings provided"})
		return
	}

	keys := make([]string, 0, len(req))
	for k := range req {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Validate everything before writing anything
	values := make(map[string]string, len(req))
	for _, k := range keys {
		v, problem := validateSetting(k, req[k])
		if problem != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": problem})
			return
		}
		values[k] = v
	}

	ctx := c.Request.Context()
	for _, k := range keys {
		if err := s.repo.SetSetting(ctx, k, values[k]); err != nil {
			respondDatabaseError(c, err)
			return
		}
		config.ApplySetting(k, values[k])
		if config.IsSecretSetting(k) {
			logger.Infof("Setting %s updated", k)
		} else {
			logger.Infof("Setting %s updated to %q", k, values[k])
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "Settings saved. Restart required for changes to take effect.",
		"updated":          keys,
		"restart_required": true,
	})
}
