package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mescon/Hassarr/internal/auth"
	"github.com/mescon/Hassarr/internal/db"
	"github.com/mescon/Hassarr/internal/logger"
)

const (
	settingPasswordHash = "password_hash"
	settingAPIKey       = "api_key"
	minPasswordLength   = 8
)

// isSetup reports whether an admin password has been stored.
func (s *RESTServer) isSetup(c *gin.Context) (bool, error) {
	_, err := s.repo.GetSetting(c.Request.Context(), settingPasswordHash)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *RESTServer) handleAuthSetup(c *gin.Context) {
	ctx := c.Request.Context()

	done, err := s.isSetup(c)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}
	if done {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Setup already completed"})
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err, true)
		return
	}

	if len(req.Password) < minPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "Failed to hash password", err)
		return
	}

	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "Failed to generate API key", err)
		return
	}

	// The key first: a password without a key would lock the admin out
	if err := s.repo.SetSetting(ctx, settingAPIKey, apiKey); err != nil {
		respondWithError(c, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	if err := s.repo.SetSetting(ctx, settingPasswordHash, hash); err != nil {
		respondWithError(c, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Setup complete",
		"token":   apiKey,
	})
	logger.Infof("Auth setup completed")
}

func (s *RESTServer) handleLogin(c *gin.Context) {
	ctx := c.Request.Context()

	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err, true)
		return
	}

	hash, err := s.repo.GetSetting(ctx, settingPasswordHash)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Setup required"})
		return
	}
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	if !auth.CheckPasswordHash(req.Password, hash) {
		logger.Warnf("Login failed: invalid password attempt from %s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	// The API key doubles as the session token
	apiKey, err := s.repo.GetSetting(ctx, settingAPIKey)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "Failed to retrieve API key", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   apiKey,
		"message": "Login successful",
	})
	logger.Infof("User logged in from %s", c.ClientIP())
}

func (s *RESTServer) handleAuthStatus(c *gin.Context) {
	done, err := s.isSetup(c)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_setup": done})
}

func (s *RESTServer) getAPIKey(c *gin.Context) {
	apiKey, err := s.repo.GetSetting(c.Request.Context(), settingAPIKey)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "Failed to retrieve API key", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"api_key": apiKey})
}

func (s *RESTServer) regenerateAPIKey(c *gin.Context) {
	newKey, err := auth.GenerateAPIKey()
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "Failed to generate API key", err)
		return
	}

	if err := s.repo.SetSetting(c.Request.Context(), settingAPIKey, newKey); err != nil {
		respondWithError(c, http.StatusInternalServerError, "Failed to update API key", err)
		return
	}

	logger.Infof("API key regenerated")
	c.JSON(http.StatusOK, gin.H{
		"api_key": newKey,
		"message": "API key regenerated successfully. Update your Home Assistant integration!",
	})
}

func (s *RESTServer) changePassword(c *gin.Context) {
	ctx := c.Request.Context()

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err, true)
		return
	}

	if len(req.NewPassword) < minPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "New password must be at least 8 characters"})
		return
	}

	hash, err := s.repo.GetSetting(ctx, settingPasswordHash)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}

	if !auth.CheckPasswordHash(req.CurrentPassword, hash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid current password"})
		return
	}

	newHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "Failed to hash password", err)
		return
	}

	if err := s.repo.SetSetting(ctx, settingPasswordHash, newHash); err != nil {
		respondWithError(c, http.StatusInternalServerError, "Failed to update password", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
