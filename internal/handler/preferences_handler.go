package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/service"
	"github.com/vhvplatform/go-reminder-service/internal/shared/errors"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
)

// PreferencesHandler handles reminder preference requests
type PreferencesHandler struct {
	service *service.PreferenceService
	log     *logger.Logger
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(service *service.PreferenceService, log *logger.Logger) *PreferencesHandler {
	return &PreferencesHandler{
		service: service,
		log:     log,
	}
}

// GetPreferences retrieves a user's reminder preference
func (h *PreferencesHandler) GetPreferences(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("user_id is required", nil))
		return
	}

	pref, err := h.service.Get(c.Request.Context(), userID)
	if err == domain.ErrPreferenceNotFound {
		c.JSON(http.StatusNotFound, errors.NewNotFoundError("No reminder preference for user", nil))
		return
	}
	if err != nil {
		h.log.Error("Failed to get preferences", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to get preferences", err))
		return
	}

	c.JSON(http.StatusOK, pref)
}

// UpdatePreferences applies a reminder settings change
func (h *PreferencesHandler) UpdatePreferences(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("user_id is required", nil))
		return
	}

	var req domain.UpdatePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid request", err))
		return
	}

	pref, err := h.service.Update(c.Request.Context(), userID, &req)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Code == "VALIDATION_ERROR" {
			c.JSON(http.StatusBadRequest, appErr)
			return
		}
		h.log.Error("Failed to update preferences", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to update preferences", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Preferences updated successfully",
		"data":    pref,
	})
}
