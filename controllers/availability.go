// controllers/availability.go
package controllers

import (
	"errors"
	"net/http"

	"bookhub-backend/config"
	"bookhub-backend/models"
	"bookhub-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateWindowInput defines the expected JSON structure for an availability window
type CreateWindowInput struct {
	DayOfWeek int    `json:"dayOfWeek" binding:"min=0,max=6"`
	StartTime string `json:"startTime" binding:"required"` // "09:00"
	EndTime   string `json:"endTime" binding:"required"`   // "17:00"
}

// UpdateWindowInput defines the expected JSON structure for updating a window
type UpdateWindowInput struct {
	DayOfWeek *int    `json:"dayOfWeek"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
	Active    *bool   `json:"active"`
}

// CreateWindow adds a recurring weekly availability window for the provider
func CreateWindow(c *gin.Context) {
	providerID, ok := actorID(c)
	if !ok {
		return
	}

	var input CreateWindowInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	startMinute, err := utils.ClockToMinutes(input.StartTime)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid startTime: "+err.Error())
		return
	}
	endMinute, err := utils.ClockToMinutes(input.EndTime)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid endTime: "+err.Error())
		return
	}
	if startMinute >= endMinute {
		utils.RespondWithError(c, http.StatusBadRequest, "startTime must be before endTime")
		return
	}

	// Keep active windows pairwise disjoint per provider/day
	n, err := DataStore.OverlappingWindows(providerID, input.DayOfWeek, startMinute, endMinute, uuid.Nil)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if n > 0 {
		utils.RespondWithError(c, http.StatusConflict, "Window overlaps an existing availability window")
		return
	}

	window := models.AvailabilityWindow{
		ProviderID:  providerID,
		DayOfWeek:   input.DayOfWeek,
		StartMinute: startMinute,
		EndMinute:   endMinute,
		Active:      true,
	}

	if err := config.DB.Create(&window).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create availability window")
		return
	}

	c.JSON(http.StatusCreated, windowResponse(&window))
}

// GetWindows retrieves the provider's availability windows
func GetWindows(c *gin.Context) {
	providerID, ok := actorID(c)
	if !ok {
		return
	}

	var windows []models.AvailabilityWindow
	if err := config.DB.Where("provider_id = ?", providerID).
		Order("day_of_week, start_minute").
		Find(&windows).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve availability")
		return
	}

	out := make([]gin.H, 0, len(windows))
	for i := range windows {
		out = append(out, windowResponse(&windows[i]))
	}
	c.JSON(http.StatusOK, out)
}

// UpdateWindow updates an existing availability window
func UpdateWindow(c *gin.Context) {
	providerID, ok := actorID(c)
	if !ok {
		return
	}

	windowUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid window ID format")
		return
	}

	var input UpdateWindowInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var window models.AvailabilityWindow
	if err := config.DB.Where("provider_id = ? AND id = ?", providerID, windowUUID).
		First(&window).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Availability window not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.DayOfWeek != nil {
		if *input.DayOfWeek < 0 || *input.DayOfWeek > 6 {
			utils.RespondWithError(c, http.StatusBadRequest, "dayOfWeek must be between 0 and 6")
			return
		}
		window.DayOfWeek = *input.DayOfWeek
	}
	if input.StartTime != nil {
		m, err := utils.ClockToMinutes(*input.StartTime)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid startTime: "+err.Error())
			return
		}
		window.StartMinute = m
	}
	if input.EndTime != nil {
		m, err := utils.ClockToMinutes(*input.EndTime)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid endTime: "+err.Error())
			return
		}
		window.EndMinute = m
	}
	if input.Active != nil {
		window.Active = *input.Active
	}

	if window.StartMinute >= window.EndMinute {
		utils.RespondWithError(c, http.StatusBadRequest, "startTime must be before endTime")
		return
	}

	if window.Active {
		n, err := DataStore.OverlappingWindows(providerID, window.DayOfWeek, window.StartMinute, window.EndMinute, window.ID)
		if err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			return
		}
		if n > 0 {
			utils.RespondWithError(c, http.StatusConflict, "Window overlaps an existing availability window")
			return
		}
	}

	if err := config.DB.Save(&window).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update availability window")
		return
	}

	c.JSON(http.StatusOK, windowResponse(&window))
}

// DisableWindow soft-disables a window. Generated slots may still reference
// it, so it is never hard-deleted.
func DisableWindow(c *gin.Context) {
	providerID, ok := actorID(c)
	if !ok {
		return
	}

	windowUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid window ID format")
		return
	}

	result := config.DB.Model(&models.AvailabilityWindow{}).
		Where("provider_id = ? AND id = ?", providerID, windowUUID).
		Update("active", false)

	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to disable availability window")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Availability window not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Availability window disabled"})
}

func windowResponse(w *models.AvailabilityWindow) gin.H {
	return gin.H{
		"id":        w.ID,
		"dayOfWeek": w.DayOfWeek,
		"startTime": utils.MinutesToClock(w.StartMinute),
		"endTime":   utils.MinutesToClock(w.EndMinute),
		"active":    w.Active,
	}
}
