// controllers/slots.go
package controllers

import (
	"net/http"
	"time"

	"bookhub-backend/models"
	"bookhub-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerateSlotsInput defines the expected JSON structure for slot generation
type GenerateSlotsInput struct {
	ServiceID *string `json:"serviceId"`
	StartDate string  `json:"startDate" binding:"required"` // "2026-09-01"
	EndDate   string  `json:"endDate" binding:"required"`
	Duration  int     `json:"duration"` // minutes, required when serviceId is absent
}

// GenerateSlots materializes bookable time slots from the provider's
// availability windows over a date range
func GenerateSlots(c *gin.Context) {
	providerID, ok := actorID(c)
	if !ok {
		return
	}

	var input GenerateSlotsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	startDate, err := utils.ParseDate(input.StartDate)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid startDate: "+err.Error())
		return
	}
	endDate, err := utils.ParseDate(input.EndDate)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid endDate: "+err.Error())
		return
	}

	duration := input.Duration
	var serviceID *uuid.UUID
	if input.ServiceID != nil {
		id, err := uuid.Parse(*input.ServiceID)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid serviceId format")
			return
		}
		serviceID = &id
		svc, err := DataStore.GetService(id)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		if svc.ProviderID != providerID {
			utils.RespondWithError(c, http.StatusForbidden, "Service does not belong to you")
			return
		}
		duration = svc.Duration
	}

	slots, err := Slots.Generate(providerID, serviceID, startDate, endDate, duration)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generated": len(slots),
		"slots":     slotResponses(slots),
	})
}

// GetAvailableSlots lists a provider's unbooked slots in a date range.
// Public endpoint used by customers browsing availability.
func GetAvailableSlots(c *gin.Context) {
	providerUUID, err := uuid.Parse(c.Param("providerId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid provider ID format")
		return
	}

	from := utils.BeginningOfDay(time.Now().UTC())
	to := from.AddDate(0, 0, 30)

	if raw := c.Query("from"); raw != "" {
		if from, err = utils.ParseDate(raw); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid from date: "+err.Error())
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = utils.ParseDate(raw); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid to date: "+err.Error())
			return
		}
	}

	slots, err := DataStore.AvailableSlots(providerUUID, from, to)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve slots")
		return
	}

	c.JSON(http.StatusOK, slotResponses(slots))
}

func slotResponses(slots []models.TimeSlot) []gin.H {
	out := make([]gin.H, 0, len(slots))
	for i := range slots {
		s := &slots[i]
		out = append(out, gin.H{
			"id":        s.ID,
			"date":      s.Date.Format("2006-01-02"),
			"startTime": utils.MinutesToClock(s.StartMinute),
			"endTime":   utils.MinutesToClock(s.EndMinute),
			"booked":    s.Booked,
		})
	}
	return out
}
