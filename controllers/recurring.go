// controllers/recurring.go
package controllers

import (
	"net/http"
	"time"

	"bookhub-backend/models"
	"bookhub-backend/services"
	"bookhub-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateSeriesInput defines the expected JSON structure for a recurring series
type CreateSeriesInput struct {
	ServiceID   string  `json:"serviceId" binding:"required"`
	Frequency   string  `json:"frequency" binding:"required,oneof=daily weekly biweekly monthly"`
	Interval    int     `json:"interval"`
	StartDate   string  `json:"startDate" binding:"required"`
	EndDate     *string `json:"endDate"`
	Occurrences *int    `json:"occurrences"`
	DaysOfWeek  []int   `json:"daysOfWeek"`
	DayOfMonth  *int    `json:"dayOfMonth"`
	StartTime   string  `json:"startTime" binding:"required"`
}

// ResumeSeriesInput defines the expected JSON structure for resuming a series
type ResumeSeriesInput struct {
	FromDate string `json:"fromDate"`
}

// CreateSeries creates a recurring booking series and materializes its
// initial occurrences. Conflicting dates are reported back, not failed.
func CreateSeries(c *gin.Context) {
	customerID, ok := actorID(c)
	if !ok {
		return
	}

	var input CreateSeriesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	serviceUUID, err := uuid.Parse(input.ServiceID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid service ID format")
		return
	}
	startDate, err := utils.ParseDate(input.StartDate)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid startDate: "+err.Error())
		return
	}
	startMinute, err := utils.ClockToMinutes(input.StartTime)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid startTime: "+err.Error())
		return
	}

	var endDate *time.Time
	if input.EndDate != nil {
		d, err := utils.ParseDate(*input.EndDate)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid endDate: "+err.Error())
			return
		}
		endDate = &d
	}

	interval := input.Interval
	if interval == 0 {
		interval = 1
	}

	series, bookings, skipped, err := Recurring.CreateSeries(services.CreateSeriesInput{
		ServiceID:   serviceUUID,
		CustomerID:  customerID,
		Frequency:   input.Frequency,
		Interval:    interval,
		StartDate:   startDate,
		EndDate:     endDate,
		Occurrences: input.Occurrences,
		DaysOfWeek:  input.DaysOfWeek,
		DayOfMonth:  input.DayOfMonth,
		StartMinute: startMinute,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, seriesResultResponse(series, bookings, skipped))
}

// GetSeries retrieves a series with its materialized bookings
func GetSeries(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	seriesUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid series ID format")
		return
	}

	series, err := Recurring.Get(seriesUUID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if series.CustomerID != userID && series.ProviderID != userID {
		utils.RespondWithError(c, http.StatusForbidden, "Not authorized to view this series")
		return
	}

	bookings, err := Recurring.Bookings(series.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := seriesResponse(series)
	out := make([]gin.H, 0, len(bookings))
	for i := range bookings {
		out = append(out, bookingResponse(&bookings[i]))
	}
	resp["bookings"] = out
	c.JSON(http.StatusOK, resp)
}

// PauseSeries stops future materialization without touching existing bookings
func PauseSeries(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	seriesUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid series ID format")
		return
	}

	series, err := Recurring.Pause(seriesUUID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, seriesResponse(series))
}

// ResumeSeries restarts materialization of a paused series
func ResumeSeries(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	seriesUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid series ID format")
		return
	}

	var input ResumeSeriesInput
	_ = c.ShouldBindJSON(&input)

	fromDate := utils.BeginningOfDay(time.Now().UTC())
	if input.FromDate != "" {
		if fromDate, err = utils.ParseDate(input.FromDate); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid fromDate: "+err.Error())
			return
		}
	}

	series, bookings, skipped, err := Recurring.Resume(seriesUUID, userID, fromDate)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, seriesResultResponse(series, bookings, skipped))
}

// CancelSeries cancels a series. With ?futureOnly=true past occurrences are
// preserved; otherwise every non-terminal booking in the series is cancelled.
func CancelSeries(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	seriesUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid series ID format")
		return
	}

	futureOnly := c.Query("futureOnly") != "false"

	series, cancelled, err := Recurring.CancelSeries(seriesUUID, userID, futureOnly)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := seriesResponse(series)
	resp["cancelledBookings"] = cancelled
	c.JSON(http.StatusOK, resp)
}

func seriesResponse(s *models.RecurringSeries) gin.H {
	resp := gin.H{
		"id":         s.ID,
		"serviceId":  s.ServiceID,
		"customerId": s.CustomerID,
		"providerId": s.ProviderID,
		"frequency":  s.Frequency,
		"interval":   s.Interval,
		"status":     s.Status,
		"startDate":  s.StartDate.Format("2006-01-02"),
		"startTime":  utils.MinutesToClock(s.StartMinute),
		"duration":   s.Duration,
	}
	if s.EndDate != nil {
		resp["endDate"] = s.EndDate.Format("2006-01-02")
	}
	if s.Occurrences != nil {
		resp["occurrences"] = *s.Occurrences
	}
	if len(s.DaysOfWeek) > 0 {
		resp["daysOfWeek"] = s.DaysOfWeek
	}
	if s.DayOfMonth != nil {
		resp["dayOfMonth"] = *s.DayOfMonth
	}
	return resp
}

func seriesResultResponse(s *models.RecurringSeries, bookings []models.Booking, skipped []services.SkippedOccurrence) gin.H {
	resp := seriesResponse(s)
	out := make([]gin.H, 0, len(bookings))
	for i := range bookings {
		out = append(out, bookingResponse(&bookings[i]))
	}
	resp["bookings"] = out

	sk := make([]gin.H, 0, len(skipped))
	for _, occ := range skipped {
		sk = append(sk, gin.H{
			"date":   occ.Date.Format("2006-01-02"),
			"reason": occ.Reason,
		})
	}
	resp["skipped"] = sk
	return resp
}
