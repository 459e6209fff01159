// controllers/booking.go
package controllers

import (
	"net/http"

	"bookhub-backend/models"
	"bookhub-backend/services"
	"bookhub-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateBookingInput defines the expected JSON structure for booking a slot
type CreateBookingInput struct {
	ServiceID string `json:"serviceId" binding:"required"`
	Date      string `json:"date" binding:"required"`      // "2026-09-01"
	StartTime string `json:"startTime" binding:"required"` // "14:30"
}

// RescheduleInput defines the expected JSON structure for moving a booking
type RescheduleInput struct {
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"startTime" binding:"required"`
	Reason    string `json:"reason"`
}

// CancelInput carries the claimed cancellation reason
type CancelInput struct {
	Reason string `json:"reason"`
}

// CreateBooking requests a booking against a service's published availability
func CreateBooking(c *gin.Context) {
	customerID, ok := actorID(c)
	if !ok {
		return
	}

	var input CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	serviceUUID, err := uuid.Parse(input.ServiceID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid service ID format")
		return
	}
	date, err := utils.ParseDate(input.Date)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid date: "+err.Error())
		return
	}
	startMinute, err := utils.ClockToMinutes(input.StartTime)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid startTime: "+err.Error())
		return
	}

	booking, err := Bookings.Create(services.CreateBookingInput{
		ServiceID:   serviceUUID,
		CustomerID:  customerID,
		Date:        date,
		StartMinute: startMinute,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bookingResponse(booking))
}

// GetBookings lists the caller's bookings, as provider or customer depending
// on their role. Optional ?status= filter.
func GetBookings(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	role := c.GetString("role")

	bookings, err := Bookings.List(userID, role == models.RoleProvider, c.Query("status"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	out := make([]gin.H, 0, len(bookings))
	for i := range bookings {
		out = append(out, bookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, out)
}

// GetBooking retrieves a single booking visible to its customer or provider
func GetBooking(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	bookingUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID format")
		return
	}

	booking, err := Bookings.Get(bookingUUID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if booking.CustomerID != userID && booking.ProviderID != userID {
		utils.RespondWithError(c, http.StatusForbidden, "Not authorized to view this booking")
		return
	}

	resp := bookingResponse(booking)
	if payment, err := Bookings.Payment(booking.ID); err == nil {
		resp["payment"] = gin.H{
			"status":            payment.Status,
			"amount":            payment.Amount,
			"serviceFee":        payment.ServiceFee,
			"penaltyAmount":     payment.PenaltyAmount,
			"refundedAmount":    payment.RefundedAmount,
			"escrowReleaseDate": payment.EscrowReleaseDate,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// AcceptBooking confirms a pending booking request
func AcceptBooking(c *gin.Context) {
	providerID, ok := actorID(c)
	if !ok {
		return
	}
	bookingUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID format")
		return
	}

	booking, err := Bookings.Accept(bookingUUID, providerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookingResponse(booking))
}

// DeclineBooking rejects a pending booking request and refunds the customer
func DeclineBooking(c *gin.Context) {
	providerID, ok := actorID(c)
	if !ok {
		return
	}
	bookingUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID format")
		return
	}

	var input CancelInput
	_ = c.ShouldBindJSON(&input)

	booking, err := Bookings.Decline(bookingUUID, providerID, input.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookingResponse(booking))
}

// StartBooking marks an accepted booking as in progress
func StartBooking(c *gin.Context) {
	providerID, ok := actorID(c)
	if !ok {
		return
	}
	bookingUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID format")
		return
	}

	booking, err := Bookings.Start(bookingUUID, providerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookingResponse(booking))
}

// CompleteBooking marks a booking as completed and schedules the escrow release
func CompleteBooking(c *gin.Context) {
	providerID, ok := actorID(c)
	if !ok {
		return
	}
	bookingUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID format")
		return
	}

	booking, err := Bookings.Complete(bookingUUID, providerID, false)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookingResponse(booking))
}

// CancelBooking cancels a booking, applying the service's cancellation policy
func CancelBooking(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	bookingUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID format")
		return
	}

	var input CancelInput
	_ = c.ShouldBindJSON(&input)

	booking, decision, err := Bookings.Cancel(bookingUUID, userID, input.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := bookingResponse(booking)
	resp["penalty"] = decision.Penalty
	resp["penaltyReason"] = decision.Reason
	c.JSON(http.StatusOK, resp)
}

// MarkNoShow records a customer no-show and applies the no-show policy
func MarkNoShow(c *gin.Context) {
	providerID, ok := actorID(c)
	if !ok {
		return
	}
	bookingUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID format")
		return
	}

	booking, decision, err := Bookings.MarkNoShow(bookingUUID, providerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := bookingResponse(booking)
	resp["penalty"] = decision.Penalty
	c.JSON(http.StatusOK, resp)
}

// RescheduleBooking moves a booking to a new conflict-free time
func RescheduleBooking(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	bookingUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID format")
		return
	}

	var input RescheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	date, err := utils.ParseDate(input.Date)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid date: "+err.Error())
		return
	}
	startMinute, err := utils.ClockToMinutes(input.StartTime)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid startTime: "+err.Error())
		return
	}

	booking, decision, err := Bookings.Reschedule(bookingUUID, userID, date, startMinute, input.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := bookingResponse(booking)
	resp["penalty"] = decision.Penalty
	c.JSON(http.StatusOK, resp)
}

func bookingResponse(b *models.Booking) gin.H {
	resp := gin.H{
		"id":          b.ID,
		"serviceId":   b.ServiceID,
		"customerId":  b.CustomerID,
		"providerId":  b.ProviderID,
		"status":      b.Status,
		"date":        b.BookingDate.Format("2006-01-02"),
		"startTime":   utils.MinutesToClock(b.StartMinute),
		"endTime":     utils.MinutesToClock(b.EndMinute),
		"duration":    b.Duration,
		"price":       b.Price,
		"serviceFee":  b.ServiceFee,
		"totalAmount": b.TotalAmount,
	}
	if b.SeriesID != nil {
		resp["seriesId"] = b.SeriesID
	}
	if b.CancellationReason != "" {
		resp["cancellationReason"] = b.CancellationReason
	}
	return resp
}
