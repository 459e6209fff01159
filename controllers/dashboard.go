// controllers/dashboard.go
package controllers

import (
	"fmt"
	"net/http"
	"time"

	"bookhub-backend/config"
	"bookhub-backend/models"
	"bookhub-backend/utils"

	"github.com/gin-gonic/gin"
)

type UpcomingBooking struct {
	ID          string  `json:"id"`
	Customer    string  `json:"customer"`
	Service     string  `json:"service"`
	Date        string  `json:"date"` // e.g. "Today", "Tomorrow", "3 days"
	StartTime   string  `json:"startTime"`
	TotalAmount float64 `json:"totalAmount"`
}

// GetDashboardOverview summarizes a provider's booking pipeline and earnings
func GetDashboardOverview(c *gin.Context) {
	providerID, ok := actorID(c)
	if !ok {
		return
	}

	now := time.Now().UTC()
	today := utils.BeginningOfDay(now)

	// Pending Requests
	var pendingRequests int64
	config.DB.Model(&models.Booking{}).
		Where("provider_id = ? AND status = ? AND deleted_at IS NULL", providerID, models.BookingPending).
		Count(&pendingRequests)

	// Completed Bookings (all time)
	var completedBookings int64
	config.DB.Model(&models.Booking{}).
		Where("provider_id = ? AND status = ? AND deleted_at IS NULL", providerID, models.BookingCompleted).
		Count(&completedBookings)

	// This Month's Released Earnings
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	var monthlyEarnings float64
	config.DB.Model(&models.Payment{}).
		Joins("JOIN bookings ON bookings.id = payments.booking_id").
		Where("bookings.provider_id = ? AND payments.released_at >= ?", providerID, firstOfMonth).
		Select("COALESCE(SUM(payments.net_amount), 0)").Scan(&monthlyEarnings)

	// Funds still in escrow
	var pendingEscrow float64
	config.DB.Model(&models.Payment{}).
		Joins("JOIN bookings ON bookings.id = payments.booking_id").
		Where("bookings.provider_id = ? AND payments.status = ? AND payments.released_at IS NULL",
			providerID, models.PaymentPaid).
		Select("COALESCE(SUM(payments.net_amount), 0)").Scan(&pendingEscrow)

	// Upcoming bookings (next 7 days)
	type upcomingRow struct {
		ID          string
		Customer    string
		Service     string
		BookingDate time.Time
		StartMinute int
		TotalAmount float64
	}
	var rows []upcomingRow
	config.DB.Raw(`
        SELECT b.id, u.name AS customer, s.name AS service,
               b.booking_date, b.start_minute, b.total_amount
        FROM bookings b
        JOIN users u ON u.id = b.customer_id
        JOIN services s ON s.id = b.service_id
        WHERE b.provider_id = ? AND b.deleted_at IS NULL
        AND b.status IN ('accepted', 'in_progress')
        AND b.booking_date >= ? AND b.booking_date < ?
        ORDER BY b.booking_date, b.start_minute
        LIMIT 10
    `, providerID, today, today.AddDate(0, 0, 7)).Scan(&rows)

	upcoming := make([]UpcomingBooking, 0, len(rows))
	for _, r := range rows {
		daysUntil := utils.DaysBetween(today, r.BookingDate)
		var label string
		switch daysUntil {
		case 0:
			label = "Today"
		case 1:
			label = "Tomorrow"
		default:
			label = fmt.Sprintf("%d days", daysUntil)
		}
		upcoming = append(upcoming, UpcomingBooking{
			ID:          r.ID,
			Customer:    r.Customer,
			Service:     r.Service,
			Date:        label,
			StartTime:   utils.MinutesToClock(r.StartMinute),
			TotalAmount: r.TotalAmount,
		})
	}

	var user models.User
	config.DB.Select("balance").First(&user, "id = ?", providerID)

	c.JSON(http.StatusOK, gin.H{
		"pendingRequests":   pendingRequests,
		"completedBookings": completedBookings,
		"monthlyEarnings":   monthlyEarnings,
		"pendingEscrow":     pendingEscrow,
		"balance":           user.Balance,
		"upcomingBookings":  upcoming,
	})
}
