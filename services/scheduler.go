// services/scheduler.go
package services

import (
	"fmt"
	"log"
	"time"

	"bookhub-backend/models"
	"bookhub-backend/utils"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Scheduler owns the background jobs: the escrow release scan, the rolling
// horizon extension for open-ended series, the auto-completion sweep and the
// daily booking reminders.
type Scheduler struct {
	db        *gorm.DB
	bookings  *BookingService
	recurring *RecurringService
	escrow    *EscrowService
	notifier  Notifier
}

func NewScheduler(db *gorm.DB, bookings *BookingService, recurring *RecurringService, escrow *EscrowService, notifier Notifier) *Scheduler {
	return &Scheduler{
		db:        db,
		bookings:  bookings,
		recurring: recurring,
		escrow:    escrow,
		notifier:  notifier,
	}
}

func (s *Scheduler) Start() {
	c := cron.New()

	// Escrow releases are due on whole days; hourly is plenty.
	c.AddFunc("0 * * * *", s.escrow.ReleaseDueBatch)

	// Keep open-ended series materialized through the horizon.
	c.AddFunc("30 2 * * *", s.recurring.ExtendHorizons)

	// Close out accepted bookings whose service window has long passed.
	c.AddFunc("0 3 * * *", s.bookings.AutoCompleteSweep)

	// Run daily at 9 AM
	c.AddFunc("0 9 * * *", s.SendBookingReminders)

	c.Start()
	log.Println("Background scheduler started")
}

// SendBookingReminders notifies customers about tomorrow's accepted bookings.
func (s *Scheduler) SendBookingReminders() {
	log.Println("Starting booking reminder processing...")

	tomorrow := utils.BeginningOfDay(time.Now().UTC()).AddDate(0, 0, 1)

	var upcoming []models.Booking
	if err := s.db.Where("booking_date = ? AND status = ?", tomorrow, models.BookingAccepted).
		Find(&upcoming).Error; err != nil {
		log.Printf("reminders: failed to fetch tomorrow's bookings: %v", err)
		return
	}

	for i := range upcoming {
		b := &upcoming[i]
		id := b.ID
		s.notifier.Notify(EventBookingReminder, b.CustomerID, &id,
			fmt.Sprintf("Reminder: you have a booking tomorrow at %s.", utils.MinutesToClock(b.StartMinute)))
	}

	log.Printf("Booking reminder processing completed, %d reminders", len(upcoming))
}
