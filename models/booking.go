package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BookingPending    = "pending"
	BookingAccepted   = "accepted"
	BookingDeclined   = "declined"
	BookingInProgress = "in_progress"
	BookingCompleted  = "completed"
	BookingCancelled  = "cancelled"
)

type Booking struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	ServiceID  uuid.UUID `gorm:"type:uuid;index;not null"`
	CustomerID uuid.UUID `gorm:"type:uuid;index;not null"`
	ProviderID uuid.UUID `gorm:"type:uuid;index:idx_booking_provider_date;not null"`

	// Bookings created from a recurring series carry the series id.
	SeriesID *uuid.UUID `gorm:"type:uuid;index"`

	Status string `gorm:"type:varchar(20);index;default:'pending'"`

	BookingDate time.Time `gorm:"index:idx_booking_provider_date;not null"` // UTC midnight
	StartMinute int       `gorm:"not null"`
	EndMinute   int       `gorm:"not null"`
	Duration    int       `gorm:"not null"` // in minutes

	Price       float64 `gorm:"type:decimal(10,2);not null"`
	ServiceFee  float64 `gorm:"type:decimal(10,2);default:0.0"`
	TotalAmount float64 `gorm:"type:decimal(10,2);not null"`

	CancellationReason string
	DeclineReason      string

	ConfirmedAt *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time

	gorm.Model
}

func (b *Booking) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}

// StartAt is the concrete start instant of the booking.
func (b *Booking) StartAt() time.Time {
	return b.BookingDate.Add(time.Duration(b.StartMinute) * time.Minute)
}

// EndAt is the concrete end instant of the booking.
func (b *Booking) EndAt() time.Time {
	return b.BookingDate.Add(time.Duration(b.EndMinute) * time.Minute)
}

// Terminal reports whether no further status transition is possible.
func (b *Booking) Terminal() bool {
	switch b.Status {
	case BookingCompleted, BookingDeclined, BookingCancelled:
		return true
	}
	return false
}
