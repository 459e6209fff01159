package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TimeSlot is a materialized bookable unit derived from availability windows.
// It is regenerable cache, not the source of truth. The unique index on
// (provider_id, date, start_minute) is what makes concurrent booking writes
// and idempotent regeneration safe.
type TimeSlot struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	ProviderID uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_slot_provider_date_start,priority:1;not null"`
	ServiceID  *uuid.UUID `gorm:"type:uuid;index"`

	Date        time.Time `gorm:"uniqueIndex:idx_slot_provider_date_start,priority:2;not null"` // UTC midnight
	StartMinute int       `gorm:"uniqueIndex:idx_slot_provider_date_start,priority:3;not null"`
	EndMinute   int       `gorm:"not null"`

	Booked    bool       `gorm:"default:false"`
	BookingID *uuid.UUID `gorm:"type:uuid;index"`

	gorm.Model
}

func (s *TimeSlot) BeforeCreate(tx *gorm.DB) (err error) {
	s.ID = uuid.New()
	return
}
