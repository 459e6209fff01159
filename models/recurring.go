package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	FrequencyDaily    = "daily"
	FrequencyWeekly   = "weekly"
	FrequencyBiweekly = "biweekly"
	FrequencyMonthly  = "monthly"

	SeriesActive    = "active"
	SeriesPaused    = "paused"
	SeriesCancelled = "cancelled"
)

// IntList stores a slice of ints as a jsonb column (days of week).
type IntList []int

func (l IntList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *IntList) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, &l)
}

// RecurringSeries is a booking template expanded into concrete Booking rows.
// Termination is governed by exactly one of EndDate or Occurrences; when
// neither is set the series is open-ended and materialized on a rolling
// horizon tracked by LastMaterialized.
type RecurringSeries struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	ServiceID  uuid.UUID `gorm:"type:uuid;index;not null"`
	CustomerID uuid.UUID `gorm:"type:uuid;index;not null"`
	ProviderID uuid.UUID `gorm:"type:uuid;index;not null"`

	Frequency string `gorm:"type:varchar(20);not null"` // daily, weekly, biweekly, monthly
	Interval  int    `gorm:"default:1"`

	StartDate   time.Time `gorm:"not null"` // UTC midnight
	EndDate     *time.Time
	Occurrences *int // fixed count, 1-52

	DaysOfWeek IntList `gorm:"type:jsonb"` // weekly/biweekly only
	DayOfMonth *int    // monthly only, clamped to short months

	StartMinute int `gorm:"not null"`
	Duration    int `gorm:"not null"` // in minutes

	Status string `gorm:"type:varchar(20);default:'active'"`

	// Last date up to which occurrences have been materialized.
	LastMaterialized *time.Time

	Bookings []Booking `gorm:"foreignKey:SeriesID"`

	gorm.Model
}

func (s *RecurringSeries) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

// OpenEnded reports whether the series has no explicit end condition.
func (s *RecurringSeries) OpenEnded() bool {
	return s.EndDate == nil && s.Occurrences == nil
}
