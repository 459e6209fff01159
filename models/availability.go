package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AvailabilityWindow is a provider's recurring weekly working range.
// Times are minutes from midnight so slot math stays integer arithmetic.
// Windows are soft-disabled (Active=false), never hard-deleted, because
// generated slots may still reference them.
type AvailabilityWindow struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	ProviderID uuid.UUID `gorm:"type:uuid;index:idx_window_provider_day;not null"`

	DayOfWeek   int `gorm:"index:idx_window_provider_day;not null"` // 0=Sunday ... 6=Saturday
	StartMinute int `gorm:"not null"`
	EndMinute   int `gorm:"not null"`

	Active bool `gorm:"default:true"`

	gorm.Model
}

func (w *AvailabilityWindow) BeforeCreate(tx *gorm.DB) (err error) {
	w.ID = uuid.New()
	return
}
