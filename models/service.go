package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	ProviderID  uuid.UUID `gorm:"type:uuid;index;not null"`
	Name        string    `gorm:"not null"`
	Description string
	Price       float64 `gorm:"type:decimal(10,2);not null"`
	Duration    int     // in minutes
	Category    string  `gorm:"default:'General'"`

	// Threshold fallbacks used by the policy engine when no explicit
	// BookingPolicy row exists for the service.
	CancellationHours int `gorm:"default:24"`
	ReschedulingHours int `gorm:"default:24"`

	IsActive bool `gorm:"default:true"`

	Policies []BookingPolicy `gorm:"foreignKey:ServiceID"`

	gorm.Model
}

func (s *Service) BeforeCreate(tx *gorm.DB) (err error) {
	s.ID = uuid.New()
	return
}
