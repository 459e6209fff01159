package models

import (
	"time"

	"bookhub-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Email    string    `gorm:"uniqueIndex;not null"`
	Password string    `gorm:"not null"`
	Name     string    `gorm:"not null"`
	Phone    string

	Role string `gorm:"type:varchar(20);not null"` // 'customer' or 'provider'
	Bio  string `gorm:"type:text"`

	// Provider funds available for withdrawal. Credited only by escrow release.
	Balance float64 `gorm:"type:decimal(10,2);default:0.0"`

	Services            []Service            `gorm:"foreignKey:ProviderID"`
	AvailabilityWindows []AvailabilityWindow `gorm:"foreignKey:ProviderID"`

	LastLogin *time.Time
	IsActive  bool `gorm:"default:true"`

	gorm.Model
}

// Initialize UUID before creating
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	u.ID = uuid.New()
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed
	return
}
