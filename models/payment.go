package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentPending           = "pending"
	PaymentPaid              = "paid"
	PaymentFailed            = "failed"
	PaymentRefunded          = "refunded"
	PaymentPartiallyRefunded = "partially_refunded"
	PaymentReleased          = "released"
)

// Payment is the escrow-side record of a booking's funds. Escrow fields are
// written only by the escrow scheduler after completion; ReleasedAt doubles
// as the idempotency guard against double-crediting the provider.
type Payment struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	BookingID  uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	CustomerID uuid.UUID `gorm:"type:uuid;index;not null"`
	ProviderID uuid.UUID `gorm:"type:uuid;index;not null"`

	Amount     float64 `gorm:"type:decimal(10,2);not null"` // what the customer pays
	ServiceFee float64 `gorm:"type:decimal(10,2);default:0.0"`
	NetAmount  float64 `gorm:"type:decimal(10,2);not null"` // what the provider receives

	Status string `gorm:"type:varchar(30);index;default:'pending'"`

	TransactionID string // gateway capture reference
	RefundID      string // gateway refund reference

	PenaltyAmount  float64 `gorm:"type:decimal(10,2);default:0.0"`
	RefundedAmount float64 `gorm:"type:decimal(10,2);default:0.0"`

	EscrowReleaseDate *time.Time `gorm:"index"`
	ReleasedAt        *time.Time

	gorm.Model
}

func (p *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
