package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PolicyCancellation = "cancellation"
	PolicyRescheduling = "rescheduling"
	PolicyNoShow       = "no_show"

	PenaltyNone       = "none"
	PenaltyPercentage = "percentage"
	PenaltyFixed      = "fixed"

	// Exception kinds a policy may waive penalties for.
	ExceptionEmergency         = "emergency"
	ExceptionProviderInitiated = "provider_initiated"
	ExceptionFirstOffense      = "first_offense"
)

// PolicyException is one waivable condition on a policy. Kinds are a closed
// enum interpreted by the policy engine, not free-form dispatch.
type PolicyException struct {
	Kind string `json:"kind"`
	Note string `json:"note,omitempty"`
}

// ExceptionList stores policy exceptions as a jsonb column.
type ExceptionList []PolicyException

func (l ExceptionList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *ExceptionList) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, &l)
}

// BookingPolicy gates the monetary outcome of cancellation, rescheduling and
// no-show requests for one service. Absent a row, the engine falls back to
// the service-level default thresholds with zero penalty.
type BookingPolicy struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	ServiceID uuid.UUID `gorm:"type:uuid;index:idx_policy_service_type;not null"`

	Type string `gorm:"type:varchar(20);index:idx_policy_service_type;not null"` // cancellation, rescheduling, no_show

	HoursBeforeBooking float64 `gorm:"default:24"`
	PenaltyType        string  `gorm:"type:varchar(20);default:'none'"` // none, percentage, fixed
	PenaltyValue       float64 `gorm:"type:decimal(10,2);default:0.0"`

	AllowExceptions bool          `gorm:"default:false"`
	Exceptions      ExceptionList `gorm:"type:jsonb"`

	// HardBlock turns a below-threshold request into an outright denial
	// instead of an allowed-with-penalty outcome.
	HardBlock bool `gorm:"default:false"`

	Active bool `gorm:"default:true"`

	gorm.Model
}

func (p *BookingPolicy) BeforeCreate(tx *gorm.DB) (err error) {
	p.ID = uuid.New()
	return
}
