package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"bookhub-backend/models"

	"github.com/google/uuid"
)

type policyStore interface {
	// ActivePolicy returns the active policy of the given type for a service,
	// or ErrNotFound when none is configured.
	ActivePolicy(serviceID uuid.UUID, policyType string) (*models.BookingPolicy, error)
	GetService(id uuid.UUID) (*models.Service, error)
}

// Decision is the outcome of a policy evaluation. Policies gate penalty, not
// permission: below-threshold requests stay allowed with a computed penalty
// unless the policy opts into HardBlock.
type Decision struct {
	Allowed bool    `json:"allowed"`
	Penalty float64 `json:"penalty"`
	Reason  string  `json:"reason,omitempty"`
}

// PolicyEngine evaluates cancellation, rescheduling and no-show requests
// against a booking's time-to-service. It is read-only; applying the outcome
// is the booking service's job.
type PolicyEngine struct {
	store policyStore
}

func NewPolicyEngine(store policyStore) *PolicyEngine {
	return &PolicyEngine{store: store}
}

// Evaluate computes the allow/penalty decision for a booking. claimedReason
// is matched against the policy's exception list when exceptions are enabled.
func (pe *PolicyEngine) Evaluate(b *models.Booking, policyType, claimedReason string, now time.Time) (Decision, error) {
	switch policyType {
	case models.PolicyCancellation, models.PolicyRescheduling, models.PolicyNoShow:
	default:
		inputErr := newInputError()
		inputErr.addError("policyType", "must be cancellation, rescheduling or no_show")
		return Decision{}, inputErr
	}

	// Terminal bookings are rejected before any penalty math.
	if b.Terminal() {
		return Decision{Allowed: false, Reason: "booking is already " + b.Status}, nil
	}

	policy, err := pe.store.ActivePolicy(b.ServiceID, policyType)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return Decision{}, err
		}
		return pe.evaluateDefault(b, policyType, now)
	}

	// No-show has no "hours until" gate: the service window already passed.
	if policyType == models.PolicyNoShow {
		if penaltyWaived(policy, claimedReason) {
			return Decision{Allowed: true, Reason: "penalty waived (" + claimedReason + ")"}, nil
		}
		return Decision{
			Allowed: true,
			Penalty: computePenalty(policy.PenaltyType, policy.PenaltyValue, b.TotalAmount),
			Reason:  "no-show penalty applied",
		}, nil
	}

	hoursUntil := b.StartAt().Sub(now).Hours()
	if hoursUntil >= policy.HoursBeforeBooking {
		return Decision{Allowed: true}, nil
	}

	if penaltyWaived(policy, claimedReason) {
		return Decision{Allowed: true, Reason: "penalty waived (" + claimedReason + ")"}, nil
	}

	if policy.HardBlock {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("%s is not permitted within %.0f hours of the booking", policyType, policy.HoursBeforeBooking),
		}, nil
	}

	return Decision{
		Allowed: true,
		Penalty: computePenalty(policy.PenaltyType, policy.PenaltyValue, b.TotalAmount),
		Reason:  fmt.Sprintf("within %.0f hours of the booking", policy.HoursBeforeBooking),
	}, nil
}

// evaluateDefault applies the service-level fallback when no policy row
// exists: default thresholds with zero penalty, except no-show which always
// forfeits the full amount.
func (pe *PolicyEngine) evaluateDefault(b *models.Booking, policyType string, now time.Time) (Decision, error) {
	if policyType == models.PolicyNoShow {
		return Decision{Allowed: true, Penalty: b.TotalAmount, Reason: "default no-show penalty"}, nil
	}

	svc, err := pe.store.GetService(b.ServiceID)
	if err != nil {
		return Decision{}, err
	}

	threshold := svc.CancellationHours
	if policyType == models.PolicyRescheduling {
		threshold = svc.ReschedulingHours
	}
	if threshold <= 0 {
		threshold = 24
	}

	hoursUntil := b.StartAt().Sub(now).Hours()
	if hoursUntil >= float64(threshold) {
		return Decision{Allowed: true}, nil
	}
	return Decision{Allowed: true, Reason: fmt.Sprintf("within %d hours of the booking", threshold)}, nil
}

// computePenalty turns a policy's penalty definition into an amount. A fixed
// penalty never exceeds the booking total.
func computePenalty(penaltyType string, value, total float64) float64 {
	switch penaltyType {
	case models.PenaltyPercentage:
		return round2(total * value / 100)
	case models.PenaltyFixed:
		return math.Min(value, total)
	}
	return 0
}

func penaltyWaived(p *models.BookingPolicy, claimedReason string) bool {
	if !p.AllowExceptions || claimedReason == "" {
		return false
	}
	for _, ex := range p.Exceptions {
		if ex.Kind == claimedReason {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
