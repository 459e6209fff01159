package services

import (
	"testing"
	"time"

	"bookhub-backend/models"

	"github.com/google/uuid"
)

func policyBooking(serviceID uuid.UUID, startAt time.Time, total float64) *models.Booking {
	day := time.Date(startAt.Year(), startAt.Month(), startAt.Day(), 0, 0, 0, 0, time.UTC)
	startMinute := startAt.Hour()*60 + startAt.Minute()
	return &models.Booking{
		ID:          uuid.New(),
		ServiceID:   serviceID,
		Status:      models.BookingAccepted,
		BookingDate: day,
		StartMinute: startMinute,
		EndMinute:   startMinute + 60,
		Duration:    60,
		TotalAmount: total,
	}
}

func TestEvaluateCancellationPenalty(t *testing.T) {
	store := newFakeStore()
	engine := NewPolicyEngine(store)

	serviceID := uuid.New()
	store.addPolicy(&models.BookingPolicy{
		ID:                 uuid.New(),
		ServiceID:          serviceID,
		Type:               models.PolicyCancellation,
		HoursBeforeBooking: 24,
		PenaltyType:        models.PenaltyPercentage,
		PenaltyValue:       50,
	})

	now := time.Date(2026, time.September, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name        string
		hoursAhead  time.Duration
		wantPenalty float64
	}{
		{"well outside threshold", 30 * time.Hour, 0},
		{"exactly at threshold", 24 * time.Hour, 0},
		{"inside threshold", 10 * time.Hour, 100},
		{"just inside threshold", 23 * time.Hour, 100},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := policyBooking(serviceID, now.Add(c.hoursAhead), 200)
			d, err := engine.Evaluate(b, models.PolicyCancellation, "", now)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if !d.Allowed {
				t.Fatal("cancellation should be allowed, policy gates penalty not permission")
			}
			if d.Penalty != c.wantPenalty {
				t.Errorf("penalty = %.2f, want %.2f", d.Penalty, c.wantPenalty)
			}
		})
	}
}

func TestEvaluateFixedPenaltyCappedAtTotal(t *testing.T) {
	store := newFakeStore()
	engine := NewPolicyEngine(store)

	serviceID := uuid.New()
	store.addPolicy(&models.BookingPolicy{
		ID:                 uuid.New(),
		ServiceID:          serviceID,
		Type:               models.PolicyCancellation,
		HoursBeforeBooking: 24,
		PenaltyType:        models.PenaltyFixed,
		PenaltyValue:       500,
	})

	now := time.Date(2026, time.September, 10, 12, 0, 0, 0, time.UTC)
	b := policyBooking(serviceID, now.Add(2*time.Hour), 80)

	d, err := engine.Evaluate(b, models.PolicyCancellation, "", now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Penalty != 80 {
		t.Errorf("fixed penalty should cap at the booking total, got %.2f", d.Penalty)
	}
}

func TestEvaluateNoShowDefaultsToFullAmount(t *testing.T) {
	store := newFakeStore()
	engine := NewPolicyEngine(store)

	serviceID := uuid.New()
	now := time.Date(2026, time.September, 10, 12, 0, 0, 0, time.UTC)
	b := policyBooking(serviceID, now.Add(-2*time.Hour), 150)

	// No policy row configured.
	d, err := engine.Evaluate(b, models.PolicyNoShow, "", now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed {
		t.Fatal("no-show evaluation should be allowed")
	}
	if d.Penalty != b.TotalAmount {
		t.Errorf("default no-show penalty = %.2f, want the full amount %.2f", d.Penalty, b.TotalAmount)
	}
}

func TestEvaluateDefaultFallbackUsesServiceThresholds(t *testing.T) {
	store := newFakeStore()
	engine := NewPolicyEngine(store)

	svc := store.addService(&models.Service{
		ID:                uuid.New(),
		CancellationHours: 48,
		IsActive:          true,
	})

	now := time.Date(2026, time.September, 10, 12, 0, 0, 0, time.UTC)
	b := policyBooking(svc.ID, now.Add(10*time.Hour), 100)

	d, err := engine.Evaluate(b, models.PolicyCancellation, "", now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed {
		t.Fatal("fallback evaluation should allow the cancellation")
	}
	if d.Penalty != 0 {
		t.Errorf("fallback penalty = %.2f, want 0", d.Penalty)
	}
	if d.Reason == "" {
		t.Error("inside-threshold fallback should carry a reason")
	}
}

func TestEvaluateTerminalBookingRejected(t *testing.T) {
	engine := NewPolicyEngine(newFakeStore())

	now := time.Date(2026, time.September, 10, 12, 0, 0, 0, time.UTC)
	b := policyBooking(uuid.New(), now.Add(48*time.Hour), 100)
	b.Status = models.BookingCancelled

	d, err := engine.Evaluate(b, models.PolicyCancellation, "", now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Allowed {
		t.Error("terminal booking must not be cancellable again")
	}
}

func TestEvaluateHardBlock(t *testing.T) {
	store := newFakeStore()
	engine := NewPolicyEngine(store)

	serviceID := uuid.New()
	store.addPolicy(&models.BookingPolicy{
		ID:                 uuid.New(),
		ServiceID:          serviceID,
		Type:               models.PolicyRescheduling,
		HoursBeforeBooking: 24,
		PenaltyType:        models.PenaltyPercentage,
		PenaltyValue:       25,
		HardBlock:          true,
	})

	now := time.Date(2026, time.September, 10, 12, 0, 0, 0, time.UTC)

	d, err := engine.Evaluate(policyBooking(serviceID, now.Add(5*time.Hour), 100), models.PolicyRescheduling, "", now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Allowed {
		t.Error("hard-block policy should deny below-threshold rescheduling")
	}

	d, err = engine.Evaluate(policyBooking(serviceID, now.Add(48*time.Hour), 100), models.PolicyRescheduling, "", now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed || d.Penalty != 0 {
		t.Error("hard block must not affect above-threshold requests")
	}
}

func TestEvaluateExceptionWaiver(t *testing.T) {
	store := newFakeStore()
	engine := NewPolicyEngine(store)

	serviceID := uuid.New()
	store.addPolicy(&models.BookingPolicy{
		ID:                 uuid.New(),
		ServiceID:          serviceID,
		Type:               models.PolicyCancellation,
		HoursBeforeBooking: 24,
		PenaltyType:        models.PenaltyPercentage,
		PenaltyValue:       50,
		AllowExceptions:    true,
		Exceptions: models.ExceptionList{
			{Kind: models.ExceptionEmergency},
			{Kind: models.ExceptionProviderInitiated},
		},
	})

	now := time.Date(2026, time.September, 10, 12, 0, 0, 0, time.UTC)
	b := policyBooking(serviceID, now.Add(2*time.Hour), 100)

	cases := []struct {
		name        string
		reason      string
		wantPenalty float64
	}{
		{"listed exception waives", models.ExceptionEmergency, 0},
		{"provider initiated waives", models.ExceptionProviderInitiated, 0},
		{"unlisted reason pays", "changed_my_mind", 50},
		{"empty reason pays", "", 50},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, err := engine.Evaluate(b, models.PolicyCancellation, c.reason, now)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if d.Penalty != c.wantPenalty {
				t.Errorf("penalty = %.2f, want %.2f", d.Penalty, c.wantPenalty)
			}
		})
	}
}

func TestEvaluateInvalidPolicyType(t *testing.T) {
	engine := NewPolicyEngine(newFakeStore())

	now := time.Date(2026, time.September, 10, 12, 0, 0, 0, time.UTC)
	_, err := engine.Evaluate(policyBooking(uuid.New(), now.Add(time.Hour), 100), "late_arrival", "", now)
	if IsInputError(err) == nil {
		t.Fatalf("expected input error for unknown policy type, got %v", err)
	}
}

func TestComputePenaltyRounding(t *testing.T) {
	cases := []struct {
		penaltyType string
		value       float64
		total       float64
		want        float64
	}{
		{models.PenaltyPercentage, 50, 99.99, 50.0}, // 49.995 rounds up
		{models.PenaltyPercentage, 33, 100, 33.0},
		{models.PenaltyFixed, 20, 100, 20},
		{models.PenaltyNone, 50, 100, 0},
	}

	for _, c := range cases {
		if got := computePenalty(c.penaltyType, c.value, c.total); got != c.want {
			t.Errorf("computePenalty(%s, %.2f, %.2f) = %.2f, want %.2f", c.penaltyType, c.value, c.total, got, c.want)
		}
	}
}
