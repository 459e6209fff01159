package services

import (
	"time"

	"bookhub-backend/models"
	"bookhub-backend/utils"

	"github.com/google/uuid"
)

type slotStore interface {
	ActiveWindows(providerID uuid.UUID) ([]models.AvailabilityWindow, error)
	ExistingSlots(providerID uuid.UUID, from, to time.Time) ([]models.TimeSlot, error)
	SaveSlots(slots []models.TimeSlot) error
}

// SlotGenerator expands a provider's weekly availability windows over a date
// range into discrete fixed-duration slots. Generation is additive and
// idempotent on (provider, date, startMinute), so it is safe to re-run and
// safe to run concurrently with booking creation.
type SlotGenerator struct {
	store slotStore
	now   func() time.Time
}

func NewSlotGenerator(store slotStore) *SlotGenerator {
	return &SlotGenerator{store: store, now: time.Now}
}

type slotKey struct {
	date  int64
	start int
}

func (g *SlotGenerator) Generate(providerID uuid.UUID, serviceID *uuid.UUID, startDate, endDate time.Time, durationMinutes int) ([]models.TimeSlot, error) {
	inputErr := newInputError()
	if durationMinutes <= 0 {
		inputErr.addError("duration", "must be a positive number of minutes")
	}
	if endDate.Before(startDate) {
		inputErr.addError("endDate", "must not be before startDate")
	}
	if inputErr.fieldsCount() > 0 {
		return nil, inputErr
	}

	windows, err := g.store.ActiveWindows(providerID)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		// A provider with no availability yields nothing, not an error.
		return nil, nil
	}

	byDay := make(map[int][]models.AvailabilityWindow)
	for _, w := range windows {
		byDay[w.DayOfWeek] = append(byDay[w.DayOfWeek], w)
	}

	startDate = utils.BeginningOfDay(startDate.UTC())
	endDate = utils.BeginningOfDay(endDate.UTC())

	existing, err := g.store.ExistingSlots(providerID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	seen := make(map[slotKey]struct{}, len(existing))
	for _, s := range existing {
		seen[slotKey{date: s.Date.Unix(), start: s.StartMinute}] = struct{}{}
	}

	now := g.now()
	var generated []models.TimeSlot

	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		for _, w := range byDay[int(d.Weekday())] {
			// A slot is valid only while it fits entirely inside the window,
			// boundary-equal end included.
			for s := w.StartMinute; s+durationMinutes <= w.EndMinute; s += durationMinutes {
				key := slotKey{date: d.Unix(), start: s}
				if _, ok := seen[key]; ok {
					continue
				}
				if d.Add(time.Duration(s) * time.Minute).Before(now) {
					continue
				}
				seen[key] = struct{}{}
				generated = append(generated, models.TimeSlot{
					ProviderID:  providerID,
					ServiceID:   serviceID,
					Date:        d,
					StartMinute: s,
					EndMinute:   s + durationMinutes,
					Booked:      false,
				})
			}
		}
	}

	if len(generated) > 0 {
		if err := g.store.SaveSlots(generated); err != nil {
			return nil, err
		}
	}

	return generated, nil
}
