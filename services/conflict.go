package services

import (
	"time"

	"github.com/google/uuid"
)

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. Back-to-back bookings (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

type conflictStore interface {
	// CountOverlapping counts non-cancelled bookings of the provider on the
	// given date whose interval intersects [startMinute, endMinute).
	// excludeBookingID (uuid.Nil for none) lets a reschedule ignore its own row.
	CountOverlapping(providerID uuid.UUID, date time.Time, startMinute, endMinute int, excludeBookingID uuid.UUID) (int64, error)
}

// ConflictChecker answers whether a desired booking window collides with an
// existing pending, accepted or in-progress booking. On the booking write
// path the same check runs again inside the store transaction; this
// standalone form serves reads and the recurring expander.
type ConflictChecker struct {
	store conflictStore
}

func NewConflictChecker(store conflictStore) *ConflictChecker {
	return &ConflictChecker{store: store}
}

func (c *ConflictChecker) HasConflict(providerID uuid.UUID, date time.Time, startMinute, endMinute int, excludeBookingID uuid.UUID) (bool, error) {
	if endMinute <= startMinute {
		inputErr := newInputError()
		inputErr.addError("endTime", "must be after startTime")
		return false, inputErr
	}

	n, err := c.store.CountOverlapping(providerID, date, startMinute, endMinute, excludeBookingID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
