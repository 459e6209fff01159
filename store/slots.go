package store

import (
	"time"

	"bookhub-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

func (s *Store) ActiveWindows(providerID uuid.UUID) ([]models.AvailabilityWindow, error) {
	var windows []models.AvailabilityWindow
	err := s.db.Where("provider_id = ? AND active = true", providerID).
		Order("day_of_week, start_minute").
		Find(&windows).Error
	return windows, err
}

func (s *Store) ExistingSlots(providerID uuid.UUID, from, to time.Time) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	err := s.db.Where("provider_id = ? AND date BETWEEN ? AND ?", providerID, from, to).
		Find(&slots).Error
	return slots, err
}

// SaveSlots inserts generated slots, silently skipping rows another
// generation run already created. The unique index on
// (provider_id, date, start_minute) is the idempotency guarantee.
func (s *Store) SaveSlots(slots []models.TimeSlot) error {
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&slots).Error
}

// AvailableSlots lists unbooked future slots of a provider in a date range.
func (s *Store) AvailableSlots(providerID uuid.UUID, from, to time.Time) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	err := s.db.Where("provider_id = ? AND date BETWEEN ? AND ? AND booked = false", providerID, from, to).
		Order("date, start_minute").
		Find(&slots).Error
	return slots, err
}

// OverlappingWindows counts active windows of a provider on a weekday that
// intersect [startMinute, endMinute), excluding one window id (uuid.Nil for
// none). Used to keep availability windows pairwise disjoint.
func (s *Store) OverlappingWindows(providerID uuid.UUID, dayOfWeek, startMinute, endMinute int, excludeID uuid.UUID) (int64, error) {
	var n int64
	q := s.db.Model(&models.AvailabilityWindow{}).
		Where("provider_id = ? AND day_of_week = ? AND active = true", providerID, dayOfWeek).
		Where("start_minute < ? AND ? < end_minute", endMinute, startMinute)
	if excludeID != uuid.Nil {
		q = q.Where("id != ?", excludeID)
	}
	err := q.Count(&n).Error
	return n, err
}
