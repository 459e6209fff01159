package store

import (
	"errors"
	"time"

	"bookhub-backend/models"
	"bookhub-backend/services"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Statuses that occupy the provider's time.
var activeStatuses = []string{models.BookingPending, models.BookingAccepted, models.BookingInProgress}

func (s *Store) GetBooking(id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (s *Store) SaveBooking(b *models.Booking) error {
	return s.db.Save(b).Error
}

func (s *Store) BookingsForUser(userID uuid.UUID, asProvider bool, status string) ([]models.Booking, error) {
	column := "customer_id"
	if asProvider {
		column = "provider_id"
	}

	q := s.db.Where(column+" = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var bookings []models.Booking
	err := q.Order("booking_date, start_minute").Find(&bookings).Error
	return bookings, err
}

func (s *Store) DueForCompletion(before time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.Where("status IN ? AND booking_date + (end_minute * interval '1 minute') < ?",
		[]string{models.BookingAccepted, models.BookingInProgress}, before).
		Find(&bookings).Error
	return bookings, err
}

func (s *Store) CountOverlapping(providerID uuid.UUID, date time.Time, startMinute, endMinute int, excludeBookingID uuid.UUID) (int64, error) {
	return s.countOverlapping(s.db, providerID, date, startMinute, endMinute, excludeBookingID)
}

func (s *Store) countOverlapping(tx *gorm.DB, providerID uuid.UUID, date time.Time, startMinute, endMinute int, excludeBookingID uuid.UUID) (int64, error) {
	var n int64
	q := tx.Model(&models.Booking{}).
		Where("provider_id = ? AND booking_date = ?", providerID, date).
		Where("status IN ?", activeStatuses).
		Where("start_minute < ? AND ? < end_minute", endMinute, startMinute)
	if excludeBookingID != uuid.Nil {
		q = q.Where("id != ?", excludeBookingID)
	}
	err := q.Count(&n).Error
	return n, err
}

// CreateBookingAtomic is the serializable unit protecting the no-overlap
// invariant: lock the provider's user row, re-run the overlap scan under that
// lock, then insert booking, payment and the claimed slot. The provider row is
// the anchor because slot rows may not exist yet for the date and an empty
// FOR UPDATE scan locks nothing. The unique index on (provider_id, date,
// start_minute) backstops identical starts.
func (s *Store) CreateBookingAtomic(b *models.Booking, p *models.Payment) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockProvider(tx, b.ProviderID); err != nil {
			return err
		}

		n, err := s.countOverlapping(tx, b.ProviderID, b.BookingDate, b.StartMinute, b.EndMinute, uuid.Nil)
		if err != nil {
			return err
		}
		if n > 0 {
			return services.NewConflict("requested time overlaps an existing booking")
		}

		if err := tx.Create(b).Error; err != nil {
			return err
		}

		if err := claimSlot(tx, b); err != nil {
			return err
		}

		return tx.Create(p).Error
	})

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return services.NewConflict("requested time slot was just taken")
	}
	return err
}

// lockProvider takes a row lock on the provider's user row so concurrent
// booking writes for one provider serialize even when no slot rows exist yet.
func lockProvider(tx *gorm.DB, providerID uuid.UUID) error {
	var provider models.User
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&provider, "id = ?", providerID).Error
}

// claimSlot marks the matching generated slot as booked, creating the row if
// slot generation has not covered the date yet.
func claimSlot(tx *gorm.DB, b *models.Booking) error {
	var slot models.TimeSlot
	err := tx.Where("provider_id = ? AND date = ? AND start_minute = ?",
		b.ProviderID, b.BookingDate, b.StartMinute).
		First(&slot).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&models.TimeSlot{
			ProviderID:  b.ProviderID,
			ServiceID:   &b.ServiceID,
			Date:        b.BookingDate,
			StartMinute: b.StartMinute,
			EndMinute:   b.EndMinute,
			Booked:      true,
			BookingID:   &b.ID,
		}).Error
	}
	if err != nil {
		return err
	}

	if slot.Booked {
		return services.NewConflict("requested time slot is already booked")
	}

	return tx.Model(&slot).Updates(map[string]interface{}{
		"booked":     true,
		"booking_id": b.ID,
		"end_minute": b.EndMinute,
	}).Error
}

// CancelBookingAtomic persists a terminal booking status with its payment
// outcome and frees the slot. creditAmount, when positive, is moved onto the
// provider's balance in the same transaction. It is passed separately from
// Payment.PenaltyAmount because penalties settled earlier (reschedules) are
// already on the balance.
func (s *Store) CancelBookingAtomic(b *models.Booking, p *models.Payment, creditAmount float64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(b).Error; err != nil {
			return err
		}
		if err := tx.Save(p).Error; err != nil {
			return err
		}
		if err := releaseSlot(tx, b.ID); err != nil {
			return err
		}
		if creditAmount > 0 {
			return creditProvider(tx, p.ProviderID, creditAmount)
		}
		return nil
	})
}

// SettlePenaltyAtomic records an assessed penalty on the payment row and
// credits it to the provider in one transaction.
func (s *Store) SettlePenaltyAtomic(p *models.Payment, amount float64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(p).Error; err != nil {
			return err
		}
		return creditProvider(tx, p.ProviderID, amount)
	})
}

func creditProvider(tx *gorm.DB, providerID uuid.UUID, amount float64) error {
	return tx.Model(&models.User{}).
		Where("id = ?", providerID).
		Update("balance", gorm.Expr("balance + ?", amount)).Error
}

// MoveBookingAtomic applies a reschedule: re-check the new window under the
// provider lock, release the old slot and claim the new one.
func (s *Store) MoveBookingAtomic(b *models.Booking) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockProvider(tx, b.ProviderID); err != nil {
			return err
		}

		n, err := s.countOverlapping(tx, b.ProviderID, b.BookingDate, b.StartMinute, b.EndMinute, b.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return services.NewConflict("requested time overlaps an existing booking")
		}

		if err := releaseSlot(tx, b.ID); err != nil {
			return err
		}
		if err := tx.Save(b).Error; err != nil {
			return err
		}
		return claimSlot(tx, b)
	})

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return services.NewConflict("requested time slot was just taken")
	}
	return err
}

func releaseSlot(tx *gorm.DB, bookingID uuid.UUID) error {
	return tx.Model(&models.TimeSlot{}).
		Where("booking_id = ?", bookingID).
		Updates(map[string]interface{}{"booked": false, "booking_id": nil}).Error
}
