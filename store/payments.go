package store

import (
	"time"

	"bookhub-backend/models"
	"bookhub-backend/services"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Store) GetPayment(id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) GetPaymentByBooking(bookingID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.First(&p, "booking_id = ?", bookingID).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) SavePayment(p *models.Payment) error {
	return s.db.Save(p).Error
}

// ReleaseFundsAtomic stamps the release and credits the provider in one
// transaction. The guarded UPDATE on released_at is the idempotency barrier:
// a second run matches zero rows and never credits twice.
func (s *Store) ReleaseFundsAtomic(p *models.Payment) error {
	now := time.Now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND released_at IS NULL", p.ID).
			Updates(map[string]interface{}{
				"released_at": now,
				"status":      models.PaymentReleased,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return services.NewConflict("funds for payment %s were already released", p.ID)
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", p.ProviderID).
			Update("balance", gorm.Expr("balance + ?", p.NetAmount)).Error; err != nil {
			return err
		}

		p.ReleasedAt = &now
		p.Status = models.PaymentReleased
		return nil
	})
}

// DuePayments lists paid, unreleased payments whose holding period elapsed.
func (s *Store) DuePayments(now time.Time) ([]models.Payment, error) {
	var due []models.Payment
	err := s.db.Where("status = ? AND released_at IS NULL AND escrow_release_date IS NOT NULL AND escrow_release_date <= ?",
		models.PaymentPaid, now).
		Find(&due).Error
	return due, err
}
