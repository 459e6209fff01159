package services

import (
	"log"
	"os"
	"strconv"
	"time"

	"bookhub-backend/models"

	"github.com/google/uuid"
)

const (
	defaultHoldingDays = 7
	minHoldingDays     = 3
	maxHoldingDays     = 15
)

type escrowStore interface {
	GetBooking(id uuid.UUID) (*models.Booking, error)
	GetPayment(id uuid.UUID) (*models.Payment, error)
	GetPaymentByBooking(bookingID uuid.UUID) (*models.Payment, error)
	SavePayment(p *models.Payment) error
	// ReleaseFundsAtomic stamps ReleasedAt, marks the payment released and
	// credits the provider's balance in one transaction. It must fail with a
	// ConflictError when the row was already released.
	ReleaseFundsAtomic(p *models.Payment) error
	DuePayments(now time.Time) ([]models.Payment, error)
}

// EscrowService computes fund-release dates for completed bookings and
// performs the balance transfer once due. Release is idempotent per payment:
// the ReleasedAt guard makes repeated batch runs harmless.
type EscrowService struct {
	store       escrowStore
	notifier    Notifier
	holdingDays int
	now         func() time.Time
}

func NewEscrowService(store escrowStore, notifier Notifier) *EscrowService {
	holdingDays := defaultHoldingDays
	if env := os.Getenv("ESCROW_HOLDING_DAYS"); env != "" {
		if d, err := strconv.Atoi(env); err == nil {
			holdingDays = d
		}
	}
	if holdingDays < minHoldingDays {
		holdingDays = minHoldingDays
	}
	if holdingDays > maxHoldingDays {
		holdingDays = maxHoldingDays
	}

	return &EscrowService{
		store:       store,
		notifier:    notifier,
		holdingDays: holdingDays,
		now:         time.Now,
	}
}

func (e *EscrowService) HoldingDays() int {
	return e.holdingDays
}

// ScheduleTentative records a provisional release date when a booking is
// accepted. The date is recomputed from CompletedAt once the service is done.
func (e *EscrowService) ScheduleTentative(b *models.Booking) error {
	p, err := e.store.GetPaymentByBooking(b.ID)
	if err != nil {
		return err
	}
	release := b.EndAt().AddDate(0, 0, e.holdingDays)
	p.EscrowReleaseDate = &release
	return e.store.SavePayment(p)
}

// OnCompletion starts the holding-period countdown from the completion time.
func (e *EscrowService) OnCompletion(b *models.Booking) error {
	if b.CompletedAt == nil {
		return NewConflict("booking %s has no completion time", b.ID)
	}
	p, err := e.store.GetPaymentByBooking(b.ID)
	if err != nil {
		return err
	}
	release := b.CompletedAt.AddDate(0, 0, e.holdingDays)
	p.EscrowReleaseDate = &release
	return e.store.SavePayment(p)
}

// ReleaseDue credits the provider's balance with the payment's net amount.
// Callable only once per payment; a second call is a ConflictError, never a
// double credit. Gateway or store failures leave ReleasedAt unset so the
// batch job retries on its next run.
func (e *EscrowService) ReleaseDue(paymentID uuid.UUID) error {
	p, err := e.store.GetPayment(paymentID)
	if err != nil {
		return err
	}

	if p.ReleasedAt != nil {
		return NewConflict("funds for payment %s were already released", p.ID)
	}
	if p.Status != models.PaymentPaid {
		return NewConflict("payment %s is %s, expected %s", p.ID, p.Status, models.PaymentPaid)
	}
	if p.EscrowReleaseDate == nil || e.now().Before(*p.EscrowReleaseDate) {
		return NewConflict("escrow holding period for payment %s has not elapsed", p.ID)
	}

	b, err := e.store.GetBooking(p.BookingID)
	if err != nil {
		return err
	}
	if b.Status != models.BookingCompleted {
		return NewConflict("booking %s is %s, funds release requires %s", b.ID, b.Status, models.BookingCompleted)
	}

	if err := e.store.ReleaseFundsAtomic(p); err != nil {
		return err
	}

	if e.notifier != nil {
		e.notifier.Notify(EventFundsAvailable, p.ProviderID, &p.BookingID,
			"Funds for your completed booking are now available in your balance.")
	}
	return nil
}

// ReleaseDueBatch is the periodic scan run by the background scheduler. It
// logs failures and moves on; unreleased rows are picked up again next run.
func (e *EscrowService) ReleaseDueBatch() {
	due, err := e.store.DuePayments(e.now())
	if err != nil {
		log.Printf("escrow: failed to list due payments: %v", err)
		return
	}

	released := 0
	for _, p := range due {
		if err := e.ReleaseDue(p.ID); err != nil {
			log.Printf("escrow: release of payment %s failed: %v", p.ID, err)
			continue
		}
		released++
	}

	if len(due) > 0 {
		log.Printf("escrow: released %d of %d due payments", released, len(due))
	}
}
