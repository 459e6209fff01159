package services

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"bookhub-backend/models"
	"bookhub-backend/utils"

	"github.com/google/uuid"
)

type bookingStore interface {
	conflictStore

	GetService(id uuid.UUID) (*models.Service, error)
	GetBooking(id uuid.UUID) (*models.Booking, error)
	SaveBooking(b *models.Booking) error
	BookingsForUser(userID uuid.UUID, asProvider bool, status string) ([]models.Booking, error)
	DueForCompletion(before time.Time) ([]models.Booking, error)

	GetPaymentByBooking(bookingID uuid.UUID) (*models.Payment, error)
	SavePayment(p *models.Payment) error

	// CreateBookingAtomic re-runs the overlap check and inserts the booking,
	// its payment row and the claimed time slot in one serializable unit.
	// Exactly one of two concurrent identical requests may succeed; the loser
	// gets a ConflictError.
	CreateBookingAtomic(b *models.Booking, p *models.Payment) error
	// CancelBookingAtomic persists a terminal status together with its
	// payment outcome and releases the time slot. creditAmount moves that
	// much of the retained penalty onto the provider's balance.
	CancelBookingAtomic(b *models.Booking, p *models.Payment, creditAmount float64) error
	// MoveBookingAtomic re-checks the new window, releases the old slot and
	// claims the new one in one transaction.
	MoveBookingAtomic(b *models.Booking) error
	// SettlePenaltyAtomic saves the payment row and credits the assessed
	// penalty to the provider in one transaction.
	SettlePenaltyAtomic(p *models.Payment, amount float64) error
}

// transitions is the booking lifecycle. Terminal states (completed, declined,
// cancelled) have no outgoing edges.
var transitions = map[string][]string{
	models.BookingPending:    {models.BookingAccepted, models.BookingDeclined},
	models.BookingAccepted:   {models.BookingInProgress, models.BookingCompleted, models.BookingCancelled},
	models.BookingInProgress: {models.BookingCompleted, models.BookingCancelled},
}

func canTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// BookingService owns the booking lifecycle: creation through the atomic
// conflict-checked insert, provider accept/decline, start/complete, policy-
// evaluated cancellation and rescheduling, and the no-show flow. Gateway and
// notifier calls always happen after the state transition has committed.
type BookingService struct {
	store      bookingStore
	conflicts  *ConflictChecker
	policies   *PolicyEngine
	escrow     *EscrowService
	gateway    PaymentGateway
	notifier   Notifier
	feePercent float64
	now        func() time.Time
}

func NewBookingService(store bookingStore, conflicts *ConflictChecker, policies *PolicyEngine, escrow *EscrowService, gateway PaymentGateway, notifier Notifier) *BookingService {
	feePercent := 10.0
	if env := os.Getenv("SERVICE_FEE_PERCENT"); env != "" {
		if f, err := strconv.ParseFloat(env, 64); err == nil && f >= 0 {
			feePercent = f
		}
	}

	return &BookingService{
		store:      store,
		conflicts:  conflicts,
		policies:   policies,
		escrow:     escrow,
		gateway:    gateway,
		notifier:   notifier,
		feePercent: feePercent,
		now:        time.Now,
	}
}

// Service exposes the listing lookup to collaborating services.
func (s *BookingService) Service(id uuid.UUID) (*models.Service, error) {
	return s.store.GetService(id)
}

func (s *BookingService) Get(id uuid.UUID) (*models.Booking, error) {
	return s.store.GetBooking(id)
}

func (s *BookingService) List(userID uuid.UUID, asProvider bool, status string) ([]models.Booking, error) {
	return s.store.BookingsForUser(userID, asProvider, status)
}

func (s *BookingService) Payment(bookingID uuid.UUID) (*models.Payment, error) {
	return s.store.GetPaymentByBooking(bookingID)
}

type CreateBookingInput struct {
	ServiceID   uuid.UUID
	CustomerID  uuid.UUID
	Date        time.Time // UTC midnight
	StartMinute int
	SeriesID    *uuid.UUID
}

// Create runs the booking request pipeline: validate, atomic conflict-checked
// insert of booking + payment + slot, then the gateway capture and the
// provider notification outside the critical section.
func (s *BookingService) Create(input CreateBookingInput) (*models.Booking, error) {
	svc, err := s.store.GetService(input.ServiceID)
	if err != nil {
		return nil, err
	}

	inputErr := newInputError()
	if !svc.IsActive {
		inputErr.addError("serviceId", "service is not active")
	}
	if svc.Duration <= 0 {
		inputErr.addError("serviceId", "service has no duration configured")
	}
	if input.StartMinute < 0 || input.StartMinute+svc.Duration > 24*60 {
		inputErr.addError("startTime", "booking must fit within a single day")
	}
	if inputErr.fieldsCount() > 0 {
		return nil, inputErr
	}

	date := utils.BeginningOfDay(input.Date.UTC())
	startAt := date.Add(time.Duration(input.StartMinute) * time.Minute)
	if startAt.Before(s.now()) {
		inputErr.addError("date", "booking must be in the future")
		return nil, inputErr
	}

	fee := round2(svc.Price * s.feePercent / 100)
	b := &models.Booking{
		ID:          uuid.New(),
		ServiceID:   svc.ID,
		CustomerID:  input.CustomerID,
		ProviderID:  svc.ProviderID,
		SeriesID:    input.SeriesID,
		Status:      models.BookingPending,
		BookingDate: date,
		StartMinute: input.StartMinute,
		EndMinute:   input.StartMinute + svc.Duration,
		Duration:    svc.Duration,
		Price:       svc.Price,
		ServiceFee:  fee,
		TotalAmount: round2(svc.Price + fee),
	}
	p := &models.Payment{
		ID:         uuid.New(),
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		ProviderID: b.ProviderID,
		Amount:     b.TotalAmount,
		ServiceFee: fee,
		NetAmount:  svc.Price,
		Status:     models.PaymentPending,
	}

	if err := s.store.CreateBookingAtomic(b, p); err != nil {
		return nil, err
	}

	txID, status, err := s.gateway.Capture(b.ID.String(), p.Amount)
	if err != nil {
		// Undo the reservation; a booking without captured funds must not
		// hold the slot.
		now := s.now()
		b.Status = models.BookingCancelled
		b.CancellationReason = "payment capture failed"
		b.CancelledAt = &now
		p.Status = models.PaymentFailed
		if undoErr := s.store.CancelBookingAtomic(b, p, 0); undoErr != nil {
			log.Printf("booking: failed to undo booking %s after capture failure: %v", b.ID, undoErr)
		}
		return nil, fmt.Errorf("payment capture failed: %w", err)
	}

	p.TransactionID = txID
	p.Status = models.PaymentPaid
	if status != "" && status != "succeeded" {
		p.Status = models.PaymentPending
	}
	if err := s.store.SavePayment(p); err != nil {
		return nil, err
	}

	s.notify(EventBookingRequested, b.ProviderID, b,
		fmt.Sprintf("New booking request for %s on %s at %s.", svc.Name, b.BookingDate.Format("2006-01-02"), utils.MinutesToClock(b.StartMinute)))

	return b, nil
}

// Accept confirms a pending booking and schedules the tentative escrow
// release date.
func (s *BookingService) Accept(bookingID, providerID uuid.UUID) (*models.Booking, error) {
	b, err := s.store.GetBooking(bookingID)
	if err != nil {
		return nil, err
	}
	if b.ProviderID != providerID {
		return nil, ErrNotAuthorized
	}
	if !canTransition(b.Status, models.BookingAccepted) {
		return nil, NewConflict("booking is %s, cannot accept", b.Status)
	}

	now := s.now()
	b.Status = models.BookingAccepted
	b.ConfirmedAt = &now
	if err := s.store.SaveBooking(b); err != nil {
		return nil, err
	}

	if err := s.escrow.ScheduleTentative(b); err != nil {
		log.Printf("booking: tentative escrow schedule for %s failed: %v", b.ID, err)
	}

	s.notify(EventBookingAccepted, b.CustomerID, b,
		fmt.Sprintf("Your booking for %s at %s was accepted.", b.BookingDate.Format("2006-01-02"), utils.MinutesToClock(b.StartMinute)))

	return b, nil
}

// Decline rejects a pending booking, releases the slot and voids or refunds
// the captured payment.
func (s *BookingService) Decline(bookingID, providerID uuid.UUID, reason string) (*models.Booking, error) {
	b, err := s.store.GetBooking(bookingID)
	if err != nil {
		return nil, err
	}
	if b.ProviderID != providerID {
		return nil, ErrNotAuthorized
	}
	if !canTransition(b.Status, models.BookingDeclined) {
		return nil, NewConflict("booking is %s, cannot decline", b.Status)
	}

	p, err := s.store.GetPaymentByBooking(b.ID)
	if err != nil {
		return nil, err
	}

	b.Status = models.BookingDeclined
	b.DeclineReason = reason
	refundAmount := round2(p.Amount - p.PenaltyAmount)
	if p.Status == models.PaymentPaid || p.Status == models.PaymentPending {
		p.RefundedAmount = refundAmount
		p.Status = models.PaymentRefunded
		if p.PenaltyAmount > 0 {
			p.Status = models.PaymentPartiallyRefunded
		}
	}
	if err := s.store.CancelBookingAtomic(b, p, 0); err != nil {
		return nil, err
	}

	s.refund(p, refundAmount)
	s.notify(EventBookingDeclined, b.CustomerID, b, "Your booking request was declined.")

	return b, nil
}

// Start marks an accepted booking as underway once its start time arrives.
func (s *BookingService) Start(bookingID, providerID uuid.UUID) (*models.Booking, error) {
	b, err := s.store.GetBooking(bookingID)
	if err != nil {
		return nil, err
	}
	if b.ProviderID != providerID {
		return nil, ErrNotAuthorized
	}
	if !canTransition(b.Status, models.BookingInProgress) {
		return nil, NewConflict("booking is %s, cannot start", b.Status)
	}
	now := s.now()
	if now.Before(b.StartAt()) {
		return nil, NewConflict("booking does not start until %s", b.StartAt().Format(time.RFC3339))
	}

	b.Status = models.BookingInProgress
	b.StartedAt = &now
	if err := s.store.SaveBooking(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Complete finishes a booking and activates the escrow holding period.
// system=true is the auto-completion sweep, which bypasses the actor check.
func (s *BookingService) Complete(bookingID, actorID uuid.UUID, system bool) (*models.Booking, error) {
	b, err := s.store.GetBooking(bookingID)
	if err != nil {
		return nil, err
	}
	if !system && b.ProviderID != actorID {
		return nil, ErrNotAuthorized
	}
	if !canTransition(b.Status, models.BookingCompleted) {
		return nil, NewConflict("booking is %s, cannot complete", b.Status)
	}
	now := s.now()
	if now.Before(b.StartAt()) {
		return nil, NewConflict("cannot complete a booking before it starts")
	}

	b.Status = models.BookingCompleted
	b.CompletedAt = &now
	if err := s.store.SaveBooking(b); err != nil {
		return nil, err
	}

	if err := s.escrow.OnCompletion(b); err != nil {
		log.Printf("booking: escrow activation for %s failed: %v", b.ID, err)
	}

	s.notify(EventBookingCompleted, b.CustomerID, b, "Your booking was completed. Thanks for using BookHub!")

	return b, nil
}

// Cancel runs the policy engine and applies its outcome together with the
// state transition: penalty retained, remainder refunded, slot released.
func (s *BookingService) Cancel(bookingID, actorID uuid.UUID, reason string) (*models.Booking, *Decision, error) {
	b, err := s.store.GetBooking(bookingID)
	if err != nil {
		return nil, nil, err
	}
	if b.CustomerID != actorID && b.ProviderID != actorID {
		return nil, nil, ErrNotAuthorized
	}
	if !canTransition(b.Status, models.BookingCancelled) {
		return nil, nil, NewConflict("booking is %s, cannot cancel", b.Status)
	}

	// Provider-initiated cancels claim the provider_initiated exception;
	// policies listing it waive the penalty.
	claimedReason := reason
	if actorID == b.ProviderID {
		claimedReason = models.ExceptionProviderInitiated
	}

	decision, err := s.policies.Evaluate(b, models.PolicyCancellation, claimedReason, s.now())
	if err != nil {
		return nil, nil, err
	}
	if !decision.Allowed {
		return nil, &decision, NewPolicyViolation("cancellation not allowed: %s", decision.Reason)
	}

	if err := s.cancelWithPenalty(b, reason, decision.Penalty); err != nil {
		return nil, nil, err
	}

	other := b.CustomerID
	if actorID == b.CustomerID {
		other = b.ProviderID
	}
	s.notify(EventBookingCancelled, other, b,
		fmt.Sprintf("Booking on %s at %s was cancelled.", b.BookingDate.Format("2006-01-02"), utils.MinutesToClock(b.StartMinute)))

	return b, &decision, nil
}

// MarkNoShow lets the provider report an absent customer after the booking
// start has passed. The policy's no-show penalty (default: the full amount)
// is applied.
func (s *BookingService) MarkNoShow(bookingID, providerID uuid.UUID) (*models.Booking, *Decision, error) {
	b, err := s.store.GetBooking(bookingID)
	if err != nil {
		return nil, nil, err
	}
	if b.ProviderID != providerID {
		return nil, nil, ErrNotAuthorized
	}
	if !canTransition(b.Status, models.BookingCancelled) {
		return nil, nil, NewConflict("booking is %s, cannot mark as no-show", b.Status)
	}
	if s.now().Before(b.StartAt()) {
		return nil, nil, NewConflict("cannot report a no-show before the booking starts")
	}

	decision, err := s.policies.Evaluate(b, models.PolicyNoShow, "", s.now())
	if err != nil {
		return nil, nil, err
	}
	if !decision.Allowed {
		return nil, &decision, NewConflict("no-show not applicable: %s", decision.Reason)
	}

	if err := s.cancelWithPenalty(b, "no_show", decision.Penalty); err != nil {
		return nil, nil, err
	}

	s.notify(EventBookingCancelled, b.CustomerID, b, "You were marked absent for your booking; the no-show policy was applied.")

	return b, &decision, nil
}

// Reschedule moves a booking to a new window after the rescheduling policy
// and a conflict check that excludes the booking's own row.
func (s *BookingService) Reschedule(bookingID, actorID uuid.UUID, newDate time.Time, newStartMinute int, reason string) (*models.Booking, *Decision, error) {
	b, err := s.store.GetBooking(bookingID)
	if err != nil {
		return nil, nil, err
	}
	if b.CustomerID != actorID && b.ProviderID != actorID {
		return nil, nil, ErrNotAuthorized
	}
	if b.Terminal() {
		return nil, nil, NewConflict("booking is %s, cannot reschedule", b.Status)
	}
	if b.Status == models.BookingInProgress {
		return nil, nil, NewConflict("booking is already underway")
	}

	newDate = utils.BeginningOfDay(newDate.UTC())
	newEnd := newStartMinute + b.Duration

	inputErr := newInputError()
	if newStartMinute < 0 || newEnd > 24*60 {
		inputErr.addError("startTime", "booking must fit within a single day")
	}
	if newDate.Add(time.Duration(newStartMinute) * time.Minute).Before(s.now()) {
		inputErr.addError("date", "new booking time must be in the future")
	}
	if inputErr.fieldsCount() > 0 {
		return nil, nil, inputErr
	}

	claimedReason := reason
	if actorID == b.ProviderID {
		claimedReason = models.ExceptionProviderInitiated
	}
	decision, err := s.policies.Evaluate(b, models.PolicyRescheduling, claimedReason, s.now())
	if err != nil {
		return nil, nil, err
	}
	if !decision.Allowed {
		return nil, &decision, NewPolicyViolation("rescheduling not allowed: %s", decision.Reason)
	}

	conflict, err := s.conflicts.HasConflict(b.ProviderID, newDate, newStartMinute, newEnd, b.ID)
	if err != nil {
		return nil, nil, err
	}
	if conflict {
		return nil, nil, NewConflict("requested time overlaps an existing booking")
	}

	b.BookingDate = newDate
	b.StartMinute = newStartMinute
	b.EndMinute = newEnd
	if err := s.store.MoveBookingAtomic(b); err != nil {
		return nil, nil, err
	}

	// A reschedule penalty is settled when assessed: charged as an extra
	// capture, recorded on the payment row and credited to the provider.
	// A later cancellation then nets it out of the refund instead of
	// crediting it again.
	if decision.Penalty > 0 {
		p, err := s.store.GetPaymentByBooking(b.ID)
		if err == nil {
			if _, _, err := s.gateway.Capture(b.ID.String()+"-reschedule", decision.Penalty); err != nil {
				log.Printf("booking: reschedule penalty capture for %s failed: %v", b.ID, err)
			} else {
				p.Amount = round2(p.Amount + decision.Penalty)
				p.PenaltyAmount = round2(p.PenaltyAmount + decision.Penalty)
				if err := s.store.SettlePenaltyAtomic(p, decision.Penalty); err != nil {
					log.Printf("booking: failed to settle reschedule penalty for %s: %v", b.ID, err)
				}
			}
		}
	}

	other := b.CustomerID
	if actorID == b.CustomerID {
		other = b.ProviderID
	}
	s.notify(EventBookingRescheduled, other, b,
		fmt.Sprintf("Booking moved to %s at %s.", b.BookingDate.Format("2006-01-02"), utils.MinutesToClock(b.StartMinute)))

	return b, &decision, nil
}

// AutoCompleteSweep marks accepted bookings whose end passed more than a day
// ago as completed. Run by the background scheduler; idempotent because
// completed bookings no longer match the query.
func (s *BookingService) AutoCompleteSweep() {
	due, err := s.store.DueForCompletion(s.now().Add(-24 * time.Hour))
	if err != nil {
		log.Printf("booking: auto-completion query failed: %v", err)
		return
	}
	for _, b := range due {
		if _, err := s.Complete(b.ID, uuid.Nil, true); err != nil {
			log.Printf("booking: auto-completion of %s failed: %v", b.ID, err)
		}
	}
	if len(due) > 0 {
		log.Printf("booking: auto-completed %d past bookings", len(due))
	}
}

// cancelWithPenalty persists the cancellation and payment outcome in one
// transaction, then issues the gateway refund for the non-penalty remainder.
// Penalties settled earlier (reschedules) stay in PenaltyAmount and reduce
// the refund but are not credited a second time.
func (s *BookingService) cancelWithPenalty(b *models.Booking, reason string, penalty float64) error {
	p, err := s.store.GetPaymentByBooking(b.ID)
	if err != nil {
		return err
	}

	now := s.now()
	b.Status = models.BookingCancelled
	b.CancellationReason = reason
	b.CancelledAt = &now

	totalPenalty := round2(p.PenaltyAmount + penalty)
	refundAmount := round2(p.Amount - totalPenalty)
	if refundAmount < 0 {
		refundAmount = 0
	}
	p.PenaltyAmount = totalPenalty
	p.RefundedAmount = refundAmount
	switch {
	case totalPenalty <= 0:
		p.Status = models.PaymentRefunded
	case refundAmount > 0:
		p.Status = models.PaymentPartiallyRefunded
	default:
		p.Status = models.PaymentReleased // full penalty, nothing to refund
	}

	// The retained penalty compensates the provider immediately; there is no
	// service left to hold it in escrow for.
	if err := s.store.CancelBookingAtomic(b, p, penalty); err != nil {
		return err
	}

	if refundAmount > 0 {
		s.refund(p, refundAmount)
	}
	return nil
}

// refund issues the gateway refund after commit and records the reference.
// Failures are logged only; the payment row keeps its refund amounts so
// support can reconcile.
func (s *BookingService) refund(p *models.Payment, amount float64) {
	if p.TransactionID == "" || amount <= 0 {
		return
	}
	refundID, err := s.gateway.Refund(p.TransactionID, amount)
	if err != nil {
		log.Printf("booking: refund of payment %s failed: %v", p.ID, err)
		return
	}
	p.RefundID = refundID
	if err := s.store.SavePayment(p); err != nil {
		log.Printf("booking: failed to record refund id for payment %s: %v", p.ID, err)
	}
}

func (s *BookingService) notify(event string, recipientID uuid.UUID, b *models.Booking, message string) {
	if s.notifier == nil {
		return
	}
	id := b.ID
	s.notifier.Notify(event, recipientID, &id, message)
}
