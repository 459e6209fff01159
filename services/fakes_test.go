package services

import (
	"fmt"
	"sync"
	"time"

	"bookhub-backend/models"

	"github.com/google/uuid"
)

// fakeStore is an in-memory stand-in for the gorm store. The mutex makes the
// atomic methods behave like the transactional originals under concurrency.
type fakeStore struct {
	mu sync.Mutex

	services map[uuid.UUID]*models.Service
	bookings map[uuid.UUID]*models.Booking
	payments map[uuid.UUID]*models.Payment
	policies map[string]*models.BookingPolicy
	series   map[uuid.UUID]*models.RecurringSeries

	windows []models.AvailabilityWindow
	slots   []models.TimeSlot

	balances      map[uuid.UUID]float64
	releasedSlots []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		services: make(map[uuid.UUID]*models.Service),
		bookings: make(map[uuid.UUID]*models.Booking),
		payments: make(map[uuid.UUID]*models.Payment),
		policies: make(map[string]*models.BookingPolicy),
		series:   make(map[uuid.UUID]*models.RecurringSeries),
		balances: make(map[uuid.UUID]float64),
	}
}

func policyKey(serviceID uuid.UUID, policyType string) string {
	return serviceID.String() + "/" + policyType
}

func (f *fakeStore) addService(svc *models.Service) *models.Service {
	if svc.ID == uuid.Nil {
		svc.ID = uuid.New()
	}
	f.services[svc.ID] = svc
	return svc
}

func (f *fakeStore) addPolicy(p *models.BookingPolicy) {
	p.Active = true
	f.policies[policyKey(p.ServiceID, p.Type)] = p
}

func (f *fakeStore) GetService(id uuid.UUID) (*models.Service, error) {
	svc, ok := f.services[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *svc
	return &cp, nil
}

func (f *fakeStore) GetBooking(id uuid.UUID) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) SaveBooking(b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *b
	f.bookings[b.ID] = &cp
	return nil
}

func (f *fakeStore) BookingsForUser(userID uuid.UUID, asProvider bool, status string) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		party := b.CustomerID
		if asProvider {
			party = b.ProviderID
		}
		if party != userID {
			continue
		}
		if status != "" && b.Status != status {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeStore) DueForCompletion(before time.Time) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if b.Status == models.BookingAccepted && b.EndAt().Before(before) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) CountOverlapping(providerID uuid.UUID, date time.Time, startMinute, endMinute int, excludeBookingID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countOverlapping(providerID, date, startMinute, endMinute, excludeBookingID), nil
}

func (f *fakeStore) countOverlapping(providerID uuid.UUID, date time.Time, startMinute, endMinute int, excludeBookingID uuid.UUID) int64 {
	var n int64
	for _, b := range f.bookings {
		if b.ID == excludeBookingID || b.ProviderID != providerID || !b.BookingDate.Equal(date) {
			continue
		}
		switch b.Status {
		case models.BookingPending, models.BookingAccepted, models.BookingInProgress:
		default:
			continue
		}
		if Overlaps(b.StartMinute, b.EndMinute, startMinute, endMinute) {
			n++
		}
	}
	return n
}

func (f *fakeStore) CreateBookingAtomic(b *models.Booking, p *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countOverlapping(b.ProviderID, b.BookingDate, b.StartMinute, b.EndMinute, uuid.Nil) > 0 {
		return NewConflict("requested time overlaps an existing booking")
	}
	bc, pc := *b, *p
	f.bookings[b.ID] = &bc
	f.payments[p.ID] = &pc
	return nil
}

func (f *fakeStore) CancelBookingAtomic(b *models.Booking, p *models.Payment, creditAmount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	bc, pc := *b, *p
	f.bookings[b.ID] = &bc
	f.payments[p.ID] = &pc
	f.releasedSlots = append(f.releasedSlots, b.ID)
	if creditAmount > 0 {
		f.balances[b.ProviderID] += creditAmount
	}
	return nil
}

func (f *fakeStore) SettlePenaltyAtomic(p *models.Payment, amount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.payments[p.ID] = &cp
	f.balances[p.ProviderID] += amount
	return nil
}

func (f *fakeStore) MoveBookingAtomic(b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countOverlapping(b.ProviderID, b.BookingDate, b.StartMinute, b.EndMinute, b.ID) > 0 {
		return NewConflict("requested time overlaps an existing booking")
	}
	cp := *b
	f.bookings[b.ID] = &cp
	return nil
}

func (f *fakeStore) ActiveWindows(providerID uuid.UUID) ([]models.AvailabilityWindow, error) {
	var out []models.AvailabilityWindow
	for _, w := range f.windows {
		if w.ProviderID == providerID && w.Active {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) ExistingSlots(providerID uuid.UUID, from, to time.Time) ([]models.TimeSlot, error) {
	var out []models.TimeSlot
	for _, s := range f.slots {
		if s.ProviderID != providerID || s.Date.Before(from) || s.Date.After(to) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) SaveSlots(slots []models.TimeSlot) error {
	f.slots = append(f.slots, slots...)
	return nil
}

func (f *fakeStore) ActivePolicy(serviceID uuid.UUID, policyType string) (*models.BookingPolicy, error) {
	p, ok := f.policies[policyKey(serviceID, policyType)]
	if !ok || !p.Active {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) GetPayment(id uuid.UUID) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) GetPaymentByBooking(bookingID uuid.UUID) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.BookingID == bookingID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) SavePayment(p *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.payments[p.ID] = &cp
	return nil
}

func (f *fakeStore) ReleaseFundsAtomic(p *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.payments[p.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.ReleasedAt != nil {
		return NewConflict("funds for payment %s were already released", p.ID)
	}
	now := time.Now()
	stored.ReleasedAt = &now
	stored.Status = models.PaymentReleased
	f.balances[stored.ProviderID] += stored.NetAmount
	p.ReleasedAt = stored.ReleasedAt
	p.Status = stored.Status
	return nil
}

func (f *fakeStore) DuePayments(now time.Time) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Payment
	for _, p := range f.payments {
		if p.Status != models.PaymentPaid || p.ReleasedAt != nil {
			continue
		}
		if p.EscrowReleaseDate == nil || now.Before(*p.EscrowReleaseDate) {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) GetSeries(id uuid.UUID) (*models.RecurringSeries, error) {
	s, ok := f.series[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) SaveSeries(s *models.RecurringSeries) error {
	cp := *s
	f.series[s.ID] = &cp
	return nil
}

func (f *fakeStore) SeriesBookings(seriesID uuid.UUID) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if b.SeriesID != nil && *b.SeriesID == seriesID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) OpenEndedSeries() ([]models.RecurringSeries, error) {
	var out []models.RecurringSeries
	for _, s := range f.series {
		if s.Status == models.SeriesActive && s.OpenEnded() {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeGateway struct {
	mu          sync.Mutex
	captures    int
	refunds     []float64
	failCapture bool
}

func (g *fakeGateway) Capture(orderRef string, amount float64) (string, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failCapture {
		return "", "", fmt.Errorf("card declined")
	}
	g.captures++
	return fmt.Sprintf("tx_%d", g.captures), "succeeded", nil
}

func (g *fakeGateway) Refund(transactionID string, amount float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = append(g.refunds, amount)
	return fmt.Sprintf("re_%d", len(g.refunds)), nil
}

type notified struct {
	event     string
	recipient uuid.UUID
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notified
}

func (n *fakeNotifier) Notify(event string, recipientID uuid.UUID, bookingID *uuid.UUID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notified{event: event, recipient: recipientID})
}

func (n *fakeNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.event)
	}
	return out
}

// testEnv wires the full service graph on top of the fake store.
type testEnv struct {
	store    *fakeStore
	gateway  *fakeGateway
	notifier *fakeNotifier
	bookings *BookingService
	escrow   *EscrowService
	policies *PolicyEngine
	now      time.Time
}

func newTestEnv(now time.Time) *testEnv {
	store := newFakeStore()
	gateway := &fakeGateway{}
	notifier := &fakeNotifier{}

	policies := NewPolicyEngine(store)
	escrow := NewEscrowService(store, notifier)
	escrow.now = func() time.Time { return now }
	conflicts := NewConflictChecker(store)
	bookings := NewBookingService(store, conflicts, policies, escrow, gateway, notifier)
	bookings.now = func() time.Time { return now }

	return &testEnv{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		bookings: bookings,
		escrow:   escrow,
		policies: policies,
		now:      now,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
