package services

import (
	"testing"
	"time"

	"bookhub-backend/models"

	"github.com/google/uuid"
)

func newRecurringEnv(now time.Time) (*testEnv, *RecurringService) {
	env := newTestEnv(now)
	r := NewRecurringService(env.store, env.bookings)
	r.now = func() time.Time { return now }
	return env, r
}

func intPtr(n int) *int { return &n }

func TestOccurrenceDatesWeekly(t *testing.T) {
	// Starts Monday 2026-09-07, Tuesdays only, four occurrences.
	s := &models.RecurringSeries{
		Frequency:   models.FrequencyWeekly,
		Interval:    1,
		StartDate:   date(2026, time.September, 7),
		Occurrences: intPtr(4),
		DaysOfWeek:  models.IntList{2},
	}

	got := occurrenceDates(s, s.StartDate.AddDate(1, 0, 0))

	want := []time.Time{
		date(2026, time.September, 8),
		date(2026, time.September, 15),
		date(2026, time.September, 22),
		date(2026, time.September, 29),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d dates, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestOccurrenceDatesBiweekly(t *testing.T) {
	// Starts Sunday 2026-09-06, Sundays, every other week.
	s := &models.RecurringSeries{
		Frequency:   models.FrequencyBiweekly,
		Interval:    1,
		StartDate:   date(2026, time.September, 6),
		Occurrences: intPtr(3),
		DaysOfWeek:  models.IntList{0},
	}

	got := occurrenceDates(s, s.StartDate.AddDate(1, 0, 0))

	want := []time.Time{
		date(2026, time.September, 6),
		date(2026, time.September, 20),
		date(2026, time.October, 4),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d dates, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestOccurrenceDatesDailyInterval(t *testing.T) {
	s := &models.RecurringSeries{
		Frequency: models.FrequencyDaily,
		Interval:  2,
		StartDate: date(2026, time.September, 1),
	}

	got := occurrenceDates(s, date(2026, time.September, 7))

	want := []time.Time{
		date(2026, time.September, 1),
		date(2026, time.September, 3),
		date(2026, time.September, 5),
		date(2026, time.September, 7),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d dates, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestOccurrenceDatesMonthlyClamps(t *testing.T) {
	// The 31st in a 28-day month lands on the 28th, not in March.
	s := &models.RecurringSeries{
		Frequency:   models.FrequencyMonthly,
		Interval:    1,
		StartDate:   date(2026, time.January, 31),
		Occurrences: intPtr(4),
	}

	got := occurrenceDates(s, s.StartDate.AddDate(1, 0, 0))

	want := []time.Time{
		date(2026, time.January, 31),
		date(2026, time.February, 28),
		date(2026, time.March, 31),
		date(2026, time.April, 30),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d dates, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCreateSeriesMaterializes(t *testing.T) {
	env, r := newRecurringEnv(testNow)
	svc := seedService(env)
	customerID := uuid.New()

	series, created, skipped, err := r.CreateSeries(CreateSeriesInput{
		ServiceID:   svc.ID,
		CustomerID:  customerID,
		Frequency:   models.FrequencyWeekly,
		Interval:    1,
		StartDate:   date(2026, time.September, 7),
		Occurrences: intPtr(4),
		DaysOfWeek:  []int{2},
		StartMinute: 600,
	})
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	if len(created) != 4 {
		t.Fatalf("created %d bookings, want 4 (skipped: %v)", len(created), skipped)
	}
	for _, b := range created {
		if b.SeriesID == nil || *b.SeriesID != series.ID {
			t.Error("materialized booking not linked to its series")
		}
		if b.StartMinute != 600 || b.Duration != svc.Duration {
			t.Errorf("booking at %d for %d minutes, want 600 for %d", b.StartMinute, b.Duration, svc.Duration)
		}
	}
	if series.LastMaterialized == nil {
		t.Error("LastMaterialized not advanced")
	}
}

func TestCreateSeriesSkipsConflicts(t *testing.T) {
	env, r := newRecurringEnv(testNow)
	svc := seedService(env)

	// An existing booking occupies the second Tuesday.
	mustCreate(t, env, svc, uuid.New(), date(2026, time.September, 15), 600)

	_, created, skipped, err := r.CreateSeries(CreateSeriesInput{
		ServiceID:   svc.ID,
		CustomerID:  uuid.New(),
		Frequency:   models.FrequencyWeekly,
		Interval:    1,
		StartDate:   date(2026, time.September, 7),
		Occurrences: intPtr(4),
		DaysOfWeek:  []int{2},
		StartMinute: 600,
	})
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	if len(created) != 3 {
		t.Errorf("created %d bookings, want 3", len(created))
	}
	if len(skipped) != 1 {
		t.Fatalf("skipped %d occurrences, want 1", len(skipped))
	}
	if !skipped[0].Date.Equal(date(2026, time.September, 15)) {
		t.Errorf("skipped %v, want the occupied Tuesday", skipped[0].Date)
	}
}

func TestCreateSeriesValidation(t *testing.T) {
	_, r := newRecurringEnv(testNow)

	cases := []struct {
		name  string
		input CreateSeriesInput
	}{
		{
			"unknown frequency",
			CreateSeriesInput{Frequency: "hourly", StartDate: date(2026, time.September, 7), StartMinute: 600},
		},
		{
			"both end conditions",
			CreateSeriesInput{
				Frequency: models.FrequencyDaily, StartDate: date(2026, time.September, 7),
				EndDate: func() *time.Time { d := date(2026, time.October, 1); return &d }(), Occurrences: intPtr(5), StartMinute: 600,
			},
		},
		{
			"occurrences over cap",
			CreateSeriesInput{Frequency: models.FrequencyDaily, StartDate: date(2026, time.September, 7), Occurrences: intPtr(53), StartMinute: 600},
		},
		{
			"bad day of week",
			CreateSeriesInput{Frequency: models.FrequencyWeekly, StartDate: date(2026, time.September, 7), DaysOfWeek: []int{7}, StartMinute: 600},
		},
		{
			"start minute out of day",
			CreateSeriesInput{Frequency: models.FrequencyDaily, StartDate: date(2026, time.September, 7), StartMinute: 1500},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, _, _, err := r.CreateSeries(c.input); IsInputError(err) == nil {
				t.Errorf("expected input error, got %v", err)
			}
		})
	}
}

func TestWeeklyDefaultsToStartWeekday(t *testing.T) {
	env, r := newRecurringEnv(testNow)
	svc := seedService(env)

	// Monday start with no explicit days: Mondays it is.
	_, created, _, err := r.CreateSeries(CreateSeriesInput{
		ServiceID:   svc.ID,
		CustomerID:  uuid.New(),
		Frequency:   models.FrequencyWeekly,
		StartDate:   date(2026, time.September, 7),
		Occurrences: intPtr(2),
		StartMinute: 600,
	})
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created %d bookings, want 2", len(created))
	}
	for _, b := range created {
		if b.BookingDate.Weekday() != time.Monday {
			t.Errorf("occurrence on %v, want a Monday", b.BookingDate.Weekday())
		}
	}
}

func TestPauseResume(t *testing.T) {
	env, r := newRecurringEnv(testNow)
	svc := seedService(env)
	customerID := uuid.New()

	series, created, _, err := r.CreateSeries(CreateSeriesInput{
		ServiceID:   svc.ID,
		CustomerID:  customerID,
		Frequency:   models.FrequencyWeekly,
		StartDate:   date(2026, time.September, 7),
		Occurrences: intPtr(4),
		DaysOfWeek:  []int{1},
		StartMinute: 600,
	})
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	if len(created) != 4 {
		t.Fatalf("created %d, want 4", len(created))
	}

	if _, err := r.Pause(series.ID, uuid.New()); err != ErrNotAuthorized {
		t.Fatalf("foreign pause: got %v, want ErrNotAuthorized", err)
	}

	paused, err := r.Pause(series.ID, customerID)
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if paused.Status != models.SeriesPaused {
		t.Errorf("status = %s, want paused", paused.Status)
	}
	if _, err := r.Pause(series.ID, customerID); IsConflictError(err) == nil {
		t.Errorf("double pause: got %v, want conflict", err)
	}

	// Resuming does not duplicate the occurrences that already exist.
	resumed, created2, _, err := r.Resume(series.ID, customerID, date(2026, time.September, 7))
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Status != models.SeriesActive {
		t.Errorf("status = %s, want active", resumed.Status)
	}
	if len(created2) != 0 {
		t.Errorf("resume duplicated %d occurrences", len(created2))
	}
}

func TestResumeFromDateSkipsEarlier(t *testing.T) {
	env, r := newRecurringEnv(testNow)
	svc := seedService(env)
	customerID := uuid.New()

	series, created, _, err := r.CreateSeries(CreateSeriesInput{
		ServiceID:   svc.ID,
		CustomerID:  customerID,
		Frequency:   models.FrequencyWeekly,
		StartDate:   date(2026, time.September, 7),
		Occurrences: intPtr(4),
		DaysOfWeek:  []int{1},
		StartMinute: 600,
	})
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}

	if _, err := r.Pause(series.ID, customerID); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	// Cancel the existing occurrences so resume has room to regenerate.
	for _, b := range created {
		if _, err := env.bookings.Decline(b.ID, svc.ProviderID, ""); err != nil {
			t.Fatalf("Decline: %v", err)
		}
	}

	_, created2, _, err := r.Resume(series.ID, customerID, date(2026, time.September, 21))
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	for _, b := range created2 {
		if b.BookingDate.Before(date(2026, time.September, 21)) {
			t.Errorf("resume generated %v, before the requested restart date", b.BookingDate)
		}
	}
	if len(created2) != 2 {
		t.Errorf("created %d occurrences after restart date, want 2", len(created2))
	}
}

func TestCancelSeriesFutureOnly(t *testing.T) {
	env, r := newRecurringEnv(testNow)
	svc := seedService(env)
	customerID := uuid.New()

	series, created, _, err := r.CreateSeries(CreateSeriesInput{
		ServiceID:   svc.ID,
		CustomerID:  customerID,
		Frequency:   models.FrequencyWeekly,
		StartDate:   date(2026, time.September, 7),
		Occurrences: intPtr(3),
		DaysOfWeek:  []int{1},
		StartMinute: 600,
	})
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}

	// First occurrence already happened.
	first := created[0]
	env.bookings.now = func() time.Time { return date(2026, time.September, 7).Add(11 * time.Hour) }
	if _, err := env.bookings.Accept(first.ID, svc.ProviderID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := env.bookings.Complete(first.ID, svc.ProviderID, false); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	r.now = func() time.Time { return date(2026, time.September, 8) }
	cancelled, n, err := r.CancelSeries(series.ID, customerID, true)
	if err != nil {
		t.Fatalf("CancelSeries: %v", err)
	}
	if cancelled.Status != models.SeriesCancelled {
		t.Errorf("series status = %s, want cancelled", cancelled.Status)
	}
	if n != 2 {
		t.Errorf("cancelled %d occurrences, want the 2 future ones", n)
	}

	got, _ := env.store.GetBooking(first.ID)
	if got.Status != models.BookingCompleted {
		t.Errorf("completed occurrence was touched, now %s", got.Status)
	}
}

func TestExtendHorizons(t *testing.T) {
	env, r := newRecurringEnv(testNow)
	svc := seedService(env)

	series, created, _, err := r.CreateSeries(CreateSeriesInput{
		ServiceID:   svc.ID,
		CustomerID:  uuid.New(),
		Frequency:   models.FrequencyWeekly,
		StartDate:   date(2026, time.September, 7),
		DaysOfWeek:  []int{1},
		StartMinute: 600,
	})
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	initial := len(created)
	if initial == 0 {
		t.Fatal("open-ended series materialized nothing")
	}

	// A week later the horizon moves and one more Monday appears.
	later := testNow.AddDate(0, 0, 7)
	r.now = func() time.Time { return later }
	env.bookings.now = func() time.Time { return later }

	r.ExtendHorizons()

	bookings, _ := env.store.SeriesBookings(series.ID)
	if len(bookings) != initial+1 {
		t.Errorf("after extension %d occurrences, want %d", len(bookings), initial+1)
	}
}
