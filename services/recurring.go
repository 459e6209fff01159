package services

import (
	"log"
	"os"
	"strconv"
	"time"

	"bookhub-backend/models"
	"bookhub-backend/utils"

	"github.com/google/uuid"
)

const (
	defaultHorizonDays = 90
	maxOccurrences     = 52
)

type seriesStore interface {
	GetSeries(id uuid.UUID) (*models.RecurringSeries, error)
	SaveSeries(s *models.RecurringSeries) error
	SeriesBookings(seriesID uuid.UUID) ([]models.Booking, error)
	// OpenEndedSeries lists active series without an end condition, for the
	// rolling-horizon extension job.
	OpenEndedSeries() ([]models.RecurringSeries, error)
}

// SkippedOccurrence reports an occurrence that could not be materialized.
// The series is never aborted because of one bad date.
type SkippedOccurrence struct {
	Date   time.Time `json:"date"`
	Reason string    `json:"reason"`
}

type CreateSeriesInput struct {
	ServiceID   uuid.UUID
	CustomerID  uuid.UUID
	Frequency   string
	Interval    int
	StartDate   time.Time
	EndDate     *time.Time
	Occurrences *int
	DaysOfWeek  []int
	DayOfMonth  *int
	StartMinute int
}

// RecurringService expands recurrence rules into concrete bookings through
// the same conflict-checked creation pipeline as single bookings. Open-ended
// series are materialized on a rolling horizon extended by a daily job.
type RecurringService struct {
	store       seriesStore
	bookings    *BookingService
	horizonDays int
	now         func() time.Time
}

func NewRecurringService(store seriesStore, bookings *BookingService) *RecurringService {
	horizonDays := defaultHorizonDays
	if env := os.Getenv("RECURRING_HORIZON_DAYS"); env != "" {
		if d, err := strconv.Atoi(env); err == nil && d > 0 {
			horizonDays = d
		}
	}

	return &RecurringService{
		store:       store,
		bookings:    bookings,
		horizonDays: horizonDays,
		now:         time.Now,
	}
}

func (r *RecurringService) Get(id uuid.UUID) (*models.RecurringSeries, error) {
	return r.store.GetSeries(id)
}

func (r *RecurringService) Bookings(seriesID uuid.UUID) ([]models.Booking, error) {
	return r.store.SeriesBookings(seriesID)
}

// CreateSeries validates the rule, materializes the initial occurrences and
// returns both the created bookings and the dates that had to be skipped.
func (r *RecurringService) CreateSeries(input CreateSeriesInput) (*models.RecurringSeries, []models.Booking, []SkippedOccurrence, error) {
	if err := validateSeriesInput(&input); err != nil {
		return nil, nil, nil, err
	}

	svc, err := r.bookings.Service(input.ServiceID)
	if err != nil {
		return nil, nil, nil, err
	}

	series := &models.RecurringSeries{
		ID:          uuid.New(),
		ServiceID:   svc.ID,
		CustomerID:  input.CustomerID,
		ProviderID:  svc.ProviderID,
		Frequency:   input.Frequency,
		Interval:    input.Interval,
		StartDate:   utils.BeginningOfDay(input.StartDate.UTC()),
		EndDate:     input.EndDate,
		Occurrences: input.Occurrences,
		DaysOfWeek:  input.DaysOfWeek,
		DayOfMonth:  input.DayOfMonth,
		StartMinute: input.StartMinute,
		Duration:    svc.Duration,
		Status:      models.SeriesActive,
	}

	until := r.materializationEnd(series)
	dates := occurrenceDates(series, until)

	if err := r.store.SaveSeries(series); err != nil {
		return nil, nil, nil, err
	}

	created, skipped := r.materialize(series, dates)

	series.LastMaterialized = &until
	if err := r.store.SaveSeries(series); err != nil {
		return nil, nil, nil, err
	}

	return series, created, skipped, nil
}

// Pause stops future materialization. Already-materialized occurrences are
// left untouched.
func (r *RecurringService) Pause(seriesID, actorID uuid.UUID) (*models.RecurringSeries, error) {
	series, err := r.ownedSeries(seriesID, actorID)
	if err != nil {
		return nil, err
	}
	if series.Status != models.SeriesActive {
		return nil, NewConflict("series is %s, cannot pause", series.Status)
	}

	series.Status = models.SeriesPaused
	if err := r.store.SaveSeries(series); err != nil {
		return nil, err
	}
	return series, nil
}

// Resume restarts generation from the given date forward. No occurrence is
// generated strictly before fromDate, and dates that already carry a live
// booking are not duplicated.
func (r *RecurringService) Resume(seriesID, actorID uuid.UUID, fromDate time.Time) (*models.RecurringSeries, []models.Booking, []SkippedOccurrence, error) {
	series, err := r.ownedSeries(seriesID, actorID)
	if err != nil {
		return nil, nil, nil, err
	}
	if series.Status != models.SeriesPaused {
		return nil, nil, nil, NewConflict("series is %s, cannot resume", series.Status)
	}

	fromDate = utils.BeginningOfDay(fromDate.UTC())
	today := utils.BeginningOfDay(r.now().UTC())
	if fromDate.Before(today) {
		fromDate = today
	}

	existing, err := r.store.SeriesBookings(series.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	taken := make(map[int64]struct{}, len(existing))
	for _, b := range existing {
		if b.Status == models.BookingCancelled || b.Status == models.BookingDeclined {
			continue
		}
		taken[b.BookingDate.Unix()] = struct{}{}
	}

	until := r.materializationEnd(series)
	var dates []time.Time
	for _, d := range occurrenceDates(series, until) {
		if d.Before(fromDate) {
			continue
		}
		if _, ok := taken[d.Unix()]; ok {
			continue
		}
		dates = append(dates, d)
	}

	series.Status = models.SeriesActive
	created, skipped := r.materialize(series, dates)

	series.LastMaterialized = &until
	if err := r.store.SaveSeries(series); err != nil {
		return nil, nil, nil, err
	}

	return series, created, skipped, nil
}

// CancelSeries cancels the series and its occurrences. With cancelFutureOnly
// the history is preserved and only future, non-completed occurrences are
// cancelled; without it every non-terminal occurrence goes, which is the
// destructive variant callers must confirm explicitly.
func (r *RecurringService) CancelSeries(seriesID, actorID uuid.UUID, cancelFutureOnly bool) (*models.RecurringSeries, int, error) {
	series, err := r.ownedSeries(seriesID, actorID)
	if err != nil {
		return nil, 0, err
	}
	if series.Status == models.SeriesCancelled {
		return nil, 0, NewConflict("series is already cancelled")
	}

	occurrences, err := r.store.SeriesBookings(series.ID)
	if err != nil {
		return nil, 0, err
	}

	today := utils.BeginningOfDay(r.now().UTC())
	cancelled := 0
	for i := range occurrences {
		b := &occurrences[i]
		if b.Terminal() {
			continue
		}
		if cancelFutureOnly && b.BookingDate.Before(today) {
			continue
		}
		if err := r.bookings.cancelWithPenalty(b, "series_cancelled", 0); err != nil {
			log.Printf("recurring: failed to cancel occurrence %s of series %s: %v", b.ID, series.ID, err)
			continue
		}
		cancelled++
	}

	series.Status = models.SeriesCancelled
	if err := r.store.SaveSeries(series); err != nil {
		return nil, cancelled, err
	}

	return series, cancelled, nil
}

// ExtendHorizons is the daily job that keeps open-ended series materialized
// through the rolling horizon.
func (r *RecurringService) ExtendHorizons() {
	list, err := r.store.OpenEndedSeries()
	if err != nil {
		log.Printf("recurring: failed to list open-ended series: %v", err)
		return
	}

	for i := range list {
		series := &list[i]
		created, skipped := r.extend(series)
		if created > 0 || skipped > 0 {
			log.Printf("recurring: series %s extended, %d created, %d skipped", series.ID, created, skipped)
		}
	}
}

func (r *RecurringService) extend(series *models.RecurringSeries) (int, int) {
	until := utils.BeginningOfDay(r.now().UTC()).AddDate(0, 0, r.horizonDays)

	from := series.StartDate
	if series.LastMaterialized != nil {
		from = series.LastMaterialized.AddDate(0, 0, 1)
	}
	if from.After(until) {
		return 0, 0
	}

	var dates []time.Time
	for _, d := range occurrenceDates(series, until) {
		if !d.Before(from) {
			dates = append(dates, d)
		}
	}

	created, skipped := r.materialize(series, dates)

	series.LastMaterialized = &until
	if err := r.store.SaveSeries(series); err != nil {
		log.Printf("recurring: failed to advance horizon for series %s: %v", series.ID, err)
	}

	return len(created), len(skipped)
}

// materialize creates one booking per occurrence date. A conflicting
// occurrence is recorded as a gap, not an abort.
func (r *RecurringService) materialize(series *models.RecurringSeries, dates []time.Time) ([]models.Booking, []SkippedOccurrence) {
	var created []models.Booking
	var skipped []SkippedOccurrence

	for _, d := range dates {
		b, err := r.bookings.Create(CreateBookingInput{
			ServiceID:   series.ServiceID,
			CustomerID:  series.CustomerID,
			Date:        d,
			StartMinute: series.StartMinute,
			SeriesID:    &series.ID,
		})
		if err != nil {
			skipped = append(skipped, SkippedOccurrence{Date: d, Reason: err.Error()})
			continue
		}
		created = append(created, *b)
	}

	return created, skipped
}

// materializationEnd picks the last date worth generating now: the explicit
// end for bounded series, the rolling horizon for open-ended ones, and a
// wide bound for count-terminated series (the count caps the loop).
func (r *RecurringService) materializationEnd(series *models.RecurringSeries) time.Time {
	if series.EndDate != nil {
		return utils.BeginningOfDay(series.EndDate.UTC())
	}
	if series.Occurrences != nil {
		return series.StartDate.AddDate(10, 0, 0)
	}
	return utils.BeginningOfDay(r.now().UTC()).AddDate(0, 0, r.horizonDays)
}

func (r *RecurringService) ownedSeries(seriesID, actorID uuid.UUID) (*models.RecurringSeries, error) {
	series, err := r.store.GetSeries(seriesID)
	if err != nil {
		return nil, err
	}
	if series.CustomerID != actorID && series.ProviderID != actorID {
		return nil, ErrNotAuthorized
	}
	return series, nil
}

func validateSeriesInput(input *CreateSeriesInput) error {
	inputErr := newInputError()

	switch input.Frequency {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyBiweekly, models.FrequencyMonthly:
	default:
		inputErr.addError("frequency", "must be daily, weekly, biweekly or monthly")
	}
	if input.Interval < 1 {
		input.Interval = 1
	}
	if input.EndDate != nil && input.Occurrences != nil {
		inputErr.addError("endDate", "set either endDate or occurrences, not both")
	}
	if input.Occurrences != nil && (*input.Occurrences < 1 || *input.Occurrences > maxOccurrences) {
		inputErr.addError("occurrences", "must be between 1 and 52")
	}
	if input.EndDate != nil && input.EndDate.Before(input.StartDate) {
		inputErr.addError("endDate", "must not be before startDate")
	}
	for _, d := range input.DaysOfWeek {
		if d < 0 || d > 6 {
			inputErr.addError("daysOfWeek", "days must be between 0 (Sunday) and 6 (Saturday)")
			break
		}
	}
	if input.DayOfMonth != nil && (*input.DayOfMonth < 1 || *input.DayOfMonth > 31) {
		inputErr.addError("dayOfMonth", "must be between 1 and 31")
	}
	if input.StartMinute < 0 || input.StartMinute >= 24*60 {
		inputErr.addError("startTime", "must fall within the day")
	}

	if (input.Frequency == models.FrequencyWeekly || input.Frequency == models.FrequencyBiweekly) && len(input.DaysOfWeek) == 0 {
		// Default to the weekday of the start date.
		input.DaysOfWeek = []int{int(utils.BeginningOfDay(input.StartDate.UTC()).Weekday())}
	}

	if inputErr.fieldsCount() > 0 {
		return inputErr
	}
	return nil
}

// occurrenceDates generates the ordered occurrence dates of a series from its
// start date through until (inclusive), honoring the occurrence count when
// set. Pure calendar math, no I/O.
func occurrenceDates(s *models.RecurringSeries, until time.Time) []time.Time {
	interval := s.Interval
	if interval < 1 {
		interval = 1
	}

	limit := -1
	if s.Occurrences != nil {
		limit = *s.Occurrences
	}

	var out []time.Time
	done := func() bool { return limit >= 0 && len(out) >= limit }

	switch s.Frequency {
	case models.FrequencyDaily:
		for d := s.StartDate; !d.After(until) && !done(); d = d.AddDate(0, 0, interval) {
			out = append(out, d)
		}

	case models.FrequencyWeekly, models.FrequencyBiweekly:
		step := interval
		if s.Frequency == models.FrequencyBiweekly {
			step *= 2
		}
		weekStart := startOfWeek(s.StartDate)
		for d := s.StartDate; !d.After(until) && !done(); d = d.AddDate(0, 0, 1) {
			weeks := utils.DaysBetween(weekStart, d) / 7
			if weeks%step != 0 {
				continue
			}
			if !containsDay(s.DaysOfWeek, int(d.Weekday())) {
				continue
			}
			out = append(out, d)
		}

	case models.FrequencyMonthly:
		day := s.StartDate.Day()
		if s.DayOfMonth != nil {
			day = *s.DayOfMonth
		}
		for i := 0; !done(); i += interval {
			month := time.Date(s.StartDate.Year(), s.StartDate.Month()+time.Month(i), 1, 0, 0, 0, 0, time.UTC)
			// Clamp to the last day of shorter months.
			dom := day
			if last := utils.LastDayOfMonth(month.Year(), month.Month()); dom > last {
				dom = last
			}
			d := time.Date(month.Year(), month.Month(), dom, 0, 0, 0, 0, time.UTC)
			if d.Before(s.StartDate) {
				continue
			}
			if d.After(until) {
				break
			}
			out = append(out, d)
		}
	}

	return out
}

// startOfWeek returns the Sunday beginning the date's week.
func startOfWeek(d time.Time) time.Time {
	return d.AddDate(0, 0, -int(d.Weekday()))
}

func containsDay(days models.IntList, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
