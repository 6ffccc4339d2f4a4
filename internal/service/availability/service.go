package availability

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/harunoki/clinic-api/internal/model"
	"github.com/harunoki/clinic-api/internal/repository"
	"github.com/harunoki/clinic-api/internal/schedule"
	apperrors "github.com/harunoki/clinic-api/pkg/errors"
)

// Indicator classifies a calendar day for the booking calendar.
type Indicator string

const (
	IndicatorOpen    Indicator = "OPEN"    // seats free, at least one untouched slot
	IndicatorLimited Indicator = "LIMITED" // seats free but every free slot partly booked
	IndicatorFull    Indicator = "FULL"    // slots exist, no seats left
	IndicatorClosed  Indicator = "CLOSED"  // no slots generated (holiday / unset)
)

// DayAvailability is the derived per-date aggregate. It is always
// recomputed from slot and reservation state, never persisted.
type DayAvailability struct {
	RemainingCount int       `json:"remaining_count"`
	Indicator      Indicator `json:"indicator"`
}

// Cached aggregations go stale as bookings land, so the TTL is short:
// the calendar tolerates half a minute of lag, the booking path itself
// never reads through this cache.
const cacheTTL = 30 * time.Second

// Service computes per-day remaining-capacity indicators for the
// booking calendar.
type Service struct {
	slotRepo repository.TimeSlotRepository
	locale   *schedule.Locale
	cache    *gocache.Cache
}

func NewService(slotRepo repository.TimeSlotRepository, locale *schedule.Locale) *Service {
	return &Service{
		slotRepo: slotRepo,
		locale:   locale,
		cache:    gocache.New(cacheTTL, 5*time.Minute),
	}
}

// Month returns an entry for every local calendar day of the month
// containing date, keyed "2006-01-02". Days without generated slots
// are CLOSED.
func (s *Service) Month(ctx context.Context, date string, isFirstVisit bool) (map[string]DayAvailability, error) {
	window, days, err := s.locale.MonthWindow(date)
	if err != nil {
		return nil, apperrors.Validation("invalid date", err)
	}

	cacheKey := fmt.Sprintf("%s:%t", days[0], isFirstVisit)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(map[string]DayAvailability), nil
	}

	duration := model.DurationFollowUp
	if isFirstVisit {
		duration = model.DurationFirstVisit
	}

	slots, err := s.slotRepo.ListBookable(ctx, window.Start, window.End, duration, isFirstVisit)
	if err != nil {
		return nil, fmt.Errorf("failed to load month slots: %w", err)
	}

	result := make(map[string]DayAvailability, len(days))
	for _, day := range days {
		result[day] = DayAvailability{Indicator: IndicatorClosed}
	}

	for _, slot := range slots {
		key := s.locale.DateKey(slot.StartTime)
		day, ok := result[key]
		if !ok {
			// Slot outside the enumerated month; window and key share
			// the locale, so this cannot happen.
			continue
		}

		confirmed := slot.ConfirmedCount()
		remaining := slot.MaxPatients - confirmed
		if remaining > 0 {
			day.RemainingCount += remaining
			day.Indicator = combine(day.Indicator, slotIndicator(remaining, confirmed))
		} else if day.Indicator == IndicatorClosed {
			day.Indicator = IndicatorFull
		}
		result[key] = day
	}

	s.cache.Set(cacheKey, result, cacheTTL)
	return result, nil
}

// A partly booked slot only reads as LIMITED when it is actually
// getting tight; with more than two seats left it still shows OPEN.
func slotIndicator(remaining, confirmed int) Indicator {
	if confirmed == 0 || remaining > 2 {
		return IndicatorOpen
	}
	return IndicatorLimited
}

// combine folds a slot's contribution into the day indicator with
// priority OPEN > LIMITED > FULL.
func combine(current, next Indicator) Indicator {
	if current == IndicatorOpen || next == IndicatorOpen {
		return IndicatorOpen
	}
	if current == IndicatorLimited || next == IndicatorLimited {
		return IndicatorLimited
	}
	return next
}
