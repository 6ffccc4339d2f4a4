package timeslot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/harunoki/clinic-api/internal/model"
	"github.com/harunoki/clinic-api/internal/repository"
	"github.com/harunoki/clinic-api/internal/schedule"
	apperrors "github.com/harunoki/clinic-api/pkg/errors"
)

// Service generates the clinic day's slots and applies structural
// edits (combine, split, flag toggles) to them.
type Service struct {
	repo   repository.TimeSlotRepository
	locale *schedule.Locale
	hours  schedule.WeekSchedule
}

func NewService(repo repository.TimeSlotRepository, locale *schedule.Locale, hours schedule.WeekSchedule) *Service {
	return &Service{
		repo:   repo,
		locale: locale,
		hours:  hours,
	}
}

// Generate creates the 15-minute slot sequence for a date. It is
// idempotent: if the date already has slots the call reports the
// existing count and writes nothing. A concurrent duplicate call is
// absorbed by the start_time uniqueness guard in the store.
func (s *Service) Generate(ctx context.Context, date string, isOpen bool) (*model.GenerateSlotsResult, error) {
	window, err := s.locale.DayWindow(date)
	if err != nil {
		return nil, apperrors.Validation("invalid date", err)
	}

	if !isOpen {
		return &model.GenerateSlotsResult{Message: "clinic closed, no slots created", Count: 0}, nil
	}

	existing, err := s.repo.CountInRange(ctx, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing slots: %w", err)
	}
	if existing > 0 {
		return &model.GenerateSlotsResult{Message: "slots already exist", Count: existing}, nil
	}

	slots, err := s.buildDay(date)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return &model.GenerateSlotsResult{Message: "clinic closed, no slots created", Count: 0}, nil
	}

	inserted, err := s.repo.BulkInsert(ctx, slots)
	if err != nil {
		return nil, fmt.Errorf("failed to store generated slots: %w", err)
	}
	if inserted < len(slots) {
		// Lost a generation race; the other writer's rows stand.
		log.Info().Str("date", date).Int("inserted", inserted).Msg("slot generation raced, partial insert ignored")
		count, err := s.repo.CountInRange(ctx, window.Start, window.End)
		if err != nil {
			return nil, fmt.Errorf("failed to recount slots: %w", err)
		}
		return &model.GenerateSlotsResult{Message: "slots already exist", Count: count}, nil
	}

	return &model.GenerateSlotsResult{Message: "slots created", Count: inserted}, nil
}

// buildDay produces the contiguous 15-minute follow-up slots between
// the weekday's open and close times, as UTC instants.
func (s *Service) buildDay(date string) ([]*model.TimeSlot, error) {
	weekday, err := s.locale.Weekday(date)
	if err != nil {
		return nil, apperrors.Validation("invalid date", err)
	}

	hours, open := s.hours.HoursFor(weekday)
	if !open {
		return nil, nil
	}

	start, err := s.locale.At(date, hours.Open)
	if err != nil {
		return nil, fmt.Errorf("invalid opening time: %w", err)
	}
	end, err := s.locale.At(date, hours.Close)
	if err != nil {
		return nil, fmt.Errorf("invalid closing time: %w", err)
	}

	step := time.Duration(model.DurationFollowUp) * time.Minute
	var slots []*model.TimeSlot
	for t := start; t.Before(end); t = t.Add(step) {
		slots = append(slots, &model.TimeSlot{
			StartTime:    t,
			EndTime:      t.Add(step),
			Duration:     model.DurationFollowUp,
			IsAvailable:  true,
			IsFirstVisit: false,
			MaxPatients:  model.MaxPatientsFor(model.DurationFollowUp, false),
		})
	}
	return slots, nil
}

// ListRange returns slots with their reservations for an inclusive
// local date range, for the staff schedule view.
func (s *Service) ListRange(ctx context.Context, startDate, endDate string) ([]*model.SlotWithReservations, error) {
	window, err := s.locale.RangeWindow(startDate, endDate)
	if err != nil {
		return nil, apperrors.Validation("invalid date range", err)
	}

	slots, err := s.repo.ListRange(ctx, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

// Update applies the staff flag toggles to a slot.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateTimeSlotRequest) (*model.TimeSlot, error) {
	if req.IsAvailable == nil && req.IsFirstVisit == nil {
		return nil, apperrors.Validation("no updates supplied", nil)
	}

	if req.IsAvailable != nil {
		if err := s.repo.SetAvailability(ctx, id, *req.IsAvailable); err != nil {
			return nil, translateSlotError(err, "cannot reopen a fully booked slot")
		}
	}

	if req.IsFirstVisit != nil {
		if err := s.repo.SetVisitType(ctx, id, *req.IsFirstVisit); err != nil {
			return nil, translateSlotError(err, "")
		}
	}

	slot, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, translateSlotError(err, "")
	}
	return slot, nil
}

// Combine merges a 15-minute slot with its successor and returns the
// full updated day.
func (s *Service) Combine(ctx context.Context, req *model.CombineSlotsRequest) ([]*model.SlotWithReservations, error) {
	maxPatients := 1
	if req.MaxPatients != nil {
		if *req.MaxPatients < 1 {
			return nil, apperrors.Validation("max_patients must be at least 1", nil)
		}
		maxPatients = *req.MaxPatients
	}

	slot, err := s.repo.Get(ctx, req.SlotID)
	if err != nil {
		return nil, translateSlotError(err, "")
	}

	if err := s.repo.Combine(ctx, req.SlotID, maxPatients); err != nil {
		return nil, translateSlotError(err, "")
	}

	return s.daySlots(ctx, slot.StartTime)
}

// Split divides a 30-minute slot back into two follow-up slots and
// returns the full updated day.
func (s *Service) Split(ctx context.Context, req *model.SplitSlotRequest) ([]*model.SlotWithReservations, error) {
	slot, err := s.repo.Get(ctx, req.SlotID)
	if err != nil {
		return nil, translateSlotError(err, "")
	}

	if err := s.repo.Split(ctx, req.SlotID); err != nil {
		return nil, translateSlotError(err, "")
	}

	return s.daySlots(ctx, slot.StartTime)
}

// DefaultSchedule exposes the configured weekday hours table.
func (s *Service) DefaultSchedule() map[string]schedule.Hours {
	out := make(map[string]schedule.Hours, len(s.hours))
	for day := time.Sunday; day <= time.Saturday; day++ {
		if h, ok := s.hours.HoursFor(day); ok {
			out[day.String()] = h
		}
	}
	return out
}

func (s *Service) daySlots(ctx context.Context, at time.Time) ([]*model.SlotWithReservations, error) {
	date := s.locale.DateKey(at)
	window, err := s.locale.DayWindow(date)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve day window: %w", err)
	}
	slots, err := s.repo.ListRange(ctx, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list day slots: %w", err)
	}
	return slots, nil
}

// translateSlotError maps store sentinels to API errors. fullMsg
// overrides the generic capacity message where the caller has a more
// specific one.
func translateSlotError(err error, fullMsg string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("time slot", err)
	case errors.Is(err, repository.ErrSlotFull):
		if fullMsg == "" {
			fullMsg = "time slot is fully booked"
		}
		return apperrors.Validation(fullMsg, err)
	case errors.Is(err, repository.ErrSlotHasReservations):
		return apperrors.Validation("time slot has reservations and cannot be modified", err)
	case errors.Is(err, repository.ErrNoAdjacentSlot):
		return apperrors.Validation("no adjacent 15-minute slot to combine with", err)
	case errors.Is(err, repository.ErrWrongDuration):
		return apperrors.Validation("operation not valid for this slot duration", err)
	default:
		return fmt.Errorf("time slot operation failed: %w", err)
	}
}
