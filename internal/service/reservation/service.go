package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harunoki/clinic-api/internal/model"
	"github.com/harunoki/clinic-api/internal/repository"
	"github.com/harunoki/clinic-api/internal/schedule"
	"github.com/harunoki/clinic-api/internal/service/notification"
	apperrors "github.com/harunoki/clinic-api/pkg/errors"
)

// Patients may cancel up to this long before the slot starts.
const cancellationCutoff = 24 * time.Hour

// Service books and cancels reservations and advances their visit
// state. All capacity enforcement happens inside the store's
// transactions; the service translates outcomes and layers the
// time-based business rules on top.
type Service struct {
	repo        repository.ReservationRepository
	slotRepo    repository.TimeSlotRepository
	patientRepo repository.PatientRepository
	notifSvc    notification.Service
	locale      *schedule.Locale
	now         func() time.Time
}

func NewService(
	repo repository.ReservationRepository,
	slotRepo repository.TimeSlotRepository,
	patientRepo repository.PatientRepository,
	notifSvc notification.Service,
	locale *schedule.Locale,
) *Service {
	return &Service{
		repo:        repo,
		slotRepo:    slotRepo,
		patientRepo: patientRepo,
		notifSvc:    notifSvc,
		locale:      locale,
		now:         time.Now,
	}
}

// WithClock overrides the wall clock, for tests of the cancellation
// cutoff.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListAvailable returns the day's bookable slots for the given visit
// type, annotated with live occupancy.
func (s *Service) ListAvailable(ctx context.Context, date string, isFirstVisit bool) ([]*model.AvailableSlot, error) {
	window, err := s.locale.DayWindow(date)
	if err != nil {
		return nil, apperrors.Validation("invalid date", err)
	}

	duration := model.DurationFollowUp
	if isFirstVisit {
		duration = model.DurationFirstVisit
	}

	slots, err := s.slotRepo.ListBookable(ctx, window.Start, window.End, duration, isFirstVisit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookable slots: %w", err)
	}

	available := make([]*model.AvailableSlot, 0, len(slots))
	for _, slot := range slots {
		confirmed := slot.ConfirmedCount()
		available = append(available, &model.AvailableSlot{
			ID:              slot.ID,
			StartTime:       slot.StartTime,
			EndTime:         slot.EndTime,
			IsAvailable:     confirmed < slot.MaxPatients,
			MaxPatients:     slot.MaxPatients,
			CurrentPatients: confirmed,
			IsFirstVisit:    slot.IsFirstVisit,
			Duration:        slot.Duration,
		})
	}
	return available, nil
}

// Create books a slot for the patient. Capacity, visit-type matching
// and the duplicate guard are enforced under the slot's row lock; on
// success a best-effort confirmation notification is queued.
func (s *Service) Create(ctx context.Context, patientID uuid.UUID, req *model.CreateReservationRequest) (*model.Reservation, error) {
	res := &model.Reservation{
		TimeSlotID:   req.TimeSlotID,
		PatientID:    patientID,
		IsFirstVisit: req.IsFirstVisit,
	}

	if err := s.repo.Create(ctx, res); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound("time slot", err)
		case errors.Is(err, repository.ErrSlotClosed):
			return nil, apperrors.Validation("this time slot is closed for booking", err)
		case errors.Is(err, repository.ErrSlotFull):
			return nil, apperrors.Validation("this time slot is fully booked", err)
		case errors.Is(err, repository.ErrVisitTypeMismatch):
			if req.IsFirstVisit {
				return nil, apperrors.Validation("first visits require a 30-minute slot", err)
			}
			return nil, apperrors.Validation("follow-up visits require a 15-minute slot", err)
		case errors.Is(err, repository.ErrDuplicateBooking):
			return nil, apperrors.Conflict("you already hold a reservation on this time slot", err)
		default:
			return nil, fmt.Errorf("failed to create reservation: %w", err)
		}
	}

	s.notify(ctx, res.ID, patientID, true)
	return res, nil
}

// Cancel is the patient-initiated cancellation, allowed only for the
// reservation's owner and only outside the 24-hour cutoff.
func (s *Service) Cancel(ctx context.Context, id, requesterID uuid.UUID) error {
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("reservation", err)
		}
		return fmt.Errorf("failed to get reservation: %w", err)
	}

	if detail.PatientID != requesterID {
		return apperrors.Forbidden("you may only cancel your own reservations", nil)
	}

	if detail.SlotStartTime.Sub(s.now()) < cancellationCutoff {
		return apperrors.Validation("reservations cannot be cancelled within 24 hours of the visit", nil)
	}

	if err := s.repo.UpdateStatus(ctx, id, model.ReservationStatusCancelled); err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}

	s.notify(ctx, id, requesterID, false)
	return nil
}

// ForceDelete is the staff-side hard removal of a reservation row.
func (s *Service) ForceDelete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("reservation", err)
		}
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	return nil
}

// SetVisitStatus is the staff-side check-in state control. Any of the
// three states may be set directly, which is how the cyclic advance is
// driven from the schedule view.
func (s *Service) SetVisitStatus(ctx context.Context, id uuid.UUID, visitStatus model.VisitStatus) (*model.Reservation, error) {
	if !visitStatus.Valid() {
		return nil, apperrors.Validation("invalid visit status", nil)
	}

	if err := s.repo.UpdateVisitStatus(ctx, id, visitStatus); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("reservation", err)
		}
		return nil, fmt.Errorf("failed to update visit status: %w", err)
	}

	return s.repo.Get(ctx, id)
}

// Advance moves a reservation one step through the visit cycle
// WAITING -> CHECKED_IN -> COMPLETED -> WAITING.
func (s *Service) Advance(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("reservation", err)
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return s.SetVisitStatus(ctx, id, res.VisitStatus.Next())
}

// CheckIn is the QR-scan entry point: it only admits reservations
// currently WAITING.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	res, err := s.repo.CheckIn(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound("reservation", err)
		case errors.Is(err, repository.ErrNotWaiting):
			return nil, apperrors.Validation("reservation is not waiting for check-in", err)
		default:
			return nil, fmt.Errorf("failed to check in: %w", err)
		}
	}
	return res, nil
}

// ListForPatient returns the patient's confirmed upcoming bookings.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.ReservationDetail, error) {
	details, err := s.repo.ListByPatient(ctx, patientID, model.ReservationStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return details, nil
}

// notify queues the booking/cancellation message. Failures inside are
// already swallowed by the notification service; a failed detail or
// patient lookup just skips the message.
func (s *Service) notify(ctx context.Context, reservationID, patientID uuid.UUID, booked bool) {
	detail, err := s.repo.GetDetail(ctx, reservationID)
	if err != nil {
		return
	}
	patient, err := s.patientRepo.Get(ctx, patientID)
	if err != nil {
		return
	}
	if booked {
		s.notifSvc.NotifyBooking(ctx, patient, detail)
	} else {
		s.notifSvc.NotifyCancellation(ctx, patient, detail)
	}
}
