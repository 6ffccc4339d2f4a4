package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/harunoki/clinic-api/internal/model"
)

// Sentinel errors for policy violations detected inside repository
// transactions. Services translate these into API-level errors; keeping
// them here lets the check run under the same row lock as the mutation.
var (
	ErrNotFound            = errors.New("not found")
	ErrSlotClosed          = errors.New("time slot is closed for booking")
	ErrSlotFull            = errors.New("time slot is fully booked")
	ErrSlotHasReservations = errors.New("time slot has reservations attached")
	ErrNoAdjacentSlot      = errors.New("no adjacent 15-minute slot to combine with")
	ErrWrongDuration       = errors.New("operation requires a different slot duration")
	ErrVisitTypeMismatch   = errors.New("visit type does not match slot duration")
	ErrDuplicateBooking    = errors.New("patient already holds a reservation on this slot")
	ErrNotWaiting          = errors.New("reservation is not waiting for check-in")
)

type (
	// TimeSlotRepository owns TimeSlot rows. Structural mutations
	// (combine, split, flag toggles) run as single transactions that
	// re-verify their preconditions under row locks.
	TimeSlotRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.TimeSlot, error)
		ListRange(ctx context.Context, start, end time.Time) ([]*model.SlotWithReservations, error)
		ListBookable(ctx context.Context, start, end time.Time, duration int, isFirstVisit bool) ([]*model.SlotWithReservations, error)
		CountInRange(ctx context.Context, start, end time.Time) (int, error)
		BulkInsert(ctx context.Context, slots []*model.TimeSlot) (int, error)
		SetAvailability(ctx context.Context, id uuid.UUID, isAvailable bool) error
		SetVisitType(ctx context.Context, id uuid.UUID, isFirstVisit bool) error
		Combine(ctx context.Context, id uuid.UUID, maxPatients int) error
		Split(ctx context.Context, id uuid.UUID) error
	}

	// ReservationRepository owns Reservation rows. Create enforces the
	// capacity and matching rules inside one transaction, locking the
	// owning slot row so concurrent bookings serialize.
	ReservationRepository interface {
		Create(ctx context.Context, res *model.Reservation) error
		Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
		GetDetail(ctx context.Context, id uuid.UUID) (*model.ReservationDetail, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.ReservationStatus) error
		UpdateVisitStatus(ctx context.Context, id uuid.UUID, visitStatus model.VisitStatus) error
		CheckIn(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
		Delete(ctx context.Context, id uuid.UUID) error
		ListByPatient(ctx context.Context, patientID uuid.UUID, status model.ReservationStatus) ([]*model.ReservationDetail, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByProviderUserID(ctx context.Context, providerUserID string) (*model.Patient, error)
		GetByCardNumber(ctx context.Context, cardNumber string) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		List(ctx context.Context) ([]*model.Patient, error)
		AddMedicalRecord(ctx context.Context, record *model.MedicalRecord) error
		ListMedicalRecords(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalRecord, error)
		UpsertSummary(ctx context.Context, summary *model.MedicalSummary) error
		GetSummary(ctx context.Context, patientID uuid.UUID) (*model.MedicalSummary, error)
	}

	// NotificationRepository is the outbox for outbound messages.
	NotificationRepository interface {
		Create(ctx context.Context, n *model.Notification) error
		ListPending(ctx context.Context, limit int) ([]*model.Notification, error)
		MarkSent(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID) error
	}
)
