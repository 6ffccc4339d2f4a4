package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harunoki/clinic-api/internal/model"
	"github.com/harunoki/clinic-api/internal/repository"
	"github.com/harunoki/clinic-api/internal/schedule"
	apperrors "github.com/harunoki/clinic-api/pkg/errors"
)

type fakeReservationRepo struct {
	createErr    error
	checkInErr   error
	reservations map[uuid.UUID]*model.Reservation
	details      map[uuid.UUID]*model.ReservationDetail
	byPatient    []*model.ReservationDetail
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{
		reservations: make(map[uuid.UUID]*model.Reservation),
		details:      make(map[uuid.UUID]*model.ReservationDetail),
	}
}

func (f *fakeReservationRepo) Create(_ context.Context, res *model.Reservation) error {
	if f.createErr != nil {
		return f.createErr
	}
	res.ID = uuid.New()
	res.Status = model.ReservationStatusConfirmed
	res.VisitStatus = model.VisitStatusWaiting
	f.reservations[res.ID] = res
	f.details[res.ID] = &model.ReservationDetail{
		Reservation:   *res,
		SlotStartTime: time.Now().Add(48 * time.Hour),
	}
	return nil
}

func (f *fakeReservationRepo) Get(_ context.Context, id uuid.UUID) (*model.Reservation, error) {
	res, ok := f.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return res, nil
}

func (f *fakeReservationRepo) GetDetail(_ context.Context, id uuid.UUID) (*model.ReservationDetail, error) {
	detail, ok := f.details[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return detail, nil
}

func (f *fakeReservationRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.ReservationStatus) error {
	res, ok := f.reservations[id]
	if !ok {
		return repository.ErrNotFound
	}
	res.Status = status
	return nil
}

func (f *fakeReservationRepo) UpdateVisitStatus(_ context.Context, id uuid.UUID, visitStatus model.VisitStatus) error {
	res, ok := f.reservations[id]
	if !ok {
		return repository.ErrNotFound
	}
	res.VisitStatus = visitStatus
	return nil
}

func (f *fakeReservationRepo) CheckIn(_ context.Context, id uuid.UUID) (*model.Reservation, error) {
	if f.checkInErr != nil {
		return nil, f.checkInErr
	}
	res, ok := f.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if res.VisitStatus != model.VisitStatusWaiting {
		return nil, repository.ErrNotWaiting
	}
	res.VisitStatus = model.VisitStatusCheckedIn
	return res, nil
}

func (f *fakeReservationRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.reservations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.reservations, id)
	return nil
}

func (f *fakeReservationRepo) ListByPatient(_ context.Context, _ uuid.UUID, _ model.ReservationStatus) ([]*model.ReservationDetail, error) {
	return f.byPatient, nil
}

type fakeSlotLister struct {
	repository.TimeSlotRepository
	slots []*model.SlotWithReservations
}

func (f *fakeSlotLister) ListBookable(_ context.Context, _, _ time.Time, duration int, isFirstVisit bool) ([]*model.SlotWithReservations, error) {
	var out []*model.SlotWithReservations
	for _, slot := range f.slots {
		if slot.Duration == duration && slot.IsFirstVisit == isFirstVisit {
			out = append(out, slot)
		}
	}
	return out, nil
}

type fakePatientGetter struct {
	repository.PatientRepository
	patient *model.Patient
}

func (f *fakePatientGetter) Get(_ context.Context, _ uuid.UUID) (*model.Patient, error) {
	if f.patient == nil {
		return nil, repository.ErrNotFound
	}
	return f.patient, nil
}

type recordingNotifier struct {
	bookings      int
	cancellations int
}

func (r *recordingNotifier) NotifyBooking(_ context.Context, _ *model.Patient, _ *model.ReservationDetail) {
	r.bookings++
}

func (r *recordingNotifier) NotifyCancellation(_ context.Context, _ *model.Patient, _ *model.ReservationDetail) {
	r.cancellations++
}

type harness struct {
	svc      *Service
	repo     *fakeReservationRepo
	slots    *fakeSlotLister
	notifier *recordingNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	locale, err := schedule.NewLocale("Asia/Tokyo")
	require.NoError(t, err)

	repo := newFakeReservationRepo()
	slots := &fakeSlotLister{}
	notifier := &recordingNotifier{}
	patients := &fakePatientGetter{patient: &model.Patient{LastName: "Sato", FirstName: "Aiko"}}

	return &harness{
		svc:      NewService(repo, slots, patients, notifier, locale),
		repo:     repo,
		slots:    slots,
		notifier: notifier,
	}
}

func TestListAvailableProjectsOccupancy(t *testing.T) {
	h := newHarness(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.slots.slots = []*model.SlotWithReservations{
		{
			TimeSlot: model.TimeSlot{
				Base:        model.Base{ID: uuid.New()},
				StartTime:   start,
				EndTime:     start.Add(15 * time.Minute),
				Duration:    model.DurationFollowUp,
				IsAvailable: true,
				MaxPatients: 2,
			},
			Reservations: []*model.ReservationWithPatient{
				{Reservation: model.Reservation{Status: model.ReservationStatusConfirmed}},
				{Reservation: model.Reservation{Status: model.ReservationStatusCancelled}},
			},
		},
	}

	available, err := h.svc.ListAvailable(context.Background(), "2024-01-01", false)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, 1, available[0].CurrentPatients)
	assert.True(t, available[0].IsAvailable, "one of two seats is still free")
}

func TestListAvailableFullSlotReported(t *testing.T) {
	h := newHarness(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.slots.slots = []*model.SlotWithReservations{
		{
			TimeSlot: model.TimeSlot{
				Base:        model.Base{ID: uuid.New()},
				StartTime:   start,
				Duration:    model.DurationFollowUp,
				IsAvailable: true,
				MaxPatients: 2,
			},
			Reservations: []*model.ReservationWithPatient{
				{Reservation: model.Reservation{Status: model.ReservationStatusConfirmed}},
				{Reservation: model.Reservation{Status: model.ReservationStatusConfirmed}},
			},
		},
	}

	available, err := h.svc.ListAvailable(context.Background(), "2024-01-01", false)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.False(t, available[0].IsAvailable)
}

func TestCreateSetsInitialState(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.Create(context.Background(), uuid.New(), &model.CreateReservationRequest{
		TimeSlotID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusConfirmed, res.Status)
	assert.Equal(t, model.VisitStatusWaiting, res.VisitStatus)
}

func TestCreateTranslatesStoreErrors(t *testing.T) {
	tests := []struct {
		name         string
		storeErr     error
		isFirstVisit bool
		wantCode     apperrors.ErrorCode
		wantContains string
	}{
		{"slot missing", repository.ErrNotFound, false, apperrors.ErrNotFound, "not found"},
		{"slot closed", repository.ErrSlotClosed, false, apperrors.ErrValidation, "closed"},
		{"slot full", repository.ErrSlotFull, false, apperrors.ErrValidation, "fully booked"},
		{"first visit on follow-up slot", repository.ErrVisitTypeMismatch, true, apperrors.ErrValidation, "30-minute"},
		{"follow-up on first-visit slot", repository.ErrVisitTypeMismatch, false, apperrors.ErrValidation, "15-minute"},
		{"duplicate", repository.ErrDuplicateBooking, false, apperrors.ErrConflict, "already hold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.repo.createErr = tt.storeErr

			_, err := h.svc.Create(context.Background(), uuid.New(), &model.CreateReservationRequest{
				TimeSlotID:   uuid.New(),
				IsFirstVisit: tt.isFirstVisit,
			})
			appErr := apperrors.AsAppError(err)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Contains(t, appErr.Message, tt.wantContains)
			assert.Zero(t, h.notifier.bookings, "failed bookings must not notify")
		})
	}
}

func TestCreateQueuesNotification(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Create(context.Background(), uuid.New(), &model.CreateReservationRequest{
		TimeSlotID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, h.notifier.bookings)
}

func cancelFixture(h *harness, patientID uuid.UUID, slotStart time.Time) uuid.UUID {
	id := uuid.New()
	res := model.Reservation{
		Base:        model.Base{ID: id},
		PatientID:   patientID,
		Status:      model.ReservationStatusConfirmed,
		VisitStatus: model.VisitStatusWaiting,
	}
	h.repo.reservations[id] = &res
	h.repo.details[id] = &model.ReservationDetail{
		Reservation:   res,
		SlotStartTime: slotStart,
		SlotEndTime:   slotStart.Add(15 * time.Minute),
		SlotDuration:  model.DurationFollowUp,
	}
	return id
}

func TestCancelOutsideCutoff(t *testing.T) {
	h := newHarness(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.svc.WithClock(func() time.Time { return now })

	patientID := uuid.New()
	id := cancelFixture(h, patientID, now.Add(25*time.Hour))

	require.NoError(t, h.svc.Cancel(context.Background(), id, patientID))
	assert.Equal(t, model.ReservationStatusCancelled, h.repo.reservations[id].Status)
	assert.Equal(t, 1, h.notifier.cancellations)
}

func TestCancelInsideCutoffRejected(t *testing.T) {
	h := newHarness(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.svc.WithClock(func() time.Time { return now })

	patientID := uuid.New()
	id := cancelFixture(h, patientID, now.Add(23*time.Hour))

	err := h.svc.Cancel(context.Background(), id, patientID)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.ErrValidation, appErr.Code)
	assert.Equal(t, model.ReservationStatusConfirmed, h.repo.reservations[id].Status)
	assert.Zero(t, h.notifier.cancellations)
}

func TestCancelExactlyAtCutoffAllowed(t *testing.T) {
	h := newHarness(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.svc.WithClock(func() time.Time { return now })

	patientID := uuid.New()
	id := cancelFixture(h, patientID, now.Add(24*time.Hour))

	assert.NoError(t, h.svc.Cancel(context.Background(), id, patientID))
}

func TestCancelOwnerOnly(t *testing.T) {
	h := newHarness(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.svc.WithClock(func() time.Time { return now })

	id := cancelFixture(h, uuid.New(), now.Add(48*time.Hour))

	err := h.svc.Cancel(context.Background(), id, uuid.New())
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
}

func TestCancelUnknownReservation(t *testing.T) {
	h := newHarness(t)

	err := h.svc.Cancel(context.Background(), uuid.New(), uuid.New())
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestAdvanceCyclesVisitStatus(t *testing.T) {
	h := newHarness(t)
	id := cancelFixture(h, uuid.New(), time.Now().Add(time.Hour))

	res, err := h.svc.Advance(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusCheckedIn, res.VisitStatus)

	res, err = h.svc.Advance(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusCompleted, res.VisitStatus)

	res, err = h.svc.Advance(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusWaiting, res.VisitStatus)
}

func TestSetVisitStatusRejectsUnknownState(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.SetVisitStatus(context.Background(), uuid.New(), model.VisitStatus("ARRIVED"))
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.ErrValidation, appErr.Code)
}

func TestCheckInOnlyFromWaiting(t *testing.T) {
	h := newHarness(t)
	id := cancelFixture(h, uuid.New(), time.Now().Add(time.Hour))

	res, err := h.svc.CheckIn(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusCheckedIn, res.VisitStatus)

	// A second scan of the same code must not advance the visit.
	_, err = h.svc.CheckIn(context.Background(), id)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.ErrValidation, appErr.Code)
	assert.Equal(t, model.VisitStatusCheckedIn, h.repo.reservations[id].VisitStatus)
}

func TestForceDeleteUnknown(t *testing.T) {
	h := newHarness(t)

	err := h.svc.ForceDelete(context.Background(), uuid.New())
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}
