package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harunoki/clinic-api/internal/model"
	"github.com/harunoki/clinic-api/internal/repository"
)

type timeSlotRepository struct {
	BaseRepository
}

func NewTimeSlotRepository(db *sqlx.DB) repository.TimeSlotRepository {
	return &timeSlotRepository{NewBaseRepository(db)}
}

const slotColumns = `id, start_time, end_time, duration, is_available, is_first_visit, max_patients, created_at, updated_at`

func (r *timeSlotRepository) Get(ctx context.Context, id uuid.UUID) (*model.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots WHERE id = $1`
	var slot model.TimeSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get time slot: %w", err)
	}
	return &slot, nil
}

func (r *timeSlotRepository) ListRange(ctx context.Context, start, end time.Time) ([]*model.SlotWithReservations, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM time_slots
		WHERE start_time >= $1 AND start_time < $2
		ORDER BY start_time ASC
	`
	var slots []*model.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to list time slots: %w", err)
	}
	return r.attachReservations(ctx, slots, false)
}

func (r *timeSlotRepository) ListBookable(ctx context.Context, start, end time.Time, duration int, isFirstVisit bool) ([]*model.SlotWithReservations, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM time_slots
		WHERE start_time >= $1 AND start_time < $2
		  AND is_available = true
		  AND duration = $3
		  AND is_first_visit = $4
		ORDER BY start_time ASC
	`
	var slots []*model.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, start, end, duration, isFirstVisit); err != nil {
		return nil, fmt.Errorf("failed to list bookable time slots: %w", err)
	}
	return r.attachReservations(ctx, slots, true)
}

// attachReservations loads reservations for the given slots in one
// query and groups them in memory. confirmedOnly narrows to CONFIRMED
// rows for the booking and availability views.
func (r *timeSlotRepository) attachReservations(ctx context.Context, slots []*model.TimeSlot, confirmedOnly bool) ([]*model.SlotWithReservations, error) {
	result := make([]*model.SlotWithReservations, 0, len(slots))
	byID := make(map[uuid.UUID]*model.SlotWithReservations, len(slots))
	ids := make([]uuid.UUID, 0, len(slots))
	for _, slot := range slots {
		s := &model.SlotWithReservations{TimeSlot: *slot, Reservations: []*model.ReservationWithPatient{}}
		result = append(result, s)
		byID[slot.ID] = s
		ids = append(ids, slot.ID)
	}
	if len(ids) == 0 {
		return result, nil
	}

	query := `
		SELECT r.id, r.time_slot_id, r.patient_id, r.is_first_visit, r.status,
		       r.visit_status, r.created_at, r.updated_at,
		       p.last_name AS patient_last_name, p.first_name AS patient_first_name
		FROM reservations r
		JOIN patients p ON p.id = r.patient_id
		WHERE r.time_slot_id IN (?)
	`
	args := []interface{}{ids}
	if confirmedOnly {
		query += ` AND r.status = ?`
		args = append(args, model.ReservationStatusConfirmed)
	}
	query += ` ORDER BY r.created_at ASC`

	query, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build reservation query: %w", err)
	}
	query = r.db.Rebind(query)

	var reservations []*model.ReservationWithPatient
	if err := r.db.SelectContext(ctx, &reservations, query, inArgs...); err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}

	for _, res := range reservations {
		if s, ok := byID[res.TimeSlotID]; ok {
			s.Reservations = append(s.Reservations, res)
		}
	}
	return result, nil
}

func (r *timeSlotRepository) CountInRange(ctx context.Context, start, end time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM time_slots WHERE start_time >= $1 AND start_time < $2`
	if err := r.db.GetContext(ctx, &count, query, start, end); err != nil {
		return 0, fmt.Errorf("failed to count time slots: %w", err)
	}
	return count, nil
}

// BulkInsert writes a freshly generated day of slots. The unique index
// on start_time turns a concurrent double-generation into a silent
// no-op, so the returned count is the number of rows actually inserted.
func (r *timeSlotRepository) BulkInsert(ctx context.Context, slots []*model.TimeSlot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	now := time.Now()
	for _, slot := range slots {
		if slot.ID == uuid.Nil {
			slot.ID = uuid.New()
		}
		slot.CreatedAt = now
		slot.UpdatedAt = now
	}

	query := `
		INSERT INTO time_slots (id, start_time, end_time, duration, is_available, is_first_visit, max_patients, created_at, updated_at)
		VALUES (:id, :start_time, :end_time, :duration, :is_available, :is_first_visit, :max_patients, :created_at, :updated_at)
		ON CONFLICT (start_time) DO NOTHING
	`
	result, err := r.db.NamedExecContext(ctx, query, slots)
	if err != nil {
		return 0, fmt.Errorf("failed to insert time slots: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(inserted), nil
}

func (r *timeSlotRepository) SetAvailability(ctx context.Context, id uuid.UUID, isAvailable bool) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		slot, err := lockSlot(ctx, tx, id)
		if err != nil {
			return err
		}

		// Re-opening a full slot would advertise capacity that does
		// not exist.
		if isAvailable {
			confirmed, err := countReservations(ctx, tx, id, true)
			if err != nil {
				return err
			}
			if confirmed >= slot.MaxPatients {
				return repository.ErrSlotFull
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE time_slots SET is_available = $1, updated_at = $2 WHERE id = $3`,
			isAvailable, time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to update availability: %w", err)
		}
		return nil
	})
}

func (r *timeSlotRepository) SetVisitType(ctx context.Context, id uuid.UUID, isFirstVisit bool) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		slot, err := lockSlot(ctx, tx, id)
		if err != nil {
			return err
		}

		attached, err := countReservations(ctx, tx, id, false)
		if err != nil {
			return err
		}
		if attached > 0 {
			return repository.ErrSlotHasReservations
		}

		maxPatients := model.MaxPatientsFor(slot.Duration, isFirstVisit)
		_, err = tx.ExecContext(ctx,
			`UPDATE time_slots SET is_first_visit = $1, max_patients = $2, updated_at = $3 WHERE id = $4`,
			isFirstVisit, maxPatients, time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to update visit type: %w", err)
		}
		return nil
	})
}

// Combine merges a 15-minute slot with its immediate successor into one
// 30-minute first-visit slot, deleting the successor. The whole edit is
// one transaction so readers never observe the widened slot next to its
// stale neighbor.
func (r *timeSlotRepository) Combine(ctx context.Context, id uuid.UUID, maxPatients int) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		slot, err := lockSlot(ctx, tx, id)
		if err != nil {
			return err
		}
		if slot.Duration != model.DurationFollowUp {
			return repository.ErrWrongDuration
		}

		var neighbor model.TimeSlot
		err = tx.GetContext(ctx, &neighbor,
			`SELECT `+slotColumns+` FROM time_slots WHERE start_time = $1 AND duration = $2 FOR UPDATE`,
			slot.EndTime, model.DurationFollowUp)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNoAdjacentSlot
			}
			return fmt.Errorf("failed to find adjacent slot: %w", err)
		}

		for _, slotID := range []uuid.UUID{slot.ID, neighbor.ID} {
			attached, err := countReservations(ctx, tx, slotID, false)
			if err != nil {
				return err
			}
			if attached > 0 {
				return repository.ErrSlotHasReservations
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE time_slots
			SET duration = $1, end_time = $2, is_first_visit = true, max_patients = $3, updated_at = $4
			WHERE id = $5`,
			model.DurationFirstVisit,
			slot.StartTime.Add(time.Duration(model.DurationFirstVisit)*time.Minute),
			maxPatients, time.Now(), slot.ID)
		if err != nil {
			return fmt.Errorf("failed to widen slot: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM time_slots WHERE id = $1`, neighbor.ID); err != nil {
			return fmt.Errorf("failed to delete absorbed slot: %w", err)
		}
		return nil
	})
}

// Split shrinks a reservation-free 30-minute slot back to its first 15
// minutes and inserts a sibling for the remainder, both as follow-up
// slots with the standard capacity.
func (r *timeSlotRepository) Split(ctx context.Context, id uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		slot, err := lockSlot(ctx, tx, id)
		if err != nil {
			return err
		}
		if slot.Duration != model.DurationFirstVisit {
			return repository.ErrWrongDuration
		}

		attached, err := countReservations(ctx, tx, id, false)
		if err != nil {
			return err
		}
		if attached > 0 {
			return repository.ErrSlotHasReservations
		}

		now := time.Now()
		mid := slot.StartTime.Add(time.Duration(model.DurationFollowUp) * time.Minute)
		maxPatients := model.MaxPatientsFor(model.DurationFollowUp, false)

		_, err = tx.ExecContext(ctx, `
			UPDATE time_slots
			SET duration = $1, end_time = $2, is_first_visit = false, max_patients = $3, updated_at = $4
			WHERE id = $5`,
			model.DurationFollowUp, mid, maxPatients, now, slot.ID)
		if err != nil {
			return fmt.Errorf("failed to shrink slot: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO time_slots (id, start_time, end_time, duration, is_available, is_first_visit, max_patients, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, false, $6, $7, $7)`,
			uuid.New(), mid, slot.EndTime, model.DurationFollowUp, slot.IsAvailable, maxPatients, now)
		if err != nil {
			return fmt.Errorf("failed to insert second half: %w", err)
		}
		return nil
	})
}

// lockSlot fetches a slot row under FOR UPDATE so capacity checks and
// structural edits serialize against concurrent bookings.
func lockSlot(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.TimeSlot, error) {
	var slot model.TimeSlot
	err := tx.GetContext(ctx, &slot,
		`SELECT `+slotColumns+` FROM time_slots WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock time slot: %w", err)
	}
	return &slot, nil
}

func countReservations(ctx context.Context, tx *sqlx.Tx, slotID uuid.UUID, confirmedOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM reservations WHERE time_slot_id = $1`
	args := []interface{}{slotID}
	if confirmedOnly {
		query += ` AND status = $2`
		args = append(args, model.ReservationStatusConfirmed)
	}

	var count int
	if err := tx.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return count, nil
}
