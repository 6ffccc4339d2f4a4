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

type reservationRepository struct {
	BaseRepository
}

func NewReservationRepository(db *sqlx.DB) repository.ReservationRepository {
	return &reservationRepository{NewBaseRepository(db)}
}

const reservationColumns = `id, time_slot_id, patient_id, is_first_visit, status, visit_status, created_at, updated_at`

// Create books a slot. The owning slot row is locked for the duration
// of the transaction, so the capacity count, the duplicate check and
// the insert act on a frozen view: two concurrent bookings of the last
// seat serialize and the loser fails the re-checked count.
func (r *reservationRepository) Create(ctx context.Context, res *model.Reservation) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		slot, err := lockSlot(ctx, tx, res.TimeSlotID)
		if err != nil {
			return err
		}

		if !slot.IsAvailable {
			return repository.ErrSlotClosed
		}

		confirmed, err := countReservations(ctx, tx, slot.ID, true)
		if err != nil {
			return err
		}
		if confirmed >= slot.MaxPatients {
			return repository.ErrSlotFull
		}

		wantDuration := model.DurationFollowUp
		if res.IsFirstVisit {
			wantDuration = model.DurationFirstVisit
		}
		if slot.Duration != wantDuration || slot.IsFirstVisit != res.IsFirstVisit {
			return repository.ErrVisitTypeMismatch
		}

		var duplicate bool
		err = tx.GetContext(ctx, &duplicate, `
			SELECT EXISTS (
				SELECT 1 FROM reservations
				WHERE time_slot_id = $1 AND patient_id = $2 AND status = $3
			)`,
			slot.ID, res.PatientID, model.ReservationStatusConfirmed)
		if err != nil {
			return fmt.Errorf("failed to check duplicate booking: %w", err)
		}
		if duplicate {
			return repository.ErrDuplicateBooking
		}

		res.ID = uuid.New()
		res.Status = model.ReservationStatusConfirmed
		res.VisitStatus = model.VisitStatusWaiting
		res.CreatedAt = time.Now()
		res.UpdatedAt = res.CreatedAt

		_, err = tx.ExecContext(ctx, `
			INSERT INTO reservations (id, time_slot_id, patient_id, is_first_visit, status, visit_status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			res.ID, res.TimeSlotID, res.PatientID, res.IsFirstVisit,
			res.Status, res.VisitStatus, res.CreatedAt, res.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		return nil
	})
}

func (r *reservationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	var res model.Reservation
	if err := r.db.GetContext(ctx, &res, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &res, nil
}

func (r *reservationRepository) GetDetail(ctx context.Context, id uuid.UUID) (*model.ReservationDetail, error) {
	query := `
		SELECT r.id, r.time_slot_id, r.patient_id, r.is_first_visit, r.status,
		       r.visit_status, r.created_at, r.updated_at,
		       t.start_time AS slot_start_time, t.end_time AS slot_end_time,
		       t.duration AS slot_duration
		FROM reservations r
		JOIN time_slots t ON t.id = r.time_slot_id
		WHERE r.id = $1
	`
	var detail model.ReservationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reservation detail: %w", err)
	}
	return &detail, nil
}

func (r *reservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ReservationStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	return requireRow(result)
}

func (r *reservationRepository) UpdateVisitStatus(ctx context.Context, id uuid.UUID, visitStatus model.VisitStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET visit_status = $1, updated_at = $2 WHERE id = $3`,
		visitStatus, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update visit status: %w", err)
	}
	return requireRow(result)
}

// CheckIn moves a WAITING reservation to CHECKED_IN. Any other current
// state is rejected, so a rescanned QR code cannot regress progress.
func (r *reservationRepository) CheckIn(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	var res model.Reservation
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &res,
			`SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("failed to lock reservation: %w", err)
		}

		if res.VisitStatus != model.VisitStatusWaiting {
			return repository.ErrNotWaiting
		}

		res.VisitStatus = model.VisitStatusCheckedIn
		res.UpdatedAt = time.Now()
		_, err = tx.ExecContext(ctx,
			`UPDATE reservations SET visit_status = $1, updated_at = $2 WHERE id = $3`,
			res.VisitStatus, res.UpdatedAt, id)
		if err != nil {
			return fmt.Errorf("failed to check in reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	return requireRow(result)
}

func (r *reservationRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, status model.ReservationStatus) ([]*model.ReservationDetail, error) {
	query := `
		SELECT r.id, r.time_slot_id, r.patient_id, r.is_first_visit, r.status,
		       r.visit_status, r.created_at, r.updated_at,
		       t.start_time AS slot_start_time, t.end_time AS slot_end_time,
		       t.duration AS slot_duration
		FROM reservations r
		JOIN time_slots t ON t.id = r.time_slot_id
		WHERE r.patient_id = $1
	`
	args := []interface{}{patientID}
	if status != "" {
		query += ` AND r.status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY t.start_time ASC`

	var details []*model.ReservationDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list patient reservations: %w", err)
	}
	return details, nil
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
