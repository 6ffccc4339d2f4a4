package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harunoki/clinic-api/internal/model"
	"github.com/harunoki/clinic-api/internal/repository"
)

func expectAttachedCount(mock sqlmock.Sqlmock, count int) {
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reservations WHERE time_slot_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

func TestCombineWidensAndDeletesNeighbor(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTimeSlotRepository(db)
	slotID := uuid.New()
	neighborID := uuid.New()

	mock.ExpectBegin()
	expectLockSlot(mock, slotRow(slotID, model.DurationFollowUp, 2, true, false))
	mock.ExpectQuery(`WHERE start_time = \$1 AND duration = \$2 FOR UPDATE`).
		WillReturnRows(slotRow(neighborID, model.DurationFollowUp, 2, true, false))
	expectAttachedCount(mock, 0)
	expectAttachedCount(mock, 0)
	mock.ExpectExec(`UPDATE time_slots`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM time_slots WHERE id = \$1`).
		WithArgs(neighborID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Combine(context.Background(), slotID, 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The neighbor lookup resolves by start time inside the transaction, so
// a successor that was itself combined or deleted in the meantime is
// simply absent and the merge aborts cleanly.
func TestCombineNeighborGone(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTimeSlotRepository(db)
	slotID := uuid.New()

	mock.ExpectBegin()
	expectLockSlot(mock, slotRow(slotID, model.DurationFollowUp, 2, true, false))
	mock.ExpectQuery(`WHERE start_time = \$1 AND duration = \$2 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.Combine(context.Background(), slotID, 1)
	assert.ErrorIs(t, err, repository.ErrNoAdjacentSlot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCombineRejectsWideSlot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTimeSlotRepository(db)
	slotID := uuid.New()

	mock.ExpectBegin()
	expectLockSlot(mock, slotRow(slotID, model.DurationFirstVisit, 1, true, true))
	mock.ExpectRollback()

	err := repo.Combine(context.Background(), slotID, 1)
	assert.ErrorIs(t, err, repository.ErrWrongDuration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCombineRejectsReservedNeighbor(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTimeSlotRepository(db)
	slotID := uuid.New()

	mock.ExpectBegin()
	expectLockSlot(mock, slotRow(slotID, model.DurationFollowUp, 2, true, false))
	mock.ExpectQuery(`WHERE start_time = \$1 AND duration = \$2 FOR UPDATE`).
		WillReturnRows(slotRow(uuid.New(), model.DurationFollowUp, 2, true, false))
	expectAttachedCount(mock, 0)
	expectAttachedCount(mock, 1)
	mock.ExpectRollback()

	err := repo.Combine(context.Background(), slotID, 1)
	assert.ErrorIs(t, err, repository.ErrSlotHasReservations)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSplitShrinksAndInsertsSecondHalf(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTimeSlotRepository(db)
	slotID := uuid.New()

	mock.ExpectBegin()
	expectLockSlot(mock, slotRow(slotID, model.DurationFirstVisit, 1, true, true))
	expectAttachedCount(mock, 0)
	mock.ExpectExec(`UPDATE time_slots`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO time_slots`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Split(context.Background(), slotID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSplitRejectsReservedSlot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTimeSlotRepository(db)
	slotID := uuid.New()

	mock.ExpectBegin()
	expectLockSlot(mock, slotRow(slotID, model.DurationFirstVisit, 1, true, true))
	expectAttachedCount(mock, 1)
	mock.ExpectRollback()

	err := repo.Split(context.Background(), slotID)
	assert.ErrorIs(t, err, repository.ErrSlotHasReservations)
	assert.NoError(t, mock.ExpectationsWereMet())
}
