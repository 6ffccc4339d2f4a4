package model

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
	ReservationStatusCompleted ReservationStatus = "COMPLETED"
)

// VisitStatus tracks same-day clinical progress, independently of the
// booking status.
type VisitStatus string

const (
	VisitStatusWaiting   VisitStatus = "WAITING"
	VisitStatusCheckedIn VisitStatus = "CHECKED_IN"
	VisitStatusCompleted VisitStatus = "COMPLETED"
)

// Valid reports whether v is one of the three visit states.
func (v VisitStatus) Valid() bool {
	switch v {
	case VisitStatusWaiting, VisitStatusCheckedIn, VisitStatusCompleted:
		return true
	}
	return false
}

// Next returns the following state in the staff "advance" cycle
// WAITING -> CHECKED_IN -> COMPLETED -> WAITING.
func (v VisitStatus) Next() VisitStatus {
	switch v {
	case VisitStatusWaiting:
		return VisitStatusCheckedIn
	case VisitStatusCheckedIn:
		return VisitStatusCompleted
	default:
		return VisitStatusWaiting
	}
}

type Reservation struct {
	Base
	TimeSlotID   uuid.UUID         `db:"time_slot_id" json:"time_slot_id"`
	PatientID    uuid.UUID         `db:"patient_id" json:"patient_id"`
	IsFirstVisit bool              `db:"is_first_visit" json:"is_first_visit"`
	Status       ReservationStatus `db:"status" json:"status"`
	VisitStatus  VisitStatus       `db:"visit_status" json:"visit_status"`
}

// ReservationWithPatient carries the patient's display name for the
// staff schedule view.
type ReservationWithPatient struct {
	Reservation
	PatientLastName  string `db:"patient_last_name" json:"patient_last_name"`
	PatientFirstName string `db:"patient_first_name" json:"patient_first_name"`
}

// ReservationDetail joins the owning slot's times, used for listings
// and for the cancellation cutoff check.
type ReservationDetail struct {
	Reservation
	SlotStartTime time.Time `db:"slot_start_time" json:"slot_start_time"`
	SlotEndTime   time.Time `db:"slot_end_time" json:"slot_end_time"`
	SlotDuration  int       `db:"slot_duration" json:"slot_duration"`
}

type CreateReservationRequest struct {
	TimeSlotID   uuid.UUID `json:"time_slot_id" binding:"required"`
	IsFirstVisit bool      `json:"is_first_visit"`
}

type UpdateVisitStatusRequest struct {
	VisitStatus VisitStatus `json:"visit_status" binding:"required,visitstatus"`
}
