package model

import (
	"time"

	"github.com/google/uuid"
)

// Slot durations in minutes. Follow-up visits take a 15-minute slot,
// first visits a 30-minute one.
const (
	DurationFollowUp   = 15
	DurationFirstVisit = 30
)

// TimeSlot is one bookable window of the clinic day. StartTime and
// EndTime are stored UTC and are always exactly Duration minutes apart.
type TimeSlot struct {
	Base
	StartTime    time.Time `db:"start_time" json:"start_time"`
	EndTime      time.Time `db:"end_time" json:"end_time"`
	Duration     int       `db:"duration" json:"duration"`
	IsAvailable  bool      `db:"is_available" json:"is_available"`
	IsFirstVisit bool      `db:"is_first_visit" json:"is_first_visit"`
	MaxPatients  int       `db:"max_patients" json:"max_patients"`
}

// MaxPatientsFor returns the capacity implied by a slot's duration and
// visit type: first-visit slots take one patient, follow-up slots take
// two per 15 minutes and one per 30.
func MaxPatientsFor(duration int, isFirstVisit bool) int {
	if isFirstVisit {
		return 1
	}
	if duration == DurationFollowUp {
		return 2
	}
	return 1
}

// SlotWithReservations is a slot plus its attached reservations, used
// by the staff schedule view and by availability computation.
type SlotWithReservations struct {
	TimeSlot
	Reservations []*ReservationWithPatient `json:"reservations"`
}

// ConfirmedCount counts the CONFIRMED reservations on the slot.
func (s *SlotWithReservations) ConfirmedCount() int {
	n := 0
	for _, r := range s.Reservations {
		if r.Status == ReservationStatusConfirmed {
			n++
		}
	}
	return n
}

// AvailableSlot is the patient-facing projection of a slot, annotated
// with live occupancy.
type AvailableSlot struct {
	ID              uuid.UUID `json:"id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	IsAvailable     bool      `json:"is_available"`
	MaxPatients     int       `json:"max_patients"`
	CurrentPatients int       `json:"current_patients"`
	IsFirstVisit    bool      `json:"is_first_visit"`
	Duration        int       `json:"duration"`
}

type GenerateSlotsRequest struct {
	Date   string `json:"date" binding:"required,datetime=2006-01-02"`
	IsOpen bool   `json:"is_open"`
}

// GenerateSlotsResult reports what a (possibly idempotent) generation
// call did.
type GenerateSlotsResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

type UpdateTimeSlotRequest struct {
	IsAvailable  *bool `json:"is_available"`
	IsFirstVisit *bool `json:"is_first_visit"`
}

type CombineSlotsRequest struct {
	SlotID      uuid.UUID `json:"slot_id" binding:"required"`
	MaxPatients *int      `json:"max_patients"`
}

type SplitSlotRequest struct {
	SlotID uuid.UUID `json:"slot_id" binding:"required"`
}
