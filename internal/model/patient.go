package model

import (
	"time"

	"github.com/google/uuid"
)

// Role separates clinic staff from regular patients. Staff status is
// an explicit attribute decided at registration, never inferred from a
// particular card number.
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleStaff   Role = "STAFF"
)

type Patient struct {
	Base
	CardNumber     string     `db:"card_number" json:"card_number"`
	ProviderUserID string     `db:"provider_user_id" json:"provider_user_id"`
	LastName       string     `db:"last_name" json:"last_name"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastNameKana   string     `db:"last_name_kana" json:"last_name_kana"`
	FirstNameKana  string     `db:"first_name_kana" json:"first_name_kana"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Phone          string     `db:"phone" json:"phone"`
	Email          string     `db:"email" json:"email,omitempty"`
	Role           Role       `db:"role" json:"role"`
	PasswordHash   *string    `db:"password_hash" json:"-"`
}

type RegisterPatientRequest struct {
	ProviderUserID string `json:"provider_user_id" binding:"required"`
	LastName       string `json:"last_name" binding:"required"`
	FirstName      string `json:"first_name" binding:"required"`
	LastNameKana   string `json:"last_name_kana"`
	FirstNameKana  string `json:"first_name_kana"`
	BirthDate      string `json:"birth_date" binding:"omitempty,datetime=2006-01-02"`
	Phone          string `json:"phone"`
	Email          string `json:"email" binding:"omitempty,email"`
}

type UpdatePatientRequest struct {
	LastName      *string `json:"last_name"`
	FirstName     *string `json:"first_name"`
	LastNameKana  *string `json:"last_name_kana"`
	FirstNameKana *string `json:"first_name_kana"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email" binding:"omitempty,email"`
}

// MedicalRecord is a dated free-text chart entry for a patient.
type MedicalRecord struct {
	Base
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Content   string    `db:"content" json:"content"`
}

type CreateMedicalRecordRequest struct {
	Content string `json:"content" binding:"required"`
}

// MedicalSummary is the single running summary text kept per patient.
type MedicalSummary struct {
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Content   string    `db:"content" json:"content"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type UpsertSummaryRequest struct {
	Content string `json:"content" binding:"required"`
}
