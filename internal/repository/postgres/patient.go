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

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

const patientColumns = `id, card_number, provider_user_id, last_name, first_name,
	last_name_kana, first_name_kana, birth_date, phone, email, role, password_hash,
	created_at, updated_at`

// Create inserts a patient, assigning the next sequential card number
// from the database sequence.
func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	patient.ID = uuid.New()
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = patient.CreatedAt

	query := `
		INSERT INTO patients (
			id, card_number, provider_user_id, last_name, first_name,
			last_name_kana, first_name_kana, birth_date, phone, email, role,
			password_hash, created_at, updated_at
		) VALUES (
			$1, to_char(nextval('patient_card_number_seq'), 'FM00000'), $2, $3, $4,
			$5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		RETURNING card_number
	`
	err := r.db.QueryRowxContext(ctx, query,
		patient.ID,
		patient.ProviderUserID,
		patient.LastName,
		patient.FirstName,
		patient.LastNameKana,
		patient.FirstNameKana,
		patient.BirthDate,
		patient.Phone,
		patient.Email,
		patient.Role,
		patient.PasswordHash,
		patient.CreatedAt,
		patient.UpdatedAt,
	).Scan(&patient.CardNumber)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *patientRepository) GetByProviderUserID(ctx context.Context, providerUserID string) (*model.Patient, error) {
	return r.getBy(ctx, `provider_user_id = $1`, providerUserID)
}

func (r *patientRepository) GetByCardNumber(ctx context.Context, cardNumber string) (*model.Patient, error) {
	return r.getBy(ctx, `card_number = $1`, cardNumber)
}

func (r *patientRepository) getBy(ctx context.Context, where string, arg interface{}) (*model.Patient, error) {
	var patient model.Patient
	query := `SELECT ` + patientColumns + ` FROM patients WHERE ` + where
	if err := r.db.GetContext(ctx, &patient, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	patient.UpdatedAt = time.Now()
	query := `
		UPDATE patients
		SET last_name = $1, first_name = $2, last_name_kana = $3, first_name_kana = $4,
		    phone = $5, email = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := r.db.ExecContext(ctx, query,
		patient.LastName,
		patient.FirstName,
		patient.LastNameKana,
		patient.FirstNameKana,
		patient.Phone,
		patient.Email,
		patient.UpdatedAt,
		patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	return requireRow(result)
}

func (r *patientRepository) List(ctx context.Context) ([]*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY card_number ASC`
	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) AddMedicalRecord(ctx context.Context, record *model.MedicalRecord) error {
	record.ID = uuid.New()
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt

	query := `
		INSERT INTO medical_records (id, patient_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.PatientID, record.Content, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to add medical record: %w", err)
	}
	return nil
}

func (r *patientRepository) ListMedicalRecords(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalRecord, error) {
	query := `
		SELECT id, patient_id, content, created_at, updated_at
		FROM medical_records
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	var records []*model.MedicalRecord
	if err := r.db.SelectContext(ctx, &records, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list medical records: %w", err)
	}
	return records, nil
}

func (r *patientRepository) UpsertSummary(ctx context.Context, summary *model.MedicalSummary) error {
	summary.UpdatedAt = time.Now()
	query := `
		INSERT INTO medical_summaries (patient_id, content, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (patient_id) DO UPDATE SET content = $2, updated_at = $3
	`
	_, err := r.db.ExecContext(ctx, query, summary.PatientID, summary.Content, summary.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}
	return nil
}

func (r *patientRepository) GetSummary(ctx context.Context, patientID uuid.UUID) (*model.MedicalSummary, error) {
	var summary model.MedicalSummary
	query := `SELECT patient_id, content, updated_at FROM medical_summaries WHERE patient_id = $1`
	if err := r.db.GetContext(ctx, &summary, query, patientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return &summary, nil
}
