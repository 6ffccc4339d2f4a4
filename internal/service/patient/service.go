package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harunoki/clinic-api/internal/model"
	"github.com/harunoki/clinic-api/internal/repository"
	apperrors "github.com/harunoki/clinic-api/pkg/errors"
)

type Service struct {
	repo repository.PatientRepository
}

func NewService(repo repository.PatientRepository) *Service {
	return &Service{repo: repo}
}

// Register creates a patient record for an authenticated social-login
// identity. Everyone registers as a regular patient; staff accounts
// are provisioned separately.
func (s *Service) Register(ctx context.Context, req *model.RegisterPatientRequest) (*model.Patient, error) {
	if _, err := s.repo.GetByProviderUserID(ctx, req.ProviderUserID); err == nil {
		return nil, apperrors.Conflict("patient already registered", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check registration: %w", err)
	}

	patient := &model.Patient{
		ProviderUserID: req.ProviderUserID,
		LastName:       req.LastName,
		FirstName:      req.FirstName,
		LastNameKana:   req.LastNameKana,
		FirstNameKana:  req.FirstNameKana,
		Phone:          req.Phone,
		Email:          req.Email,
		Role:           model.RolePatient,
	}

	if req.BirthDate != "" {
		birthDate, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			return nil, apperrors.Validation("invalid birth date", err)
		}
		patient.BirthDate = &birthDate
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to register patient: %w", err)
	}
	return patient, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.LastName != nil {
		patient.LastName = *req.LastName
	}
	if req.FirstName != nil {
		patient.FirstName = *req.FirstName
	}
	if req.LastNameKana != nil {
		patient.LastNameKana = *req.LastNameKana
	}
	if req.FirstNameKana != nil {
		patient.FirstNameKana = *req.FirstNameKana
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.Email != nil {
		patient.Email = *req.Email
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return patient, nil
}

func (s *Service) List(ctx context.Context) ([]*model.Patient, error) {
	patients, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (s *Service) AddMedicalRecord(ctx context.Context, patientID uuid.UUID, req *model.CreateMedicalRecordRequest) (*model.MedicalRecord, error) {
	if _, err := s.Get(ctx, patientID); err != nil {
		return nil, err
	}

	record := &model.MedicalRecord{
		PatientID: patientID,
		Content:   req.Content,
	}
	if err := s.repo.AddMedicalRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to add medical record: %w", err)
	}
	return record, nil
}

func (s *Service) ListMedicalRecords(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalRecord, error) {
	if _, err := s.Get(ctx, patientID); err != nil {
		return nil, err
	}

	records, err := s.repo.ListMedicalRecords(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medical records: %w", err)
	}
	return records, nil
}

func (s *Service) UpsertSummary(ctx context.Context, patientID uuid.UUID, req *model.UpsertSummaryRequest) (*model.MedicalSummary, error) {
	if _, err := s.Get(ctx, patientID); err != nil {
		return nil, err
	}

	summary := &model.MedicalSummary{
		PatientID: patientID,
		Content:   req.Content,
	}
	if err := s.repo.UpsertSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to save summary: %w", err)
	}
	return summary, nil
}

func (s *Service) GetSummary(ctx context.Context, patientID uuid.UUID) (*model.MedicalSummary, error) {
	summary, err := s.repo.GetSummary(ctx, patientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("summary", err)
		}
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return summary, nil
}
