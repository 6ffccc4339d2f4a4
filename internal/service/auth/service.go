package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/harunoki/clinic-api/internal/model"
	"github.com/harunoki/clinic-api/internal/repository"
	"github.com/harunoki/clinic-api/pkg/auth"
	apperrors "github.com/harunoki/clinic-api/pkg/errors"
	"github.com/harunoki/clinic-api/pkg/security"
)

// Service exchanges upstream identities for session tokens. Patients
// arrive with a provider user id the social login already verified;
// staff use a local password.
type Service struct {
	patientRepo repository.PatientRepository
	tokens      *auth.TokenManager
	hasher      security.PasswordHasher
}

func NewService(patientRepo repository.PatientRepository, tokens *auth.TokenManager, hasher security.PasswordHasher) *Service {
	return &Service{
		patientRepo: patientRepo,
		tokens:      tokens,
		hasher:      hasher,
	}
}

// LoginWithProvider resolves a social-login identity to a registered
// patient and issues a session token.
func (s *Service) LoginWithProvider(ctx context.Context, providerUserID string) (*model.TokenResponse, error) {
	patient, err := s.patientRepo.GetByProviderUserID(ctx, providerUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Forbidden("patient registration required", err)
		}
		return nil, fmt.Errorf("failed to resolve patient: %w", err)
	}
	return s.issue(patient)
}

// StaffLogin authenticates a staff member by card number and password.
func (s *Service) StaffLogin(ctx context.Context, cardNumber, password string) (*model.TokenResponse, error) {
	patient, err := s.patientRepo.GetByCardNumber(ctx, cardNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid credentials", nil)
		}
		return nil, fmt.Errorf("failed to resolve staff account: %w", err)
	}

	if patient.Role != model.RoleStaff || patient.PasswordHash == nil {
		return nil, apperrors.Unauthorized("invalid credentials", nil)
	}

	if err := s.hasher.Compare(*patient.PasswordHash, password); err != nil {
		return nil, apperrors.Unauthorized("invalid credentials", nil)
	}

	return s.issue(patient)
}

// ValidateToken parses a session token into its identity claims.
func (s *Service) ValidateToken(ctx context.Context, token string) (*model.TokenClaims, error) {
	sub, role, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid token", err)
	}

	patientID, err := uuid.Parse(sub)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid token subject", err)
	}

	return &model.TokenClaims{
		PatientID: patientID,
		Role:      model.Role(role),
	}, nil
}

func (s *Service) issue(patient *model.Patient) (*model.TokenResponse, error) {
	token, err := s.tokens.Generate(patient.ID.String(), string(patient.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &model.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.tokens.Expiry().Seconds()),
	}, nil
}
