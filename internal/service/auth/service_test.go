package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harunoki/clinic-api/internal/model"
	"github.com/harunoki/clinic-api/internal/repository"
	"github.com/harunoki/clinic-api/pkg/auth"
	apperrors "github.com/harunoki/clinic-api/pkg/errors"
	"github.com/harunoki/clinic-api/pkg/security"
)

type fakePatientRepo struct {
	repository.PatientRepository
	byProvider map[string]*model.Patient
	byCard     map[string]*model.Patient
}

func (f *fakePatientRepo) GetByProviderUserID(_ context.Context, providerUserID string) (*model.Patient, error) {
	p, ok := f.byProvider[providerUserID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakePatientRepo) GetByCardNumber(_ context.Context, cardNumber string) (*model.Patient, error) {
	p, ok := f.byCard[cardNumber]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func newTestService(repo *fakePatientRepo) *Service {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewService(repo, tokens, security.NewBcryptHasher(4))
}

func TestLoginWithProviderIssuesToken(t *testing.T) {
	patient := &model.Patient{
		Base: model.Base{ID: uuid.New()},
		Role: model.RolePatient,
	}
	svc := newTestService(&fakePatientRepo{
		byProvider: map[string]*model.Patient{"line-123": patient},
	})

	token, err := svc.LoginWithProvider(context.Background(), "line-123")
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, int64(3600), token.ExpiresIn)

	claims, err := svc.ValidateToken(context.Background(), token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, patient.ID, claims.PatientID)
	assert.Equal(t, model.RolePatient, claims.Role)
}

func TestLoginWithProviderUnregistered(t *testing.T) {
	svc := newTestService(&fakePatientRepo{})

	_, err := svc.LoginWithProvider(context.Background(), "line-999")
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
	assert.Contains(t, appErr.Message, "registration required")
}

func TestStaffLogin(t *testing.T) {
	hasher := security.NewBcryptHasher(4)
	hash, err := hasher.Hash("correct-horse")
	require.NoError(t, err)

	staff := &model.Patient{
		Base:         model.Base{ID: uuid.New()},
		Role:         model.RoleStaff,
		PasswordHash: &hash,
	}
	patientHash := hash
	patient := &model.Patient{
		Base:         model.Base{ID: uuid.New()},
		Role:         model.RolePatient,
		PasswordHash: &patientHash,
	}
	svc := newTestService(&fakePatientRepo{
		byCard: map[string]*model.Patient{
			"00001": staff,
			"00002": patient,
		},
	})

	t.Run("valid credentials", func(t *testing.T) {
		token, err := svc.StaffLogin(context.Background(), "00001", "correct-horse")
		require.NoError(t, err)

		claims, err := svc.ValidateToken(context.Background(), token.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, model.RoleStaff, claims.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.StaffLogin(context.Background(), "00001", "wrong")
		appErr := apperrors.AsAppError(err)
		assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
	})

	t.Run("unknown card", func(t *testing.T) {
		_, err := svc.StaffLogin(context.Background(), "99999", "correct-horse")
		appErr := apperrors.AsAppError(err)
		assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
	})

	t.Run("patient role rejected even with valid password", func(t *testing.T) {
		_, err := svc.StaffLogin(context.Background(), "00002", "correct-horse")
		appErr := apperrors.AsAppError(err)
		assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
	})
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(&fakePatientRepo{})

	_, err := svc.ValidateToken(context.Background(), "not.a.token")
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	other := auth.NewTokenManager("other-secret", time.Hour)
	token, err := other.Generate(uuid.NewString(), string(model.RolePatient))
	require.NoError(t, err)

	svc := newTestService(&fakePatientRepo{})
	_, err = svc.ValidateToken(context.Background(), token)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
}
