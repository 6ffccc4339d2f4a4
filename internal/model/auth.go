package model

import (
	"github.com/google/uuid"
)

// ProviderLoginRequest exchanges a social-login provider user id for a
// session token. The identity provider has already authenticated the
// user upstream; we only resolve it to a registered patient.
type ProviderLoginRequest struct {
	ProviderUserID string `json:"provider_user_id" binding:"required"`
}

// StaffLoginRequest is the password login used by clinic staff.
type StaffLoginRequest struct {
	CardNumber string `json:"card_number" binding:"required"`
	Password   string `json:"password" binding:"required,min=8"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenClaims is the decoded session identity.
type TokenClaims struct {
	PatientID uuid.UUID `json:"patient_id"`
	Role      Role      `json:"role"`
}
