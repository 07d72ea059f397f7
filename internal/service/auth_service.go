package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"atm-engine/internal/core/ports"
	"atm-engine/pkg/apperror"
)

// AuthServiceImpl implements ports.AuthService for the configured operator.
type AuthServiceImpl struct {
	username     string
	passwordHash string
	hashSvc      ports.HashService
	tokenSvc     ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl. An empty passwordHash disables login.
func NewAuthService(username, passwordHash string, hashSvc ports.HashService, tokenSvc ports.TokenService) *AuthServiceImpl {
	return &AuthServiceImpl{
		username:     username,
		passwordHash: passwordHash,
		hashSvc:      hashSvc,
		tokenSvc:     tokenSvc,
	}
}

// Login validates operator credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(_ context.Context, username, password string) (string, time.Time, error) {
	if s.passwordHash == "" {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) != 1 {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, s.passwordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(s.username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}
