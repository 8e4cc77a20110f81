package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/snowparadise/reactor/internal/apperr"
	"github.com/snowparadise/reactor/pkg/logger"
)

// AdminStore persists the admin claim.
type AdminStore interface {
	GrantAdmin(ctx context.Context, userID string) error
}

// AdminService verifies the shared admin password.
type AdminService struct {
	store        AdminStore
	passwordHash []byte
	logger       *logger.Logger
}

// NewAdminService creates a new admin service. passwordHash is a bcrypt hash;
// when empty every verification is denied.
func NewAdminService(store AdminStore, passwordHash string, log *logger.Logger) *AdminService {
	return &AdminService{
		store:        store,
		passwordHash: []byte(passwordHash),
		logger:       log.Named("admin"),
	}
}

// Verify grants the admin claim to userID when password matches.
func (s *AdminService) Verify(ctx context.Context, userID, password string) error {
	if userID == "" {
		return apperr.Unauthenticated()
	}
	if password == "" {
		return apperr.InvalidArgument("password is required")
	}
	if len(s.passwordHash) == 0 {
		s.logger.Warn("admin password is not configured")
		return apperr.PermissionDenied("admin verification is disabled")
	}

	err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		s.logger.Warn("admin password mismatch", zap.String("user_id", userID))
		return apperr.PermissionDenied("invalid password")
	}
	if err != nil {
		return apperr.Internal("failed to verify password", err)
	}

	if err := s.store.GrantAdmin(ctx, userID); err != nil {
		return apperr.Internal("failed to grant admin", err)
	}
	s.logger.Info("admin claim granted", zap.String("user_id", userID))
	return nil
}
