package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/novadent/novadent/internal/devices"
	"github.com/novadent/novadent/internal/shared"
)

// DevicePort gates logins on device approval.
type DevicePort interface {
	Authorize(ctx context.Context, fingerprint, label string) (devices.Device, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo    Repository
	devices DevicePort
}

// NewService constructs a new Service.
func NewService(repo Repository, devicePort DevicePort) *Service {
	return &Service{repo: repo, devices: devicePort}
}

// Authenticate validates email/password credentials and the calling device.
// Credential failures and inactive accounts come back as the same error so
// the response does not leak which accounts exist.
func (s *Service) Authenticate(ctx context.Context, email, password, deviceFingerprint, deviceLabel string) (Staff, error) {
	staff, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return Staff{}, shared.ErrInvalidCredentials
	}
	if !staff.IsActive {
		return Staff{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(password)); err != nil {
		return Staff{}, shared.ErrInvalidCredentials
	}
	// Device check runs after the credential check so a stranger cannot
	// probe which fingerprints are registered.
	if _, err := s.devices.Authorize(ctx, deviceFingerprint, deviceLabel); err != nil {
		return Staff{}, err
	}
	return staff, nil
}

// Current resolves the staff account behind a session actor id.
func (s *Service) Current(ctx context.Context, staffID int64) (Staff, error) {
	return s.repo.GetByID(ctx, staffID)
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, staffID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, staffID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// HashPassword produces a bcrypt hash for seeding and account management.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}
