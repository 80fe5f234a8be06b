package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/novadent/novadent/internal/devices"
	"github.com/novadent/novadent/internal/shared"
)

type memoryRepo struct {
	staff map[string]Staff
}

func (r *memoryRepo) FindByEmail(ctx context.Context, email string) (Staff, error) {
	u, ok := r.staff[email]
	if !ok {
		return Staff{}, shared.ErrNotFound
	}
	return u, nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id int64) (Staff, error) {
	for _, u := range r.staff {
		if u.ID == id {
			return u, nil
		}
	}
	return Staff{}, shared.ErrNotFound
}

func (r *memoryRepo) CreateSession(ctx context.Context, id string, staffID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (r *memoryRepo) DeleteSession(ctx context.Context, id string) error { return nil }

type fakeDevices struct {
	approved map[string]bool
}

func (d *fakeDevices) Authorize(ctx context.Context, fingerprint, label string) (devices.Device, error) {
	if d.approved[fingerprint] {
		return devices.Device{Fingerprint: fingerprint, Status: devices.StatusApproved}, nil
	}
	return devices.Device{}, devices.ErrDeviceNotApproved
}

func newTestService(t *testing.T, active bool) *Service {
	t.Helper()
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)
	repo := &memoryRepo{staff: map[string]Staff{
		"dent@clinic.test": {ID: 7, Email: "dent@clinic.test", Role: RoleDentist, PasswordHash: hash, IsActive: active},
	}}
	return NewService(repo, &fakeDevices{approved: map[string]bool{"fp-ok": true}})
}

func TestAuthenticateSuccess(t *testing.T) {
	svc := newTestService(t, true)
	staff, err := svc.Authenticate(context.Background(), "dent@clinic.test", "correct-horse", "fp-ok", "")
	require.NoError(t, err)
	require.Equal(t, int64(7), staff.ID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc := newTestService(t, true)
	_, err := svc.Authenticate(context.Background(), "dent@clinic.test", "wrong", "fp-ok", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := newTestService(t, true)
	_, err := svc.Authenticate(context.Background(), "nobody@clinic.test", "correct-horse", "fp-ok", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	svc := newTestService(t, false)
	_, err := svc.Authenticate(context.Background(), "dent@clinic.test", "correct-horse", "fp-ok", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnapprovedDevice(t *testing.T) {
	svc := newTestService(t, true)
	_, err := svc.Authenticate(context.Background(), "dent@clinic.test", "correct-horse", "fp-new", "")
	require.ErrorIs(t, err, devices.ErrDeviceNotApproved)
}
