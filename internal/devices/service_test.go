package devices

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/novadent/novadent/internal/shared"
)

type memoryRepo struct {
	devices map[string]*Device
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{devices: map[string]*Device{}}
}

func (r *memoryRepo) GetByFingerprint(ctx context.Context, fingerprint string) (Device, error) {
	d, ok := r.devices[fingerprint]
	if !ok {
		return Device{}, ErrDeviceNotFound
	}
	return *d, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Device, error) {
	for _, d := range r.devices {
		if d.ID == id {
			return *d, nil
		}
	}
	return Device{}, ErrDeviceNotFound
}

func (r *memoryRepo) Insert(ctx context.Context, d Device) (int64, error) {
	r.nextID++
	d.ID = r.nextID
	d.CreatedAt = time.Now().UTC()
	r.devices[d.Fingerprint] = &d
	return d.ID, nil
}

func (r *memoryRepo) SetStatus(ctx context.Context, id int64, status Status) error {
	for _, d := range r.devices {
		if d.ID == id {
			d.Status = status
			return nil
		}
	}
	return ErrDeviceNotFound
}

func (r *memoryRepo) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	for _, d := range r.devices {
		if d.ID == id {
			d.LastSeenAt = &at
			return nil
		}
	}
	return ErrDeviceNotFound
}

func (r *memoryRepo) List(ctx context.Context, status Status) ([]Device, error) {
	var out []Device
	for _, d := range r.devices {
		if status == "" || d.Status == status {
			out = append(out, *d)
		}
	}
	return out, nil
}

type noopAudit struct{}

func (noopAudit) Record(ctx context.Context, log shared.AuditLog) error { return nil }

func TestAuthorizeUnknownDeviceRegistersPendingAndRejects(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, noopAudit{})

	d, err := svc.Authorize(context.Background(), "fp-abc", "front desk")
	require.ErrorIs(t, err, ErrDeviceNotApproved)
	require.Equal(t, StatusPending, d.Status)

	stored, err := repo.GetByFingerprint(context.Background(), "fp-abc")
	require.NoError(t, err)
	require.Equal(t, StatusPending, stored.Status)
	require.Equal(t, "front desk", stored.Label)
}

func TestAuthorizeApprovedDeviceSucceedsAndTouchesLastSeen(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, noopAudit{})

	_, err := svc.Authorize(context.Background(), "fp-abc", "")
	require.ErrorIs(t, err, ErrDeviceNotApproved)

	pending, _ := repo.GetByFingerprint(context.Background(), "fp-abc")
	_, err = svc.Approve(context.Background(), pending.ID, 1)
	require.NoError(t, err)

	d, err := svc.Authorize(context.Background(), "fp-abc", "")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, d.Status)

	stored, _ := repo.GetByFingerprint(context.Background(), "fp-abc")
	require.NotNil(t, stored.LastSeenAt)
}

func TestAuthorizeRevokedDeviceRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, noopAudit{})

	_, _ = svc.Authorize(context.Background(), "fp-abc", "")
	pending, _ := repo.GetByFingerprint(context.Background(), "fp-abc")
	_, err := svc.Revoke(context.Background(), pending.ID, 1)
	require.NoError(t, err)

	_, err = svc.Authorize(context.Background(), "fp-abc", "")
	require.ErrorIs(t, err, ErrDeviceNotApproved)
}

func TestAuthorizeRequiresFingerprint(t *testing.T) {
	svc := NewService(newMemoryRepo(), noopAudit{})
	_, err := svc.Authorize(context.Background(), "", "")
	require.ErrorIs(t, err, ErrDeviceNotApproved)
}
