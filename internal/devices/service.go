package devices

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/novadent/novadent/internal/shared"
)

// RepositoryPort abstracts device persistence for the service.
type RepositoryPort interface {
	GetByFingerprint(ctx context.Context, fingerprint string) (Device, error)
	Get(ctx context.Context, id int64) (Device, error)
	Insert(ctx context.Context, d Device) (int64, error)
	SetStatus(ctx context.Context, id int64, status Status) error
	TouchLastSeen(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context, status Status) ([]Device, error)
}

// AuditPort records staff actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements device approval rules.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Authorize checks whether a login from the device may proceed. An unknown
// fingerprint is registered as pending and rejected; an admin approves it
// out of band. Approved devices get their last-seen timestamp refreshed.
func (s *Service) Authorize(ctx context.Context, fingerprint, label string) (Device, error) {
	if fingerprint == "" {
		return Device{}, fmt.Errorf("%w: missing fingerprint", ErrDeviceNotApproved)
	}
	d, err := s.repo.GetByFingerprint(ctx, fingerprint)
	if errors.Is(err, ErrDeviceNotFound) {
		d = Device{Fingerprint: fingerprint, Label: label, Status: StatusPending}
		id, insertErr := s.repo.Insert(ctx, d)
		if insertErr != nil {
			// Lost a registration race; the row exists now.
			if d, err = s.repo.GetByFingerprint(ctx, fingerprint); err != nil {
				return Device{}, err
			}
		} else {
			d.ID = id
		}
	} else if err != nil {
		return Device{}, err
	}

	if d.Status != StatusApproved {
		return d, fmt.Errorf("%w: device %d is %s", ErrDeviceNotApproved, d.ID, d.Status)
	}
	_ = s.repo.TouchLastSeen(ctx, d.ID, time.Now().UTC())
	return d, nil
}

// Approve marks a device approved.
func (s *Service) Approve(ctx context.Context, id, actorID int64) (Device, error) {
	return s.setStatus(ctx, id, StatusApproved, "device.approve", actorID)
}

// Revoke marks a device revoked. Revocation only blocks future logins;
// sessions already issued ride out their TTL.
func (s *Service) Revoke(ctx context.Context, id, actorID int64) (Device, error) {
	return s.setStatus(ctx, id, StatusRevoked, "device.revoke", actorID)
}

// List returns devices, optionally filtered by status.
func (s *Service) List(ctx context.Context, status Status) ([]Device, error) {
	return s.repo.List(ctx, status)
}

func (s *Service) setStatus(ctx context.Context, id int64, status Status, action string, actorID int64) (Device, error) {
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return Device{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "device",
		EntityID: strconv.FormatInt(id, 10),
	})
	return s.repo.Get(ctx, id)
}
