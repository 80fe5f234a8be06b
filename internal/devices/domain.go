package devices

import (
	"errors"
	"time"
)

// Status enumerates device approval states.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRevoked  Status = "revoked"
)

// Device is a staff client identified by an opaque fingerprint supplied at
// login. How the fingerprint is computed is the client's business; the
// server only matches it.
type Device struct {
	ID          int64      `json:"id"`
	Fingerprint string     `json:"fingerprint"`
	Label       string     `json:"label,omitempty"`
	Status      Status     `json:"status"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

var (
	// ErrDeviceNotFound indicates an unknown device id or fingerprint.
	ErrDeviceNotFound = errors.New("devices: not found")
	// ErrDeviceNotApproved indicates a login attempt from a device that is
	// pending or revoked.
	ErrDeviceNotApproved = errors.New("devices: device not approved")
)
