// Package registry defines read/write access to the device configuration
// store. The store itself is an external system; the control packages only
// depend on the interface defined here.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/gridsense/tapctl/core/model"
)

// ErrNotFound is returned when no configuration exists for a device.
var ErrNotFound = errors.New("device config not found")

// Registry provides access to per-device configuration and the audit trail.
type Registry interface {
	// GetConfig returns the canonical configuration for the device or
	// ErrNotFound.
	GetConfig(ctx context.Context, deviceID string) (model.DeviceConfig, error)

	// ListConfigs returns every known device configuration.
	ListConfigs(ctx context.Context) ([]model.DeviceConfig, error)

	// PutConfig creates or replaces a device configuration.
	PutConfig(ctx context.Context, cfg model.DeviceConfig) error

	// SetLastCommandTime persists the timestamp of the last confirmed
	// command for the device.
	SetLastCommandTime(ctx context.Context, deviceID string, ts time.Time) error

	// AppendAuditEntry records an operator-visible audit line. Failures are
	// reported but must never block a dispatch.
	AppendAuditEntry(ctx context.Context, deviceID, action, detail string) error
}
