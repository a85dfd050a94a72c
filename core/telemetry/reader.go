// Package telemetry defines read-only access to the latest value of a named
// device signal. The backing time-series store is an external system.
package telemetry

import (
	"context"
	"errors"

	"github.com/gridsense/tapctl/core/model"
)

// ErrUnavailable is returned when no sufficiently recent reading exists for
// the requested signal.
var ErrUnavailable = errors.New("telemetry unavailable")

// Reader returns the latest reading of a signal for a device.
type Reader interface {
	Latest(ctx context.Context, deviceID, signal string) (model.Reading, error)
}
