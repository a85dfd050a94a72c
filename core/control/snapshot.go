package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/gridsense/tapctl/core/model"
	"github.com/gridsense/tapctl/core/telemetry"
)

// loadSnapshot assembles the decision-time telemetry state of a device.
//
// Voltage and tap position are mandatory: without them no decision is
// possible and the dispatch aborts before any bus traffic. Current and the
// interlock signals degrade to nil fields instead, which the safety gate
// treats as a denial of its own.
func loadSnapshot(ctx context.Context, reader telemetry.Reader, deviceID string) (model.Snapshot, error) {
	var snap model.Snapshot

	voltage, err := reader.Latest(ctx, deviceID, model.SignalVoltage)
	if err != nil {
		return snap, fmt.Errorf("voltage for %s: %w", deviceID, err)
	}
	snap.Voltage = &voltage

	tap, err := reader.Latest(ctx, deviceID, model.SignalTapPosition)
	if err != nil {
		return snap, fmt.Errorf("tap position for %s: %w", deviceID, err)
	}
	snap.TapPosition = &tap

	if current, err := reader.Latest(ctx, deviceID, model.SignalCurrent); err == nil {
		snap.Current = &current
	}

	snap.Interlocks = loadInterlocks(ctx, reader, deviceID)
	return snap, nil
}

// loadInterlocks derives the interlock flags from the latest telemetry. A nil
// result means the status could not be determined and the gate must deny.
func loadInterlocks(ctx context.Context, reader telemetry.Reader, deviceID string) *model.Interlocks {
	inProgress, err := reader.Latest(ctx, deviceID, model.SignalTapInProgress)
	if err != nil {
		return nil
	}
	stuck, err := reader.Latest(ctx, deviceID, model.SignalTapStuck)
	if err != nil {
		return nil
	}
	il := &model.Interlocks{
		TapChangerInProgress: asBool(inProgress.Value),
		TapChangerStuck:      asBool(stuck.Value),
	}
	// An unreadable validity flag counts as invalid.
	if valid, err := reader.Latest(ctx, deviceID, model.SignalVoltageValid); err == nil {
		il.VoltageSignalValid = asBool(valid.Value)
	}
	return il
}

func asBool(v float64) bool { return v >= 0.5 }

// IsTelemetryUnavailable reports whether the error stems from a missing
// telemetry reading.
func IsTelemetryUnavailable(err error) bool {
	return errors.Is(err, telemetry.ErrUnavailable)
}
