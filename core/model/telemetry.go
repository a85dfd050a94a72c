package model

import "time"

// Signal names known to the telemetry source.
const (
	SignalVoltage       = "voltage"
	SignalCurrent       = "current"
	SignalTapPosition   = "tap_position"
	SignalTapInProgress = "tap_in_progress"
	SignalTapStuck      = "tap_stuck"
	SignalVoltageValid  = "voltage_valid"
)

// Reading is the latest value of one signal.
type Reading struct {
	Value     float64
	Timestamp time.Time
}

// Interlocks are the safety conditions derived from the latest telemetry.
// They are computed per decision and never cached.
type Interlocks struct {
	TapChangerInProgress bool
	TapChangerStuck      bool
	VoltageSignalValid   bool
}

// Snapshot is the telemetry state of one device at decision time. A nil
// field means the signal could not be read; the safety gate treats missing
// safety-relevant signals as a denial, not as permission.
type Snapshot struct {
	Voltage     *Reading
	Current     *Reading
	TapPosition *Reading
	Interlocks  *Interlocks
}
