// Package events defines the notifications fanned out on the internal event
// bus. Consumers include the audit writer and metric sinks.
package events

import (
	"time"

	"github.com/gridsense/tapctl/core/model"
)

// Origin tags who asked for a command.
type Origin string

const (
	OriginManual    Origin = "manual"
	OriginAutomatic Origin = "automatic"
)

// CommandEvent is published once per dispatch attempt, whatever the outcome.
type CommandEvent struct {
	DispatchID string
	DeviceID   string
	Direction  model.Direction
	Origin     Origin
	Outcome    string
	Reason     string
	Latency    time.Duration
	Time       time.Time
}

// SampleEvent is published by the deadband controller for each voltage
// sample it evaluates.
type SampleEvent struct {
	DeviceID string
	Voltage  float64
	Mean     float64
	StdDev   float64
	Action   string
	Time     time.Time
}
