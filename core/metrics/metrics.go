// Package metrics defines the event sink interfaces used for observability.
// Implementations live under infra/metrics.
package metrics

import "github.com/gridsense/tapctl/core/events"

// Sink records command dispatch events.
type Sink interface {
	RecordCommand(ev events.CommandEvent) error
}

// SampleRecorder records deadband controller samples. Sinks implement it
// when the backend can store per-sample data.
type SampleRecorder interface {
	RecordSample(ev events.SampleEvent) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordCommand(events.CommandEvent) error { return nil }
func (NopSink) RecordSample(events.SampleEvent) error   { return nil }
