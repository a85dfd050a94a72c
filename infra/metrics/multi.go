package metrics

import (
	"github.com/gridsense/tapctl/core/events"
	coremetrics "github.com/gridsense/tapctl/core/metrics"
)

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCommand forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordCommand(ev events.CommandEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordCommand(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordSample forwards sample events to sinks that support them.
func (m *MultiSink) RecordSample(ev events.SampleEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.SampleRecorder); ok {
			if err := rec.RecordSample(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
