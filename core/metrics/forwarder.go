package metrics

import (
	"context"

	"github.com/gridsense/tapctl/core/events"
	"github.com/gridsense/tapctl/core/logger"
	"github.com/gridsense/tapctl/internal/eventbus"
)

// Forwarder consumes the internal event bus and feeds the configured sink,
// keeping sink latency out of the dispatch path.
type Forwarder struct {
	bus  eventbus.EventBus
	sink Sink
	log  logger.Logger
}

// NewForwarder creates a forwarder from the bus to the sink.
func NewForwarder(bus eventbus.EventBus, sink Sink, log logger.Logger) *Forwarder {
	if log == nil {
		log = logger.Nop{}
	}
	return &Forwarder{bus: bus, sink: sink, log: log}
}

// Run forwards events until the context is canceled or the bus closes.
func (f *Forwarder) Run(ctx context.Context) {
	sub := f.bus.Subscribe()
	defer f.bus.Unsubscribe(sub)
	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			f.record(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (f *Forwarder) record(ev eventbus.Event) {
	switch e := ev.(type) {
	case events.CommandEvent:
		if err := f.sink.RecordCommand(e); err != nil {
			f.log.Warnf("record command event: %v", err)
		}
	case events.SampleEvent:
		if rec, ok := f.sink.(SampleRecorder); ok {
			if err := rec.RecordSample(e); err != nil {
				f.log.Warnf("record sample event: %v", err)
			}
		}
	}
}
