// Package audit persists operator-visible audit lines for every dispatch
// attempt. The writer consumes the internal event bus so a slow or failing
// store never blocks the dispatch path.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/gridsense/tapctl/core/events"
	"github.com/gridsense/tapctl/core/logger"
	"github.com/gridsense/tapctl/core/model"
	"github.com/gridsense/tapctl/core/registry"
	"github.com/gridsense/tapctl/internal/eventbus"
)

// Writer subscribes to command events and appends audit entries.
type Writer struct {
	reg registry.Registry
	bus eventbus.EventBus
	log logger.Logger
}

// NewWriter creates a writer over the given registry and event bus.
func NewWriter(reg registry.Registry, bus eventbus.EventBus, log logger.Logger) *Writer {
	if log == nil {
		log = logger.Nop{}
	}
	return &Writer{reg: reg, bus: bus, log: log}
}

// Run consumes events until the context is canceled or the bus closes.
func (w *Writer) Run(ctx context.Context) {
	sub := w.bus.Subscribe()
	defer w.bus.Unsubscribe(sub)
	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			ce, ok := ev.(events.CommandEvent)
			if !ok {
				continue
			}
			w.record(ctx, ce)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Writer) record(ctx context.Context, ev events.CommandEvent) {
	detail := fmt.Sprintf("origin=%s outcome=%s latency=%dms", ev.Origin, ev.Outcome, ev.Latency.Milliseconds())
	if ev.Reason != "" {
		detail += " reason=" + ev.Reason
	}
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := w.reg.AppendAuditEntry(wctx, ev.DeviceID, actionFor(ev.Direction), detail); err != nil {
		w.log.Warnf("audit entry for %s: %v", ev.DeviceID, err)
	}
}

func actionFor(dir model.Direction) string {
	if dir == model.Raise {
		return "tap_raise"
	}
	return "tap_lower"
}
