// Package simulator implements a bench stand-in for tap-changer devices. It
// subscribes to the command topics a real device would listen on, moves an
// internal tap position and replies on the response channel, so the full
// dispatch path can be exercised against a live broker without hardware.
package simulator

import (
	"context"
	"fmt"
	"sync"
	"time"

	corebus "github.com/gridsense/tapctl/core/bus"
	"github.com/gridsense/tapctl/core/logger"
	"github.com/gridsense/tapctl/core/model"
)

const responseWorkers = 2

// Device simulates one tap-changing transformer.
type Device struct {
	ID       string
	Limits   model.TapLimits
	Strategy ResponseStrategy
	// ResponseSuffix selects the reply channel; older firmware used "cmdresp".
	ResponseSuffix string

	bus  corebus.Bus
	log  logger.Logger
	jobs chan responseJob

	mu  sync.Mutex
	tap int
}

type responseJob struct {
	success bool
}

// defaultActuationDelay keeps replies out of the millisecond the command was
// issued in; correlating clients discard same-instant timestamps as stale.
const defaultActuationDelay = 5 * time.Millisecond

// NewDevice creates a simulated device starting mid-range between its limits.
func NewDevice(id string, limits model.TapLimits, strat ResponseStrategy, bus corebus.Bus, log logger.Logger) *Device {
	if strat == nil {
		strat = InstantResponder{Delay: defaultActuationDelay}
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Device{
		ID:             id,
		Limits:         limits,
		Strategy:       strat,
		ResponseSuffix: "autocmdresp",
		bus:            bus,
		log:            log,
		jobs:           make(chan responseJob, 16),
		tap:            (limits.Min + limits.Max) / 2,
	}
}

// Tap returns the current tap position.
func (d *Device) Tap() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tap
}

// Run listens for commands until the context is done.
func (d *Device) Run(ctx context.Context) error {
	sub, err := d.bus.Subscribe(fmt.Sprintf("devicesOut/%s/autocmd", d.ID), d.onCommand(ctx))
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", d.ID, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < responseWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.worker(ctx)
		}()
	}

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		d.log.Warnf("%s: unsubscribe: %v", d.ID, err)
	}
	close(d.jobs)
	wg.Wait()
	return nil
}

func (d *Device) onCommand(ctx context.Context) corebus.Handler {
	return func(_ string, payload []byte) {
		req, ok := model.DecodeCommand(payload)
		if !ok {
			d.log.Warnf("%s: unintelligible command payload", d.ID)
			return
		}
		success := d.apply(req.Direction)
		select {
		case d.jobs <- responseJob{success: success}:
		case <-ctx.Done():
		default:
			d.log.Warnf("%s: response queue full, dropping command", d.ID)
		}
	}
}

// apply moves the tap and reports whether the device accepted the step. A
// real changer refuses to drive past its end stops.
func (d *Device) apply(dir model.Direction) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch dir {
	case model.Raise:
		if d.tap >= d.Limits.Max {
			return false
		}
		d.tap++
	case model.Lower:
		if d.tap <= d.Limits.Min {
			return false
		}
		d.tap--
	default:
		return false
	}
	d.log.Infof("%s: tap now %d", d.ID, d.tap)
	return true
}

func (d *Device) worker(ctx context.Context) {
	for {
		select {
		case job, ok := <-d.jobs:
			if !ok {
				return
			}
			d.Strategy.Respond(ctx, d.bus, d.ID, d.ResponseSuffix, job.success, d.log)
		case <-ctx.Done():
			return
		}
	}
}
