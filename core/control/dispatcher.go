package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gridsense/tapctl/core/events"
	"github.com/gridsense/tapctl/core/logger"
	"github.com/gridsense/tapctl/core/model"
	"github.com/gridsense/tapctl/core/registry"
	"github.com/gridsense/tapctl/core/telemetry"
	"github.com/gridsense/tapctl/internal/eventbus"
)

// Outcome classifies a finished dispatch attempt.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeDenied   Outcome = "denied"
	OutcomeCooldown Outcome = "cooldown"
	OutcomeRejected Outcome = "rejected"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeError    Outcome = "error"
)

// Result is the caller-facing outcome of a dispatch. Denials and cooldowns
// are expected, frequent outcomes: they come back as values with a
// human-readable reason, not as errors.
type Result struct {
	OK         bool
	Outcome    Outcome
	Reason     string
	RetryAfter time.Duration
}

// Dispatcher composes the safety gate, the cooldown tracker and the
// correlator into the single "issue tap command" operation used by both the
// manual path and the automatic controller. The origin tag only feeds audit
// logging; the checks are identical for both paths.
type Dispatcher struct {
	reg        registry.Registry
	reader     telemetry.Reader
	cooldown   *CooldownTracker
	correlator *Correlator
	bus        eventbus.EventBus
	log        logger.Logger
	now        func() time.Time
}

// NewDispatcher wires a dispatcher. The event bus may be nil when no audit
// or metric consumers are attached.
func NewDispatcher(reg registry.Registry, reader telemetry.Reader, cooldown *CooldownTracker, correlator *Correlator, bus eventbus.EventBus, log logger.Logger) (*Dispatcher, error) {
	if reg == nil || reader == nil || cooldown == nil || correlator == nil {
		return nil, fmt.Errorf("control: nil parameter provided to NewDispatcher")
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Dispatcher{
		reg:        reg,
		reader:     reader,
		cooldown:   cooldown,
		correlator: correlator,
		bus:        bus,
		log:        log,
		now:        time.Now,
	}, nil
}

// Cooldown exposes the shared tracker so the automatic controller can check
// remaining time before issuing.
func (d *Dispatcher) Cooldown() *CooldownTracker { return d.cooldown }

// Dispatch runs the full pipeline for one command. Expected denials are
// returned in the Result; ConfigNotFound, TelemetryUnavailable and transport
// failures are returned as errors and happen before any state mutation.
// The cooldown timestamp and the registry's last-command time are written
// only after the device confirmed success.
func (d *Dispatcher) Dispatch(ctx context.Context, deviceID string, dir model.Direction, origin events.Origin) (Result, error) {
	start := d.now()
	dispatchID := uuid.NewString()

	cfg, err := d.reg.GetConfig(ctx, deviceID)
	if err != nil {
		return Result{}, fmt.Errorf("config for %s: %w", deviceID, err)
	}

	snap, err := loadSnapshot(ctx, d.reader, deviceID)
	if err != nil {
		return Result{}, err
	}

	if dec := EvaluateSafety(cfg, snap, dir); !dec.Allowed {
		d.finish(dispatchID, deviceID, dir, origin, OutcomeDenied, dec.Reason, start)
		return Result{Outcome: OutcomeDenied, Reason: dec.Reason}, nil
	}

	res, remaining := d.cooldown.TryReserve(deviceID, cfg.EffectiveMinDelay(), d.now())
	if res == nil {
		reason := fmt.Sprintf("cooldown active, retry in %ds", int(remaining/time.Second))
		d.finish(dispatchID, deviceID, dir, origin, OutcomeCooldown, reason, start)
		return Result{Outcome: OutcomeCooldown, Reason: reason, RetryAfter: remaining}, nil
	}

	switch err := d.correlator.Send(ctx, deviceID, dir); {
	case err == nil:
		confirmedAt := d.now()
		res.Commit(confirmedAt)
		if err := d.reg.SetLastCommandTime(ctx, deviceID, confirmedAt); err != nil {
			d.log.Warnf("persist last command time for %s: %v", deviceID, err)
		}
		d.finish(dispatchID, deviceID, dir, origin, OutcomeOK, "", start)
		return Result{OK: true, Outcome: OutcomeOK}, nil

	case errors.Is(err, ErrDeviceRejected):
		res.Release()
		d.finish(dispatchID, deviceID, dir, origin, OutcomeRejected, err.Error(), start)
		return Result{Outcome: OutcomeRejected, Reason: err.Error()}, nil

	case errors.Is(err, ErrResponseTimeout):
		res.Release()
		d.finish(dispatchID, deviceID, dir, origin, OutcomeTimeout, err.Error(), start)
		return Result{Outcome: OutcomeTimeout, Reason: err.Error()}, nil

	default:
		res.Release()
		d.finish(dispatchID, deviceID, dir, origin, OutcomeError, err.Error(), start)
		return Result{}, err
	}
}

// finish records the attempt in metrics, logs and the event bus.
func (d *Dispatcher) finish(dispatchID, deviceID string, dir model.Direction, origin events.Origin, outcome Outcome, reason string, start time.Time) {
	latency := d.now().Sub(start)
	commandOutcomes.WithLabelValues(deviceID, string(dir), string(origin), string(outcome)).Inc()
	d.log.Debugw("dispatch finished", map[string]any{
		"dispatch_id": dispatchID,
		"device":      deviceID,
		"direction":   string(dir),
		"origin":      string(origin),
		"outcome":     string(outcome),
		"reason":      reason,
		"latency_ms":  latency.Milliseconds(),
	})
	if d.bus != nil {
		d.bus.Publish(events.CommandEvent{
			DispatchID: dispatchID,
			DeviceID:   deviceID,
			Direction:  dir,
			Origin:     origin,
			Outcome:    string(outcome),
			Reason:     reason,
			Latency:    latency,
			Time:       d.now(),
		})
	}
}
