package control

import (
	"context"
	"errors"
	"time"

	"github.com/gridsense/tapctl/core/events"
	"github.com/gridsense/tapctl/core/logger"
	"github.com/gridsense/tapctl/core/model"
	"github.com/gridsense/tapctl/core/registry"
	"github.com/gridsense/tapctl/core/telemetry"
	"github.com/gridsense/tapctl/internal/eventbus"
)

// ControllerConfig tunes the automatic control loop.
type ControllerConfig struct {
	// PollInterval is the telemetry sampling period.
	PollInterval time.Duration
	// WindowSize is the number of samples kept for rolling statistics.
	WindowSize int
}

// SetDefaults applies sane defaults.
func (c *ControllerConfig) SetDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.WindowSize <= 0 {
		c.WindowSize = 60
	}
}

// Controller drives automatic mode for one device: it polls the latest
// voltage, applies the deadband rule and hands qualifying decisions to the
// dispatcher. It never queues a command; a decision suppressed by cooldown is
// simply re-evaluated on the next sample.
type Controller struct {
	deviceID   string
	reg        registry.Registry
	reader     telemetry.Reader
	dispatcher *Dispatcher
	bus        eventbus.EventBus
	log        logger.Logger
	interval   time.Duration
	window     *VoltageWindow
	lastSample time.Time
	now        func() time.Time
}

// NewController creates a controller for the device.
func NewController(deviceID string, reg registry.Registry, reader telemetry.Reader, dispatcher *Dispatcher, bus eventbus.EventBus, cfg ControllerConfig, log logger.Logger) *Controller {
	cfg.SetDefaults()
	if log == nil {
		log = logger.Nop{}
	}
	return &Controller{
		deviceID:   deviceID,
		reg:        reg,
		reader:     reader,
		dispatcher: dispatcher,
		bus:        bus,
		log:        log,
		interval:   cfg.PollInterval,
		window:     NewVoltageWindow(cfg.WindowSize),
		now:        time.Now,
	}
}

// Run polls until the context is canceled.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	c.log.Infof("controller started for %s (interval %s)", c.deviceID, c.interval)
	for {
		select {
		case <-ticker.C:
			c.Step(ctx)
		case <-ctx.Done():
			c.log.Infof("controller stopped for %s", c.deviceID)
			return
		}
	}
}

// Step evaluates one control cycle. Exported so tests and the supervisor can
// drive the loop without timers.
func (c *Controller) Step(ctx context.Context) {
	cfg, err := c.reg.GetConfig(ctx, c.deviceID)
	if err != nil {
		c.log.Warnf("config for %s: %v", c.deviceID, err)
		return
	}
	if cfg.Mode != model.ModeAuto {
		return
	}

	reading, err := c.reader.Latest(ctx, c.deviceID, model.SignalVoltage)
	if err != nil {
		if errors.Is(err, telemetry.ErrUnavailable) {
			c.log.Debugf("no voltage for %s", c.deviceID)
		} else {
			c.log.Warnf("voltage for %s: %v", c.deviceID, err)
		}
		return
	}
	// Only new samples trigger an evaluation.
	if !reading.Timestamp.After(c.lastSample) {
		return
	}
	c.lastSample = reading.Timestamp

	c.window.Add(reading.Value)
	deviceVoltage.WithLabelValues(c.deviceID).Set(reading.Value)
	deviceVoltageMean.WithLabelValues(c.deviceID).Set(c.window.Mean())

	action := DeadbandDecision(cfg.Band, cfg.ThresholdPct, reading.Value)
	if c.bus != nil {
		c.bus.Publish(events.SampleEvent{
			DeviceID: c.deviceID,
			Voltage:  reading.Value,
			Mean:     c.window.Mean(),
			StdDev:   c.window.StdDev(),
			Action:   action.String(),
			Time:     reading.Timestamp,
		})
	}
	if action == ActionNone {
		return
	}

	if rem := c.dispatcher.Cooldown().Remaining(c.deviceID, cfg.EffectiveMinDelay(), c.now()); rem > 0 {
		cooldownSuppressed.WithLabelValues(c.deviceID).Inc()
		c.log.Infof("suppressing %s for %s, cooldown for %ds", action, c.deviceID, int(rem/time.Second))
		return
	}

	res, err := c.dispatcher.Dispatch(ctx, c.deviceID, action.Direction(), events.OriginAutomatic)
	switch {
	case err != nil:
		c.log.Errorf("dispatch %s for %s: %v", action, c.deviceID, err)
	case res.OK:
		c.log.Infof("dispatched %s for %s (voltage %.2f V)", action, c.deviceID, reading.Value)
	default:
		c.log.Infof("dispatch %s for %s not executed: %s", action, c.deviceID, res.Reason)
	}
}
