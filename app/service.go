// Package app wires the configured adapters into the running service.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gridsense/tapctl/config"
	"github.com/gridsense/tapctl/core/audit"
	"github.com/gridsense/tapctl/core/control"
	coremetrics "github.com/gridsense/tapctl/core/metrics"
	"github.com/gridsense/tapctl/core/registry"
	"github.com/gridsense/tapctl/core/telemetry"
	"github.com/gridsense/tapctl/infra/bus"
	"github.com/gridsense/tapctl/infra/logger"
	"github.com/gridsense/tapctl/infra/metrics"
	infraregistry "github.com/gridsense/tapctl/infra/registry"
	infratelemetry "github.com/gridsense/tapctl/infra/telemetry"
	"github.com/gridsense/tapctl/internal/eventbus"
)

// Service owns the dispatcher, the controller supervisor and their
// supporting plumbing.
type Service struct {
	Dispatcher *control.Dispatcher
	Supervisor *control.Supervisor

	cfg      *config.Config
	reg      registry.Registry
	regClose func() error
	reader   telemetry.Reader
	mqtt     *bus.Paho
	ebus     eventbus.EventBus
	auditor  *audit.Writer
	fwd      *coremetrics.Forwarder
	log      logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	mqttBus, err := bus.NewPaho(cfg.MQTT, logger.New("mqtt"))
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}

	var reg registry.Registry
	var regClose func() error
	switch cfg.Registry.Driver {
	case "memory":
		reg = registry.NewMemory()
	default:
		store, err := infraregistry.NewSQLite(cfg.Registry.Path)
		if err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}
		reg = store
		regClose = store.Close
	}

	reader, err := infratelemetry.NewInfluxReader(cfg.Telemetry, logger.New("telemetry"))
	if err != nil {
		return nil, fmt.Errorf("telemetry reader: %w", err)
	}

	ebus := eventbus.New()

	correlator := control.NewCorrelator(mqttBus,
		time.Duration(cfg.Control.ResponseTimeoutSeconds)*time.Second,
		cfg.Control.ResponseSuffixes,
		logger.New("correlator"))
	dispatcher, err := control.NewDispatcher(reg, reader, control.NewCooldownTracker(), correlator, ebus, logger.New("dispatcher"))
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}

	ctlCfg := control.ControllerConfig{
		PollInterval: time.Duration(cfg.Control.PollIntervalSeconds) * time.Second,
		WindowSize:   cfg.Control.WindowSize,
	}
	supervisor := control.NewSupervisor(reg, reader, dispatcher, ebus, ctlCfg,
		time.Duration(cfg.Control.RescanIntervalSeconds)*time.Second,
		logger.New("supervisor"))

	svc := &Service{
		Dispatcher: dispatcher,
		Supervisor: supervisor,
		cfg:        cfg,
		reg:        reg,
		regClose:   regClose,
		reader:     reader,
		mqtt:       mqttBus,
		ebus:       ebus,
		auditor:    audit.NewWriter(reg, ebus, logger.New("audit")),
		log:        log,
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken,
			cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket,
			logger.New("influx-sink")))
	}
	if len(sinks) > 0 {
		var sink coremetrics.Sink = sinks[0]
		if len(sinks) > 1 {
			sink = metrics.NewMultiSink(sinks...)
		}
		svc.fwd = coremetrics.NewForwarder(ebus, sink, logger.New("metrics"))
	}

	return svc, nil
}

// Run starts the service and blocks until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	go s.auditor.Run(ctx)
	if s.fwd != nil {
		go s.fwd.Run(ctx)
	}
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	s.Supervisor.Run(ctx)
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.ebus.Close()
	s.mqtt.Disconnect()
	if c, ok := s.reader.(interface{ Close() }); ok {
		c.Close()
	}
	if s.regClose != nil {
		return s.regClose()
	}
	return nil
}
