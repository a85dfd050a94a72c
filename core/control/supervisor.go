package control

import (
	"context"
	"sync"
	"time"

	"github.com/gridsense/tapctl/core/logger"
	"github.com/gridsense/tapctl/core/model"
	"github.com/gridsense/tapctl/core/registry"
	"github.com/gridsense/tapctl/core/telemetry"
	"github.com/gridsense/tapctl/internal/eventbus"
)

// Supervisor keeps one controller goroutine running per automatic-mode
// device. It rescans the registry periodically so mode changes and newly
// on-boarded devices take effect without a restart.
type Supervisor struct {
	reg        registry.Registry
	reader     telemetry.Reader
	dispatcher *Dispatcher
	bus        eventbus.EventBus
	cfg        ControllerConfig
	rescan     time.Duration
	log        logger.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewSupervisor creates a supervisor. A non-positive rescan interval
// defaults to thirty seconds.
func NewSupervisor(reg registry.Registry, reader telemetry.Reader, dispatcher *Dispatcher, bus eventbus.EventBus, cfg ControllerConfig, rescan time.Duration, log logger.Logger) *Supervisor {
	cfg.SetDefaults()
	if rescan <= 0 {
		rescan = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Supervisor{
		reg:        reg,
		reader:     reader,
		dispatcher: dispatcher,
		bus:        bus,
		cfg:        cfg,
		rescan:     rescan,
		log:        log,
		running:    make(map[string]context.CancelFunc),
	}
}

// Run reconciles controllers against the registry until the context is
// canceled, then stops every controller and waits for them to exit.
func (s *Supervisor) Run(ctx context.Context) {
	s.reconcile(ctx)
	ticker := time.NewTicker(s.rescan)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.reconcile(ctx)
		case <-ctx.Done():
			s.stopAll()
			s.wg.Wait()
			return
		}
	}
}

func (s *Supervisor) reconcile(ctx context.Context) {
	configs, err := s.reg.ListConfigs(ctx)
	if err != nil {
		s.log.Errorf("list configs: %v", err)
		return
	}
	want := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		if cfg.Mode == model.ModeAuto {
			want[cfg.DeviceID] = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range want {
		if _, ok := s.running[id]; ok {
			continue
		}
		cctx, cancel := context.WithCancel(ctx)
		s.running[id] = cancel
		ctl := NewController(id, s.reg, s.reader, s.dispatcher, s.bus, s.cfg, s.log)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ctl.Run(cctx)
		}()
	}
	for id, cancel := range s.running {
		if !want[id] {
			cancel()
			delete(s.running, id)
		}
	}
}

func (s *Supervisor) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cancel := range s.running {
		cancel()
		delete(s.running, id)
	}
}

// Running returns the ids of devices with an active controller.
func (s *Supervisor) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.running))
	for id := range s.running {
		ids = append(ids, id)
	}
	return ids
}
