package simulator

import (
	"context"
	"fmt"
	"sync"

	corebus "github.com/gridsense/tapctl/core/bus"
	"github.com/gridsense/tapctl/core/logger"
	"github.com/gridsense/tapctl/core/model"
)

// FleetConfig describes a generated set of simulated devices.
type FleetConfig struct {
	// Size is the number of devices, named <Prefix>-001 onward.
	Size   int
	Prefix string
	Limits model.TapLimits
}

// SetDefaults applies sane defaults.
func (c *FleetConfig) SetDefaults() {
	if c.Size <= 0 {
		c.Size = 1
	}
	if c.Prefix == "" {
		c.Prefix = "sim"
	}
	if c.Limits == (model.TapLimits{}) {
		c.Limits = model.TapLimits{Min: 1, Max: 17}
	}
}

// GenerateFleet builds the devices described by the config.
func GenerateFleet(cfg FleetConfig, strat ResponseStrategy, bus corebus.Bus, log logger.Logger) []*Device {
	cfg.SetDefaults()
	devices := make([]*Device, cfg.Size)
	for i := range devices {
		id := fmt.Sprintf("%s-%03d", cfg.Prefix, i+1)
		devices[i] = NewDevice(id, cfg.Limits, strat, bus, log)
	}
	return devices
}

// RunFleet runs every device until the context is done.
func RunFleet(ctx context.Context, devices []*Device, log logger.Logger) {
	if log == nil {
		log = logger.Nop{}
	}
	var wg sync.WaitGroup
	for _, d := range devices {
		wg.Add(1)
		go func(d *Device) {
			defer wg.Done()
			if err := d.Run(ctx); err != nil {
				log.Errorf("%s: %v", d.ID, err)
			}
		}(d)
	}
	wg.Wait()
}
