// Package scenarios runs YAML-described dispatch scenarios against the full
// control pipeline with in-memory adapters. The files double as executable
// documentation of the command handling rules.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gridsense/tapctl/core/model"
)

// DeviceDef describes the device under test.
type DeviceDef struct {
	ID               string  `yaml:"id"`
	Mode             string  `yaml:"mode"`
	Type             string  `yaml:"type"`
	Master           string  `yaml:"master,omitempty"`
	BandLower        float64 `yaml:"band_lower"`
	BandUpper        float64 `yaml:"band_upper"`
	TapMin           int     `yaml:"tap_min"`
	TapMax           int     `yaml:"tap_max"`
	MinDelaySeconds  int     `yaml:"min_delay_seconds"`
	ThresholdPct     float64 `yaml:"threshold_pct"`
	RatedCurrent     float64 `yaml:"rated_current"`
	OverCurrentLimit float64 `yaml:"over_current_limit"`
}

// ToModel converts the definition into the canonical config.
func (d DeviceDef) ToModel() model.DeviceConfig {
	master := d.Master
	if master == "" {
		master = model.NoMaster
	}
	return model.DeviceConfig{
		DeviceID:        d.ID,
		Mode:            model.Mode(d.Mode),
		Type:            model.DeviceType(d.Type),
		MasterName:      master,
		Band:            model.VoltageBand{Lower: d.BandLower, Upper: d.BandUpper},
		TapLimits:       model.TapLimits{Min: d.TapMin, Max: d.TapMax},
		MinDelaySeconds: d.MinDelaySeconds,
		ThresholdPct:    d.ThresholdPct,
		Current:         model.CurrentRating{Rated: d.RatedCurrent, OverCurrentLimit: d.OverCurrentLimit},
	}
}

// TelemetryDef is the measurement state presented to the pipeline.
type TelemetryDef struct {
	Voltage       *float64 `yaml:"voltage"`
	Current       *float64 `yaml:"current"`
	Tap           *int     `yaml:"tap"`
	TapInProgress bool     `yaml:"tap_in_progress,omitempty"`
	TapStuck      bool     `yaml:"tap_stuck,omitempty"`
	VoltageValid  *bool    `yaml:"voltage_valid,omitempty"`
}

// StepDef is one dispatch attempt and its expected outcome.
type StepDef struct {
	Direction string `yaml:"direction"`
	Origin    string `yaml:"origin,omitempty"`
	// Respond selects the simulated device behavior: confirm, reject or
	// silent. Default is confirm.
	Respond string `yaml:"respond,omitempty"`
	// Telemetry overrides measurements before this step.
	Telemetry *TelemetryDef `yaml:"telemetry,omitempty"`
	Expect    string        `yaml:"expect"`
}

// Scenario is one loaded scenario file.
type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Device      DeviceDef    `yaml:"device"`
	Telemetry   TelemetryDef `yaml:"telemetry"`
	Steps       []StepDef    `yaml:"steps"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario has no name", path)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("%s: scenario has no steps", path)
	}
	return &sc, nil
}
