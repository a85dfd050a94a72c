package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Mode selects how tap commands are originated for a device.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

// DeviceType describes the replication role of a transformer.
type DeviceType string

const (
	TypeIndividual DeviceType = "individual"
	TypeMaster     DeviceType = "master"
	TypeFollower   DeviceType = "follower"
)

// NoMaster is the sentinel stored when a device has no master assigned.
const NoMaster = "none"

// MinTapDelaySeconds is the hard floor for the inter-command delay. A device
// whose persisted delay is lower is still operated with this value.
const MinTapDelaySeconds = 11

// VoltageBand is the configured regulation band in volts.
type VoltageBand struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether v lies inside the band, bounds included.
func (b VoltageBand) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// Mean returns the band midpoint.
func (b VoltageBand) Mean() float64 { return (b.Lower + b.Upper) / 2 }

// TapLimits bounds the discrete tap position.
type TapLimits struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// CurrentRating holds the rated current and the overcurrent trip limit in amps.
type CurrentRating struct {
	Rated            float64 `json:"rated"`
	OverCurrentLimit float64 `json:"over_current_limit"`
}

// DeviceConfig is the canonical per-transformer configuration. Registry
// adapters normalize whatever shape they store into this one; the control
// packages never branch on field-name variants.
type DeviceConfig struct {
	DeviceID        string        `json:"device_id"`
	Mode            Mode          `json:"mode"`
	Type            DeviceType    `json:"type"`
	MasterName      string        `json:"master_name"`
	Band            VoltageBand   `json:"band"`
	TapLimits       TapLimits     `json:"tap_limits"`
	MinDelaySeconds int           `json:"min_delay_seconds"`
	ThresholdPct    float64       `json:"threshold_pct"`
	Current         CurrentRating `json:"current_rating"`
	LastCommandTime time.Time     `json:"-"`
}

// EffectiveMinDelay returns the enforced inter-command delay, never below the
// MinTapDelaySeconds floor regardless of what was persisted.
func (c DeviceConfig) EffectiveMinDelay() time.Duration {
	d := c.MinDelaySeconds
	if d < MinTapDelaySeconds {
		d = MinTapDelaySeconds
	}
	return time.Duration(d) * time.Second
}

// Validate checks that the configuration is internally consistent.
func (c DeviceConfig) Validate() error {
	if c.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}
	switch c.Mode {
	case ModeAuto, ModeManual:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	switch c.Type {
	case TypeIndividual, TypeMaster, TypeFollower:
	default:
		return fmt.Errorf("unknown device type %q", c.Type)
	}
	if c.Band.Lower > c.Band.Upper {
		return fmt.Errorf("voltage band lower %.2f above upper %.2f", c.Band.Lower, c.Band.Upper)
	}
	if c.TapLimits.Min >= c.TapLimits.Max {
		return fmt.Errorf("tap limits min %d not below max %d", c.TapLimits.Min, c.TapLimits.Max)
	}
	if c.ThresholdPct < 0 || c.ThresholdPct > 100 {
		return fmt.Errorf("threshold %.2f outside 0-100", c.ThresholdPct)
	}
	return nil
}

// deviceConfigDoc tolerates the legacy document shapes. Older installations
// persisted the voltage band either nested or as two flat fields, and used a
// handful of alternate key spellings. Everything collapses to DeviceConfig
// here so nothing downstream has to care.
type deviceConfigDoc struct {
	DeviceID   string      `json:"device_id"`
	DeviceName string      `json:"device_name"`
	Mode       string      `json:"mode"`
	Type       string      `json:"type"`
	MasterName string      `json:"master_name"`
	Band       *VoltageBand `json:"band"`
	LowerBand  *float64    `json:"lower_band"`
	UpperBand  *float64    `json:"upper_band"`
	TapLimits  *TapLimits  `json:"tap_limits"`
	TapMin     *int        `json:"tap_min"`
	TapMax     *int        `json:"tap_max"`
	MinDelay   *int        `json:"min_delay_seconds"`
	Delay      *int        `json:"delay"`
	Threshold  *float64    `json:"threshold_pct"`
	ThresholdA *float64    `json:"threshold"`
	Current    *CurrentRating `json:"current_rating"`
}

// UnmarshalJSON accepts both the canonical document and the legacy flat
// variants and normalizes into the canonical shape.
func (c *DeviceConfig) UnmarshalJSON(data []byte) error {
	var doc deviceConfigDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	out := DeviceConfig{
		DeviceID:   doc.DeviceID,
		Mode:       Mode(doc.Mode),
		Type:       DeviceType(doc.Type),
		MasterName: doc.MasterName,
	}
	if out.DeviceID == "" {
		out.DeviceID = doc.DeviceName
	}
	if out.MasterName == "" {
		out.MasterName = NoMaster
	}
	switch {
	case doc.Band != nil:
		out.Band = *doc.Band
	case doc.LowerBand != nil && doc.UpperBand != nil:
		out.Band = VoltageBand{Lower: *doc.LowerBand, Upper: *doc.UpperBand}
	}
	switch {
	case doc.TapLimits != nil:
		out.TapLimits = *doc.TapLimits
	case doc.TapMin != nil && doc.TapMax != nil:
		out.TapLimits = TapLimits{Min: *doc.TapMin, Max: *doc.TapMax}
	}
	switch {
	case doc.MinDelay != nil:
		out.MinDelaySeconds = *doc.MinDelay
	case doc.Delay != nil:
		out.MinDelaySeconds = *doc.Delay
	}
	switch {
	case doc.Threshold != nil:
		out.ThresholdPct = *doc.Threshold
	case doc.ThresholdA != nil:
		out.ThresholdPct = *doc.ThresholdA
	}
	if doc.Current != nil {
		out.Current = *doc.Current
	}
	*c = out
	return nil
}
