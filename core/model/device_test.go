package model

import (
	"encoding/json"
	"testing"
	"time"
)

func validConfig() DeviceConfig {
	return DeviceConfig{
		DeviceID:        "tx-1",
		Mode:            ModeAuto,
		Type:            TypeIndividual,
		MasterName:      NoMaster,
		Band:            VoltageBand{Lower: 209, Upper: 231},
		TapLimits:       TapLimits{Min: 1, Max: 17},
		MinDelaySeconds: 30,
		ThresholdPct:    5,
		Current:         CurrentRating{Rated: 400, OverCurrentLimit: 480},
	}
}

func TestEffectiveMinDelayClamp(t *testing.T) {
	cases := []struct {
		persisted int
		want      time.Duration
	}{
		{0, 11 * time.Second},
		{5, 11 * time.Second},
		{10, 11 * time.Second},
		{11, 11 * time.Second},
		{12, 12 * time.Second},
		{60, 60 * time.Second},
		{-3, 11 * time.Second},
	}
	for _, c := range cases {
		cfg := validConfig()
		cfg.MinDelaySeconds = c.persisted
		if got := cfg.EffectiveMinDelay(); got != c.want {
			t.Errorf("persisted %d: got %v want %v", c.persisted, got, c.want)
		}
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*DeviceConfig)
		wantErr bool
	}{
		{"valid", func(*DeviceConfig) {}, false},
		{"missing id", func(c *DeviceConfig) { c.DeviceID = "" }, true},
		{"bad mode", func(c *DeviceConfig) { c.Mode = "remote" }, true},
		{"bad type", func(c *DeviceConfig) { c.Type = "slave" }, true},
		{"inverted band", func(c *DeviceConfig) { c.Band = VoltageBand{Lower: 231, Upper: 209} }, true},
		{"tap min equals max", func(c *DeviceConfig) { c.TapLimits = TapLimits{Min: 5, Max: 5} }, true},
		{"threshold over 100", func(c *DeviceConfig) { c.ThresholdPct = 120 }, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := validConfig()
			c.mutate(&cfg)
			err := cfg.Validate()
			if c.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !c.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestUnmarshalCanonicalDocument(t *testing.T) {
	doc := `{
		"device_id": "tx-1",
		"mode": "auto",
		"type": "follower",
		"master_name": "tx-0",
		"band": {"lower": 209, "upper": 231},
		"tap_limits": {"min": 1, "max": 17},
		"min_delay_seconds": 30,
		"threshold_pct": 5,
		"current_rating": {"rated": 400, "over_current_limit": 480}
	}`
	var cfg DeviceConfig
	if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.DeviceID != "tx-1" || cfg.Type != TypeFollower || cfg.MasterName != "tx-0" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Band != (VoltageBand{Lower: 209, Upper: 231}) {
		t.Fatalf("band: %+v", cfg.Band)
	}
}

func TestUnmarshalLegacyFlatDocument(t *testing.T) {
	doc := `{
		"device_name": "tx-legacy",
		"mode": "manual",
		"type": "individual",
		"lower_band": 200,
		"upper_band": 240,
		"tap_min": 2,
		"tap_max": 12,
		"delay": 8,
		"threshold": 10
	}`
	var cfg DeviceConfig
	if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.DeviceID != "tx-legacy" {
		t.Fatalf("device id: %q", cfg.DeviceID)
	}
	if cfg.Band != (VoltageBand{Lower: 200, Upper: 240}) {
		t.Fatalf("band: %+v", cfg.Band)
	}
	if cfg.TapLimits != (TapLimits{Min: 2, Max: 12}) {
		t.Fatalf("tap limits: %+v", cfg.TapLimits)
	}
	if cfg.MinDelaySeconds != 8 {
		t.Fatalf("min delay: %d", cfg.MinDelaySeconds)
	}
	// the persisted value survives as-is, enforcement clamps at use
	if cfg.EffectiveMinDelay() != 11*time.Second {
		t.Fatalf("effective delay: %v", cfg.EffectiveMinDelay())
	}
	if cfg.ThresholdPct != 10 {
		t.Fatalf("threshold: %v", cfg.ThresholdPct)
	}
	if cfg.MasterName != NoMaster {
		t.Fatalf("master name: %q", cfg.MasterName)
	}
}

func TestBandContains(t *testing.T) {
	b := VoltageBand{Lower: 209, Upper: 231}
	for _, c := range []struct {
		v    float64
		want bool
	}{
		{209, true}, {231, true}, {220, true}, {208.9, false}, {231.1, false},
	} {
		if got := b.Contains(c.v); got != c.want {
			t.Errorf("Contains(%v) = %v want %v", c.v, got, c.want)
		}
	}
}
