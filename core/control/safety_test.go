package control

import (
	"strings"
	"testing"
	"time"

	"github.com/gridsense/tapctl/core/model"
)

func gateConfig() model.DeviceConfig {
	return model.DeviceConfig{
		DeviceID:        "tx-1",
		Mode:            model.ModeManual,
		Type:            model.TypeIndividual,
		MasterName:      model.NoMaster,
		Band:            model.VoltageBand{Lower: 209, Upper: 231},
		TapLimits:       model.TapLimits{Min: 1, Max: 17},
		MinDelaySeconds: 30,
		ThresholdPct:    5,
		Current:         model.CurrentRating{Rated: 400, OverCurrentLimit: 480},
	}
}

func gateSnapshot(voltage, current float64, tap int) model.Snapshot {
	now := time.Now()
	return model.Snapshot{
		Voltage:     &model.Reading{Value: voltage, Timestamp: now},
		Current:     &model.Reading{Value: current, Timestamp: now},
		TapPosition: &model.Reading{Value: float64(tap), Timestamp: now},
		Interlocks:  &model.Interlocks{VoltageSignalValid: true},
	}
}

func TestTapLimitBoundaries(t *testing.T) {
	cfg := gateConfig()

	dec := EvaluateSafety(cfg, gateSnapshot(220, 100, cfg.TapLimits.Min), model.Lower)
	if dec.Allowed {
		t.Fatal("lower at min tap must be denied")
	}
	if !strings.Contains(dec.Reason, "lower limit") {
		t.Fatalf("reason: %s", dec.Reason)
	}

	dec = EvaluateSafety(cfg, gateSnapshot(220, 100, cfg.TapLimits.Max), model.Raise)
	if dec.Allowed {
		t.Fatal("raise at max tap must be denied")
	}

	// one step inside the limits is fine
	if dec := EvaluateSafety(cfg, gateSnapshot(220, 100, cfg.TapLimits.Min+1), model.Lower); !dec.Allowed {
		t.Fatalf("lower above min denied: %s", dec.Reason)
	}
	if dec := EvaluateSafety(cfg, gateSnapshot(220, 100, cfg.TapLimits.Max-1), model.Raise); !dec.Allowed {
		t.Fatalf("raise below max denied: %s", dec.Reason)
	}
}

func TestManualFollowerDenied(t *testing.T) {
	cfg := gateConfig()
	cfg.Type = model.TypeFollower
	cfg.MasterName = "tx-0"
	dec := EvaluateSafety(cfg, gateSnapshot(220, 100, 8), model.Raise)
	if dec.Allowed {
		t.Fatal("manual follower must not accept direct commands")
	}

	// an automatic follower revalidates like any auto device
	cfg.Mode = model.ModeAuto
	cfg.ThresholdPct = 2
	snap := gateSnapshot(212, 100, 8)
	if dec := EvaluateSafety(cfg, snap, model.Raise); !dec.Allowed {
		t.Fatalf("auto follower denied: %s", dec.Reason)
	}
}

func TestInterlocksFailClosed(t *testing.T) {
	cfg := gateConfig()

	snap := gateSnapshot(220, 100, 8)
	snap.Interlocks = nil
	if dec := EvaluateSafety(cfg, snap, model.Raise); dec.Allowed {
		t.Fatal("missing interlock status must deny")
	}

	snap = gateSnapshot(220, 100, 8)
	snap.Interlocks.TapChangerInProgress = true
	if dec := EvaluateSafety(cfg, snap, model.Raise); dec.Allowed {
		t.Fatal("in-progress interlock must deny")
	}

	snap = gateSnapshot(220, 100, 8)
	snap.Interlocks.TapChangerStuck = true
	if dec := EvaluateSafety(cfg, snap, model.Raise); dec.Allowed {
		t.Fatal("stuck interlock must deny")
	}

	snap = gateSnapshot(220, 100, 8)
	snap.TapPosition = nil
	if dec := EvaluateSafety(cfg, snap, model.Raise); dec.Allowed {
		t.Fatal("missing tap position must deny")
	}
}

func TestAutoModeRevalidatesAgainstLiveVoltage(t *testing.T) {
	cfg := gateConfig()
	cfg.Mode = model.ModeAuto
	cfg.ThresholdPct = 2 // raise below 215.6, lower above 224.4

	// live voltage still justifies the raise
	if dec := EvaluateSafety(cfg, gateSnapshot(212, 100, 8), model.Raise); !dec.Allowed {
		t.Fatalf("justified raise denied: %s", dec.Reason)
	}
	// voltage recovered since the decision was made
	if dec := EvaluateSafety(cfg, gateSnapshot(220, 100, 8), model.Raise); dec.Allowed {
		t.Fatal("stale raise must be denied after recovery")
	}
	// voltage moved to the other side
	if dec := EvaluateSafety(cfg, gateSnapshot(228, 100, 8), model.Raise); dec.Allowed {
		t.Fatal("raise denied when live data wants lower")
	}
	// out-of-band voltage allows nothing in auto mode
	if dec := EvaluateSafety(cfg, gateSnapshot(205, 100, 8), model.Raise); dec.Allowed {
		t.Fatal("out-of-band voltage must deny any auto command")
	}
	if dec := EvaluateSafety(cfg, gateSnapshot(205, 100, 8), model.Lower); dec.Allowed {
		t.Fatal("out-of-band voltage must deny any auto command")
	}
}

func TestManualModeChecks(t *testing.T) {
	cfg := gateConfig()

	// overcurrent against the trip limit
	if dec := EvaluateSafety(cfg, gateSnapshot(220, 500, 8), model.Raise); dec.Allowed {
		t.Fatal("current above overcurrent limit must deny")
	}
	// above rated but below the trip limit still denies
	if dec := EvaluateSafety(cfg, gateSnapshot(220, 450, 8), model.Raise); dec.Allowed {
		t.Fatal("current above rated must deny")
	}

	snap := gateSnapshot(220, 100, 8)
	snap.Interlocks.VoltageSignalValid = false
	if dec := EvaluateSafety(cfg, snap, model.Raise); dec.Allowed {
		t.Fatal("invalid voltage signal must deny")
	}

	snap = gateSnapshot(220, 100, 8)
	snap.Current = nil
	if dec := EvaluateSafety(cfg, snap, model.Raise); dec.Allowed {
		t.Fatal("missing current reading must deny in manual mode")
	}

	// manual mode does not consult the deadband: an in-zone voltage is fine
	if dec := EvaluateSafety(cfg, gateSnapshot(220, 100, 8), model.Raise); !dec.Allowed {
		t.Fatalf("valid manual raise denied: %s", dec.Reason)
	}
}
