package control

import (
	"fmt"

	"github.com/gridsense/tapctl/core/model"
)

// Decision is the outcome of a safety evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// EvaluateSafety decides whether a tap command may be issued right now.
// Checks run in a fixed order and short-circuit on the first denial:
// tap limits, topology, interlocks, then the mode-specific check. Missing
// safety-relevant telemetry denies the command; the gate fails closed.
//
// In automatic mode the deadband rule is recomputed from the snapshot taken
// at dispatch time. A stale automatic decision therefore cannot fire after
// conditions changed: the gate only allows the direction the live data still
// justifies.
func EvaluateSafety(cfg model.DeviceConfig, snap model.Snapshot, dir model.Direction) Decision {
	if snap.TapPosition == nil {
		return deny("tap position unavailable")
	}
	pos := int(snap.TapPosition.Value)
	switch dir {
	case model.Lower:
		if pos <= cfg.TapLimits.Min {
			return deny("tap position %d at lower limit %d", pos, cfg.TapLimits.Min)
		}
	case model.Raise:
		if pos >= cfg.TapLimits.Max {
			return deny("tap position %d at upper limit %d", pos, cfg.TapLimits.Max)
		}
	default:
		return deny("unknown direction %q", dir)
	}

	if cfg.Type == model.TypeFollower && cfg.Mode == model.ModeManual {
		return deny("manual follower of %s accepts no direct commands", cfg.MasterName)
	}

	if snap.Interlocks == nil {
		return deny("interlock status unavailable")
	}
	if snap.Interlocks.TapChangerInProgress {
		return deny("tap change in progress")
	}
	if snap.Interlocks.TapChangerStuck {
		return deny("tap changer stuck")
	}

	switch cfg.Mode {
	case model.ModeAuto:
		if snap.Voltage == nil {
			return deny("voltage reading unavailable")
		}
		action := DeadbandDecision(cfg.Band, cfg.ThresholdPct, snap.Voltage.Value)
		if action == ActionNone || action.Direction() != dir {
			return deny("live voltage %.2f V no longer justifies %s", snap.Voltage.Value, dir)
		}
	case model.ModeManual:
		if !snap.Interlocks.VoltageSignalValid {
			return deny("voltage signal invalid")
		}
		if snap.Current == nil {
			return deny("current reading unavailable")
		}
		amps := snap.Current.Value
		if amps > cfg.Current.OverCurrentLimit {
			return deny("current %.1f A above overcurrent limit %.1f A", amps, cfg.Current.OverCurrentLimit)
		}
		if amps > cfg.Current.Rated {
			return deny("current %.1f A above rated %.1f A", amps, cfg.Current.Rated)
		}
	default:
		return deny("unknown mode %q", cfg.Mode)
	}

	return allow()
}
