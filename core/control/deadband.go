package control

import "github.com/gridsense/tapctl/core/model"

// Action is the outcome of a deadband evaluation.
type Action int

const (
	ActionNone Action = iota
	ActionRaise
	ActionLower
)

// String returns a label suitable for logs and metrics.
func (a Action) String() string {
	switch a {
	case ActionRaise:
		return "raise"
	case ActionLower:
		return "lower"
	}
	return "none"
}

// Direction maps the action to a command direction. Only valid for
// ActionRaise and ActionLower.
func (a Action) Direction() model.Direction {
	if a == ActionRaise {
		return model.Raise
	}
	return model.Lower
}

// DeadbandDecision applies the automatic-mode rule to one voltage sample.
//
// An out-of-band voltage is a fault condition handled elsewhere, never
// corrected by tapping. Inside the band, a symmetric dead zone around the
// midpoint absorbs small deviations so the changer does not chatter; only a
// voltage strictly beyond the zone produces a command.
//
// This is the single implementation of the rule. The controller loop uses it
// to originate commands and the safety gate uses it to revalidate them
// against live telemetry, so the two can never disagree.
func DeadbandDecision(band model.VoltageBand, thresholdPct, voltage float64) Action {
	if !band.Contains(voltage) {
		return ActionNone
	}
	mean := band.Mean()
	deadband := mean * thresholdPct / 100
	switch {
	case voltage < mean-deadband:
		return ActionRaise
	case voltage > mean+deadband:
		return ActionLower
	}
	return ActionNone
}
