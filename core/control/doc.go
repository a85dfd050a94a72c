// Package control implements the closed-loop tap command pipeline: the
// deadband decision rule, the safety gate, the per-device cooldown tracker,
// the request/response correlator and the dispatcher that composes them.
// A controller goroutine per automatic-mode device drives the loop from live
// voltage telemetry.
package control
