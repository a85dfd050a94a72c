package control

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	publishSuccess     prometheus.Counter
	publishFailure     prometheus.Counter
	correlationLatency prometheus.Histogram
	commandOutcomes    *prometheus.CounterVec
	cooldownSuppressed *prometheus.CounterVec
	deviceVoltage      *prometheus.GaugeVec
	deviceVoltageMean  *prometheus.GaugeVec
)

func newCollectors() (prometheus.Counter, prometheus.Counter, prometheus.Histogram, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.GaugeVec, *prometheus.GaugeVec) {
	suc := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tap_command_publish_success_total",
		Help: "Number of successful command publish operations",
	})
	fail := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tap_command_publish_failure_total",
		Help: "Number of failed command publish operations",
	})
	lat := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tap_command_correlation_latency_seconds",
		Help:    "Time from command publish to matching device response",
		Buckets: prometheus.DefBuckets,
	})
	out := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tap_command_outcomes_total",
		Help: "Dispatch outcomes by device, direction and result",
	}, []string{"device_id", "direction", "origin", "outcome"})
	sup := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tap_commands_suppressed_total",
		Help: "Automatic commands suppressed by an active cooldown",
	}, []string{"device_id"})
	volt := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "device_voltage_volts",
		Help: "Last voltage sample evaluated by the deadband controller",
	}, []string{"device_id"})
	mean := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "device_voltage_window_mean_volts",
		Help: "Rolling mean of recent voltage samples",
	}, []string{"device_id"})
	return suc, fail, lat, out, sup, volt, mean
}

func init() {
	publishSuccess, publishFailure, correlationLatency, commandOutcomes, cooldownSuppressed, deviceVoltage, deviceVoltageMean = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers the control metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(publishSuccess, publishFailure, correlationLatency,
		commandOutcomes, cooldownSuppressed, deviceVoltage, deviceVoltageMean)
}

// ResetMetrics reinitializes the collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	publishSuccess, publishFailure, correlationLatency, commandOutcomes, cooldownSuppressed, deviceVoltage, deviceVoltageMean = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
