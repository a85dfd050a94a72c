// Package metrics provides Prometheus and InfluxDB implementations of the
// core metric sink interfaces.
package metrics

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gridsense/tapctl/core/events"
	coremetrics "github.com/gridsense/tapctl/core/metrics"
)

// PromSink records command events as Prometheus metrics.
type PromSink struct {
	commands *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewPromSink registers the sink metrics on the default Prometheus
// registerer.
func NewPromSink() (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tap_dispatch_events_total",
		Help: "Total number of dispatch events",
	}, []string{"device_id", "direction", "origin", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tap_dispatch_latency_seconds",
		Help:    "Time from dispatch start to final outcome",
		Buckets: prometheus.DefBuckets,
	}, []string{"device_id", "outcome"})

	if err := reg.Register(commands); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			commands = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(latency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			latency = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	return &PromSink{commands: commands, latency: latency}, nil
}

// RecordCommand increments the counters for the dispatch event.
func (s *PromSink) RecordCommand(ev events.CommandEvent) error {
	s.commands.WithLabelValues(ev.DeviceID, string(ev.Direction), string(ev.Origin), ev.Outcome).Inc()
	s.latency.WithLabelValues(ev.DeviceID, ev.Outcome).Observe(ev.Latency.Seconds())
	return nil
}

// StartPromServer starts an HTTP server exposing Prometheus metrics on the
// given address. The server runs until the provided context is canceled.
// A dedicated ServeMux is used to avoid interfering with other handlers.
func StartPromServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("prom server shutdown: %v", err)
		}
		cancel()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
