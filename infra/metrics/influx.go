package metrics

import (
	"context"
	"net/http"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/gridsense/tapctl/core/events"
	"github.com/gridsense/tapctl/core/logger"
	coremetrics "github.com/gridsense/tapctl/core/metrics"
)

// InfluxSink writes dispatch and sample events to an InfluxDB instance using
// the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB
// endpoint.
func NewInfluxSink(url, token, org, bucket string, log logger.Logger) *InfluxSink {
	if log == nil {
		log = logger.Nop{}
	}
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      log,
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string, log logger.Logger) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket, log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordCommand writes the dispatch event as a point.
func (s *InfluxSink) RecordCommand(ev events.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("tap_command").
		AddTag("device_id", ev.DeviceID).
		AddTag("direction", string(ev.Direction)).
		AddTag("origin", string(ev.Origin)).
		AddTag("outcome", ev.Outcome).
		AddTag("dispatch_id", ev.DispatchID).
		AddField("latency_ms", ev.Latency.Milliseconds()).
		AddField("reason", ev.Reason).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSample writes a controller sample evaluation.
func (s *InfluxSink) RecordSample(ev events.SampleEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("deadband_sample").
		AddTag("device_id", ev.DeviceID).
		AddTag("action", ev.Action).
		AddField("voltage", ev.Voltage).
		AddField("window_mean", ev.Mean).
		AddField("window_stddev", ev.StdDev).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }
