// Package telemetry provides the InfluxDB-backed reader for the latest
// value of a device signal.
package telemetry

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/gridsense/tapctl/core/logger"
	"github.com/gridsense/tapctl/core/model"
	coretelemetry "github.com/gridsense/tapctl/core/telemetry"
)

// Config defines the InfluxDB connection and query parameters.
type Config struct {
	URL         string `json:"url"`
	Token       string `json:"token"`
	Org         string `json:"org"`
	Bucket      string `json:"bucket"`
	Measurement string `json:"measurement"`
	// MaxAgeSeconds bounds how old the latest reading may be before it
	// counts as unavailable.
	MaxAgeSeconds int `json:"max_age_seconds"`
	// Scales converts raw stored values to engineering units per signal,
	// e.g. 0.01 for a voltage reported in centivolts.
	Scales map[string]float64 `json:"scales"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Measurement == "" {
		c.Measurement = "device_telemetry"
	}
	if c.MaxAgeSeconds <= 0 {
		c.MaxAgeSeconds = 300
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("influx url is required")
	}
	if c.Org == "" || c.Bucket == "" {
		return fmt.Errorf("influx org and bucket are required")
	}
	return nil
}

// InfluxReader reads the latest signal values with a Flux last() query.
type InfluxReader struct {
	client      influxdb2.Client
	query       api.QueryAPI
	bucket      string
	measurement string
	maxAge      time.Duration
	scales      map[string]float64
	log         logger.Logger
}

// NewInfluxReader creates a reader for the given InfluxDB endpoint.
func NewInfluxReader(cfg Config, log logger.Logger) (*InfluxReader, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop{}
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxReader{
		client:      client,
		query:       client.QueryAPI(cfg.Org),
		bucket:      cfg.Bucket,
		measurement: cfg.Measurement,
		maxAge:      time.Duration(cfg.MaxAgeSeconds) * time.Second,
		scales:      cfg.Scales,
		log:         log,
	}, nil
}

// Latest returns the most recent reading of the signal within the staleness
// window, scaled to engineering units.
func (r *InfluxReader) Latest(ctx context.Context, deviceID, signal string) (model.Reading, error) {
	flux := fmt.Sprintf(`from(bucket: %q)
  |> range(start: -%ds)
  |> filter(fn: (r) => r._measurement == %q)
  |> filter(fn: (r) => r.device_id == %q)
  |> filter(fn: (r) => r._field == %q)
  |> last()`,
		r.bucket, int(r.maxAge/time.Second), r.measurement, deviceID, signal)

	result, err := r.query.Query(ctx, flux)
	if err != nil {
		return model.Reading{}, fmt.Errorf("query %s/%s: %w", deviceID, signal, err)
	}
	defer func() {
		if err := result.Close(); err != nil {
			r.log.Warnf("close query result: %v", err)
		}
	}()

	for result.Next() {
		rec := result.Record()
		value, ok := asFloat(rec.Value())
		if !ok {
			continue
		}
		if scale, exists := r.scales[signal]; exists && scale != 0 {
			value *= scale
		}
		return model.Reading{Value: value, Timestamp: rec.Time()}, nil
	}
	if result.Err() != nil {
		return model.Reading{}, result.Err()
	}
	return model.Reading{}, coretelemetry.ErrUnavailable
}

// Close releases the underlying HTTP client.
func (r *InfluxReader) Close() { r.client.Close() }

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
