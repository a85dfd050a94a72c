package config

import "fmt"

// RegistryConfig selects the device configuration store.
type RegistryConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `json:"driver"`
	// Path is the database file location for the sqlite driver.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *RegistryConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.Driver == "sqlite" && c.Path == "" {
		c.Path = "devices.db"
	}
}

// Validate checks mandatory fields.
func (c RegistryConfig) Validate() error {
	switch c.Driver {
	case "sqlite":
		if c.Path == "" {
			return fmt.Errorf("registry path is required for sqlite")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown registry driver %q", c.Driver)
	}
	return nil
}

// ControlConfig tunes the dispatch pipeline and the automatic loop.
type ControlConfig struct {
	// ResponseTimeoutSeconds bounds the wait for a device acknowledgment.
	ResponseTimeoutSeconds int `json:"response_timeout_seconds"`
	// ResponseSuffixes are the response channel names subscribed per
	// command; empty selects the built-in defaults.
	ResponseSuffixes []string `json:"response_suffixes"`
	// PollIntervalSeconds is the controller telemetry sampling period.
	PollIntervalSeconds int `json:"poll_interval_seconds"`
	// RescanIntervalSeconds is how often the supervisor re-reads the
	// registry for mode changes and new devices.
	RescanIntervalSeconds int `json:"rescan_interval_seconds"`
	// WindowSize is the number of voltage samples kept for statistics.
	WindowSize int `json:"window_size"`
}

// SetDefaults applies sane defaults.
func (c *ControlConfig) SetDefaults() {
	if c.ResponseTimeoutSeconds <= 0 {
		c.ResponseTimeoutSeconds = 30
	}
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = 5
	}
	if c.RescanIntervalSeconds <= 0 {
		c.RescanIntervalSeconds = 30
	}
	if c.WindowSize <= 0 {
		c.WindowSize = 60
	}
}

// Validate checks field ranges.
func (c ControlConfig) Validate() error {
	if c.ResponseTimeoutSeconds > 300 {
		return fmt.Errorf("response timeout %ds unreasonably long", c.ResponseTimeoutSeconds)
	}
	return nil
}

// MetricsConfig selects the observability backends.
type MetricsConfig struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusAddr    string `json:"prometheus_addr"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// SetDefaults applies sane defaults.
func (c *MetricsConfig) SetDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = ":9100"
	}
}
