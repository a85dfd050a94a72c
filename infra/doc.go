// Package infra contains technical adapters such as the MQTT bus client,
// the SQLite device registry, the InfluxDB telemetry reader and metric
// exporters. These packages depend only on the interfaces defined in the
// core packages.
package infra
