// Package infra contains the technical adapters of the planner: the MQTT
// transport, the Prometheus and InfluxDB sinks, Sentry monitoring and the
// zerolog logger. These packages depend only on the interfaces defined in
// the core packages.
package infra
