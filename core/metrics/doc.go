// Package metrics defines the sink interface used to record production plan
// computations. Sinks like PromSink and InfluxSink live in infra/metrics and
// register themselves in the factory registry; several sinks are combined
// with NewMultiSink, which the factory helpers do automatically when more
// than one sink is configured.
package metrics
