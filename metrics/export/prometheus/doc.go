// Package prometheus exposes engine metrics in Prometheus text exposition
// format, without a client_golang dependency. Mount [Exporter.Handler] on
// the service's metrics endpoint.
package prometheus
