// Package internaldefs holds the metric name and bucket tables shared by
// the exporter packages, so the Prometheus and OTel surfaces always agree
// on names and boundaries.
package internaldefs
