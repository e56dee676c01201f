// Package otel exports engine metrics through an OpenTelemetry meter
// using pull-based observable instruments.
package otel
