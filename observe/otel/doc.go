// Package otel is the attachment point for an OpenTelemetry observer of coop
// primitives. It currently ships a no-op observer.
package otel
