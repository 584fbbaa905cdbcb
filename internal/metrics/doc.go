// Package metrics declares the Prometheus collectors exported on the
// internal /metrics endpoint, grouped by component the way the rest of this
// codebase's ambient stack is organized.
package metrics
