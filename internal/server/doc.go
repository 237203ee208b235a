// Package server provides the monitoring HTTP API: health, persisted
// session listings, sanitized configuration, client statistics, and the
// Prometheus metrics endpoint.
package server
