// Package observability provides structured logging and metrics for the
// WiseSpirit service.
//
// This package implements:
//   - zap loggers with optional rotating file output
//   - Prometheus collectors for decisions, interpretations and narration
//   - HTTP request instrumentation for chi routers
package observability
