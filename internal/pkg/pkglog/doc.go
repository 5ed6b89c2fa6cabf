// Package pkglog contains logging helpers used across the application.
//
// It is built around slog: a JSON handler with stable keys, plus the request
// correlation ID and service name on every record.
package pkglog
