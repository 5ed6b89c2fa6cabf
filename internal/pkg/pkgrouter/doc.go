// Package pkgrouter wraps HTTP routing and common middleware used by the API.
//
// Handlers return a value and an error. Values are wrapped in a JSON envelope
// unless they implement Streamer, and errors are mapped to status codes
// through pkgerror.
package pkgrouter
