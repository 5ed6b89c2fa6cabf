// Package pkgroutine runs background table loads under a shared concurrency
// cap. Task errors and recovered panics are collected and reported by Wait
// during shutdown.
package pkgroutine
