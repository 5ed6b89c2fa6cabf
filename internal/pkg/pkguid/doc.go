// Package pkguid hides the identifier strategy behind two small interfaces.
//
// Workspaces and table loads are keyed by time-ordered UUIDv7 strings, while
// merge runs get Snowflake numbers so they sort by creation time and fit in a
// single int64 column of an exported report.
package pkguid
