// Package pkgconfig provides a small abstraction for reading configuration values.
//
// Business code depends on the Config interface; Viper is the file-backed
// implementation, with CSVMERGER_* environment variables taking precedence.
package pkgconfig
