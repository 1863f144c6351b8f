// Package logging provides structured logging for the relay gateway.
//
// It wraps the standard library's log/slog with configuration-driven
// setup (level, format, output) and default service attributes so every
// log line carries the service name and version.
//
// Components receive a *Logger (or a narrower interface they define
// themselves) via dependency injection; nothing logs through a global.
package logging
