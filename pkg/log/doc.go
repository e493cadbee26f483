// Package log provides a logging abstraction for batchq components.
//
// This package defines a Logger interface that can be implemented by
// any logging library. Adapters are provided for zerolog and for
// discarding output entirely.
//
// # Usage
//
// Wrap a configured zerolog.Logger:
//
//	logger := log.NewZerolog(zerolog.New(os.Stderr))
//
// Or take the console default:
//
//	logger := log.NewConsole()
//
// Components that are handed no logger fall back to log.Nop().
//
// # Custom Loggers
//
// Implement the Logger interface to plug in existing logging
// infrastructure:
//
//	type MyLogger struct { ... }
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package log
