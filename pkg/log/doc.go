// Package log provides the logging abstraction used across meter.
//
// Components depend on the Logger interface only. The zerolog adapter is
// what the CLI wires in; NoopLogger is the default for library use and
// tests.
//
//	logger := log.NewConsoleLogger(verbose)
//	logger.Info("tick counted", log.Uint64("count", n))
//
// Verbose output enables the debug level, which is where per-attempt
// delivery details are written. Without it only retries, failures and
// lifecycle messages show up.
package log
