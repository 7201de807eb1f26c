// Package logging assembles structured slog loggers and formatting helpers used
// across prebuild.
//
// It owns the console and JSON handlers, tees every record into a JSON log under
// the configured log directory, and exposes context-aware helpers so stage code
// automatically tags log lines with the run id, stage, and artifact. Soft
// failures are reported through WarnWithContext so each warning carries an
// event type, a hint, and the impact on the build.
package logging
