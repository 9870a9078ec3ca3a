//go:build debug

package errors

// DebugLoggingEnabled is true in debug builds: parse and compose traces are
// written at SeverityDebug.
const DebugLoggingEnabled = true
