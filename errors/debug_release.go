//go:build !debug

package errors

// DebugLoggingEnabled is false in release builds; LogDebug compiles to a
// no-op. Build with -tags=debug to get parse and compose traces.
const DebugLoggingEnabled = false
