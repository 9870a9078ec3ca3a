// Package errors provides structured errors and levelled logging for the
// clienthello module. Errors carry a severity, the calling function and an
// optional inner error; the Log* helpers format through the same type so a
// logged failure and a returned one read alike.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
)

const trim = len("github.com/refraction-networking/clienthello/")

// Severity levels for logging. Lower value means more severe.
type Severity int32

const (
	SeverityUnknown Severity = 0
	SeverityError   Severity = 1
	SeverityWarning Severity = 2
	SeverityInfo    Severity = 3
	SeverityDebug   Severity = 4
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "Error"
	case SeverityWarning:
		return "Warning"
	case SeverityInfo:
		return "Info"
	case SeverityDebug:
		return "Debug"
	default:
		return "Unknown"
	}
}

var (
	globalLogLevel atomic.Int32
	logWriter      atomic.Value // writerBox
	logCallback    atomic.Value // func(Severity, string)
)

func init() {
	globalLogLevel.Store(int32(SeverityWarning))
	logWriter.Store(writerBox{os.Stderr})
}

// writerBox keeps the stored type fixed whatever writer is set.
type writerBox struct{ w io.Writer }

// SetLogCallback routes every log line through cb instead of the log writer.
// Pass nil to go back to the writer.
func SetLogCallback(cb func(Severity, string)) {
	logCallback.Store(cb)
}

// SetLogLevel sets the minimum severity that gets logged.
func SetLogLevel(s Severity) {
	globalLogLevel.Store(int32(s))
}

// GetLogLevel returns the current log level.
func GetLogLevel() Severity {
	return Severity(globalLogLevel.Load())
}

// SetLogWriter sets the output writer for logs. nil restores stderr.
func SetLogWriter(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logWriter.Store(writerBox{w})
}

// ShouldLog reports whether messages at severity pass the current level.
func ShouldLog(severity Severity) bool {
	return severity <= Severity(globalLogLevel.Load())
}

type hasInnerError interface {
	Unwrap() error
}

type hasSeverity interface {
	Severity() Severity
}

// Error is a structured error with context, chaining, and optional stack trace.
type Error struct {
	prefix   []interface{}
	message  []interface{}
	caller   string
	inner    error
	severity Severity
	stack    []uintptr
}

// Error implements error.Error().
func (err *Error) Error() string {
	builder := strings.Builder{}
	for _, prefix := range err.prefix {
		builder.WriteByte('[')
		builder.WriteString(fmt.Sprint(prefix))
		builder.WriteString("] ")
	}

	if len(err.caller) > 0 {
		builder.WriteString(err.caller)
		builder.WriteString(": ")
	}

	builder.WriteString(fmt.Sprint(err.message...))

	if err.inner != nil {
		builder.WriteString(" > ")
		builder.WriteString(err.inner.Error())
	}

	if len(err.stack) > 0 {
		builder.WriteString("\nStack trace:\n")
		frames := runtime.CallersFrames(err.stack)
		for n := 0; ; n++ {
			frame, more := frames.Next()
			if frame.Function == "" {
				break
			}
			fileName := frame.File
			if idx := strings.LastIndex(fileName, "/"); idx >= 0 {
				fileName = fileName[idx+1:]
			}
			fmt.Fprintf(&builder, "  #%d %s (%s:%d)\n", n, trimFunc(frame.Function), fileName, frame.Line)
			if !more {
				break
			}
		}
	}

	return builder.String()
}

// Unwrap returns the inner error, if any.
func (err *Error) Unwrap() error {
	return err.inner
}

// Base sets the inner error.
func (err *Error) Base(e error) *Error {
	err.inner = e
	return err
}

func (err *Error) atSeverity(s Severity) *Error {
	err.severity = s
	return err
}

// Severity returns the error's severity, or the inner error's when that one
// is more severe.
func (err *Error) Severity() Severity {
	if err.inner == nil {
		return err.severity
	}
	if s, ok := err.inner.(hasSeverity); ok {
		if as := s.Severity(); as < err.severity {
			return as
		}
	}
	return err.severity
}

// AtDebug sets the severity to debug.
func (err *Error) AtDebug() *Error {
	return err.atSeverity(SeverityDebug)
}

// AtInfo sets the severity to info.
func (err *Error) AtInfo() *Error {
	return err.atSeverity(SeverityInfo)
}

// AtWarning sets the severity to warning.
func (err *Error) AtWarning() *Error {
	return err.atSeverity(SeverityWarning)
}

// AtError sets the severity to error.
func (err *Error) AtError() *Error {
	return err.atSeverity(SeverityError)
}

// String returns the string representation of this error.
func (err *Error) String() string {
	return err.Error()
}

// New returns a new error object with message formed from given arguments.
func New(msg ...interface{}) *Error {
	pc, _, _, _ := runtime.Caller(1)
	return &Error{
		message:  msg,
		severity: SeverityInfo,
		caller:   trimFunc(runtime.FuncForPC(pc).Name()),
	}
}

// Kind returns an error without caller information, meant to be declared
// once as a package-level sentinel and attached to call-site errors with Base
// so that errors.Is can match it.
func Kind(msg ...interface{}) *Error {
	return &Error{
		message:  msg,
		severity: SeverityWarning,
	}
}

// LogDebug logs a debug message. It is a no-op unless built with -tags debug.
func LogDebug(ctx context.Context, msg ...interface{}) {
	if !DebugLoggingEnabled || !ShouldLog(SeverityDebug) {
		return
	}
	doLog(ctx, nil, SeverityDebug, msg...)
}

// LogInfo logs an info message.
func LogInfo(ctx context.Context, msg ...interface{}) {
	if !ShouldLog(SeverityInfo) {
		return
	}
	doLog(ctx, nil, SeverityInfo, msg...)
}

// LogInfoInner logs an info message with an inner error.
func LogInfoInner(ctx context.Context, inner error, msg ...interface{}) {
	if !ShouldLog(SeverityInfo) {
		return
	}
	doLog(ctx, inner, SeverityInfo, msg...)
}

// LogWarning logs a warning message.
func LogWarning(ctx context.Context, msg ...interface{}) {
	if !ShouldLog(SeverityWarning) {
		return
	}
	doLog(ctx, nil, SeverityWarning, msg...)
}

// LogWarningInner logs a warning message with an inner error.
func LogWarningInner(ctx context.Context, inner error, msg ...interface{}) {
	if !ShouldLog(SeverityWarning) {
		return
	}
	doLog(ctx, inner, SeverityWarning, msg...)
}

// LogError logs an error message.
func LogError(ctx context.Context, msg ...interface{}) {
	if !ShouldLog(SeverityError) {
		return
	}
	doLog(ctx, nil, SeverityError, msg...)
}

func doLog(ctx context.Context, inner error, severity Severity, msg ...interface{}) {
	pc, _, _, _ := runtime.Caller(2)

	err := &Error{
		message:  msg,
		severity: severity,
		caller:   trimFunc(runtime.FuncForPC(pc).Name()),
		inner:    inner,
	}
	// Errors only; warnings in this module are routine (duplicate extensions).
	if severity <= SeverityError {
		err.stack = callers(4)
	}
	if id := IDFromContext(ctx); id > 0 {
		err.prefix = append(err.prefix, uint32(id))
	}

	line := err.String()
	if cb, _ := logCallback.Load().(func(Severity, string)); cb != nil {
		cb(severity, line)
		return
	}
	w := logWriter.Load().(writerBox).w
	fmt.Fprintf(w, "[%s] %s\n", severity.String(), line)
}

func callers(skip int) []uintptr {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return nil
	}
	stack := make([]uintptr, n)
	copy(stack, pcs[:n])
	return stack
}

func trimFunc(name string) string {
	if len(name) >= trim && strings.HasPrefix(name, "github.com/refraction-networking/clienthello/") {
		return name[trim:]
	}
	return name
}

// ID identifies the message or connection a log line belongs to.
type ID uint32

type sessionKey int

const idSessionKey sessionKey = 0

// ContextWithID returns a context carrying id; log lines written with it are
// prefixed by the id.
func ContextWithID(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, idSessionKey, id)
}

// IDFromContext extracts the id from ctx, or 0.
func IDFromContext(ctx context.Context) ID {
	if ctx == nil {
		return 0
	}
	if id, ok := ctx.Value(idSessionKey).(ID); ok {
		return id
	}
	return 0
}

// Cause returns the root cause of err by unwrapping the chain.
func Cause(err error) error {
	if err == nil {
		return nil
	}
	for {
		var innerErr hasInnerError
		if !stderrors.As(err, &innerErr) {
			break
		}
		unwrapped := innerErr.Unwrap()
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}
	return err
}

// GetSeverity returns the severity of err, including inner errors.
func GetSeverity(err error) Severity {
	var s hasSeverity
	if stderrors.As(err, &s) {
		return s.Severity()
	}
	return SeverityInfo
}
