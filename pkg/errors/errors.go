// Package errors provides structured error handling for ProcSight.
// It implements coded errors with context and stack traces covering the
// four failure families: schema, parse, aggregation and external call.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Code identifies an error kind for programmatic handling.
type Code string

const (
	// Input errors (10x)
	CodeFileNotFound  Code = "E101"
	CodeInvalidFormat Code = "E102"

	// Schema errors (11x)
	CodeMissingColumn Code = "E111"
	CodeUnmappedField Code = "E112"

	// Parse errors (12x)
	CodeInvalidTimestamp Code = "E121"
	CodeInvalidNumber    Code = "E122"

	// Aggregation errors (2xx)
	CodeEmptyLog        Code = "E201"
	CodeInvalidGrouping Code = "E202"

	// External call errors (3xx)
	CodeExternalCall    Code = "E301"
	CodeExternalTimeout Code = "E302"

	// System errors (4xx)
	CodeContextCanceled Code = "E401"

	// Unknown
	CodeUnknown Code = "E999"
)

// Error is the base error type for all ProcSight errors.
type Error struct {
	Code       Code
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace []Frame
}

// Frame represents a stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		sb.WriteString(" (")
		first := true
		for k, v := range e.Context {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, v))
			first = false
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new Error.
func New(code Code, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StackTrace: captureStack(2),
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// captureStack captures the current stack trace.
func captureStack(skip int) []Frame {
	var frames []Frame
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	pcs = pcs[:n]

	cf := runtime.CallersFrames(pcs)
	for {
		frame, more := cf.Next()
		frames = append(frames, Frame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// CodeOf extracts the code from an error, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsSchema reports whether err is a schema error (missing or unmapped
// required field).
func IsSchema(err error) bool {
	c := CodeOf(err)
	return c == CodeMissingColumn || c == CodeUnmappedField
}

// IsParse reports whether err is a parse error (malformed timestamp or
// numeric field).
func IsParse(err error) bool {
	c := CodeOf(err)
	return c == CodeInvalidTimestamp || c == CodeInvalidNumber
}

// IsAggregation reports whether err is an aggregation error.
func IsAggregation(err error) bool {
	c := CodeOf(err)
	return c == CodeEmptyLog || c == CodeInvalidGrouping
}

// IsExternal reports whether err is an external call error.
func IsExternal(err error) bool {
	c := CodeOf(err)
	return c == CodeExternalCall || c == CodeExternalTimeout
}

// --- Convenience constructors ---

// FileNotFound creates a file not found error.
func FileNotFound(path string) *Error {
	return New(CodeFileNotFound, "file not found").WithContext("path", path)
}

// MissingColumn creates a missing column error.
func MissingColumn(column string, available []string) *Error {
	return New(CodeMissingColumn, "required column not found").
		WithContext("column", column).
		WithContext("available", available)
}

// UnmappedField creates an error for a required semantic field left
// without a source column.
func UnmappedField(field string) *Error {
	return New(CodeUnmappedField, "required field not mapped").
		WithContext("field", field)
}

// InvalidTimestamp creates a timestamp parsing error.
func InvalidTimestamp(value string, row int) *Error {
	return New(CodeInvalidTimestamp, "failed to parse timestamp").
		WithContext("value", value).
		WithContext("row", row)
}

// InvalidNumber creates a numeric parsing error.
func InvalidNumber(column, value string, row int) *Error {
	return New(CodeInvalidNumber, "failed to parse number").
		WithContext("column", column).
		WithContext("value", value).
		WithContext("row", row)
}

// EmptyLog creates an aggregation error for an empty event sequence.
func EmptyLog(operation string) *Error {
	return New(CodeEmptyLog, "cannot aggregate an empty event log").
		WithContext("operation", operation)
}

// ExternalCall wraps a collaborator failure (discovery, chart or LLM).
func ExternalCall(service string, err error) *Error {
	return Wrap(err, CodeExternalCall, "external call failed").
		WithContext("service", service)
}
