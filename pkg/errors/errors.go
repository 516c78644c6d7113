// Package errors provides structured error types for monopy.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP inspector and library callers
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures (malformed manifests, bad names)
//   - *_NOT_FOUND: Referenced project or file does not exist
//   - DEPENDENCY_CONFLICT, CIRCULAR_DEPENDENCY: dependency graph failures
//   - SUBPROCESS_FAILED, TOOL_MISSING: package manager boundary failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeProjectNotFound, "project %s not found", name)
//	if errors.Is(err, errors.ErrCodeProjectNotFound) {
//	    // Handle missing project
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidManifest, origErr, "parse %s", path)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidPackage  Code = "INVALID_PACKAGE"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidPath     Code = "INVALID_PATH"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeProjectNotFound Code = "PROJECT_NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"

	// Dependency graph errors
	ErrCodeConflict Code = "DEPENDENCY_CONFLICT"
	ErrCodeCircular Code = "CIRCULAR_DEPENDENCY"

	// Package manager errors
	ErrCodeSubprocess  Code = "SUBPROCESS_FAILED"
	ErrCodeToolMissing Code = "TOOL_MISSING"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// coder is implemented by the typed errors below so that Is and GetCode
// work for them without wrapping in *Error.
type coder interface {
	Code() Code
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or a typed error with a
// matching code. The outermost coded error wins.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no coded error is found in the chain.
func GetCode(err error) Code {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Code
		case coder:
			return e.Code()
		}
		err = errors.Unwrap(err)
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message (and cause) without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s", e.Message, UserMessage(e.Cause))
		}
		return e.Message
	}
	return err.Error()
}

// ConflictError reports two manifests declaring incompatible version
// constraints for the same dependency. It is never auto-resolved.
type ConflictError struct {
	Dependency string
	Versions   [2]string // incoming, existing
	Projects   [2]string // incoming project, existing owner
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("dependency version mismatch for %s: got %s in %s and %s in %s; resolve the conflict before proceeding",
		e.Dependency, e.Versions[0], orUnnamed(e.Projects[0]), e.Versions[1], orUnnamed(e.Projects[1]))
}

// Code returns the error code for this error type.
func (e *ConflictError) Code() Code { return ErrCodeConflict }

// CircularDependencyError reports a cycle between local path dependencies.
// Chain lists the projects in visiting order, ending with the repeated one.
type CircularDependencyError struct {
	Chain []string
}

// Error implements the error interface.
func (e *CircularDependencyError) Error() string {
	return "circular local dependency: " + strings.Join(e.Chain, " -> ")
}

// Code returns the error code for this error type.
func (e *CircularDependencyError) Code() Code { return ErrCodeCircular }

// SubprocessError reports a package manager invocation that exited non-zero.
type SubprocessError struct {
	Command  string
	ExitCode int
	Err      error
}

// Error implements the error interface.
func (e *SubprocessError) Error() string {
	return fmt.Sprintf("%s command failed with exit code %d", e.Command, e.ExitCode)
}

// Unwrap returns the underlying process error.
func (e *SubprocessError) Unwrap() error { return e.Err }

// Code returns the error code for this error type.
func (e *SubprocessError) Code() Code { return ErrCodeSubprocess }

func orUnnamed(s string) string {
	if s == "" {
		return "<unnamed>"
	}
	return s
}
