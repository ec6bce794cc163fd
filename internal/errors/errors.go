// Package errors provides structured error types for version computation.
//
// Diagnostics found while reading a repository are not returned one by one:
// they are collected and reported together, each classified by an ErrorCode.
package errors

import "fmt"

// ErrorCode represents a structured error classification.
type ErrorCode string

const (
	// ErrCodeParse indicates a tag that looks like a version but is malformed.
	ErrCodeParse ErrorCode = "PARSE_ERROR"
	// ErrCodeAmbiguousCommit indicates more than one version for a commit, or one
	// version on more than one commit.
	ErrCodeAmbiguousCommit ErrorCode = "AMBIGUOUS_COMMIT"
	// ErrCodeNonCompactHistory indicates a gap in the released versions.
	ErrCodeNonCompactHistory ErrorCode = "NON_COMPACT_HISTORY"
	// ErrCodeMissingFloor indicates the configured starting version tag does not exist.
	ErrCodeMissingFloor ErrorCode = "MISSING_FLOOR"
	// ErrCodeNotAPossibleVersion indicates a tag outside the legal versions of its commit.
	ErrCodeNotAPossibleVersion ErrorCode = "NOT_A_POSSIBLE_VERSION"
	// ErrCodeCIConfig indicates an invalid CI branch configuration.
	ErrCodeCIConfig ErrorCode = "CI_CONFIG_ERROR"
	// ErrCodeDirtyWorkingTree indicates uncommitted changes in the working tree.
	ErrCodeDirtyWorkingTree ErrorCode = "DIRTY_WORKING_TREE"
	// ErrCodeNonStandardPrerelease indicates a prerelease name outside the standard ones.
	ErrCodeNonStandardPrerelease ErrorCode = "NON_STANDARD_PRERELEASE"
	// ErrCodeNoVersion indicates no valid version could be computed for a commit.
	ErrCodeNoVersion ErrorCode = "NO_VERSION"
	// ErrCodeInvalidRequest indicates invalid options or arguments.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeInternal indicates an unexpected failure, usually while reading git objects.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// StructuredError carries an error code for programmatic handling, a
// human-readable message, the underlying cause and optional context.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a new StructuredError with the given code and message.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
	}
}

// NewWithContext creates a new StructuredError with context information.
func NewWithContext(code ErrorCode, message string, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Context: context,
	}
}

// Wrap wraps an existing error with a code and a message.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
