// Package errors provides a lightweight structured error type (PageSyncError)
// for category-based classification and retry semantics in the sync engine and CLI.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a PageSync error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryAuth       ErrorCategory = "auth"

	// External system integration errors
	CategoryNetwork  ErrorCategory = "network"
	CategoryGit      ErrorCategory = "git"
	CategoryClassify ErrorCategory = "classify"

	// Sync and publishing errors
	CategoryRender     ErrorCategory = "render"
	CategoryPublish    ErrorCategory = "publish"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Runtime and infrastructure errors
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryDaemon   ErrorCategory = "daemon"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// PageSyncError is a structured error with category, retryability, and context
type PageSyncError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for PageSyncError
type ContextFields map[string]any

// Error implements the error interface
func (e *PageSyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *PageSyncError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *PageSyncError) WithContext(key string, value any) *PageSyncError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new PageSyncError
func New(category ErrorCategory, severity ErrorSeverity, message string) *PageSyncError {
	return &PageSyncError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: false,
	}
}

// Wrap creates a new PageSyncError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *PageSyncError {
	return &PageSyncError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}

// Retryable creates a new retryable PageSyncError
func Retryable(category ErrorCategory, severity ErrorSeverity, message string) *PageSyncError {
	return &PageSyncError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: true,
	}
}

// WrapRetryable creates a new retryable PageSyncError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *PageSyncError {
	return &PageSyncError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if pse, ok := err.(*PageSyncError); ok {
		return pse.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if pse, ok := err.(*PageSyncError); ok {
		return pse.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a PageSyncError
func GetCategory(err error) ErrorCategory {
	if pse, ok := err.(*PageSyncError); ok {
		return pse.Category
	}
	return CategoryInternal
}

// IsFatal reports whether an error should abort the whole run.
// Non-PageSyncError values are treated as fatal: an unclassified failure
// must never reach the publish mutation stages.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if pse, ok := err.(*PageSyncError); ok {
		return pse.Severity == SeverityFatal
	}
	return true
}

// ValidationError creates a new validation error
func ValidationError(message string) *PageSyncError {
	return &PageSyncError{
		Category:  CategoryValidation,
		Severity:  SeverityWarning,
		Message:   message,
		Retryable: false,
	}
}

// WrapError wraps an existing error with a new PageSyncError
func WrapError(err error, category ErrorCategory, message string) *PageSyncError {
	return &PageSyncError{
		Category: category,
		Severity: SeverityError,
		Message:  message,
		Cause:    err,
	}
}
