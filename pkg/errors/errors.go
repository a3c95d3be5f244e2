// Package errors provides the structured error system for DirStore with
// error codes, categories, and key/path context.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode identifies a class of DirStore failure. Callers branch on codes
// via errors.Is against the exported template errors, or via the predicate
// helpers in this package.
type ErrorCode string

const (
	// Storage errors
	ErrCodeObjectNotFound  ErrorCode = "OBJECT_NOT_FOUND"
	ErrCodeCorruptDocument ErrorCode = "CORRUPT_JSON"
	ErrCodeFilesystem      ErrorCode = "FILESYSTEM_ERROR"

	// Validation errors
	ErrCodeInvalidKey        ErrorCode = "INVALID_KEY"
	ErrCodeInvalidCollection ErrorCode = "INVALID_COLLECTION"
	ErrCodeEncodeFailure     ErrorCode = "ENCODE_FAILURE"

	// Configuration errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeConfigLoad    ErrorCode = "CONFIG_LOAD"
	ErrCodeConfigSave    ErrorCode = "CONFIG_SAVE"
)

// ErrorCategory groups error codes for logging and metrics labels.
type ErrorCategory string

const (
	CategoryStorage       ErrorCategory = "storage"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryInternal      ErrorCategory = "internal"
)

// StorageError is the structured error returned by every DirStore operation
// that fails. The Code carries the taxonomy; Namespace/ID are set for
// not-found errors, Path for filesystem and decode failures, and Cause holds
// the underlying os/SDK/codec error for errors.As chains.
type StorageError struct {
	Code     ErrorCode     `json:"code"`
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`

	// Key and path context, populated per code.
	Namespace []string `json:"namespace,omitempty"`
	ID        string   `json:"id,omitempty"`
	Path      string   `json:"path,omitempty"`

	Context   map[string]string `json:"context,omitempty"`
	Cause     error             `json:"-"` // not serialized to avoid circular refs
	Timestamp time.Time         `json:"timestamp"`

	Component string `json:"component,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Component != "" {
		if e.Operation != "" {
			return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
		}
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error wrapping compatibility.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Is matches any *StorageError carrying the same code, so
// errors.Is(err, &StorageError{Code: ErrCodeObjectNotFound}) and the
// exported templates below both work.
func (e *StorageError) Is(target error) bool {
	var t *StorageError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// String returns a detailed representation for logging.
func (e *StorageError) String() string {
	parts := []string{
		fmt.Sprintf("Code=%s", e.Code),
		fmt.Sprintf("Category=%s", e.Category),
		fmt.Sprintf("Message=%q", e.Message),
	}
	if len(e.Namespace) > 0 {
		parts = append(parts, fmt.Sprintf("Namespace=%s", strings.Join(e.Namespace, "/")))
	}
	if e.ID != "" {
		parts = append(parts, fmt.Sprintf("ID=%s", e.ID))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("Path=%s", e.Path))
	}
	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("Component=%s", e.Component))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation=%s", e.Operation))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}
	return fmt.Sprintf("StorageError{%s}", strings.Join(parts, ", "))
}

// Template errors for errors.Is matching by code.
var (
	ErrObjectNotFound  = &StorageError{Code: ErrCodeObjectNotFound}
	ErrCorruptDocument = &StorageError{Code: ErrCodeCorruptDocument}
	ErrFilesystem      = &StorageError{Code: ErrCodeFilesystem}
	ErrInvalidKey      = &StorageError{Code: ErrCodeInvalidKey}
)

// NewError creates a StorageError with defaults derived from the code.
func NewError(code ErrorCode, message string) *StorageError {
	return &StorageError{
		Code:      code,
		Category:  GetCategory(code),
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewObjectNotFound reports that no object exists for the given namespace
// and id. Expected during normal operation; callers routinely branch on it.
func NewObjectNotFound(namespace []string, id string) *StorageError {
	e := NewError(ErrCodeObjectNotFound, fmt.Sprintf("object %q not found in namespace [%s]", id, strings.Join(namespace, " ")))
	e.Namespace = append([]string(nil), namespace...)
	e.ID = id
	return e
}

// NewCorruptDocument reports that the file at path was read but could not be
// decoded; cause carries the codec's own diagnostic.
func NewCorruptDocument(path string, cause error) *StorageError {
	e := NewError(ErrCodeCorruptDocument, fmt.Sprintf("object at %s failed to decode", path))
	e.Path = path
	e.Cause = cause
	return e
}

// NewFilesystemError wraps any non-not-found gateway failure with the path
// the operation touched.
func NewFilesystemError(path string, cause error) *StorageError {
	e := NewError(ErrCodeFilesystem, fmt.Sprintf("filesystem operation on %s failed", path))
	e.Path = path
	e.Cause = cause
	return e
}

// NewInvalidKey reports a rejected collection name, namespace element, or id.
func NewInvalidKey(detail string) *StorageError {
	return NewError(ErrCodeInvalidKey, detail)
}

// NewEncodeFailure reports that a value could not be serialized for storage;
// cause carries the codec's own diagnostic.
func NewEncodeFailure(cause error) *StorageError {
	e := NewError(ErrCodeEncodeFailure, "failed to encode object")
	e.Cause = cause
	return e
}

// NewInvalidConfig reports a configuration validation failure.
func NewInvalidConfig(detail string) *StorageError {
	return NewError(ErrCodeInvalidConfig, detail)
}

// GetCategory determines the category for an error code.
func GetCategory(code ErrorCode) ErrorCategory {
	switch code {
	case ErrCodeObjectNotFound, ErrCodeCorruptDocument, ErrCodeFilesystem:
		return CategoryStorage
	case ErrCodeInvalidKey, ErrCodeInvalidCollection, ErrCodeEncodeFailure:
		return CategoryValidation
	case ErrCodeInvalidConfig, ErrCodeConfigLoad, ErrCodeConfigSave:
		return CategoryConfiguration
	default:
		return CategoryInternal
	}
}

// WithContext adds contextual information to an error.
func (e *StorageError) WithContext(key, value string) *StorageError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithComponent sets the component for an error.
func (e *StorageError) WithComponent(component string) *StorageError {
	e.Component = component
	return e
}

// WithOperation sets the operation for an error.
func (e *StorageError) WithOperation(operation string) *StorageError {
	e.Operation = operation
	return e
}

// WithCause sets the underlying cause.
func (e *StorageError) WithCause(cause error) *StorageError {
	e.Cause = cause
	return e
}

// IsObjectNotFound reports whether err is an OBJECT_NOT_FOUND storage error.
func IsObjectNotFound(err error) bool {
	return hasCode(err, ErrCodeObjectNotFound)
}

// IsCorruptDocument reports whether err is a CORRUPT_JSON storage error.
func IsCorruptDocument(err error) bool {
	return hasCode(err, ErrCodeCorruptDocument)
}

// IsFilesystem reports whether err is a FILESYSTEM_ERROR storage error.
func IsFilesystem(err error) bool {
	return hasCode(err, ErrCodeFilesystem)
}

// IsInvalidKey reports whether err is an INVALID_KEY storage error.
func IsInvalidKey(err error) bool {
	return hasCode(err, ErrCodeInvalidKey)
}

// IsEncodeFailure reports whether err is an ENCODE_FAILURE storage error.
func IsEncodeFailure(err error) bool {
	return hasCode(err, ErrCodeEncodeFailure)
}

func hasCode(err error, code ErrorCode) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
