// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrSourceNotStarted is returned when a spectrum source is sampled before Start.
	ErrSourceNotStarted = errors.New("spectrum source not started")

	// ErrSourceClosed is returned when an operation is attempted on a closed source.
	ErrSourceClosed = errors.New("spectrum source closed")

	// ErrNoTrackLoaded is returned when playback is attempted with no track loaded.
	ErrNoTrackLoaded = errors.New("no track loaded")

	// ErrUnsupportedFormat is returned when an audio file format is not supported.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrFileNotFound is returned when a file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidVolume is returned when the volume is out of valid range (0.0-1.0).
	ErrInvalidVolume = errors.New("invalid volume: must be between 0.0 and 1.0")

	// ErrFieldNotFound is returned when no cached morph field exists for a key.
	ErrFieldNotFound = errors.New("morph field not found")

	// ErrFieldLengthMismatch is returned when a stored morph field does not
	// match the vertex count it claims. Callers discard and rebake.
	ErrFieldLengthMismatch = errors.New("morph field length mismatch")

	// ErrEmptyShape is returned when a morph target has no usable triangles.
	ErrEmptyShape = errors.New("shape has no triangles")

	// ErrUnknownPalette is returned when a palette name does not match a built-in.
	ErrUnknownPalette = errors.New("unknown palette")

	// ErrUnknownVariant is returned when a variant name does not match a built-in.
	ErrUnknownVariant = errors.New("unknown variant")

	// ErrBakeInProgress is returned when a bake is requested while one is running.
	ErrBakeInProgress = errors.New("bake already in progress")

	// ErrNotInitialized is returned when an operation is attempted on an uninitialized component.
	ErrNotInitialized = errors.New("component not initialized")

	// ErrAlreadyInitialized is returned when attempting to initialize an already initialized component.
	ErrAlreadyInitialized = errors.New("component already initialized")
)

// SourceError represents an error from a spectrum source or audio backend.
// This wraps low-level audio library errors with additional context.
type SourceError struct {
	Op      string // Operation that failed (e.g., "start", "decode", "capture")
	Path    string // File or device path (if applicable)
	Message string // Error message
	Err     error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("source %s failed for '%s': %s", e.Op, e.Path, e.Message)
	}
	return fmt.Sprintf("source %s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a new SourceError.
func NewSourceError(op, path, message string, err error) *SourceError {
	return &SourceError{
		Op:      op,
		Path:    path,
		Message: message,
		Err:     err,
	}
}

// RepositoryError represents an error from a repository.
// This wraps persistence layer errors with additional context.
type RepositoryError struct {
	Op      string // Operation that failed (e.g., "save", "load", "delete")
	Type    string // Repository type (e.g., "settings", "morphfield")
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s.%s failed: %s", e.Type, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NewRepositoryError creates a new RepositoryError.
func NewRepositoryError(op, repoType, message string, err error) *RepositoryError {
	return &RepositoryError{
		Op:      op,
		Type:    repoType,
		Message: message,
		Err:     err,
	}
}

// BakeError represents a failure while baking a morph field.
type BakeError struct {
	AssetID string // Target shape being baked
	Op      string // Step that failed (e.g., "load", "normalize", "cast")
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *BakeError) Error() string {
	return fmt.Sprintf("bake %s failed for '%s': %s", e.Op, e.AssetID, e.Message)
}

// Unwrap returns the underlying error.
func (e *BakeError) Unwrap() error {
	return e.Err
}

// NewBakeError creates a new BakeError.
func NewBakeError(assetID, op, message string, err error) *BakeError {
	return &BakeError{
		AssetID: assetID,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string      // Field that failed validation
	Value   interface{} // Value that failed validation
	Message string      // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "VisualizerService", "BakeService")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
