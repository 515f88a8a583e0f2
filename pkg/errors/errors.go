// Package errors provides custom error types for the sync hub.
// These errors enable programmatic error checking across the matching,
// mapping, and write paths: read failures abort a run, write failures are
// recorded per batch, and field conflicts are data rather than errors.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the sync hub
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyMapped indicates that a source or target entity already
	// participates in a mapping
	ErrAlreadyMapped = errors.New("already mapped")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrConcurrentRun indicates that a sync run was rejected because
	// another run for the same system pair is still in progress
	ErrConcurrentRun = errors.New("concurrent run rejected")

	// ErrRemoteRead indicates an extraction failure on one system
	ErrRemoteRead = errors.New("remote read failed")

	// ErrRemoteWrite indicates a batch-scoped write failure
	ErrRemoteWrite = errors.New("remote write failed")

	// ErrUniqueConstraint indicates a remote create or update collided
	// with a uniqueness rule on the target system
	ErrUniqueConstraint = errors.New("unique constraint conflict")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrReadOnly indicates an attempt to modify a read-only store
	ErrReadOnly = errors.New("read only")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// AlreadyMappedError is returned when a manual mapping request names a
// source or target entity that already has a mapping.
type AlreadyMappedError struct {
	Side      string // "source" or "target"
	EntityID  string
	MappingID string // the existing mapping that claims the entity
}

// Error implements the error interface
func (e *AlreadyMappedError) Error() string {
	return fmt.Sprintf("%s entity %s is already claimed by mapping %s", e.Side, e.EntityID, e.MappingID)
}

// Is implements errors.Is support
func (e *AlreadyMappedError) Is(target error) bool {
	return target == ErrAlreadyMapped
}

// NewAlreadyMappedError creates a new AlreadyMappedError
func NewAlreadyMappedError(side, entityID, mappingID string) *AlreadyMappedError {
	return &AlreadyMappedError{Side: side, EntityID: entityID, MappingID: mappingID}
}

// RemoteReadError represents an extraction failure for one system.
// A read failure aborts the whole run, since matching requires both sides.
type RemoteReadError struct {
	SystemID string
	Kind     string // entity kind being listed
	Err      error
}

// Error implements the error interface
func (e *RemoteReadError) Error() string {
	return fmt.Sprintf("extraction from %s failed for %s: %v", e.SystemID, e.Kind, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *RemoteReadError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *RemoteReadError) Is(target error) bool {
	return target == ErrRemoteRead
}

// NewRemoteReadError creates a new RemoteReadError
func NewRemoteReadError(systemID, kind string, err error) *RemoteReadError {
	return &RemoteReadError{SystemID: systemID, Kind: kind, Err: err}
}

// RemoteWriteError represents a batch-scoped write failure against the
// target system. It never aborts the run; the failing batch is recorded
// and the next scheduled run retries the idempotent writes.
type RemoteWriteError struct {
	SystemID string
	Batch    int // zero-based batch index
	Items    int // number of items in the failing batch
	Err      error
}

// Error implements the error interface
func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("write to %s failed for batch %d (%d items): %v", e.SystemID, e.Batch, e.Items, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *RemoteWriteError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *RemoteWriteError) Is(target error) bool {
	return target == ErrRemoteWrite
}

// NewRemoteWriteError creates a new RemoteWriteError
func NewRemoteWriteError(systemID string, batch, items int, err error) *RemoteWriteError {
	return &RemoteWriteError{SystemID: systemID, Batch: batch, Items: items, Err: err}
}

// UniqueConstraintError is a RemoteWriteError subtype raised when the
// target system rejects a create because one propagated field collides
// with a uniqueness rule. Field names the offending property, so the
// create path can retry exactly once with that field omitted.
type UniqueConstraintError struct {
	SystemID string
	Field    string
	Value    string
	Err      error
}

// Error implements the error interface
func (e *UniqueConstraintError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("unique constraint on %s violated for field %s=%q", e.SystemID, e.Field, e.Value)
	}
	return fmt.Sprintf("unique constraint on %s violated", e.SystemID)
}

// Unwrap implements errors.Unwrap
func (e *UniqueConstraintError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *UniqueConstraintError) Is(target error) bool {
	return target == ErrUniqueConstraint || target == ErrRemoteWrite
}

// NewUniqueConstraintError creates a new UniqueConstraintError
func NewUniqueConstraintError(systemID, field, value string, err error) *UniqueConstraintError {
	return &UniqueConstraintError{SystemID: systemID, Field: field, Value: value, Err: err}
}

// ConcurrentRunError is returned when the re-entrancy guard rejects a
// trigger because a run for the same system pair is already active.
type ConcurrentRunError struct {
	Pair      string
	StartedAt string
}

// Error implements the error interface
func (e *ConcurrentRunError) Error() string {
	if e.StartedAt != "" {
		return fmt.Sprintf("sync for pair %s already running since %s", e.Pair, e.StartedAt)
	}
	return fmt.Sprintf("sync for pair %s already running", e.Pair)
}

// Is implements errors.Is support
func (e *ConcurrentRunError) Is(target error) bool {
	return target == ErrConcurrentRun
}

// NewConcurrentRunError creates a new ConcurrentRunError
func NewConcurrentRunError(pair, startedAt string) *ConcurrentRunError {
	return &ConcurrentRunError{Pair: pair, StartedAt: startedAt}
}

// ParseError represents an error when parsing persisted data
type ParseError struct {
	Format  string // "yaml", "json", etc.
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file, message string, err error) *ParseError {
	return &ParseError{Format: format, File: file, Message: message, Err: err}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{Operation: operation, Path: path, Message: message, Err: err}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyMapped checks if an error is an already mapped error
func IsAlreadyMapped(err error) bool {
	return errors.Is(err, ErrAlreadyMapped)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConcurrentRun checks if an error is a rejected concurrent run
func IsConcurrentRun(err error) bool {
	return errors.Is(err, ErrConcurrentRun)
}

// IsRemoteRead checks if an error is an extraction failure
func IsRemoteRead(err error) bool {
	return errors.Is(err, ErrRemoteRead)
}

// IsRemoteWrite checks if an error is a batch write failure
func IsRemoteWrite(err error) bool {
	return errors.Is(err, ErrRemoteWrite)
}

// IsUniqueConstraint checks if an error is a uniqueness collision
func IsUniqueConstraint(err error) bool {
	return errors.Is(err, ErrUniqueConstraint)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// UniqueConstraintField extracts the offending field name from an error
// chain, or returns "" when the error is not a uniqueness collision.
func UniqueConstraintField(err error) string {
	var uce *UniqueConstraintError
	if errors.As(err, &uce) {
		return uce.Field
	}
	return ""
}

// As is an alias for the standard library errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is an alias for the standard library errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
