package utils

import (
	"errors"
	"fmt"
)

// Custom error types
var (
	// ErrDiscovery is returned when the migration source is malformed
	ErrDiscovery = errors.New("discovery error")

	// ErrNotFound is returned when a requested migration is not found
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a ledger record already exists
	ErrConflict = errors.New("conflict")

	// ErrInsufficientHistory is returned when a rollback count exceeds applied history
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrOperation is returned when a forward or backward operation fails against the backend
	ErrOperation = errors.New("operation error")

	// ErrLedgerDesync is returned when the ledger could not be updated after a committed schema change
	ErrLedgerDesync = errors.New("ledger desync")

	// ErrLock is returned when the run lock is held by another invocation
	ErrLock = errors.New("lock held")
)

// DiscoveryError represents an error found while validating the migration source
type DiscoveryError struct {
	Name    string
	Message string
}

func (e *DiscoveryError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("discovery error in migration '%s': %s", e.Name, e.Message)
	}
	return fmt.Sprintf("discovery error: %s", e.Message)
}

func (e *DiscoveryError) Unwrap() error {
	return ErrDiscovery
}

// NotFoundError represents an error when a migration is not found
type NotFoundError struct {
	Resource string
	Name     string
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s '%s' not found", e.Resource, e.Name)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConflictError represents a ledger record that already exists
type ConflictError struct {
	Resource string
	Name     string
}

func (e *ConflictError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s '%s' already recorded", e.Resource, e.Name)
	}
	return fmt.Sprintf("%s already recorded", e.Resource)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// InsufficientHistoryError represents a rollback request larger than the applied history
type InsufficientHistoryError struct {
	Requested int
	Applied   int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("cannot roll back %d migrations, only %d applied", e.Requested, e.Applied)
}

func (e *InsufficientHistoryError) Unwrap() error {
	return ErrInsufficientHistory
}

// OperationError represents a failed forward or backward operation
type OperationError struct {
	Migration string
	Direction string
	Cause     error
}

func (e *OperationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s operation for migration '%s' failed: %v", e.Direction, e.Migration, e.Cause)
	}
	return fmt.Sprintf("%s operation for migration '%s' failed", e.Direction, e.Migration)
}

func (e *OperationError) Unwrap() error {
	return ErrOperation
}

// LedgerDesyncError represents a ledger update failure after a committed schema change.
// The schema backend and the ledger disagree; operator intervention is required.
type LedgerDesyncError struct {
	Migration string
	Cause     error
}

func (e *LedgerDesyncError) Error() string {
	return fmt.Sprintf("ledger update for migration '%s' failed after commit: %v", e.Migration, e.Cause)
}

func (e *LedgerDesyncError) Unwrap() error {
	return ErrLedgerDesync
}

// LockError represents a run lock held by another invocation
type LockError struct {
	Holder string
}

func (e *LockError) Error() string {
	if e.Holder != "" {
		return fmt.Sprintf("migration lock held by %s", e.Holder)
	}
	return "migration lock held by another invocation"
}

func (e *LockError) Unwrap() error {
	return ErrLock
}

// Error wrapping functions

// WrapDiscoveryError wraps a source validation failure
func WrapDiscoveryError(name, message string) error {
	return &DiscoveryError{
		Name:    name,
		Message: message,
	}
}

// WrapNotFoundError wraps an error as a not found error
func WrapNotFoundError(resource, name string) error {
	return &NotFoundError{
		Resource: resource,
		Name:     name,
	}
}

// WrapConflictError wraps an error as a conflict error
func WrapConflictError(resource, name string) error {
	return &ConflictError{
		Resource: resource,
		Name:     name,
	}
}

// WrapOperationError wraps a backend operation failure
func WrapOperationError(migration, direction string, cause error) error {
	return &OperationError{
		Migration: migration,
		Direction: direction,
		Cause:     cause,
	}
}

// WrapLedgerDesyncError wraps a post-commit ledger failure
func WrapLedgerDesyncError(migration string, cause error) error {
	return &LedgerDesyncError{
		Migration: migration,
		Cause:     cause,
	}
}

// Error checking functions

// IsDiscoveryError checks if an error is a discovery error
func IsDiscoveryError(err error) bool {
	return errors.Is(err, ErrDiscovery)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsInsufficientHistoryError checks if an error is an insufficient history error
func IsInsufficientHistoryError(err error) bool {
	return errors.Is(err, ErrInsufficientHistory)
}

// IsOperationError checks if an error is a backend operation error
func IsOperationError(err error) bool {
	return errors.Is(err, ErrOperation)
}

// IsLedgerDesyncError checks if an error is a ledger desync error
func IsLedgerDesyncError(err error) bool {
	return errors.Is(err, ErrLedgerDesync)
}

// IsLockError checks if an error is a lock error
func IsLockError(err error) bool {
	return errors.Is(err, ErrLock)
}
