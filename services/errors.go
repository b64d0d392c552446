package services

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnknownBadge         = errors.New("unknown badge")
	ErrUserNotFound         = errors.New("user not found")
	ErrSettlementInProgress = errors.New("settlement already in progress")
)

// ValidationError rejects input before anything is written.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StorageError wraps a failed or timed out store round trip. Award
// application is idempotent, so callers may retry it.
type StorageError struct {
	Op      string
	Err     error
	Timeout bool
}

func newStorageError(op string, err error) *StorageError {
	return &StorageError{
		Op:      op,
		Err:     err,
		Timeout: errors.Is(err, context.DeadlineExceeded),
	}
}

func (e *StorageError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("storage %s timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Retryable() bool {
	return !errors.Is(e.Err, ErrUserNotFound)
}

// SettlementError is reported per challenge, or for the whole weekly run.
type SettlementError struct {
	Scope string // "challenge:<id>" or "weekly"
	Err   error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("settlement %s: %v", e.Scope, e.Err)
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transient storage failure.
func IsRetryable(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Retryable()
}
