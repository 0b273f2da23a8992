package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrDatabaseError      = errors.New("database error")
	ErrCacheError         = errors.New("cache error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionInactive    = errors.New("session expired, please log in again")
	ErrQuotaExceeded      = errors.New("daily token quota exceeded")
	ErrStoreUnavailable   = errors.New("backing store unavailable")
	ErrInvalidSessionArgs = errors.New("identity and session token are required")
	ErrNotSelectQuery     = errors.New("only SELECT queries can be executed")
	ErrAIUnavailable      = errors.New("assistant unavailable")
)

const (
	CodeInternal         = "INTERNAL_ERROR"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeQuotaExceeded    = "QUOTA_EXCEEDED"
)

type Error struct {
	Err     error
	Message string
	Code    string
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
		Code:    CodeInternal,
	}
}

// Unavailable marks err as a store outage so callers can match
// ErrStoreUnavailable while keeping the driver error in the chain.
func Unavailable(err error, message string) *Error {
	return &Error{
		Err:     fmt.Errorf("%w: %w", ErrStoreUnavailable, err),
		Message: message,
		Code:    CodeStoreUnavailable,
	}
}

// QuotaExceededError carries the figures shown to the user.
type QuotaExceededError struct {
	CurrentUsage int64
	DailyLimit   int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily AI usage of %d tokens exceeded: %d tokens used today", e.DailyLimit, e.CurrentUsage)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
