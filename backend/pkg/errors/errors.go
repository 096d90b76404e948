package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeStorage represents durable-store errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeExtraction represents knowledge-extraction errors
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeSession represents live-session errors
	ErrorTypeSession ErrorType = "session"
	// ErrorTypeEmbedding represents embedding errors
	ErrorTypeEmbedding ErrorType = "embedding"
	// ErrorTypeBrain represents LLM inference errors
	ErrorTypeBrain ErrorType = "brain"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Storage Errors

// ErrStorageUnavailable is returned when the durable store is not configured
// or unreachable. Callers degrade to empty/local fallbacks and never
// propagate it.
var ErrStorageUnavailable = NewBaseError(ErrorTypeStorage, "durable store unavailable", nil)

// ErrStorageQueryFailed is returned when a store query fails
type ErrStorageQueryFailed struct {
	*BaseError
	Table string
}

func NewStorageQueryFailed(table string, err error) *ErrStorageQueryFailed {
	return &ErrStorageQueryFailed{
		BaseError: NewBaseError(ErrorTypeStorage, fmt.Sprintf("query failed on table: %s", table), err),
		Table:     table,
	}
}

// Session Errors

// ErrStaleSessionWrite is returned when a log attempt targets a session_id
// that is no longer the registered live session for any user
type ErrStaleSessionWrite struct {
	*BaseError
	SessionID string
}

func NewStaleSessionWrite(sessionID string) *ErrStaleSessionWrite {
	return &ErrStaleSessionWrite{
		BaseError: NewBaseError(ErrorTypeSession, fmt.Sprintf("stale write to session: %s", sessionID), nil),
		SessionID: sessionID,
	}
}

// ErrNoLiveSession is returned when an event arrives for a user with no
// registered live session
type ErrNoLiveSession struct {
	*BaseError
	UserID string
}

func NewNoLiveSession(userID string) *ErrNoLiveSession {
	return &ErrNoLiveSession{
		BaseError: NewBaseError(ErrorTypeSession, fmt.Sprintf("no live session for user: %s", userID), nil),
		UserID:    userID,
	}
}

// Extraction Errors

// ErrMalformedExtraction is returned when the model returns unparsable
// relation data. Partial results are still applied.
type ErrMalformedExtraction struct {
	*BaseError
}

func NewMalformedExtraction(err error) *ErrMalformedExtraction {
	return &ErrMalformedExtraction{
		BaseError: NewBaseError(ErrorTypeExtraction, "malformed relation data from model", err),
	}
}

// Embedding Errors

// ErrEmbeddingFailed is returned when text embedding fails
type ErrEmbeddingFailed struct {
	*BaseError
	Model string
}

func NewEmbeddingFailed(model string, err error) *ErrEmbeddingFailed {
	return &ErrEmbeddingFailed{
		BaseError: NewBaseError(ErrorTypeEmbedding, "failed to embed text", err),
		Model:     model,
	}
}

// Brain Errors

// ErrBrainRequestFailed is returned when an LLM request fails
type ErrBrainRequestFailed struct {
	*BaseError
	Model string
	Tier  string
}

func NewBrainRequestFailed(model, tier string, err error) *ErrBrainRequestFailed {
	return &ErrBrainRequestFailed{
		BaseError: NewBaseError(ErrorTypeBrain, fmt.Sprintf("LLM request failed (%s tier)", tier), err),
		Model:     model,
		Tier:      tier,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if baseErr, ok := err.(*BaseError); ok {
		return baseErr.Type == errType
	}
	// Check wrapped errors
	if wrapped, ok := err.(interface{ Unwrap() error }); ok {
		inner := wrapped.Unwrap()
		if inner == nil {
			return false
		}
		return IsErrorType(inner, errType)
	}
	return false
}
