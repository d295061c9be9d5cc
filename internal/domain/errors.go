package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code and message,
// so wrapped copies of a sentinel still match it.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRetrieval     = "RETRIEVAL_ERROR"
	ErrCodeGeneration    = "GENERATION_ERROR"
	ErrCodeEmptyInput    = "EMPTY_INPUT"
)

// Pipeline errors
var (
	ErrRetrieval         = NewDomainError(ErrCodeRetrieval, "retrieval failed")
	ErrIndexNotFound     = NewDomainError(ErrCodeRetrieval, "passage index not found")
	ErrEmbeddingMismatch = NewDomainError(ErrCodeRetrieval, "embedding model does not match the index")
	ErrGeneration        = NewDomainError(ErrCodeGeneration, "generation service failed")
	ErrEmptyInput        = NewDomainError(ErrCodeEmptyInput, "no context to answer from")
)

// Validation errors
var (
	ErrInvalidQuestion       = NewDomainError(ErrCodeValidation, "question is required")
	ErrInvalidDocumentStatus = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
)

// Authorization errors
var (
	ErrInvalidAPIToken = NewDomainError(ErrCodeUnauthorized, "invalid api token")
)

// Storage errors
var (
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)

// RetrievalError wraps err as a retrieval failure. Errors that already carry
// the retrieval code are returned unchanged.
func RetrievalError(err error) error {
	return wrapAs(ErrCodeRetrieval, ErrRetrieval.Message, err)
}

// GenerationError wraps err as a generation service failure.
func GenerationError(err error) error {
	return wrapAs(ErrCodeGeneration, ErrGeneration.Message, err)
}

func wrapAs(code, message string, err error) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) && de.Code == code {
		return err
	}
	return NewDomainErrorWithCause(code, message, err)
}

// CodeOf returns the domain code carried by err, or "" for foreign errors.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// UserMessage renders the message shown to people asking questions. It keeps
// retrieval and generation failures apart so they know which side is down.
func UserMessage(err error) string {
	switch CodeOf(err) {
	case ErrCodeRetrieval:
		return "Could not answer: the document index is unavailable. No answer is available right now."
	case ErrCodeGeneration:
		return "Could not answer: the language model did not respond. Please try again later."
	case ErrCodeEmptyInput:
		return "Could not answer: no relevant passages were found for this question."
	case ErrCodeValidation:
		return "Could not answer: " + messageOf(err)
	default:
		return "Could not answer: unexpected error."
	}
}

func messageOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
