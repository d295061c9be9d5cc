// Package api holds the JSON envelope shared by every HTTP handler.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/votewise/votewise/internal/domain"
)

// ErrorCodeHeader repeats the error code of a failed response so middleware
// can report it without parsing the body.
const ErrorCodeHeader = "X-Error-Code"

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeEmptyInput:
		return http.StatusUnprocessableEntity
	case domain.ErrCodeGeneration:
		return http.StatusBadGateway
	case domain.ErrCodeRetrieval:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes an appropriate error response based on the error type.
// Pipeline failures carry the same "could not answer" text the CLI prints.
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)
	code := domain.CodeOf(err)

	var message string
	switch code {
	case domain.ErrCodeRetrieval, domain.ErrCodeGeneration, domain.ErrCodeEmptyInput, domain.ErrCodeValidation:
		message = domain.UserMessage(err)
	case "":
		message = "internal server error"
	default:
		var domainErr *domain.DomainError
		errors.As(err, &domainErr)
		message = domainErr.Message
	}

	if status >= 500 {
		log.Printf("request failed: %v", err)
	}
	if code != "" {
		w.Header().Set(ErrorCodeHeader, code)
	}
	JSON(w, status, ErrorResponse{Error: message, Code: code})
}
