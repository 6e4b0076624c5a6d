package client

import (
	"errors"
	"fmt"
	"net/http"
)

// APICallError represents a failed call to the AFP API.
type APICallError struct {
	// Type is the kind of failure.
	Type string `json:"type"`
	// Message is a human-readable message describing the error.
	Message string `json:"message"`
	// StatusCode is the HTTP status returned by the API, zero for transport failures.
	StatusCode int `json:"code"`
	// Cause is the underlying error.
	Cause error `json:"-"`
}

// Error returns a string representation of the API call error.
func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *APICallError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an APICallError of the same type.
func (e *APICallError) Is(target error) bool {
	var t *APICallError
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == e.Type
}

// Common AFP API error kinds.
var (
	// ErrRequestFailed represents a transport failure before a response was received.
	ErrRequestFailed = &APICallError{
		Type:    "request_failed",
		Message: "Failed to reach the AFP API",
	}

	// ErrUnauthorized represents rejected credentials.
	ErrUnauthorized = &APICallError{
		Type:       "unauthorized",
		Message:    "The AFP API rejected the user name or password",
		StatusCode: http.StatusUnauthorized,
	}

	// ErrForbidden represents a role the user may not assume.
	ErrForbidden = &APICallError{
		Type:       "forbidden",
		Message:    "Access to the requested account or role was denied",
		StatusCode: http.StatusForbidden,
	}

	// ErrNotFound represents an unknown API resource.
	ErrNotFound = &APICallError{
		Type:       "not_found",
		Message:    "The requested account or role does not exist",
		StatusCode: http.StatusNotFound,
	}

	// ErrUnexpectedStatus represents any other non-2xx response.
	ErrUnexpectedStatus = &APICallError{
		Type:    "unexpected_status",
		Message: "The AFP API returned an unexpected status",
	}

	// ErrInvalidResponse represents a response body that could not be interpreted.
	ErrInvalidResponse = &APICallError{
		Type:    "invalid_response",
		Message: "The AFP API returned an invalid response",
	}
)

// NewAPICallError creates a new API call error with a cause based on a base error.
func NewAPICallError(baseErr *APICallError, statusCode int, cause error) *APICallError {
	if statusCode == 0 {
		statusCode = baseErr.StatusCode
	}
	return &APICallError{
		Type:       baseErr.Type,
		Message:    baseErr.Message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// IsAPICallError checks if an error is an API call error.
func IsAPICallError(err error) bool {
	var apiErr *APICallError
	return errors.As(err, &apiErr)
}

// errorForStatus maps a non-2xx HTTP status to an API call error kind.
func errorForStatus(statusCode int, body []byte) *APICallError {
	cause := fmt.Errorf("status %d: %s", statusCode, string(body))
	switch statusCode {
	case http.StatusUnauthorized:
		return NewAPICallError(ErrUnauthorized, statusCode, cause)
	case http.StatusForbidden:
		return NewAPICallError(ErrForbidden, statusCode, cause)
	case http.StatusNotFound:
		return NewAPICallError(ErrNotFound, statusCode, cause)
	default:
		return NewAPICallError(ErrUnexpectedStatus, statusCode, cause)
	}
}

// GetUserFriendlyMessage returns a user-friendly error message based on the error type.
func GetUserFriendlyMessage(err error) string {
	var apiErr *APICallError
	if errors.As(err, &apiErr) {
		switch apiErr.Type {
		case "request_failed":
			return "Could not reach the AFP API. Please check the api_url setting and your network connection."
		case "unauthorized":
			return "Authentication failed. Please check your user name and password."
		case "forbidden":
			return "You are not allowed to use this account or role."
		case "not_found":
			return "The account or role is unknown to the AFP API."
		case "invalid_response":
			return "The AFP API returned a response that could not be read."
		default:
			if apiErr.StatusCode != 0 {
				return fmt.Sprintf("The AFP API call failed with status %d.", apiErr.StatusCode)
			}
			return "The AFP API call failed."
		}
	}
	return "An unexpected error occurred. Please try again."
}
