package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrUsernameConflict is returned when the store rejects a duplicate username.
	ErrUsernameConflict = errors.New("username already registered")
	// ErrUnauthorized is returned for any authentication failure.
	// Unknown user, inactive account and wrong password are deliberately indistinguishable.
	ErrUnauthorized = errors.New("invalid authentication credentials")
	// ErrForbidden is returned when an authenticated account lacks admin rights.
	ErrForbidden = errors.New("admin privileges required")
	// ErrNotFound is returned when a referenced account does not exist.
	ErrNotFound = errors.New("account not found")
	// ErrSelfActionForbidden is returned when an admin targets its own account
	// with an activate, deactivate or delete operation.
	ErrSelfActionForbidden = errors.New("admins cannot perform this action on their own account")
	// ErrPasswordTooLong is returned when a password exceeds the 72 byte hashing limit.
	ErrPasswordTooLong = errors.New("password must not exceed 72 bytes")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Errors it does not
// recognise become a generic 500 so that store details never leak.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrUsernameConflict):
		return NewHTTPError(http.StatusConflict, ErrUsernameConflict.Error(), "USERNAME_CONFLICT")
	case errors.Is(err, ErrUnauthorized):
		return NewHTTPError(http.StatusUnauthorized, ErrUnauthorized.Error(), "UNAUTHORIZED")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, ErrForbidden.Error(), "FORBIDDEN")
	case errors.Is(err, ErrSelfActionForbidden):
		return NewHTTPError(http.StatusForbidden, ErrSelfActionForbidden.Error(), "SELF_ACTION_FORBIDDEN")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, ErrNotFound.Error(), "ACCOUNT_NOT_FOUND")
	case errors.Is(err, ErrPasswordTooLong):
		return NewHTTPError(http.StatusBadRequest, ErrPasswordTooLong.Error(), "INVALID_PASSWORD")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
