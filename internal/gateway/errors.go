package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is returned when the coach API answers 401.
var ErrUnauthorized = errors.New("unauthorized")

// ErrSessionExpired is returned when a 401 arrives outside the login flow.
// The session has already been torn down when a caller sees it.
var ErrSessionExpired = fmt.Errorf("session expired: %w", ErrUnauthorized)

// defaultErrorMessage is used when an error response carries no detail.
const defaultErrorMessage = "request failed"

// APIError is a non-2xx, non-401 response from the coach API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coach api error (status %d): %s", e.Status, e.Message)
}

// IsValidation reports whether the API rejected the request payload.
func (e *APIError) IsValidation() bool {
	return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
}

// IsNotFound reports whether the API answered 404.
func (e *APIError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

// IsServer reports a 5xx response.
func (e *APIError) IsServer() bool {
	return e.Status >= http.StatusInternalServerError
}

// NetworkError wraps a transport failure, including client timeouts.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
