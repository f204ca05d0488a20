package engine

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-success response from the gateway.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsGoneClass reports whether err indicates the resource is absent or no
// longer usable (not-found, gone, or bad-request). The recovery layer treats
// these as "start a fresh conversation", never as user-visible failures.
func IsGoneClass(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusNotFound, http.StatusGone, http.StatusBadRequest:
		return true
	}
	return false
}
