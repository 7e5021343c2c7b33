package webmail

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("unauthorized access")
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidRef   = errors.New("message has no usable id")
	ErrEmptyToken   = errors.New("empty bearer token")
)

// APIError is returned for any non-2xx response
type APIError struct {
	Status  int
	Method  string
	Path    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (%d) on %s %s: %s", e.Status, e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("api error (%d) on %s %s", e.Status, e.Method, e.Path)
}

// Unwrap maps well-known statuses onto sentinel errors
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// IsStatus reports whether err is an APIError with the given status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
