// Package apierr maps failures to the status codes and JSON bodies the API answers with.
package apierr

import (
	"errors"
	"net/http"

	"github.com/2beens/fittracker/pkg"
)

const (
	ValidationErrorMessage = "Validation error"
	UnavailableMessage     = "Database connection unavailable. Please try again in a moment."
	hiddenDetail           = "Something went wrong"
)

type Error struct {
	Status  int
	Message string
	// Details lists every individual problem of a validation failure.
	Details []string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Validation(message string, details ...string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message, Details: details}
}

func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

func Unavailable() *Error {
	return &Error{Status: http.StatusServiceUnavailable, Message: UnavailableMessage}
}

func Unexpected(message string, cause error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: message, Cause: cause}
}

// StatusOf returns the HTTP status err maps to; anything unknown is a 500.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}

type Body struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
	Status  string   `json:"status,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Responder writes errors as JSON bodies. Unexpected error details are
// only exposed when Development is set.
type Responder struct {
	Development bool
}

func (rs Responder) Write(w http.ResponseWriter, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = Unexpected("Internal server error", err)
	}

	body := Body{
		Message: apiErr.Message,
		Errors:  apiErr.Details,
	}
	switch apiErr.Status {
	case http.StatusServiceUnavailable:
		body.Status = "disconnected"
	case http.StatusInternalServerError:
		body.Error = hiddenDetail
		if rs.Development && apiErr.Cause != nil {
			body.Error = apiErr.Cause.Error()
		}
	}

	pkg.WriteJSON(w, body, apiErr.Status)
}
