package strategy

import (
	"fmt"
	"net/http"
)

// ProcessingError reports that a request could not be completed. Status
// and Message are safe to show to the client; Err is the internal cause.
type ProcessingError struct {
	Status  int
	Message string
	Err     error
}

func (e *ProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

func Processing(status int, message string, err error) error {
	return &ProcessingError{Status: status, Message: message, Err: err}
}

func NotFound(message string) error {
	return &ProcessingError{Status: http.StatusNotFound, Message: message}
}

func BadRequest(message string, err error) error {
	return &ProcessingError{Status: http.StatusBadRequest, Message: message, Err: err}
}

// IOError reports a transport-level failure while writing the response.
// Nothing more can be sent to the client once it occurs.
type IOError struct {
	Err error
}

func (e *IOError) Error() string {
	return "write response: " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}
