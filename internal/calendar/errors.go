package calendar

import (
	"errors"
	"fmt"

	"github.com/teemow/gcalfeed/internal/logging"
)

var (
	// ErrEventInsertFailed is returned when an insert is not answered with 201.
	ErrEventInsertFailed = errors.New("event insert failed")
	// ErrEventUpdateFailed is returned when an update is not answered with 200.
	ErrEventUpdateFailed = errors.New("event update failed")
	// ErrEventDeleteFailed is returned when a delete is rejected or not allowed
	// in the event's current state.
	ErrEventDeleteFailed = errors.New("event delete failed")
	// ErrEventGetFailed is returned when fetching a single event is not answered with 200.
	ErrEventGetFailed = errors.New("event get failed")
	// ErrInvalidCalendarURL is returned when a calendar feed query is not answered with 200.
	ErrInvalidCalendarURL = errors.New("invalid calendar url")
	// ErrCalendarListFailed is returned when the calendar list is not answered with 200.
	ErrCalendarListFailed = errors.New("calendar list failed")
)

const maxErrorBody = 256

// ResponseError carries the response that caused a feed operation to fail.
// Reason is set instead of a status code when the failure is a lifecycle
// violation detected before any request was sent.
type ResponseError struct {
	Kind       error
	StatusCode int
	Body       string
	Reason     string
}

func (e *ResponseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Kind, e.StatusCode, logging.Truncate(e.Body, maxErrorBody))
}

func (e *ResponseError) Unwrap() error {
	return e.Kind
}

func statusError(kind error, statusCode int, body []byte) *ResponseError {
	return &ResponseError{Kind: kind, StatusCode: statusCode, Body: string(body)}
}

func lifecycleError(kind error, reason string) *ResponseError {
	return &ResponseError{Kind: kind, Reason: reason}
}
