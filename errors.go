package kawa

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
)

// ErrNextCalledTwice is returned by the dispatcher when a middleware invokes
// its continuation more than once within a single request. Re-running the
// remainder of the chain is a contract violation, never tolerated silently.
var ErrNextCalledTwice = errors.New("kawa: next() called more than once")

// HTTPError is an error with an HTTP representation. Middleware return it
// (directly or wrapped) to control the status code, the headers, and whether
// the message may be shown to the client.
type HTTPError struct {
	// Status is the HTTP status code for the error response.
	Status int
	// Message is the human-readable message.
	Message string
	// Expose marks the message as safe to send to the client. When false,
	// the client receives the generic reason phrase for Status instead.
	Expose bool
	// Headers are applied to the error response after all previously set
	// headers have been discarded.
	Headers map[string]string
	// Err is the underlying cause, if any.
	Err error
}

// NewHTTPError creates an HTTPError for the given status code. Unrecognized
// codes fall back to 500. Client errors (4xx) are exposable by default,
// server errors are not.
func NewHTTPError(status int, message string) HTTPError {
	if !statusRecognized(status) {
		status = http.StatusInternalServerError
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return HTTPError{
		Status:  status,
		Message: message,
		Expose:  status < http.StatusInternalServerError,
	}
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e HTTPError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status code for the error.
func (e HTTPError) StatusCode() int { return e.Status }

// Exposed reports whether the message may be shown to the client.
func (e HTTPError) Exposed() bool { return e.Expose }

// ErrorHeaders returns the headers to apply on the error response.
func (e HTTPError) ErrorHeaders() map[string]string { return e.Headers }

// WithMessage returns a copy of the error with a custom message.
func (e HTTPError) WithMessage(message string) HTTPError {
	e.Message = message
	return e
}

// WithExpose returns a copy of the error with the expose flag set.
func (e HTTPError) WithExpose(expose bool) HTTPError {
	e.Expose = expose
	return e
}

// WithHeader returns a copy of the error carrying an additional header.
func (e HTTPError) WithHeader(field, value string) HTTPError {
	headers := make(map[string]string, len(e.Headers)+1)
	for k, v := range e.Headers {
		headers[k] = v
	}
	headers[field] = value
	e.Headers = headers
	return e
}

// WithError returns a copy of the error wrapping an underlying cause.
func (e HTTPError) WithError(err error) HTTPError {
	e.Err = err
	return e
}

// Predefined HTTP errors for the common cases.
var (
	ErrBadRequest          = NewHTTPError(http.StatusBadRequest, "")
	ErrUnauthorized        = NewHTTPError(http.StatusUnauthorized, "")
	ErrForbidden           = NewHTTPError(http.StatusForbidden, "")
	ErrNotFound            = NewHTTPError(http.StatusNotFound, "")
	ErrMethodNotAllowed    = NewHTTPError(http.StatusMethodNotAllowed, "")
	ErrRequestTimeout      = NewHTTPError(http.StatusRequestTimeout, "")
	ErrConflict            = NewHTTPError(http.StatusConflict, "")
	ErrUnprocessableEntity = NewHTTPError(http.StatusUnprocessableEntity, "")
	ErrTooManyRequests     = NewHTTPError(http.StatusTooManyRequests, "")
	ErrInternalServerError = NewHTTPError(http.StatusInternalServerError, "")
	ErrNotImplemented      = NewHTTPError(http.StatusNotImplemented, "")
	ErrBadGateway          = NewHTTPError(http.StatusBadGateway, "")
	ErrServiceUnavailable  = NewHTTPError(http.StatusServiceUnavailable, "")
)

// Unexported capability interfaces checked on errors surfacing from the
// chain. Any error type can opt in by implementing them; HTTPError does.
type (
	statusCoder interface{ StatusCode() int }
	exposer     interface{ Exposed() bool }
	headerser   interface{ ErrorHeaders() map[string]string }
)

// errStatusCode resolves the response status for an error: the error's own
// declared status when recognized, 404 for the not-found filesystem
// condition, 500 otherwise.
func errStatusCode(err error) int {
	if errors.Is(err, fs.ErrNotExist) {
		return http.StatusNotFound
	}
	var sc statusCoder
	if errors.As(err, &sc) && statusRecognized(sc.StatusCode()) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// errExposed reports whether the error's message was explicitly marked safe
// to send to the client.
func errExposed(err error) bool {
	var ex exposer
	return errors.As(err, &ex) && ex.Exposed()
}

// errMessage returns the client-safe message of an exposed error, taken from
// the error in the chain that declared itself exposable, or the empty string
// when nothing may be shown.
func errMessage(err error) string {
	var ex exposer
	if !errors.As(err, &ex) || !ex.Exposed() {
		return ""
	}
	if e, ok := ex.(error); ok {
		return e.Error()
	}
	return err.Error()
}

// errHeaders returns the headers explicitly carried on the error, if any.
func errHeaders(err error) map[string]string {
	var hs headerser
	if errors.As(err, &hs) {
		return hs.ErrorHeaders()
	}
	return nil
}

// headersSentError marks an error that surfaced after the response header
// had been committed (or the connection had died), meaning no error
// response could be written for it.
type headersSentError struct {
	err error
}

// Error implements the error interface.
func (e *headersSentError) Error() string { return e.err.Error() }

// Unwrap exposes the original error to errors.Is/As.
func (e *headersSentError) Unwrap() error { return e.err }

// HeadersSent implements the capability checked by the HeadersSent helper.
func (e *headersSentError) HeadersSent() bool { return true }

// HeadersSent reports whether the error surfaced after the response header
// had been committed, so no error response was written for it. Error
// listeners use it to tell a logged-only failure from one the client saw.
func HeadersSent(err error) bool {
	var hs interface{ HeadersSent() bool }
	return errors.As(err, &hs) && hs.HeadersSent()
}

// PanicError gives error listeners access to the original panic value and
// the stack trace captured where the panic was recovered.
type PanicError interface {
	error
	// Value returns the original panic value.
	Value() any
	// Stack returns the stack trace captured at the recovery point.
	Stack() []byte
}

// panicError is the private implementation of PanicError.
type panicError struct {
	value any
	stack []byte
}

// Error implements the error interface.
func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// Value returns the original panic value.
func (e *panicError) Value() any { return e.value }

// Stack returns the stack trace.
func (e *panicError) Stack() []byte { return e.stack }

// Unwrap allows errors.Is/As to reach a panicked error value.
func (e *panicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}
