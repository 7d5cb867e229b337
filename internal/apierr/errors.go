// Package apierr defines the error entries and response envelope returned to
// Threat Response callers.
package apierr

import (
	"errors"
	"net/http"
)

// Error codes understood by Threat Response.
const (
	CodeInvalidArgument  = "invalid argument"
	CodePermissionDenied = "permission denied"
	CodeForbidden        = "forbidden"
	CodeUnknown          = "unknown"
	CodeTooManyRequests  = "too many requests"
	CodeUnauthorized     = "unauthorized"
	CodeNotFound         = "not found"
	CodeUnavailable      = "unavailable"
)

// TypeFatal is the only error type the relay emits.
const TypeFatal = "fatal"

const defaultMessage = "Something went wrong."

// Entry is one element of the `errors` array.
type Entry struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewEntry builds a fatal entry, filling in defaults for empty values.
func NewEntry(code, message string) Entry {
	if code == "" {
		code = CodeUnknown
	}
	if message == "" {
		message = defaultMessage
	}
	return Entry{Code: code, Message: message, Type: TypeFatal}
}

// Formatter is implemented by errors that know their Threat Response shape.
type Formatter interface {
	error
	Entry() Entry
}

// From converts err into an entry. Errors that do not implement Formatter
// map to the unknown code with their message.
func From(err error) Entry {
	var f Formatter
	if errors.As(err, &f) {
		return f.Entry()
	}
	if err == nil {
		return NewEntry(CodeUnknown, "")
	}
	return NewEntry(CodeUnknown, err.Error())
}

// CodeForStatus maps an upstream HTTP status to an error code.
func CodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidArgument
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusTooManyRequests:
		return CodeTooManyRequests
	default:
		return CodeUnknown
	}
}

// ErrInvalidJWT is returned when the Authorization header cannot be trusted.
var ErrInvalidJWT error = &requestError{entry: NewEntry(CodePermissionDenied, "Invalid Authorization Bearer JWT.")}

// InvalidArgument reports a request payload that failed validation.
func InvalidArgument(detail string) error {
	return &requestError{entry: NewEntry(CodeInvalidArgument, "Invalid JSON payload received. "+detail)}
}

// requestError aborts a whole request before enrichment runs.
type requestError struct {
	entry Entry
}

func (e *requestError) Error() string { return e.entry.Message }

func (e *requestError) Entry() Entry { return e.entry }
