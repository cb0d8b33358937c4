// Package domainerrors carries coded errors across the service boundary so the
// HTTP layer can translate outcomes without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain failure.
type Code string

const (
	// CodeBadRequest covers validation failures: empty payloads, unknown
	// record kinds, malformed consent actions. Never retried.
	CodeBadRequest Code = "bad_request"

	// CodeUnauthorized covers missing or invalid bearer tokens.
	CodeUnauthorized Code = "unauthorized"

	// CodeNotFound covers missing records and unknown ledger hashes.
	CodeNotFound Code = "not_found"

	// CodeConflict covers duplicate-hash-across-kinds, ledger rejections and
	// illegal consent transitions.
	CodeConflict Code = "conflict"

	// CodeLedgerUnavailable is surfaced after bounded retries against an
	// unreachable ledger are exhausted; the record stays pending.
	CodeLedgerUnavailable Code = "ledger_unavailable"

	// CodeTimeout covers cancelled or deadline-exceeded operations.
	CodeTimeout Code = "timeout"

	// CodeInternal is the fallback for unexpected failures.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. It wraps an optional underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without an underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain error code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeLedgerUnavailable:
		return http.StatusBadGateway
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
