package directory

import (
	"errors"
	"fmt"
)

// Code classifies a directory failure at the client boundary. Callers are
// expected to branch on codes, not on message text; messages exist for
// display only.
type Code string

const (
	// CodeNotFound means the object vanished between a listing and a
	// detail fetch. Common under eventually-consistent queries.
	CodeNotFound Code = "not-found"

	// CodeCredentialUnavailable means the token source could not produce a
	// token right now (transient auth hiccup, not an explicit sign-out).
	CodeCredentialUnavailable Code = "credential-unavailable"

	// CodeAuthenticationRequired means the tenant rejected our credentials
	// outright and an interactive sign-in is needed.
	CodeAuthenticationRequired Code = "authentication-required"

	// CodeConflict means a field-level incompatibility was rejected by the
	// directory (the known case is a signInAudience change that the
	// application's current configuration does not permit).
	CodeConflict Code = "conflict"

	// CodeThrottled means the tenant asked us to back off.
	CodeThrottled Code = "throttled"

	// CodeGeneric covers everything else.
	CodeGeneric Code = "generic"
)

// Error is the tagged failure value returned by every Client method.
type Error struct {
	Code    Code
	Message string
	Status  int // HTTP status, 0 when the failure never reached the wire
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("directory: %s (%s, status %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("directory: %s (%s)", e.Message, e.Code)
}

// NewError builds an Error with the given code.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts the *Error from err's chain. Foreign errors map to a
// generic Error carrying the original message so display paths always have
// something to show.
func AsError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return &Error{Code: CodeGeneric, Message: err.Error()}
}

// CodeOf returns the code for err, CodeGeneric for foreign errors.
func CodeOf(err error) Code {
	return AsError(err).Code
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsAuthenticationRequired reports whether err carries CodeAuthenticationRequired.
func IsAuthenticationRequired(err error) bool {
	return CodeOf(err) == CodeAuthenticationRequired
}

// IsCredentialUnavailable reports whether err carries CodeCredentialUnavailable.
func IsCredentialUnavailable(err error) bool {
	return CodeOf(err) == CodeCredentialUnavailable
}

// IsConflict reports whether err carries CodeConflict.
func IsConflict(err error) bool {
	return CodeOf(err) == CodeConflict
}
