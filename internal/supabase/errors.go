package supabase

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorKind is a closed set of failure categories derived from the HTTP
// status where one is available. Callers branch on the kind instead of
// string-matching backend messages.
type ErrorKind string

const (
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindNotFound        ErrorKind = "not_found"
	KindConflict        ErrorKind = "conflict"
	KindTransport       ErrorKind = "transport"
	KindValidation      ErrorKind = "validation"
	KindBackend         ErrorKind = "backend"
)

// Error represents a backend API error.
type Error struct {
	Kind       ErrorKind `json:"kind"`
	Code       string    `json:"code,omitempty"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	Hint       string    `json:"hint,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// NewError creates a new backend error.
func NewError(kind ErrorKind, message string, statusCode int) *Error {
	return &Error{
		Kind:       kind,
		Message:    message,
		StatusCode: statusCode,
	}
}

func kindForStatus(statusCode int) ErrorKind {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthenticated
	case http.StatusNotFound, http.StatusNotAcceptable:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	}
	return KindBackend
}

// parseError parses an error response body into a typed *Error.
func parseError(body []byte, statusCode int) error {
	var errResp struct {
		Code             string `json:"code"`
		Message          string `json:"message"`
		Details          string `json:"details"`
		Hint             string `json:"hint"`
		Msg              string `json:"msg"`
		ErrorField       string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil {
		return &Error{
			Kind:       kindForStatus(statusCode),
			Code:       "unknown",
			Message:    string(body),
			StatusCode: statusCode,
		}
	}

	msg := errResp.Message
	if msg == "" {
		msg = errResp.ErrorDescription
	}
	if msg == "" {
		msg = errResp.Msg
	}
	if msg == "" {
		msg = errResp.ErrorField
	}

	return &Error{
		Kind:       kindForStatus(statusCode),
		Code:       errResp.Code,
		Message:    msg,
		Details:    errResp.Details,
		Hint:       errResp.Hint,
		StatusCode: statusCode,
	}
}

// transportError wraps a network-level failure.
func transportError(err error) error {
	return &Error{
		Kind:    KindTransport,
		Code:    "transport",
		Message: err.Error(),
	}
}

func isKind(err error, kind ErrorKind) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	return false
}

// IsNotFound reports whether err is a not-found error, including a Single()
// query that matched no rows.
func IsNotFound(err error) bool { return isKind(err, KindNotFound) }

// IsUnauthenticated reports whether err is an auth failure (401/403).
func IsUnauthenticated(err error) bool { return isKind(err, KindUnauthenticated) }

// IsConflict reports whether err is a uniqueness/conflict failure.
func IsConflict(err error) bool { return isKind(err, KindConflict) }

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool { return isKind(err, KindTransport) }
