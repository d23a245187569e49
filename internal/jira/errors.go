package jira

import (
	"errors"
	"fmt"
	"net/http"

	gojira "github.com/andygrunwald/go-jira"
)

// FailureKind classifies a remote-call failure. Every failure that crosses
// the client boundary is one of these; raw transport errors never reach the
// callers.
type FailureKind string

const (
	FailureUnauthorized FailureKind = "unauthorized"
	FailureForbidden    FailureKind = "forbidden"
	FailureNotFound     FailureKind = "not_found"
	FailureGone         FailureKind = "gone"
	FailureRateLimited  FailureKind = "rate_limited"
	FailureHTTP         FailureKind = "http"
	FailureNetwork      FailureKind = "network"
	FailureUnknown      FailureKind = "unknown"
)

// Error is a remote-call failure mapped to the taxonomy. Its Error string is
// the single human-readable message shown to the user.
type Error struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case FailureUnauthorized:
		return "Unauthorized (401). Check email or API token."
	case FailureForbidden:
		return "Forbidden (403). You do not have access."
	case FailureNotFound:
		return "Not found (404)."
	case FailureGone:
		return "Endpoint is gone (410)."
	case FailureRateLimited:
		return "Too many requests (429). Try again later."
	case FailureHTTP:
		return fmt.Sprintf("Request failed (%d).", e.StatusCode)
	case FailureNetwork:
		return "Network error. Check your connection."
	default:
		return "Request failed."
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsFailureKind reports whether err carries the given failure kind.
func IsFailureKind(err error, kind FailureKind) bool {
	var jiraErr *Error
	if !errors.As(err, &jiraErr) {
		return false
	}
	return jiraErr.Kind == kind
}

// mapFailure converts a go-jira call outcome into a taxonomy Error. A nil
// response means no HTTP response was received at all.
func mapFailure(resp *gojira.Response, err error) *Error {
	if resp == nil {
		return &Error{Kind: FailureNetwork, Err: err}
	}

	status := resp.StatusCode
	switch {
	case status == http.StatusUnauthorized:
		return &Error{Kind: FailureUnauthorized, StatusCode: status, Err: err}
	case status == http.StatusForbidden:
		return &Error{Kind: FailureForbidden, StatusCode: status, Err: err}
	case status == http.StatusNotFound:
		return &Error{Kind: FailureNotFound, StatusCode: status, Err: err}
	case status == http.StatusGone:
		return &Error{Kind: FailureGone, StatusCode: status, Err: err}
	case status == http.StatusTooManyRequests:
		return &Error{Kind: FailureRateLimited, StatusCode: status, Err: err}
	case status >= 400:
		return &Error{Kind: FailureHTTP, StatusCode: status, Err: err}
	default:
		return &Error{Kind: FailureUnknown, StatusCode: status, Err: err}
	}
}
