package model

import (
	"errors"
	"fmt"
	"strings"
)

// AuthenticationError is returned when a portal rejects the supplied credentials.
// The browser still showed the login page after the credentials were submitted.
//
// Design decision: login failure is a caller-input problem, so it is kept apart from
// AutomationError. Callers render "check your credentials" instead of "try again",
// and nothing retries it.
type AuthenticationError struct {
	// Portal is the display name of the portal, e.g. "Thorne".
	Portal string
	// URL is the address the browser ended on.
	URL string
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s login failed: still on login page %s", e.Portal, e.URL)
}

// AutomationError wraps any browser, network or timeout fault during acquisition or fetch.
// The whole operation may be retried by the caller.
type AutomationError struct {
	// Stage names the step that failed, e.g. the acquirer state or "fetch".
	Stage string
	// Err is the underlying fault.
	Err error
}

// Error implements the error interface.
func (e *AutomationError) Error() string {
	return fmt.Sprintf("automation failed during %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying fault.
func (e *AutomationError) Unwrap() error { return e.Err }

// NotFoundError is returned when a requested report date has no reports.
// Available lists every date label that does, so the caller can re-prompt.
type NotFoundError struct {
	Requested string
	Available []string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("no report found for %s: no reports available", e.Requested)
	}
	return fmt.Sprintf("no report found for %s: available dates: %s",
		e.Requested, strings.Join(e.Available, ", "))
}

// DocumentError is returned when a PDF cannot be read, parsed or rewritten.
// The caller's original bytes are never modified.
type DocumentError struct {
	// Op is the operation that failed, e.g. "extract" or "redact".
	Op  string
	Err error
}

// Error implements the error interface.
func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: malformed document: %v", e.Op, e.Err)
}

// Unwrap returns the underlying fault.
func (e *DocumentError) Unwrap() error { return e.Err }

// NoDataMessage is shown when a document yields zero records. It is not an error.
const NoDataMessage = "No data found."

// UserMessage renders guidance for an error that reached the user.
// Credential failures get a specific message; everything else gets a generic one
// with the fault type attached for diagnostics.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return fmt.Sprintf("Login failed, please check your %s credentials.", authErr.Portal)
	}

	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		if len(notFound.Available) == 0 {
			return fmt.Sprintf("No report found for %s. No reports are available.", notFound.Requested)
		}
		return fmt.Sprintf("No report found for %s. Available dates: %s",
			notFound.Requested, strings.Join(notFound.Available, ", "))
	}

	var autoErr *AutomationError
	if errors.As(err, &autoErr) {
		return "Operation failed, please try again (AutomationError)"
	}

	var docErr *DocumentError
	if errors.As(err, &docErr) {
		return "Operation failed, please try again (DocumentError)"
	}

	return fmt.Sprintf("Operation failed, please try again (%v)", err)
}
