package browser

import "errors"

var (
	// ErrNoCredential is returned when Acquire is called without a usable credential.
	ErrNoCredential = errors.New("no credential supplied")

	// ErrNotLaunched is returned by driver calls made before Launch or after Close.
	ErrNotLaunched = errors.New("browser not launched")

	// ErrIncompletePortal is returned when the portal lacks a login URL or form selectors.
	ErrIncompletePortal = errors.New("portal is missing login URL or form selectors")
)
