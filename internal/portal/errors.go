package portal

import "errors"

// Portal data errors.
// Status and transport faults are wrapped in *model.AutomationError so callers can
// offer a retry; payload faults are not, because retrying will not change the shape.
var (
	// ErrUnexpectedStatus is returned when the data API answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status from portal")

	// ErrUnexpectedPayload is returned when the response is neither a report object
	// nor a list of report objects.
	ErrUnexpectedPayload = errors.New("unexpected payload from portal")

	// ErrBodyTooLarge is returned when the response exceeds the configured size cap.
	ErrBodyTooLarge = errors.New("portal response too large")

	// ErrNoDataURL is returned when the portal has no data API configured.
	ErrNoDataURL = errors.New("portal has no data URL")

	// ErrImportInProgress is returned when an import for the same account is already running.
	ErrImportInProgress = errors.New("an import for this account is already in progress")

	// ErrProxyNotSOCKS5 is returned when the configured egress proxy does not speak SOCKS5.
	ErrProxyNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy")

	// ErrProxyCannotConnect is returned when the proxy address cannot be reached.
	ErrProxyCannotConnect = errors.New("cannot connect to proxy")

	// ErrProxyTimeout is returned when the proxy does not answer in time.
	ErrProxyTimeout = errors.New("timeout connecting to proxy")
)

// ProxyStatus is the result of probing the egress proxy.
type ProxyStatus int

const (
	// ProxyStatusOK indicates a SOCKS5 proxy accepting unauthenticated clients.
	ProxyStatusOK ProxyStatus = iota
	// ProxyStatusWrongType indicates something other than a usable SOCKS5 proxy answered.
	ProxyStatusWrongType
	// ProxyStatusCannotConnect indicates the address refused or failed the connection.
	ProxyStatusCannotConnect
	// ProxyStatusTimeout indicates the probe timed out.
	ProxyStatusTimeout
)

// String returns a human-readable description of the status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusWrongType:
		return "wrong type (not SOCKS5)"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Err returns the error for this status, or nil if OK.
func (s ProxyStatus) Err() error {
	switch s {
	case ProxyStatusOK:
		return nil
	case ProxyStatusWrongType:
		return ErrProxyNotSOCKS5
	case ProxyStatusCannotConnect:
		return ErrProxyCannotConnect
	case ProxyStatusTimeout:
		return ErrProxyTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
