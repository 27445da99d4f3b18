package browser

// State is a step of the session acquisition state machine.
//
//	Idle -> BrowserLaunched -> CredentialsSubmitted -> AuthenticationVerified
//	     -> Navigated -> SessionExtracted -> BrowserClosed
//
// A scrape reads the results page instead of the cookies, so ContentExtracted
// takes the place of SessionExtracted.
//
// Every state except Idle and BrowserClosed may instead end in a fault. The browser
// is closed on every path once it has been launched.
type State int

const (
	// StateIdle is the state before the browser starts.
	StateIdle State = iota
	// StateBrowserLaunched means the browser process is running.
	StateBrowserLaunched
	// StateCredentialsSubmitted means the login form was filled and submitted.
	StateCredentialsSubmitted
	// StateAuthenticationVerified means the browser left the login page.
	StateAuthenticationVerified
	// StateNavigated means every target page was opened.
	StateNavigated
	// StateSessionExtracted means the cookies were read.
	StateSessionExtracted
	// StateBrowserClosed is the final state.
	StateBrowserClosed
	// StateContentExtracted means the results page was read.
	StateContentExtracted
)

// String returns the state name used in logs and AutomationError.Stage.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBrowserLaunched:
		return "browser launched"
	case StateCredentialsSubmitted:
		return "credentials submitted"
	case StateAuthenticationVerified:
		return "authentication verified"
	case StateNavigated:
		return "navigated"
	case StateSessionExtracted:
		return "session extracted"
	case StateBrowserClosed:
		return "browser closed"
	case StateContentExtracted:
		return "content extracted"
	default:
		return "unknown"
	}
}
