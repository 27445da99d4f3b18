package model

import (
	"log/slog"
	"maps"
	"slices"
)

// Credential is a portal login: an e-mail and a secret.
// The secret is held as bytes so that Erase can zero it once the login call returns.
// Credential never renders its secret through fmt or slog.
type Credential struct {
	Email  string
	secret []byte
}

// NewCredential returns a credential holding a copy of secret.
func NewCredential(email string, secret []byte) *Credential {
	return &Credential{Email: email, secret: slices.Clone(secret)}
}

// Secret returns the secret as a string for handing to the browser.
func (c *Credential) Secret() string {
	return string(c.secret)
}

// Erase zeroes the secret and forgets the e-mail.
func (c *Credential) Erase() {
	clear(c.secret)
	c.secret = nil
	c.Email = ""
}

// Erased reports whether the credential no longer holds a secret.
func (c *Credential) Erased() bool {
	return len(c.secret) == 0
}

// String implements fmt.Stringer without exposing the secret.
func (c *Credential) String() string {
	return "Credential(***REDACTED***)"
}

// LogValue implements slog.LogValuer without exposing the secret.
func (c *Credential) LogValue() slog.Value {
	return slog.StringValue("***REDACTED***")
}

// SessionToken is the cookie set captured after a verified portal login.
// It lives only for the duration of one fetch and is never persisted.
type SessionToken struct {
	cookies map[string]string
}

// NewSessionToken returns a token holding a copy of cookies.
// Only the session acquirer calls it, after the login has been verified.
func NewSessionToken(cookies map[string]string) SessionToken {
	return SessionToken{cookies: maps.Clone(cookies)}
}

// Cookies returns a copy of the cookie set.
func (s SessionToken) Cookies() map[string]string {
	return maps.Clone(s.cookies)
}

// Names returns the cookie names in sorted order.
func (s SessionToken) Names() []string {
	return slices.Sorted(maps.Keys(s.cookies))
}

// Len returns the number of cookies.
func (s SessionToken) Len() int { return len(s.cookies) }

// LogValue implements slog.LogValuer. Only the cookie count is logged.
func (s SessionToken) LogValue() slog.Value {
	return slog.GroupValue(slog.Int("cookies", len(s.cookies)))
}

// StatusFunc receives human-readable progress messages.
// A nil StatusFunc discards them.
type StatusFunc func(message string)

// Report sends msg to f when f is set.
func (f StatusFunc) Report(msg string) {
	if f != nil {
		f(msg)
	}
}
