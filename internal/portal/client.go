package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/nao1215/biosnap/internal/model"
)

// checkProxyTimeout bounds the SOCKS5 handshake probe.
const checkProxyTimeout = 2 * time.Second

// maxRedirects caps redirects followed by the data API client.
const maxRedirects = 10

// NewHTTPClient returns the client used for portal data calls.
// When proxyAddress is set ("host:port"), every connection goes through that SOCKS5 proxy.
//
// Design decision: the client carries no cookie jar. Session cookies are injected per
// fetch by a RoundTripper, so nothing outlives the fetch that owns the SessionToken.
func NewHTTPClient(proxyAddress string, timeout time.Duration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 2
	transport.IdleConnTimeout = 30 * time.Second

	if proxyAddress != "" {
		dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// withSession returns a shallow copy of client whose requests carry the session
// cookies and the extra headers.
func withSession(client *http.Client, session model.SessionToken, headers map[string]string) *http.Client {
	c := *client
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.Transport = &sessionTransport{
		base:    base,
		cookie:  cookieHeader(session),
		headers: headers,
	}
	return &c
}

// cookieHeader renders the session as a Cookie header value in name order.
func cookieHeader(session model.SessionToken) string {
	cookies := session.Cookies()
	parts := make([]string, 0, len(cookies))
	for _, name := range session.Names() {
		parts = append(parts, (&http.Cookie{Name: name, Value: cookies[name]}).String())
	}
	return strings.Join(parts, "; ")
}

// sessionTransport wraps an http.RoundTripper to inject
// session cookies and custom headers into every request.
type sessionTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}

// SOCKS5 protocol constants.
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthNoAccept = 0xFF
)

// CheckProxy verifies that address is a SOCKS5 proxy accepting clients without
// authentication. Only the method negotiation is performed; no connection is requested.
func CheckProxy(ctx context.Context, address string) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return ProxyStatusCannotConnect
	}

	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if resp[0] != socks5Version || resp[1] == socks5AuthNoAccept || resp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}
