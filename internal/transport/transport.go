// Package transport provides the HTTP round trippers used by the storefront client.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// Kind selects a transport implementation.
type Kind string

const (
	// KindStandard is a clone of http.DefaultTransport.
	KindStandard Kind = "standard"

	// KindChrome presents a Chrome TLS fingerprint. Storefronts fronted by a CDN
	// that rate-limits on JA3 fingerprints answer Go's default handshake with 429s.
	KindChrome Kind = "chrome"
)

// Valid reports whether k names a known transport.
func (k Kind) Valid() bool {
	return k == KindStandard || k == KindChrome
}

// New returns the round tripper for kind. The dial timeout applies to both kinds.
func New(kind Kind, timeout time.Duration) (http.RoundTripper, error) {
	switch kind {
	case KindStandard, "":
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
		return t, nil
	case KindChrome:
		return NewChromeTransport(timeout), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", kind)
	}
}

// =============================================================================
// TLS FINGERPRINT TRANSPORT
// =============================================================================
//
// uTLS with HelloChrome_Auto produces the handshake; ALPN negotiates h2 or
// http/1.1 and the matching Go transport does the framing.
//
// =============================================================================

// NewChromeTransport creates an http.RoundTripper that presents Chrome's TLS
// fingerprint to upstream servers. Supports both HTTP/2 and HTTP/1.1 based on
// ALPN negotiation. Plain http:// URLs go through the HTTP/1.1 transport.
func NewChromeTransport(timeout time.Duration) http.RoundTripper {
	dialer := &net.Dialer{Timeout: timeout}

	h2Transport := &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return dialChromeTLS(ctx, dialer, network, addr)
		},
	}

	h1Transport := &http.Transport{
		DialContext: dialer.DialContext,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialChromeTLS(ctx, dialer, network, addr)
		},
		ForceAttemptHTTP2: false,
	}

	return &chromeTransport{
		h2: h2Transport,
		h1: h1Transport,
	}
}

// chromeTransport wraps HTTP/2 and HTTP/1.1 transports with Chrome TLS fingerprint.
type chromeTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

// RoundTrip implements http.RoundTripper.
// Tries HTTP/2 first for https, falls back to HTTP/1.1 if the server doesn't speak h2.
func (t *chromeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	// The h2 attempt may have consumed the body; replay it when possible.
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, err
		}
		body, gerr := req.GetBody()
		if gerr != nil {
			return nil, err
		}
		req = req.Clone(req.Context())
		req.Body = body
	}
	return t.h1.RoundTrip(req)
}

// dialChromeTLS establishes a TLS connection with Chrome's fingerprint.
func dialChromeTLS(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
