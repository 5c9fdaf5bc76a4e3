package adapters

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
)

// ErrMediaHostNotAllowed is returned for media hosts outside the allowlist
// and for hosts that resolve to loopback, private or link-local addresses.
var ErrMediaHostNotAllowed = errors.New("media host not allowed")

var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// HTTPMediaLoader fetches attached media over HTTP(S) and returns it
// base64-encoded. data: URIs are decoded in place without a request.
//
// With an empty allowlist any public host is fetched. With a non-empty one
// only listed hosts are, and listed hosts may resolve to internal addresses.
// Addresses are checked after resolution, at dial time, so redirects and
// DNS answers cannot reach an internal service.
type HTTPMediaLoader struct {
	client   *http.Client
	maxBytes int64
	allowed  map[string]bool
}

func NewHTTPMediaLoader(maxBytes int64, allowedHosts []string) *HTTPMediaLoader {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	l := &HTTPMediaLoader{maxBytes: maxBytes, allowed: make(map[string]bool, len(allowedHosts))}
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			l.allowed[h] = true
		}
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	l.client = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext:           l.guardedDial(dialer),
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many media redirects")
			}
			return l.checkURL(req.URL)
		},
	}
	return l
}

func (l *HTTPMediaLoader) LoadBase64(ctx context.Context, rawURL string) (string, error) {
	if rest, ok := strings.CutPrefix(rawURL, "data:"); ok {
		_, payload, found := strings.Cut(rest, ";base64,")
		if !found {
			return "", errors.New("unsupported data uri: only base64 payloads are accepted")
		}
		return payload, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid media url: %w", err)
	}
	if err := l.checkURL(u); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create media request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch media: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read media: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return "", fmt.Errorf("media exceeds %d bytes", l.maxBytes)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (l *HTTPMediaLoader) checkURL(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported media url %q", u.String())
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("media url %q has no host", u.String())
	}
	if len(l.allowed) > 0 && !l.allowed[host] {
		return fmt.Errorf("%w: %s", ErrMediaHostNotAllowed, host)
	}
	return nil
}

// guardedDial resolves the host itself and only connects to public
// addresses, unless the host is explicitly allowlisted.
func (l *HTTPMediaLoader) guardedDial(d *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		if l.allowed[strings.ToLower(host)] {
			return d.DialContext(ctx, network, addr)
		}

		ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
		if err != nil {
			return nil, err
		}
		lastErr := fmt.Errorf("%w: %s has no addresses", ErrMediaHostNotAllowed, host)
		for _, ip := range ips {
			ip = ip.Unmap()
			if !publicAddr(ip) {
				lastErr = fmt.Errorf("%w: %s resolves to %s", ErrMediaHostNotAllowed, host, ip)
				continue
			}
			conn, err := d.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		return nil, lastErr
	}
}

func publicAddr(ip netip.Addr) bool {
	switch {
	case !ip.IsValid(), ip.IsUnspecified(), ip.IsLoopback(), ip.IsPrivate(),
		ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(), ip.IsMulticast(),
		sharedAddressSpace.Contains(ip):
		return false
	}
	return true
}

var _ ports.MediaLoader = (*HTTPMediaLoader)(nil)
