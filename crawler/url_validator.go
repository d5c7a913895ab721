package crawler

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
)

var ErrURLNotAllowed = errors.New("url not allowed")

var blockedCIDRs = []*net.IPNet{
	mustParseCIDR("127.0.0.0/8"),
	mustParseCIDR("10.0.0.0/8"),
	mustParseCIDR("172.16.0.0/12"),
	mustParseCIDR("192.168.0.0/16"),
	mustParseCIDR("169.254.0.0/16"),
	mustParseCIDR("0.0.0.0/8"),
	mustParseCIDR("::1/128"),
	mustParseCIDR("fc00::/7"),
	mustParseCIDR("fe80::/10"),
}

type URLValidator struct {
	allowedSchemes []string
	allowPrivate   bool
}

// NewURLValidator creates a new URL validator with the given configuration
func NewURLValidator(config *RetrieverConfig) *URLValidator {
	return &URLValidator{
		allowedSchemes: config.AllowedSchemes,
		allowPrivate:   config.AllowPrivateNetworks,
	}
}

// Validate parses rawURL and rejects schemes outside the allow list and,
// unless private networks are allowed, literal loopback or private hosts.
// Host names are not resolved.
func (v *URLValidator) Validate(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrURLNotAllowed, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrURLNotAllowed, rawURL)
	}
	if !slices.Contains(v.allowedSchemes, strings.ToLower(u.Scheme)) {
		return nil, fmt.Errorf("%w: scheme %q", ErrURLNotAllowed, u.Scheme)
	}
	if !v.allowPrivate && isPrivateHost(u.Hostname()) {
		return nil, fmt.Errorf("%w: private host %q", ErrURLNotAllowed, u.Hostname())
	}
	return u, nil
}

func isPrivateHost(host string) bool {
	host = strings.ToLower(host)
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, block := range blockedCIDRs {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

func mustParseCIDR(value string) *net.IPNet {
	_, parsed, err := net.ParseCIDR(value)
	if err != nil {
		panic(err)
	}
	return parsed
}
