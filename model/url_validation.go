package model

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Sentinel validation errors, mapped to error types by CreateValidationError.
var (
	ErrInvalidURL        = errors.New("invalid URL format")
	ErrUnsupportedScheme = errors.New("unsupported URL scheme - only HTTP and HTTPS are allowed")
	ErrPrivateIPBlocked  = errors.New("private IP addresses and localhost are blocked for security")
	ErrMissingHost       = errors.New("URL must have a valid host")
	ErrEmptyURL          = errors.New("URL cannot be empty")
)

// ValidateSourceURL checks an upstream source URL before it is fetched:
// http(s) scheme, a host, and, unless allowPrivateIPs is set, a host that
// does not point at loopback or private address space. Spec files can come
// from untrusted OPML imports, so this is the SSRF boundary.
func ValidateSourceURL(rawURL string, allowPrivateIPs bool) error {
	if rawURL == "" {
		return ErrEmptyURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if err := validateScheme(u.Scheme); err != nil {
		return err
	}

	if u.Host == "" {
		return ErrMissingHost
	}

	if !allowPrivateIPs {
		if err := validateHost(u.Host); err != nil {
			return err
		}
	}

	return nil
}

// validateScheme rejects everything but http and https. file, ftp, data
// and friends are how a spec file turns into a local file read.
func validateScheme(scheme string) error {
	if !strings.EqualFold(scheme, "http") && !strings.EqualFold(scheme, "https") {
		return ErrUnsupportedScheme
	}
	return nil
}

// validateHost blocks hosts that name or resolve to private address space.
// A host that does not resolve at all passes: transient DNS trouble is the
// HTTP client's problem, not a spec error.
func validateHost(host string) error {
	hostname, _, err := net.SplitHostPort(host)
	if err != nil {
		hostname = host
	}

	if isLocalhost(hostname) {
		return ErrPrivateIPBlocked
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return nil
	}

	for _, ip := range ips {
		if isPrivateIP(ip) {
			return ErrPrivateIPBlocked
		}
	}

	return nil
}

// isLocalhost reports whether the hostname names the local machine, either
// literally or as a loopback address.
func isLocalhost(hostname string) bool {
	if strings.EqualFold(hostname, "localhost") {
		return true
	}

	// Bare IPv6 literals may still carry URL brackets.
	trimmed := strings.Trim(hostname, "[]")
	if ip := net.ParseIP(trimmed); ip != nil {
		return ip.IsLoopback()
	}

	return false
}

// isPrivateIP reports whether the address lies in loopback, RFC 1918,
// link-local, unique-local, or unspecified space.
func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}

// ValidateSourceURLs validates every source URL in a fused feed before a
// fetch cycle starts. The whole feed is rejected rather than silently
// dropping an invalid source, so spec mistakes surface immediately.
func ValidateSourceURLs(sources []*Source, allowPrivateIPs bool) error {
	var invalidURLs []string
	for _, src := range sources {
		if err := ValidateSourceURL(src.URI, allowPrivateIPs); err != nil {
			invalidURLs = append(invalidURLs, fmt.Sprintf("%s: %v", src.URI, err))
		}
	}

	if len(invalidURLs) > 0 {
		return fmt.Errorf("invalid source URLs:\n%s", strings.Join(invalidURLs, "\n"))
	}

	return nil
}
