// internal/platform/validator/validator.go
package validator

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var domainRegex = regexp.MustCompile(`^([a-z0-9]([a-z0-9\-]{0,61}[a-z0-9])?\.)*[a-z0-9]([a-z0-9\-]{0,61}[a-z0-9])?$`)

// IsDomain reports whether s is a valid DNS name (not an IP).
func IsDomain(domain string) bool {
	if len(domain) == 0 || len(domain) > 253 {
		return false
	}
	if net.ParseIP(domain) != nil {
		return false
	}
	return domainRegex.MatchString(strings.ToLower(domain))
}

// NormalizeTarget canonicalises one line of a target list. It accepts bare
// names, "*.name" wildcards and URLs, and reports false for anything that
// is not a multi-label domain afterwards.
func NormalizeTarget(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			return "", false
		}
		s = u.Host
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if h, _, err := net.SplitHostPort(s); err == nil {
		s = h
	}
	s = strings.TrimPrefix(s, "*.")
	s = strings.TrimSuffix(s, ".")

	if !strings.Contains(s, ".") || !IsDomain(s) {
		return "", false
	}
	return s, true
}

// InScope reports whether host is target itself or one of its sub-names.
func InScope(host, target string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	target = strings.TrimSuffix(strings.ToLower(target), ".")
	return host == target || strings.HasSuffix(host, "."+target)
}

// IsSubdomain is InScope without equality.
func IsSubdomain(subdomain, baseDomain string) bool {
	return InScope(subdomain, baseDomain) &&
		!strings.EqualFold(strings.TrimSpace(subdomain), strings.TrimSpace(baseDomain))
}

// RegistrableDomain returns eTLD+1 for host (api.shop.example.co.uk ->
// example.co.uk) or "" when host is itself a public suffix.
func RegistrableDomain(host string) string {
	d, err := publicsuffix.EffectiveTLDPlusOne(strings.TrimSuffix(strings.ToLower(host), "."))
	if err != nil {
		return ""
	}
	return d
}

// IsURL requires an http(s) scheme and a host.
func IsURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// NormalizeURL lower-cases scheme and host, drops default ports and the
// fragment, and removes a bare "/" path.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "/" && u.RawQuery == "" {
		u.Path = ""
	}
	return u.String()
}
