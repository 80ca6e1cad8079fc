// internal/platform/validator/validator_test.go
package validator

import (
	"testing"

	"sentinel/internal/testutil"
)

func TestIsDomain(t *testing.T) {
	valid := []string{"example.com", "api.example.com", "a-b.example.co.uk", "localhost"}
	invalid := []string{"", "not a domain", "192.168.1.1", "2001:db8::1", "-invalid.com", "invalid-.com", ".example.com", "example..com"}

	for _, d := range valid {
		testutil.AssertTrue(t, IsDomain(d), "valid: "+d)
	}
	for _, d := range invalid {
		testutil.AssertFalse(t, IsDomain(d), "invalid: "+d)
	}
}

func TestNormalizeTarget(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"example.com", "example.com", true},
		{"  Example.COM  ", "example.com", true},
		{"example.com.", "example.com", true},
		{"*.example.com", "example.com", true},
		{"https://Shop.Example.com:8443/login?x=1", "shop.example.com", true},
		{"example.com/path", "example.com", true},
		{"", "", false},
		{"localhost", "", false},
		{"10.0.0.1", "", false},
		{"bad domain.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeTarget(tt.in)
			testutil.AssertEqual(t, ok, tt.ok, "ok")
			testutil.AssertEqual(t, got, tt.want, "normalized")
		})
	}
}

func TestInScope(t *testing.T) {
	testutil.AssertTrue(t, InScope("example.com", "example.com"), "self")
	testutil.AssertTrue(t, InScope("API.example.com.", "example.com"), "sub-name")
	testutil.AssertFalse(t, InScope("badexample.com", "example.com"), "suffix without dot")
	testutil.AssertFalse(t, InScope("example.org", "example.com"), "other domain")

	testutil.AssertTrue(t, IsSubdomain("dev.example.com", "example.com"), "subdomain")
	testutil.AssertFalse(t, IsSubdomain("example.com", "example.com"), "self is not a subdomain")
}

func TestRegistrableDomain(t *testing.T) {
	testutil.AssertEqual(t, RegistrableDomain("api.shop.example.co.uk"), "example.co.uk", "multi-part suffix")
	testutil.AssertEqual(t, RegistrableDomain("www.example.com."), "example.com", "trailing dot")
	testutil.AssertEqual(t, RegistrableDomain("com"), "", "public suffix alone")
}

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"HTTP://Example.com:80/":          "http://example.com",
		"https://example.com:443/a#frag":  "https://example.com/a",
		"https://example.com/a?b=1":       "https://example.com/a?b=1",
		"https://example.com:8443/Path/":  "https://example.com:8443/Path/",
	}
	for in, want := range tests {
		testutil.AssertEqual(t, NormalizeURL(in), want, in)
	}
	testutil.AssertTrue(t, IsURL("https://example.com/x"), "https url")
	testutil.AssertFalse(t, IsURL("ftp://example.com"), "ftp rejected")
	testutil.AssertFalse(t, IsURL("/relative"), "relative rejected")
}
