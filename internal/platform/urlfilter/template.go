// Package urlfilter ranks crawled URLs by how interesting they are to a
// scanner and collapses near-duplicates (/item/1, /item/2, ...) into a few
// representatives per template.
package urlfilter

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// dynamicSegment recognises path segments that vary between equivalent
// URLs. Order matters: the first match wins.
type dynamicSegment struct {
	name  string
	regex *regexp.Regexp
}

var dynamicSegments = []dynamicSegment{
	{"uuid", regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)},
	{"date", regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)},
	{"timestamp", regexp.MustCompile(`^\d{10,13}$`)},
	{"id", regexp.MustCompile(`^\d+$`)},
	{"hash", regexp.MustCompile(`^[a-f0-9]{32,64}$`)},
	{"hex", regexp.MustCompile(`^[a-f0-9]*\d[a-f0-9]*$`)},
	{"slug", regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+){2,}$`)},
}

// Template replaces dynamic path segments with placeholders and keeps only
// the sorted query keys:
//
//	https://x.example.com/item/42?b=2&a=1 → https://x.example.com/item/{id}?a=&b=
func Template(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	t := strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + pathTemplate(u.Path)
	if q := queryTemplate(u.Query()); q != "" {
		t += "?" + q
	}
	return t, nil
}

func pathTemplate(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	segs := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segs {
		if ph := placeholder(s); ph != "" {
			segs[i] = ph
		}
	}
	out := "/" + strings.Join(segs, "/")
	if strings.HasSuffix(p, "/") {
		out += "/"
	}
	return out
}

func placeholder(seg string) string {
	if seg == "" {
		return ""
	}
	lower := strings.ToLower(seg)
	// hex needs a digit and some length, otherwise words like "cafe" collapse
	for _, d := range dynamicSegments {
		if d.name == "hex" && len(lower) < 6 {
			continue
		}
		if d.regex.MatchString(lower) {
			return "{" + d.name + "}"
		}
	}
	if len(seg) > 15 && mixedAlphanumeric(seg) {
		return "{dynamic}"
	}
	return ""
}

func mixedAlphanumeric(s string) bool {
	var letter, digit bool
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			letter = true
		}
		if letter && digit {
			return true
		}
	}
	return false
}

func queryTemplate(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k+"=")
	}
	sort.Strings(keys)
	return strings.Join(keys, "&")
}
