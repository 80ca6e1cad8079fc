// internal/adapters/crawler/crawler_test.go
package crawler

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"sentinel/internal/core/domain"
	"sentinel/internal/platform/urlfilter"
	"sentinel/internal/platform/workerpool"
	"sentinel/internal/testutil"
)

const apiPage = `<!doctype html>
<html><head>
  <script src="/static/app.js"></script>
  <script src="https://cdn.other.net/lib.js"></script>
  <script>inline()</script>
</head><body>
  <a href="/login">login</a>
  <a href="/login#top">login again</a>
  <a href="docs?page=1">docs</a>
  <a href="https://evil.example.org/">elsewhere</a>
  <a href="mailto:sec@example.com">mail</a>
  <a href="javascript:void(0)">js</a>
  <a href="#section">anchor</a>
</body></html>`

func newCrawler(tr http.RoundTripper, max int) *Crawler {
	return New(Options{
		Client:       &http.Client{Transport: tr},
		Timeout:      time.Second,
		MaxResources: max,
		Pool:         workerpool.New(workerpool.Config{Workers: 2}),
	})
}

func TestCrawler_ExtractsSameOriginResources(t *testing.T) {
	tr := &testutil.StaticTransport{Routes: map[string]testutil.Route{
		"https://api.example.com": {Status: 200, Body: apiPage},
	}}

	sm, err := newCrawler(tr, 100).Run(context.Background(), domain.NewSet[domain.Host]("api.example.com"))
	testutil.RequireNoError(t, err, "Run")

	got := map[string]domain.ResourceKind{}
	for _, r := range sm["api.example.com"].Sorted() {
		got[r.URL] = r.Kind
		testutil.AssertEqual(t, r.Host, domain.Host("api.example.com"), "resource host")
	}
	want := map[string]domain.ResourceKind{
		"https://api.example.com":               domain.ResourcePage,
		"https://api.example.com/login":         domain.ResourcePage,
		"https://api.example.com/docs?page=1":   domain.ResourcePage,
		"https://api.example.com/static/app.js": domain.ResourceScript,
	}
	testutil.AssertDeepEqual(t, got, want, "resources")
}

func TestCrawler_FallsBackToHTTP(t *testing.T) {
	tr := &testutil.StaticTransport{Routes: map[string]testutil.Route{
		"http://www.example.com": {Status: 200, Body: `<a href="/about">about</a>`},
	}}

	sm, err := newCrawler(tr, 100).Run(context.Background(), domain.NewSet[domain.Host]("www.example.com"))
	testutil.RequireNoError(t, err, "Run")
	rs := sm["www.example.com"]
	testutil.AssertEqual(t, len(rs), 2, "root + about")
	_, ok := rs["http://www.example.com/about"]
	testutil.AssertTrue(t, ok, "about page over http")
}

func TestCrawler_UnreachableHostYieldsEmptySet(t *testing.T) {
	tr := &testutil.StaticTransport{Routes: map[string]testutil.Route{
		"https://api.example.com":  {Status: 200, Body: apiPage},
		"https://down.example.com": {Status: 500},
		"http://down.example.com":  {Status: 502},
		"https://boom.example.com": {Panic: true},
	}}
	hosts := domain.NewSet[domain.Host]("api.example.com", "down.example.com", "boom.example.com")

	sm, err := newCrawler(tr, 100).Run(context.Background(), hosts)
	testutil.RequireNoError(t, err, "Run")
	testutil.AssertEqual(t, len(sm), 3, "every host has an entry")
	testutil.AssertEqual(t, len(sm["down.example.com"]), 0, "failing host")
	testutil.AssertEqual(t, len(sm["boom.example.com"]), 0, "panicking host")
	testutil.AssertEqual(t, sm.CrawledHosts(), 1, "crawled hosts")
}

func TestCrawler_MaxResourcesKeepsRoot(t *testing.T) {
	tr := &testutil.StaticTransport{Routes: map[string]testutil.Route{
		"https://api.example.com": {Status: 200, Body: apiPage},
	}}

	sm, err := newCrawler(tr, 2).Run(context.Background(), domain.NewSet[domain.Host]("api.example.com"))
	testutil.RequireNoError(t, err, "Run")
	rs := sm["api.example.com"]
	testutil.AssertEqual(t, len(rs), 2, "capped")
	_, ok := rs["https://api.example.com"]
	testutil.AssertTrue(t, ok, "root page survives the cap")
}

func TestCrawler_DecodesDeclaredCharset(t *testing.T) {
	// "café" in ISO-8859-1
	body := "<a href=\"/caf\xe9\">x</a>"
	tr := &testutil.StaticTransport{Routes: map[string]testutil.Route{
		"https://latin.example.com": {Status: 200, Body: body, Header: http.Header{
			"Content-Type": {"text/html; charset=iso-8859-1"},
		}},
	}}

	sm, err := newCrawler(tr, 10).Run(context.Background(), domain.NewSet[domain.Host]("latin.example.com"))
	testutil.RequireNoError(t, err, "Run")
	_, ok := sm["latin.example.com"]["https://latin.example.com/caf%C3%A9"]
	testutil.AssertTrue(t, ok, "href decoded to UTF-8 and escaped")
}

func TestCrawler_BaseHref(t *testing.T) {
	tr := &testutil.StaticTransport{Routes: map[string]testutil.Route{
		"https://app.example.com": {Status: 200, Body: `<base href="/v2/"><script src="main.js"></script>`},
	}}

	sm, err := newCrawler(tr, 10).Run(context.Background(), domain.NewSet[domain.Host]("app.example.com"))
	testutil.RequireNoError(t, err, "Run")
	r, ok := sm["app.example.com"]["https://app.example.com/v2/main.js"]
	testutil.AssertTrue(t, ok, "script resolved against <base>")
	testutil.AssertEqual(t, r.Kind, domain.ResourceScript, "kind")
}

func TestResolve(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"/a#frag", "https://h.example.com/a", true},
		{"HTTPS://H.EXAMPLE.COM:443/b", "https://h.example.com/b", true},
		{"ftp://h.example.com/x", "", false},
		{"  ", "", false},
		{"tel:123", "", false},
	}
	base := mustURL(t, "https://h.example.com/")
	for _, tt := range tests {
		got, ok := resolve(base, tt.raw)
		testutil.AssertEqual(t, ok, tt.ok, "ok for "+tt.raw)
		testutil.AssertEqual(t, got, tt.want, "url for "+tt.raw)
	}
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	testutil.RequireNoError(t, err, "parse "+raw)
	return u
}

func TestCrawler_FilterCollapsesTemplates(t *testing.T) {
	page := `<html><body>
  <a href="/item/1">1</a><a href="/item/2">2</a><a href="/item/3">3</a>
  <a href="/login">login</a>
</body></html>`
	tr := &testutil.StaticTransport{Routes: map[string]testutil.Route{
		"https://shop.example.com": {Status: 200, Body: page},
	}}

	c := New(Options{
		Client:       &http.Client{Transport: tr},
		Timeout:      time.Second,
		MaxResources: 3,
		Filter:       urlfilter.New(urlfilter.Options{MaxPerTemplate: 1}),
		Pool:         workerpool.New(workerpool.Config{Workers: 1}),
	})
	sm, err := c.Run(context.Background(), domain.NewSet[domain.Host]("shop.example.com"))
	testutil.RequireNoError(t, err, "Run")

	rs := sm["shop.example.com"]
	testutil.AssertEqual(t, len(rs), 3, "root plus two links")
	for _, u := range []string{
		"https://shop.example.com",
		"https://shop.example.com/login",
		"https://shop.example.com/item/1",
	} {
		_, ok := rs[u]
		testutil.AssertTrue(t, ok, "kept "+u)
	}
}

func TestCrawler_RedirectToSiblingHost(t *testing.T) {
	tr := &testutil.StaticTransport{Routes: map[string]testutil.Route{
		"https://example.com": {Status: http.StatusMovedPermanently, Header: http.Header{
			"Location": {"https://www.example.com/"},
		}},
		"https://www.example.com": {Status: 200, Body: `<a href="/about">about</a><script src="/app.js"></script>`},
	}}

	sm, err := newCrawler(tr, 10).Run(context.Background(), domain.NewSet[domain.Host]("example.com"))
	testutil.RequireNoError(t, err, "Run")

	rs := sm["example.com"]
	for _, u := range []string{
		"https://example.com",
		"https://www.example.com/about",
		"https://www.example.com/app.js",
	} {
		r, ok := rs[u]
		testutil.AssertTrue(t, ok, "kept "+u)
		testutil.AssertEqual(t, r.Host, domain.Host("example.com"), "resource belongs to the crawled host")
	}
	testutil.AssertEqual(t, len(rs), 3, "root plus sibling resources")
}

func TestCrawler_RedirectOffSiteKeepsRoot(t *testing.T) {
	tr := &testutil.StaticTransport{Routes: map[string]testutil.Route{
		"https://shop.example.com": {Status: http.StatusFound, Header: http.Header{
			"Location": {"https://cdn.other.net/landing"},
		}},
		"https://cdn.other.net": {Status: 200, Body: `<a href="/about">about</a><script src="/app.js"></script>`},
	}}

	sm, err := newCrawler(tr, 10).Run(context.Background(), domain.NewSet[domain.Host]("shop.example.com"))
	testutil.RequireNoError(t, err, "Run")

	rs := sm["shop.example.com"]
	testutil.AssertEqual(t, len(rs), 1, "only the root")
	_, ok := rs["https://shop.example.com"]
	testutil.AssertTrue(t, ok, "requested root kept")
}
