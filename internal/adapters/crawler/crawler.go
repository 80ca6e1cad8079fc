// internal/adapters/crawler/crawler.go
package crawler

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"sentinel/internal/core/domain"
	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/logx"
	"sentinel/internal/platform/urlfilter"
	"sentinel/internal/platform/validator"
	"sentinel/internal/platform/workerpool"
)

// Options configures the Crawler.
type Options struct {
	Client       *http.Client
	Timeout      time.Duration
	MaxResources int
	MaxBodyBytes int64
	UserAgent    string

	// Filter ranks links and collapses near-duplicates before the cap;
	// nil keeps document order.
	Filter *urlfilter.Filter

	Pool   *workerpool.Pool
	Logger logx.Logger
}

// Crawler fetches the root page of each live host and collects same-origin
// links and scripts. It does not recurse.
type Crawler struct {
	client       *http.Client
	timeout      time.Duration
	maxResources int
	maxBody      int64
	userAgent    string
	filter       *urlfilter.Filter
	pool         *workerpool.Pool
	logger       logx.Logger
}

func New(opts Options) *Crawler {
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxResources <= 0 {
		opts.MaxResources = 100
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 2 << 20
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Sentinel/1.0"
	}
	if opts.Logger == nil {
		opts.Logger = logx.Discard()
	}
	if opts.Pool == nil {
		opts.Pool = workerpool.New(workerpool.Config{Workers: 10, Name: "crawl", Logger: opts.Logger})
	}
	return &Crawler{
		client:       opts.Client,
		timeout:      opts.Timeout,
		maxResources: opts.MaxResources,
		maxBody:      opts.MaxBodyBytes,
		userAgent:    opts.UserAgent,
		filter:       opts.Filter,
		pool:         opts.Pool,
		logger:       opts.Logger.With("component", "crawler"),
	}
}

func (c *Crawler) Name() string { return domain.PhaseCrawl }

// Run returns an entry for every input host; unreachable hosts map to an
// empty set.
func (c *Crawler) Run(ctx context.Context, hosts domain.HostSet) (domain.SiteMap, error) {
	found := workerpool.NewResults[domain.Host, domain.ResourceSet](hosts.Len())

	workerpool.ForEach(ctx, c.pool, hosts.Sorted(), func(ctx context.Context, h domain.Host) error {
		rs, err := c.crawlHost(ctx, h)
		if err != nil {
			c.logger.Warn("crawl failed", "host", h, "error", err.Error())
		}
		found.Set(h, rs)
		return err
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(domain.SiteMap, hosts.Len())
	for h := range hosts {
		out[h] = make(domain.ResourceSet)
	}
	total := 0
	for h, rs := range found.Map() {
		if rs != nil {
			out[h] = rs
			total += len(rs)
		}
	}
	c.logger.Info("crawl finished", "hosts", hosts.Len(), "crawled", out.CrawledHosts(), "resources", total)
	return out, nil
}

func (c *Crawler) crawlHost(ctx context.Context, h domain.Host) (domain.ResourceSet, error) {
	var lastErr error
	for _, scheme := range []string{"https", "http"} {
		root := scheme + "://" + string(h) + "/"
		doc, base, err := c.fetch(ctx, root)
		if err != nil {
			lastErr = err
			continue
		}
		return c.extract(h, root, base, doc), nil
	}
	return make(domain.ResourceSet), lastErr
}

func (c *Crawler) fetch(ctx context.Context, rawURL string) (*goquery.Document, *url.URL, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, errors.Wrapf(errors.ErrConnectionFailed, "GET %s: %v", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, nil, errors.FromStatus(resp.StatusCode, rawURL)
	}

	var body io.Reader = io.LimitReader(resp.Body, c.maxBody)
	if r, err := charset.NewReader(body, resp.Header.Get("Content-Type")); err == nil {
		body = r
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, nil, errors.Wrapf(errors.ErrInvalidResponse, "parse %s: %v", rawURL, err)
	}

	base := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}
	// <base href> wins over the final URL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if u, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = u
		}
	}
	return doc, base, nil
}

// extract always keeps the requested root. Links are kept when they point at
// h, or at the host h redirected to (or named in <base href>) when that host
// shares h's registrable domain.
func (c *Crawler) extract(h domain.Host, root string, base *url.URL, doc *goquery.Document) domain.ResourceSet {
	rs := make(domain.ResourceSet)
	add := func(u string, kind domain.ResourceKind) {
		if len(rs) < c.maxResources {
			rs.Add(domain.Resource{URL: u, Host: h, Kind: kind})
		}
	}
	origin := c.originHosts(h, base)
	collect := func(sel, attr string) []string {
		var out []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			raw, _ := s.Attr(attr)
			if u, ok := resolve(base, raw); ok && origin[hostOf(u)] {
				out = append(out, u)
			}
		})
		return out
	}

	// Root page first so it survives the cap.
	if u, ok := resolve(base, root); ok {
		add(u, domain.ResourcePage)
	}

	links := collect("a[href]", "href")
	if c.filter != nil {
		links = c.filter.Reduce(links)
	}
	for _, u := range links {
		add(u, domain.ResourcePage)
	}
	for _, u := range collect("script[src]", "src") {
		add(u, domain.ResourceScript)
	}
	return rs
}

func (c *Crawler) originHosts(h domain.Host, base *url.URL) map[string]bool {
	self := strings.ToLower(string(h))
	origin := map[string]bool{self: true}
	final := strings.ToLower(base.Hostname())
	if final == "" || final == self {
		return origin
	}
	if reg := validator.RegistrableDomain(self); reg != "" && reg == validator.RegistrableDomain(final) {
		origin[final] = true
		return origin
	}
	c.logger.Warn("page base left the host, only the root is kept", "host", h, "base", base.String())
	return origin
}

// resolve turns an attribute value into a normalised absolute http(s) URL.
func resolve(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return "", false
	}
	lower := strings.ToLower(raw)
	for _, p := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, p) {
			return "", false
		}
	}
	u, err := base.Parse(raw)
	if err != nil || !validator.IsURL(u.String()) {
		return "", false
	}
	return validator.NormalizeURL(u.String()), true
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
