// internal/adapters/targets/feed.go
package targets

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/httpclient"
	"sentinel/internal/platform/logx"
	"sentinel/internal/platform/validator"
)

// programList is the shape of the public bug-bounty program dumps.
type programList struct {
	Programs []struct {
		Name    string   `json:"name"`
		Domains []string `json:"domains"`
	} `json:"programs"`
}

type FeedOptions struct {
	URLs         []string
	PerFeedLimit int
	MaxTargets   int
	Client       *httpclient.Client
	Logger       logx.Logger
}

// FeedGenerator rebuilds the target file from program feeds: the first
// in-scope domain of every program, capped per feed and overall.
type FeedGenerator struct {
	urls    []string
	perFeed int
	max     int
	client  *httpclient.Client
	logger  logx.Logger
}

func NewFeedGenerator(opts FeedOptions) *FeedGenerator {
	if opts.PerFeedLimit <= 0 {
		opts.PerFeedLimit = 200
	}
	if opts.MaxTargets <= 0 {
		opts.MaxTargets = 1000
	}
	if opts.Logger == nil {
		opts.Logger = logx.Discard()
	}
	return &FeedGenerator{
		urls:    opts.URLs,
		perFeed: opts.PerFeedLimit,
		max:     opts.MaxTargets,
		client:  opts.Client,
		logger:  opts.Logger.With("component", "feed"),
	}
}

// Generate fetches every feed and atomically replaces path. If no feed
// produced anything the file is left untouched and an error is returned.
func (g *FeedGenerator) Generate(ctx context.Context, path string) (int, error) {
	seen := make(map[string]bool)
	var errs []error

	for _, u := range g.urls {
		var doc programList
		if err := g.client.FetchJSON(ctx, u, &doc); err != nil {
			g.logger.Warn("feed fetch failed", "url", u, "error", err.Error())
			errs = append(errs, err)
			continue
		}
		added := 0
		for _, p := range doc.Programs {
			if added >= g.perFeed {
				break
			}
			if len(p.Domains) == 0 {
				continue
			}
			t, ok := validator.NormalizeTarget(p.Domains[0])
			if !ok || validator.RegistrableDomain(t) == "" {
				continue
			}
			if !seen[t] {
				seen[t] = true
				added++
			}
		}
		g.logger.Debug("feed parsed", "url", u, "programs", len(doc.Programs), "added", added)
	}

	if len(seen) == 0 {
		if len(errs) > 0 {
			return 0, errors.Join(errs...)
		}
		return 0, errors.Wrap(errors.ErrInvalidResponse, "feeds returned no usable domains")
	}

	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	if len(out) > g.max {
		out = out[:g.max]
	}

	if err := writeAtomic(path, []byte(strings.Join(out, "\n")+"\n")); err != nil {
		return 0, err
	}
	return len(out), nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".targets-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "replace target file")
}
