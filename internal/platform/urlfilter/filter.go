// internal/platform/urlfilter/filter.go
package urlfilter

import (
	"sort"

	"sentinel/internal/platform/logx"
)

// Options configures a Filter.
type Options struct {
	// MaxPerTemplate caps URLs sharing one template; <= 0 keeps them all.
	MaxPerTemplate int
	Scorer         *Scorer
	Logger         logx.Logger
}

// Filter orders URLs by score and collapses templates. Safe for concurrent use.
type Filter struct {
	max    int
	scorer *Scorer
	logger logx.Logger
}

func New(opts Options) *Filter {
	if opts.Scorer == nil {
		opts.Scorer = NewScorer(DefaultWeights())
	}
	if opts.Logger == nil {
		opts.Logger = logx.Discard()
	}
	return &Filter{max: opts.MaxPerTemplate, scorer: opts.Scorer, logger: opts.Logger.With("component", "urlfilter")}
}

type scored struct {
	url   string
	score int
}

// Reduce returns the input without exact duplicates, highest score first
// (ties by URL), keeping at most MaxPerTemplate URLs per template.
// Unparsable URLs are dropped.
func (f *Filter) Reduce(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	items := make([]scored, 0, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		items = append(items, scored{url: u, score: f.scorer.Score(u)})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].url < items[j].url
	})

	perTemplate := make(map[string]int)
	out := make([]string, 0, len(items))
	for _, it := range items {
		t, err := Template(it.url)
		if err != nil {
			f.logger.Debug("unparsable url dropped", "url", it.url)
			continue
		}
		if f.max > 0 && perTemplate[t] >= f.max {
			continue
		}
		perTemplate[t]++
		out = append(out, it.url)
	}

	if dropped := len(items) - len(out); dropped > 0 {
		f.logger.Debug("urls collapsed by template", "input", len(items), "output", len(out), "templates", len(perTemplate))
	}
	return out
}
