// internal/adapters/targets/file_source.go
package targets

import (
	"bufio"
	"context"
	"io"
	"io/fs"
	"os"
	"strings"

	"sentinel/internal/core/domain"
	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/logx"
	"sentinel/internal/platform/validator"
)

// Options configures FileSource.
type Options struct {
	Path string

	// Feed, when set, rewrites Path before every load. Feed failures keep
	// the existing file.
	Feed *FeedGenerator

	Logger logx.Logger
}

// FileSource reads the plain-text target list, one domain per line.
type FileSource struct {
	path   string
	feed   *FeedGenerator
	logger logx.Logger
}

func NewFileSource(opts Options) *FileSource {
	if opts.Logger == nil {
		opts.Logger = logx.Discard()
	}
	return &FileSource{
		path:   opts.Path,
		feed:   opts.Feed,
		logger: opts.Logger.With("component", "targets"),
	}
}

func (s *FileSource) Name() string { return "file" }

// LoadTargets returns the normalised, de-duplicated target set. A missing
// file is not an error: it is logged and an empty set comes back.
func (s *FileSource) LoadTargets(ctx context.Context) (domain.TargetSet, error) {
	if s.feed != nil {
		if n, err := s.feed.Generate(ctx, s.path); err != nil {
			s.logger.Warn("feed regeneration failed, using existing target file", "error", err.Error())
		} else {
			s.logger.Info("target file regenerated from feeds", "targets", n)
		}
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("target file not found", "path", s.path)
			return domain.NewSet[domain.Target](), nil
		}
		return nil, errors.Wrapf(err, "open target file %s", s.path)
	}
	defer f.Close()

	set, skipped, err := ParseTargets(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read target file %s", s.path)
	}
	if skipped > 0 {
		s.logger.Warn("invalid target lines skipped", "path", s.path, "skipped", skipped)
	}
	s.logger.Debug("targets loaded", "path", s.path, "count", set.Len())
	return set, nil
}

// ParseTargets reads one target per line. Blank lines and '#' comments are
// ignored; lines that do not normalise to a domain are counted in skipped.
func ParseTargets(r io.Reader) (set domain.TargetSet, skipped int, err error) {
	set = domain.NewSet[domain.Target]()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}
		t, ok := validator.NormalizeTarget(line)
		if !ok {
			skipped++
			continue
		}
		set.Add(domain.Target(t))
	}
	return set, skipped, sc.Err()
}
