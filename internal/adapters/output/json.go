// internal/adapters/output/json.go
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"sentinel/internal/core/domain"
	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/logx"
)

const timestampLayout = "20060102_150405"

// RecordFileName is the file name of a run: run_<YYYYmmdd_HHMMSS>_<id8>.json.
func RecordFileName(rec *domain.RunRecord) string {
	return fmt.Sprintf("run_%s_%s.json", rec.StartedAt.UTC().Format(timestampLayout), rec.ShortID())
}

// JSONWriter stores every record under <dir>/runs/.
type JSONWriter struct {
	dir    string
	logger logx.Logger
}

func NewJSONWriter(dir string, logger logx.Logger) *JSONWriter {
	if dir == "" {
		dir = "."
	}
	if logger == nil {
		logger = logx.Discard()
	}
	return &JSONWriter{dir: dir, logger: logger.With("component", "json-writer")}
}

func (w *JSONWriter) Name() string { return "json" }

// Persist writes the record and returns its path.
func (w *JSONWriter) Persist(ctx context.Context, rec *domain.RunRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(w.dir, "runs", RecordFileName(rec))
	if err := writeJSONFile(path, rec); err != nil {
		return "", err
	}
	w.logger.Debug("record written", "path", path, "run_id", rec.RunID)
	return path, nil
}

// EncodeRecord writes the record to w, as `sentinel run --json` does.
func EncodeRecord(w io.Writer, rec *domain.RunRecord, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(rec)
}

// writeJSONFile encodes v into a temp file next to path and renames it, so
// readers never see a partial document.
func writeJSONFile(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create output directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*.json")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return errors.Wrap(err, "encode JSON")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "rename to %s", path)
	}
	return nil
}
