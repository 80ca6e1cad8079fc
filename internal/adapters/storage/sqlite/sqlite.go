// Package sqlite keeps the history of past cycles in a pure-Go SQLite
// database (modernc.org/sqlite, no CGO).
//
// Each run is one row in runs with its counts as columns and the full
// record as JSON; findings are also stored one per row so per-category
// totals can be computed across runs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // driver "sqlite"

	"sentinel/internal/core/domain"
	"sentinel/internal/core/ports"
	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	started_at    TEXT NOT NULL,
	ended_at      TEXT NOT NULL,
	state         TEXT NOT NULL,
	failed_phase  TEXT NOT NULL DEFAULT '',
	targets       INTEGER NOT NULL DEFAULT 0,
	candidates    INTEGER NOT NULL DEFAULT 0,
	alive_hosts   INTEGER NOT NULL DEFAULT 0,
	crawled_hosts INTEGER NOT NULL DEFAULT 0,
	resources     INTEGER NOT NULL DEFAULT 0,
	findings      INTEGER NOT NULL DEFAULT 0,
	validated     INTEGER NOT NULL DEFAULT 0,
	record        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS findings (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id    TEXT NOT NULL,
	source    TEXT NOT NULL,
	host      TEXT NOT NULL DEFAULT '',
	category  TEXT NOT NULL,
	severity  TEXT NOT NULL,
	validated INTEGER NOT NULL DEFAULT 0,
	rule      TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
CREATE INDEX IF NOT EXISTS idx_findings_category ON findings(category);
`

// Repository implements ports.RunRepository.
type Repository struct {
	db     *sql.DB
	path   string
	logger logx.Logger
}

var _ ports.RunRepository = (*Repository)(nil)

// Open creates (or opens) the database at path and migrates the schema.
// ":memory:" gives a private in-memory database, used by tests.
func Open(path string, logger logx.Logger) (*Repository, error) {
	if logger == nil {
		logger = logx.Discard()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create history directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open history database %s", path)
	}
	// one writer; also keeps a :memory: database alive across calls
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "%s", p)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate history schema")
	}

	return &Repository{db: db, path: path, logger: logger.With("component", "history")}, nil
}

func (r *Repository) Name() string { return "sqlite" }

func (r *Repository) Close() error { return r.db.Close() }

// Persist upserts the run and replaces its findings in one transaction.
func (r *Repository) Persist(ctx context.Context, rec *domain.RunRecord) (string, error) {
	blob, err := json.Marshal(rec)
	if err != nil {
		return "", errors.Wrap(err, "encode record")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "begin")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	c := rec.Counts
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, ended_at, state, failed_phase,
			targets, candidates, alive_hosts, crawled_hosts, resources, findings, validated, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			ended_at = excluded.ended_at, state = excluded.state, failed_phase = excluded.failed_phase,
			targets = excluded.targets, candidates = excluded.candidates, alive_hosts = excluded.alive_hosts,
			crawled_hosts = excluded.crawled_hosts, resources = excluded.resources,
			findings = excluded.findings, validated = excluded.validated, record = excluded.record`,
		rec.RunID, formatTime(rec.StartedAt), formatTime(rec.EndedAt), string(rec.State), rec.FailedPhase,
		c.Targets, c.Candidates, c.AliveHosts, c.CrawledHosts, c.Resources, c.FindingsTotal, c.Validated, string(blob),
	); err != nil {
		return "", errors.Wrap(err, "insert run")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM findings WHERE run_id = ?`, rec.RunID); err != nil {
		return "", errors.Wrap(err, "clear findings")
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO findings (run_id, source, host, category, severity, validated, rule)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", errors.Wrap(err, "prepare findings")
	}
	defer stmt.Close()
	for _, f := range rec.Findings {
		if _, err := stmt.ExecContext(ctx, rec.RunID, f.Source, string(f.Host), f.Category,
			string(f.Severity), boolToInt(f.Validated), f.Rule); err != nil {
			return "", errors.Wrap(err, "insert finding")
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "commit")
	}
	r.logger.Debug("run stored", "run_id", rec.RunID, "findings", len(rec.Findings))
	return fmt.Sprintf("%s#%s", r.path, rec.RunID), nil
}

// ListRuns returns the most recent runs first. limit <= 0 means 20.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]ports.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, started_at, ended_at, state, failed_phase,
			targets, candidates, alive_hosts, crawled_hosts, resources, findings, validated
		FROM runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	var out []ports.RunSummary
	for rows.Next() {
		var (
			s              ports.RunSummary
			started, ended string
			state          string
		)
		c := &s.Counts
		if err := rows.Scan(&s.RunID, &started, &ended, &state, &s.FailedPhase,
			&c.Targets, &c.Candidates, &c.AliveHosts, &c.CrawledHosts, &c.Resources, &c.FindingsTotal, &c.Validated); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		s.State = domain.State(state)
		s.StartedAt = parseTime(started)
		s.EndedAt = parseTime(ended)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate runs")
	}
	return out, nil
}

// GetRun loads the stored record. Unknown ids wrap errors.ErrNotFound.
func (r *Repository) GetRun(ctx context.Context, runID string) (*domain.RunRecord, error) {
	var blob string
	err := r.db.QueryRowContext(ctx, `SELECT record FROM runs WHERE run_id = ?`, runID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "query run")
	}
	var rec domain.RunRecord
	if err := json.Unmarshal([]byte(blob), &rec); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidResponse, "decode run %s: %v", runID, err)
	}
	return &rec, nil
}

// CategoryCounts totals findings per category across every stored run.
func (r *Repository) CategoryCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM findings GROUP BY category`)
	if err != nil {
		return nil, errors.Wrap(err, "query categories")
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			cat string
			n   int
		)
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, errors.Wrap(err, "scan category")
		}
		out[cat] = n
	}
	return out, rows.Err()
}

// timeLayout is fixed-width so ORDER BY on the text column is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
