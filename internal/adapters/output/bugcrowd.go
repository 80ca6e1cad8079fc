// internal/adapters/output/bugcrowd.go
package output

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"sentinel/internal/core/domain"
	"sentinel/internal/platform/logx"
)

// Submission is one Bugcrowd-style report draft.
type Submission struct {
	SummaryTitle      string   `json:"summary_title"`
	Target            string   `json:"target"`
	VRTCategory       string   `json:"vrt_category"`
	VulnerabilityType string   `json:"vulnerability_type"`
	URL               string   `json:"url"`
	Description       string   `json:"description"`
	Attachments       []string `json:"attachments"`
}

// vrtCategories maps rule categories to Bugcrowd VRT names.
var vrtCategories = map[string]string{
	"xss":            "Cross-Site Scripting (XSS)",
	"sqli":           "Server-Side Injection > SQL Injection",
	"csrf":           "Cross-Site Request Forgery (CSRF)",
	"exposed-secret": "Sensitive Data Exposure > Disclosure of Secrets",
}

// BugcrowdExporter writes validated findings to <dir>/exports/.
type BugcrowdExporter struct {
	dir    string
	logger logx.Logger
}

func NewBugcrowdExporter(dir string, logger logx.Logger) *BugcrowdExporter {
	if dir == "" {
		dir = "."
	}
	if logger == nil {
		logger = logx.Discard()
	}
	return &BugcrowdExporter{dir: dir, logger: logger.With("component", "bugcrowd-export")}
}

func (e *BugcrowdExporter) Name() string { return "bugcrowd" }

// Persist writes one submission per validated finding. Records without
// validated findings produce no file and an empty location.
func (e *BugcrowdExporter) Persist(ctx context.Context, rec *domain.RunRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	subs := Submissions(rec)
	if len(subs) == 0 {
		e.logger.Debug("nothing to export", "run_id", rec.RunID)
		return "", nil
	}
	name := fmt.Sprintf("bugcrowd_%s_%s.json", rec.StartedAt.UTC().Format(timestampLayout), rec.ShortID())
	path := filepath.Join(e.dir, "exports", name)
	if err := writeJSONFile(path, subs); err != nil {
		return "", err
	}
	e.logger.Info("bugcrowd export written", "path", path, "submissions", len(subs))
	return path, nil
}

// Submissions builds the drafts for rec's validated findings.
func Submissions(rec *domain.RunRecord) []Submission {
	validated := domain.Validated(rec.Findings)
	out := make([]Submission, 0, len(validated))
	attachment := RecordFileName(rec)
	for _, f := range validated {
		cat := strings.ToUpper(f.Category)
		vrt, ok := vrtCategories[f.Category]
		if !ok {
			vrt = f.Category
		}
		out = append(out, Submission{
			SummaryTitle:      fmt.Sprintf("%s vulnerability on %s", cat, f.Source),
			Target:            string(f.Host),
			VRTCategory:       vrt,
			VulnerabilityType: f.Category,
			URL:               f.Source,
			Description: fmt.Sprintf("%s vulnerability detected and validated (rule %s, severity %s).\n"+
				"Evidence: %s\nPayload: %s\n\nValidation timestamp: %s",
				cat, f.Rule, f.Severity, f.Evidence, f.Payload, f.Timestamp.UTC().Format("2006-01-02T15:04:05Z")),
			Attachments: []string{attachment},
		})
	}
	return out
}
