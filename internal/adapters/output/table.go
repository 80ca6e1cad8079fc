// internal/adapters/output/table.go
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"sentinel/internal/core/domain"
	"sentinel/internal/core/ports"
)

// RenderSummary prints a cycle summary: counts, phases and the most severe
// findings (up to maxFindings).
func RenderSummary(w io.Writer, rec *domain.RunRecord, location string, maxFindings int) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\nRun %s  state=%s", rec.ShortID(), rec.State)
	if rec.FailedPhase != "" {
		fmt.Fprintf(&b, "  failed_phase=%s", rec.FailedPhase)
	}
	fmt.Fprintf(&b, "  duration=%s\n", rec.EndedAt.Sub(rec.StartedAt).Round(time.Millisecond))
	if location != "" {
		fmt.Fprintf(&b, "Record: %s\n", location)
	}
	if rec.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", rec.Error)
	}

	counts := pterm.TableData{
		{"Targets", "Candidates", "Alive", "Crawled", "Resources", "Findings", "Validated"},
		{
			fmt.Sprint(rec.Targets), fmt.Sprint(rec.Candidates), fmt.Sprint(rec.AliveHosts),
			fmt.Sprint(rec.CrawledHosts), fmt.Sprint(rec.Resources), fmt.Sprint(rec.FindingsTotal),
			fmt.Sprint(rec.Validated),
		},
	}
	if err := renderTable(&b, counts); err != nil {
		return err
	}

	if len(rec.Phases) > 0 {
		phases := pterm.TableData{{"Phase", "Count", "Duration", "Error"}}
		for _, p := range rec.Phases {
			phases = append(phases, []string{p.Name, fmt.Sprint(p.Count), fmt.Sprintf("%dms", p.DurationMS), p.Error})
		}
		if err := renderTable(&b, phases); err != nil {
			return err
		}
	}

	if len(rec.Findings) > 0 {
		fs := append([]domain.Finding(nil), rec.Findings...)
		domain.SortFindings(fs)
		if maxFindings > 0 && len(fs) > maxFindings {
			fs = fs[:maxFindings]
		}
		rows := pterm.TableData{{"Severity", "Category", "Validated", "Source"}}
		for _, f := range fs {
			rows = append(rows, []string{string(f.Severity), f.Category, fmt.Sprint(f.Validated), f.Source})
		}
		if err := renderTable(&b, rows); err != nil {
			return err
		}
	} else {
		b.WriteString("No findings.\n")
	}

	if rec.Triage != nil {
		fmt.Fprintf(&b, "\nTriage (%s) risk %d/100\n%s\n", rec.Triage.Model, rec.Triage.RiskScore, rec.Triage.Summary)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderHistory prints past runs (newest first) and the cross-run
// finding counts per category.
func RenderHistory(w io.Writer, runs []ports.RunSummary, categories map[string]int) error {
	var b strings.Builder

	if len(runs) == 0 {
		b.WriteString("No runs recorded yet.\n")
	} else {
		rows := pterm.TableData{{"Run", "Started", "Duration", "State", "Targets", "Alive", "Findings", "Validated"}}
		for _, r := range runs {
			state := string(r.State)
			if r.FailedPhase != "" {
				state += " (" + r.FailedPhase + ")"
			}
			rows = append(rows, []string{
				shortID(r.RunID),
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.EndedAt.Sub(r.StartedAt).Round(time.Second).String(),
				state,
				fmt.Sprint(r.Counts.Targets), fmt.Sprint(r.Counts.AliveHosts),
				fmt.Sprint(r.Counts.FindingsTotal), fmt.Sprint(r.Counts.Validated),
			})
		}
		if err := renderTable(&b, rows); err != nil {
			return err
		}
	}

	if len(categories) > 0 {
		names := make([]string, 0, len(categories))
		for c := range categories {
			names = append(names, c)
		}
		sort.Slice(names, func(i, j int) bool {
			if categories[names[i]] != categories[names[j]] {
				return categories[names[i]] > categories[names[j]]
			}
			return names[i] < names[j]
		})
		rows := pterm.TableData{{"Category", "Findings"}}
		for _, c := range names {
			rows = append(rows, []string{c, fmt.Sprint(categories[c])})
		}
		if err := renderTable(&b, rows); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func renderTable(b *strings.Builder, data pterm.TableData) error {
	s, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return err
	}
	b.WriteString(s)
	b.WriteString("\n")
	return nil
}
