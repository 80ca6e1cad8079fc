// internal/adapters/notify/slack.go
package notify

import (
	"context"
	"fmt"
	"strings"

	"sentinel/internal/core/domain"
)

// Slack allows ~40k chars per message; keep well below.
const slackMaxText = 3000

type slackPayload struct {
	Text string `json:"text"`
}

// Slack posts a plain-text summary to an incoming webhook.
type Slack struct {
	opts Options
}

func NewSlack(opts Options) *Slack {
	return &Slack{opts: opts.withDefaults("slack")}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Notify(ctx context.Context, rec *domain.RunRecord) domain.NotifyResult {
	return deliver(ctx, s.opts, s.Name(), s.payload(rec))
}

func (s *Slack) payload(rec *domain.RunRecord) slackPayload {
	high, medium, low := severityTotals(rec)

	var b strings.Builder
	b.WriteString(":shield: *Digital Sentinel* ")
	b.WriteString(headline(rec))
	fmt.Fprintf(&b, "\nHigh: %d | Medium: %d | Low: %d", high, medium, low)
	if rec.Triage != nil {
		fmt.Fprintf(&b, "\n*AI assessment (risk %d/100):* %s", rec.Triage.RiskScore, rec.Triage.Summary)
	}
	for _, f := range topFindings(rec, s.opts.MaxFindings) {
		b.WriteString("\n• " + findingLine(f))
	}
	return slackPayload{Text: truncate(b.String(), slackMaxText)}
}
