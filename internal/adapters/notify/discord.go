// internal/adapters/notify/discord.go
package notify

import (
	"context"
	"fmt"
	"strings"

	"sentinel/internal/core/domain"
)

const (
	discordUsername  = "🛡️ Digital Sentinel AI"
	discordColorHigh = 15158332
	discordColorOK   = 3066993
	// Discord rejects embed descriptions over 4096 chars.
	discordMaxDescription = 2000
)

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields"`
	Footer      struct {
		Text string `json:"text"`
	} `json:"footer"`
}

type discordPayload struct {
	Username string         `json:"username"`
	Embeds   []discordEmbed `json:"embeds"`
}

// Discord posts one embed per cycle to a webhook.
type Discord struct {
	opts Options
}

func NewDiscord(opts Options) *Discord {
	return &Discord{opts: opts.withDefaults("discord")}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Notify(ctx context.Context, rec *domain.RunRecord) domain.NotifyResult {
	return deliver(ctx, d.opts, d.Name(), d.payload(rec))
}

func (d *Discord) payload(rec *domain.RunRecord) discordPayload {
	high, medium, low := severityTotals(rec)

	var desc strings.Builder
	desc.WriteString(headline(rec))
	if rec.Triage != nil {
		fmt.Fprintf(&desc, "\n\n**AI assessment (risk %d/100):** %s", rec.Triage.RiskScore, rec.Triage.Summary)
	}
	if top := topFindings(rec, d.opts.MaxFindings); len(top) > 0 {
		desc.WriteString("\n\n**Top findings**")
		for _, f := range top {
			desc.WriteString("\n• " + findingLine(f))
		}
	}

	color := discordColorOK
	if high > 0 {
		color = discordColorHigh
	}

	e := discordEmbed{
		Title:       "📊 Digital Sentinel - Cycle Report",
		Description: truncate(desc.String(), discordMaxDescription),
		Color:       color,
		Fields: []discordField{
			{Name: "🕒 Started", Value: rec.StartedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
			{Name: "📈 Total Findings", Value: fmt.Sprint(len(rec.Findings)), Inline: true},
			{Name: "🔥 High Risk", Value: fmt.Sprint(high), Inline: true},
			{Name: "⚠️ Medium Risk", Value: fmt.Sprint(medium), Inline: true},
			{Name: "🟢 Low Risk", Value: fmt.Sprint(low), Inline: true},
		},
	}
	e.Footer.Text = "Sent by Digital Sentinel at " + d.opts.Now().UTC().Format("2006-01-02 15:04:05 UTC")

	return discordPayload{Username: discordUsername, Embeds: []discordEmbed{e}}
}
