// Package notify sends cycle summaries to chat webhooks. Notifiers never
// return errors: every outcome is a domain.NotifyResult.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sentinel/internal/core/domain"
	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/httpclient"
	"sentinel/internal/platform/logx"
)

const (
	defaultMaxFindings = 10
	maxLineLen         = 180
)

// Poster is the subset of httpclient.Client used by the notifiers.
type Poster interface {
	PostJSON(ctx context.Context, rawURL string, payload any, headers map[string]string) (*httpclient.Response, error)
}

// Options is shared by every webhook notifier.
type Options struct {
	WebhookURL  string
	Client      Poster
	Timeout     time.Duration
	MaxFindings int
	Logger      logx.Logger
	Now         func() time.Time
}

func (o Options) withDefaults(component string) Options {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxFindings <= 0 {
		o.MaxFindings = defaultMaxFindings
	}
	if o.Logger == nil {
		o.Logger = logx.Discard()
	}
	o.Logger = o.Logger.With("component", component)
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// deliver posts payload and turns every outcome into a result.
func deliver(ctx context.Context, o Options, channel string, payload any) (res domain.NotifyResult) {
	res = domain.NotifyResult{Channel: channel}
	defer func() {
		if r := recover(); r != nil {
			res.Status, res.Detail = domain.NotifyFailed, fmt.Sprintf("panic: %v", r)
			o.Logger.Warn("notifier panic recovered", "panic", res.Detail)
		}
	}()

	if strings.TrimSpace(o.WebhookURL) == "" {
		res.Status, res.Detail = domain.NotifySkipped, "webhook not configured"
		return res
	}
	if o.Client == nil {
		res.Status, res.Detail = domain.NotifyFailed, "no http client"
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()
	resp, err := o.Client.PostJSON(ctx, o.WebhookURL, payload, nil)
	if err != nil {
		res.Status, res.Detail = domain.NotifyFailed, err.Error()
		o.Logger.Warn("notification failed", "error", err.Error())
		return res
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := errors.FromStatus(resp.StatusCode, "webhook")
		res.Status, res.Detail = domain.NotifyFailed, fmt.Sprintf("%v: %s", err, truncate(strings.TrimSpace(string(resp.Body)), maxLineLen))
		o.Logger.Warn("notification rejected", "status", resp.StatusCode)
		return res
	}
	res.Status = domain.NotifySent
	o.Logger.Info("notification sent", "status", resp.StatusCode)
	return res
}

// severityTotals folds critical into high, as the channels only show three buckets.
func severityTotals(rec *domain.RunRecord) (high, medium, low int) {
	c := rec.SeverityCounts()
	return c[domain.SeverityCritical] + c[domain.SeverityHigh], c[domain.SeverityMedium], c[domain.SeverityLow]
}

// topFindings returns up to n findings, most severe first.
func topFindings(rec *domain.RunRecord, n int) []domain.Finding {
	fs := append([]domain.Finding(nil), rec.Findings...)
	domain.SortFindings(fs)
	if len(fs) > n {
		fs = fs[:n]
	}
	return fs
}

func findingLine(f domain.Finding) string {
	mark := "unconfirmed"
	if f.Validated {
		mark = "validated"
	}
	return truncate(fmt.Sprintf("[%s] %s %s (%s)", strings.ToUpper(string(f.Severity)), f.Category, f.Source, mark), maxLineLen)
}

func headline(rec *domain.RunRecord) string {
	s := fmt.Sprintf("Run %s finished %s: %d targets, %d live hosts, %d resources, %d findings (%d validated).",
		rec.ShortID(), rec.State, rec.Targets, rec.AliveHosts, rec.Resources, rec.FindingsTotal, rec.Validated)
	if rec.FailedPhase != "" {
		s += fmt.Sprintf(" Failed in %s: %s", rec.FailedPhase, rec.Error)
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
