// internal/adapters/notify/notify_test.go
package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sentinel/internal/core/domain"
	"sentinel/internal/core/ports"
	"sentinel/internal/platform/httpclient"
	"sentinel/internal/testutil"
)

var (
	_ ports.Notifier = (*Discord)(nil)
	_ ports.Notifier = (*Slack)(nil)
)

type fakePoster struct {
	status  int
	err     error
	panics  bool
	calls   int
	payload any
}

func (f *fakePoster) PostJSON(_ context.Context, _ string, payload any, _ map[string]string) (*httpclient.Response, error) {
	f.calls++
	f.payload = payload
	if f.panics {
		panic("poster exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &httpclient.Response{StatusCode: f.status, Body: []byte("bad request body")}, nil
}

func sampleRecord(findings ...domain.Finding) *domain.RunRecord {
	rec := domain.NewRunRecord(time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC))
	rec.RunID = "abcdef12-aaaa-4bbb-8ccc-000000000000"
	rec.State = domain.StateDone
	rec.Findings = findings
	rec.Counts = domain.Counts{Targets: 1, AliveHosts: 2, Resources: 5, FindingsTotal: len(findings), Validated: len(domain.Validated(findings))}
	return rec
}

func finding(sev domain.Severity, cat string) domain.Finding {
	return domain.Finding{Source: "https://api.example.com/" + cat, Category: cat, Severity: sev, Validated: sev == domain.SeverityHigh}
}

func TestNotifiers_SkippedWithoutWebhook(t *testing.T) {
	poster := &fakePoster{status: 204}
	for _, n := range []ports.Notifier{
		NewDiscord(Options{Client: poster}),
		NewSlack(Options{WebhookURL: "   ", Client: poster}),
	} {
		res := n.Notify(context.Background(), sampleRecord())
		testutil.AssertEqual(t, res.Status, domain.NotifySkipped, n.Name()+" status")
		testutil.AssertEqual(t, res.Channel, n.Name(), "channel")
	}
	testutil.AssertEqual(t, poster.calls, 0, "no request without webhook")
}

func TestDeliver_Outcomes(t *testing.T) {
	tests := []struct {
		name   string
		poster *fakePoster
		want   domain.NotifyStatus
		detail string
	}{
		{"204 sent", &fakePoster{status: 204}, domain.NotifySent, ""},
		{"200 sent", &fakePoster{status: 200}, domain.NotifySent, ""},
		{"400 failed", &fakePoster{status: 400}, domain.NotifyFailed, "bad request body"},
		{"transport error", &fakePoster{err: io.ErrUnexpectedEOF}, domain.NotifyFailed, "unexpected EOF"},
		{"panic contained", &fakePoster{panics: true}, domain.NotifyFailed, "panic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDiscord(Options{WebhookURL: "https://discord.test/hook", Client: tt.poster})
			res := d.Notify(context.Background(), sampleRecord())
			testutil.AssertEqual(t, res.Status, tt.want, "status")
			if tt.detail != "" {
				testutil.AssertContains(t, res.Detail, tt.detail, "detail")
			}
		})
	}
}

func TestDiscord_Payload(t *testing.T) {
	now := func() time.Time { return time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC) }
	d := NewDiscord(Options{WebhookURL: "x", MaxFindings: 2, Now: now})

	rec := sampleRecord(
		finding(domain.SeverityLow, "info"),
		finding(domain.SeverityCritical, "sqli"),
		finding(domain.SeverityHigh, "xss"),
		finding(domain.SeverityMedium, "csrf"),
	)
	rec.Triage = &domain.Triage{Model: "m", Summary: "Two injection issues.", RiskScore: 80}
	p := d.payload(rec)

	testutil.AssertEqual(t, p.Username, "🛡️ Digital Sentinel AI", "username")
	testutil.AssertEqual(t, len(p.Embeds), 1, "one embed")
	e := p.Embeds[0]
	testutil.AssertEqual(t, e.Color, discordColorHigh, "high findings turn the embed red")

	fields := map[string]string{}
	for _, f := range e.Fields {
		fields[f.Name] = f.Value
	}
	testutil.AssertEqual(t, fields["📈 Total Findings"], "4", "total")
	testutil.AssertEqual(t, fields["🔥 High Risk"], "2", "critical folds into high")
	testutil.AssertEqual(t, fields["⚠️ Medium Risk"], "1", "medium")
	testutil.AssertEqual(t, fields["🟢 Low Risk"], "1", "low")

	testutil.AssertContains(t, e.Description, "risk 80/100", "triage")
	testutil.AssertContains(t, e.Description, "[CRITICAL] sqli", "top finding")
	testutil.AssertFalse(t, strings.Contains(e.Description, "csrf"), "capped at MaxFindings")
	testutil.AssertContains(t, e.Footer.Text, "2025-07-01 09:00:00 UTC", "footer")
}

func TestDiscord_PayloadBounded(t *testing.T) {
	var fs []domain.Finding
	for i := 0; i < 50; i++ {
		f := finding(domain.SeverityMedium, strings.Repeat("c", 300))
		fs = append(fs, f)
	}
	p := NewDiscord(Options{WebhookURL: "x", MaxFindings: 50}).payload(sampleRecord(fs...))
	testutil.AssertTrue(t, len([]rune(p.Embeds[0].Description)) <= discordMaxDescription, "description bounded")
	testutil.AssertEqual(t, p.Embeds[0].Color, discordColorOK, "no highs keeps green")
}

func TestSlack_Payload(t *testing.T) {
	rec := sampleRecord(finding(domain.SeverityHigh, "xss"))
	rec.State = domain.StateFailed
	rec.FailedPhase = domain.PhaseCrawl
	rec.Error = "context deadline exceeded"

	p := NewSlack(Options{WebhookURL: "x"}).payload(rec)
	testutil.AssertContains(t, p.Text, "Run abcdef12 finished FAILED", "headline")
	testutil.AssertContains(t, p.Text, "Failed in crawl", "failed phase")
	testutil.AssertContains(t, p.Text, "High: 1 | Medium: 0 | Low: 0", "totals")
	testutil.AssertTrue(t, len([]rune(p.Text)) <= slackMaxText, "bounded")
}

func TestSlack_EndToEnd(t *testing.T) {
	var got slackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, r.Header.Get("Content-Type"), "application/json", "content type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := httpclient.NewWithHTTPClient(srv.Client(), httpclient.Config{MaxRetries: 0}, nil)
	res := NewSlack(Options{WebhookURL: srv.URL, Client: client}).Notify(context.Background(), sampleRecord())

	testutil.AssertEqual(t, res.Status, domain.NotifySent, "status")
	testutil.AssertContains(t, got.Text, "Digital Sentinel", "payload delivered")
}
