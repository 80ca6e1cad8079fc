// internal/adapters/triage/openai_test.go
package triage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sentinel/internal/core/domain"
	"sentinel/internal/core/ports"
	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/httpclient"
	"sentinel/internal/testutil"
)

var _ ports.Summarizer = (*OpenAISummarizer)(nil)

func TestRiskScore(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"Risk: 72/100", 72},
		{"overall 85 / 100, then 10/100", 85},
		{"Risk 250/100", 100},
		{"no score here", DefaultRiskScore},
		{"", DefaultRiskScore},
		{"0/100 nothing found", 0},
	}
	for _, tt := range tests {
		testutil.AssertEqual(t, RiskScore(tt.text), tt.want, tt.text)
	}
}

func TestSummarize_MissingKey(t *testing.T) {
	s := NewOpenAI(Options{})
	tr, err := s.Summarize(context.Background(), domain.NewRunRecord(testNow))
	testutil.AssertNil(t, tr, "no triage")
	testutil.AssertTrue(t, errors.Is(err, domain.ErrMissingInput), "ErrMissingInput")
}

func TestSummarize_ChatCompletion(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, r.Header.Get("Authorization"), "Bearer sk-test", "auth header")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"One validated XSS on api.\nRisk: 64/100"}}]}`))
	}))
	defer srv.Close()

	client := httpclient.NewWithHTTPClient(srv.Client(), httpclient.Config{MaxRetries: 0}, nil)
	s := NewOpenAI(Options{APIKey: "sk-test", Endpoint: srv.URL, Model: "test-model", Client: client})

	rec := domain.NewRunRecord(testNow)
	rec.Findings = []domain.Finding{{Source: "https://api.example.com", Category: "xss", Severity: domain.SeverityHigh, Validated: true}}
	tr, err := s.Summarize(context.Background(), rec)
	testutil.RequireNoError(t, err, "Summarize")

	testutil.AssertEqual(t, tr.Model, "test-model", "model")
	testutil.AssertEqual(t, tr.RiskScore, 64, "risk")
	testutil.AssertContains(t, tr.Summary, "validated XSS", "summary")

	testutil.AssertEqual(t, got.Model, "test-model", "request model")
	testutil.AssertEqual(t, len(got.Messages), 2, "system + user")
	testutil.AssertContains(t, got.Messages[1].Content, `"category":"xss"`, "digest in prompt")
}

func TestSummarize_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", 401, `{"error":{"message":"bad key"}}`, errors.ErrUnauthorized},
		{"no choices", 200, `{"choices":[]}`, errors.ErrInvalidResponse},
		{"api error body", 200, `{"error":{"message":"quota"}}`, errors.ErrInvalidResponse},
		{"garbage", 200, `not json`, errors.ErrInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := httpclient.NewWithHTTPClient(srv.Client(), httpclient.Config{MaxRetries: 0}, nil)
			_, err := NewOpenAI(Options{APIKey: "k", Endpoint: srv.URL, Client: client}).Summarize(context.Background(), domain.NewRunRecord(testNow))
			testutil.AssertTrue(t, errors.Is(err, tt.want), "error kind")
		})
	}
}

func TestBuildDigest_Bounded(t *testing.T) {
	rec := domain.NewRunRecord(testNow)
	for i := 0; i < 30; i++ {
		rec.Findings = append(rec.Findings, domain.Finding{Source: "u", Category: "xss", Severity: domain.SeverityLow})
	}
	rec.Findings = append(rec.Findings, domain.Finding{Source: "top", Category: "sqli", Severity: domain.SeverityCritical})

	d := buildDigest(rec)
	testutil.AssertEqual(t, len(d.Findings), maxDigestFindings, "capped")
	testutil.AssertEqual(t, d.Findings[0].Source, "top", "most severe first")
}

var testNow = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
