// internal/adapters/triage/openai.go
package triage

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sentinel/internal/core/domain"
	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/httpclient"
	"sentinel/internal/platform/logx"
)

const (
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultModel    = "gpt-4o-mini"
	// DefaultRiskScore is used when the reply carries no "NN/100".
	DefaultRiskScore = 50

	maxDigestFindings = 20
	maxSummaryLen     = 1500
)

var riskPattern = regexp.MustCompile(`(\d{1,3})\s*/\s*100`)

const systemPrompt = "You are a cybersecurity triage AI."

const userPrompt = `You are a security analyst. Summarize the scan below in at most five sentences and classify the vulnerabilities by severity (Critical/High/Medium/Low).
End with a line "Risk: NN/100" rating the overall risk.
Data: `

// Poster is the subset of httpclient.Client the summarizer needs.
type Poster interface {
	PostJSON(ctx context.Context, rawURL string, payload any, headers map[string]string) (*httpclient.Response, error)
}

type Options struct {
	APIKey   string
	Endpoint string
	Model    string
	Timeout  time.Duration
	Client   Poster
	Logger   logx.Logger
}

// OpenAISummarizer asks an OpenAI-compatible chat completions endpoint for
// a short assessment of a record.
type OpenAISummarizer struct {
	opts   Options
	logger logx.Logger
}

func NewOpenAI(opts Options) *OpenAISummarizer {
	if opts.Endpoint == "" {
		opts.Endpoint = defaultEndpoint
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logx.Discard()
	}
	return &OpenAISummarizer{opts: opts, logger: opts.Logger.With("component", "triage")}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// digest is the bounded view of a record sent to the model.
type digest struct {
	State    domain.State    `json:"state"`
	Counts   domain.Counts   `json:"counts"`
	Scope    []domain.Target `json:"scope"`
	Findings []digestFinding `json:"top_findings"`
}

type digestFinding struct {
	Source    string          `json:"source"`
	Category  string          `json:"category"`
	Severity  domain.Severity `json:"severity"`
	Validated bool            `json:"validated"`
}

// Summarize returns the triage block. Without an API key it returns
// domain.ErrMissingInput and sends nothing.
func (s *OpenAISummarizer) Summarize(ctx context.Context, rec *domain.RunRecord) (*domain.Triage, error) {
	if strings.TrimSpace(s.opts.APIKey) == "" {
		return nil, errors.Wrap(domain.ErrMissingInput, "OPENAI_API_KEY not set")
	}
	if s.opts.Client == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "triage: nil client")
	}

	data, err := json.Marshal(buildDigest(rec))
	if err != nil {
		return nil, errors.Wrap(err, "encode digest")
	}
	req := chatRequest{
		Model: s.opts.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt + string(data)},
		},
		Temperature: 0.2,
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	resp, err := s.opts.Client.PostJSON(ctx, s.opts.Endpoint, req, map[string]string{
		"Authorization": "Bearer " + s.opts.APIKey,
	})
	if err != nil {
		return nil, errors.Wrap(err, "chat completion")
	}
	if err := errors.FromStatus(resp.StatusCode, s.opts.Endpoint); err != nil {
		return nil, err
	}

	var out chatResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidResponse, "decode completion: %v", err)
	}
	if out.Error != nil {
		return nil, errors.Wrapf(errors.ErrInvalidResponse, "completion error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return nil, errors.Wrap(errors.ErrInvalidResponse, "empty completion")
	}

	text := strings.TrimSpace(out.Choices[0].Message.Content)
	t := &domain.Triage{
		Model:     s.opts.Model,
		Summary:   truncate(text, maxSummaryLen),
		RiskScore: RiskScore(text),
	}
	s.logger.Info("triage complete", "model", t.Model, "risk", t.RiskScore)
	return t, nil
}

// RiskScore extracts the first "NN/100" from text, clamped to 0..100.
func RiskScore(text string) int {
	m := riskPattern.FindStringSubmatch(text)
	if m == nil {
		return DefaultRiskScore
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return DefaultRiskScore
	}
	return min(max(n, 0), 100)
}

func buildDigest(rec *domain.RunRecord) digest {
	d := digest{State: rec.State, Counts: rec.Counts, Scope: rec.Scope}
	fs := append([]domain.Finding(nil), rec.Findings...)
	domain.SortFindings(fs)
	if len(fs) > maxDigestFindings {
		fs = fs[:maxDigestFindings]
	}
	d.Findings = make([]digestFinding, 0, len(fs))
	for _, f := range fs {
		d.Findings = append(d.Findings, digestFinding{Source: f.Source, Category: f.Category, Severity: f.Severity, Validated: f.Validated})
	}
	return d
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
