// internal/adapters/scanner/rules.go
package scanner

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"sentinel/internal/core/domain"
	"sentinel/internal/platform/errors"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Rule is the YAML shape of one scan rule.
type Rule struct {
	Name     string   `yaml:"name"`
	Category string   `yaml:"category"`
	Severity string   `yaml:"severity"`
	Kinds    []string `yaml:"kinds"`
	// Match is a regexp on the resource URL; empty matches every URL.
	Match   string `yaml:"match"`
	Param   string `yaml:"param"`
	Payload string `yaml:"payload"`
	// Evidence is a regexp on the response body.
	Evidence string `yaml:"evidence"`
	// ConfirmedOnly suppresses unvalidated findings for this rule.
	ConfirmedOnly bool `yaml:"confirmed_only"`
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// compiledRule is a validated Rule ready for matching.
type compiledRule struct {
	Rule
	severity domain.Severity
	kinds    map[domain.ResourceKind]bool
	match    *regexp.Regexp
	evidence *regexp.Regexp
}

func (r *compiledRule) applies(res domain.Resource) bool {
	if len(r.kinds) > 0 && !r.kinds[res.Kind] {
		return false
	}
	return r.match == nil || r.match.MatchString(res.URL)
}

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	rules, err := ParseRules(bytes.NewReader(defaultRulesYAML))
	if err != nil {
		panic(fmt.Sprintf("scanner: built-in rules: %v", err))
	}
	return rules
}

// LoadRules reads a YAML rules file. An empty path yields DefaultRules.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrInvalidRule, "open %s: %v", path, err)
	}
	defer f.Close()
	return ParseRules(f)
}

// ParseRules decodes and validates a rules document.
func ParseRules(r io.Reader) ([]Rule, error) {
	var doc ruleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrapf(domain.ErrInvalidRule, "decode: %v", err)
	}
	if len(doc.Rules) == 0 {
		return nil, errors.Wrap(domain.ErrInvalidRule, "no rules defined")
	}
	if _, err := compileRules(doc.Rules); err != nil {
		return nil, err
	}
	return doc.Rules, nil
}

func compileRules(rules []Rule) ([]*compiledRule, error) {
	out := make([]*compiledRule, 0, len(rules))
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		cr, err := compileRule(r)
		if err != nil {
			return nil, errors.Wrapf(err, "rule #%d (%s)", i+1, r.Name)
		}
		if seen[cr.Name] {
			return nil, errors.Wrapf(domain.ErrInvalidRule, "duplicate rule name %q", cr.Name)
		}
		seen[cr.Name] = true
		out = append(out, cr)
	}
	return out, nil
}

func compileRule(r Rule) (*compiledRule, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.TrimSpace(r.Category)
	if r.Name == "" || r.Category == "" {
		return nil, errors.Wrap(domain.ErrInvalidRule, "name and category are required")
	}
	sev, err := domain.ParseSeverity(r.Severity)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrInvalidRule, "severity %q", r.Severity)
	}
	if r.Payload != "" && r.Param == "" {
		r.Param = "test"
	}
	if r.Payload == "" && r.Evidence == "" {
		// without payload or evidence nothing can be confirmed
		return nil, errors.Wrap(domain.ErrInvalidRule, "rule needs a payload or an evidence pattern")
	}

	cr := &compiledRule{Rule: r, severity: sev, kinds: map[domain.ResourceKind]bool{}}
	for _, k := range r.Kinds {
		kind := domain.ResourceKind(strings.ToLower(strings.TrimSpace(k)))
		if !kind.IsValid() {
			return nil, errors.Wrapf(domain.ErrInvalidRule, "unknown resource kind %q", k)
		}
		cr.kinds[kind] = true
	}
	if r.Match != "" {
		if cr.match, err = regexp.Compile(r.Match); err != nil {
			return nil, errors.Wrapf(domain.ErrInvalidRule, "match: %v", err)
		}
	}
	if r.Evidence != "" {
		if cr.evidence, err = regexp.Compile(r.Evidence); err != nil {
			return nil, errors.Wrapf(domain.ErrInvalidRule, "evidence: %v", err)
		}
	}
	return cr, nil
}
