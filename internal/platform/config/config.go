// internal/platform/config/config.go
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/httpclient"
)

// Environment variables read directly (secrets never come from files or flags).
const (
	EnvConfigFile     = "SENTINEL_CONFIG"
	EnvDiscordWebhook = "DISCORD_WEBHOOK_URL"
	EnvSlackWebhook   = "SLACK_WEBHOOK_URL"
	EnvOpenAIKey      = "OPENAI_API_KEY"
)

type Config struct {
	Core    CoreConfig    `yaml:"core"`
	Targets TargetsConfig `yaml:"targets"`
	Enum    EnumConfig    `yaml:"enum"`
	Probe   ProbeConfig   `yaml:"probe"`
	Crawl   CrawlConfig   `yaml:"crawl"`
	Scan    ScanConfig    `yaml:"scan"`
	Output  OutputConfig  `yaml:"output"`
	Notify  NotifyConfig  `yaml:"notify"`
	Triage  TriageConfig  `yaml:"triage"`
	Loop    LoopConfig    `yaml:"loop"`
	Network NetworkConfig `yaml:"network"`
}

type CoreConfig struct {
	Workers  int           `yaml:"workers"`
	Timeout  time.Duration `yaml:"timeout"` // per cycle, 0 = none
	LogLevel string        `yaml:"log_level"`
	Quiet    bool          `yaml:"quiet"`
}

type TargetsConfig struct {
	File string     `yaml:"file"`
	Feed FeedConfig `yaml:"feed"`
}

// FeedConfig controls regeneration of the targets file from public
// bug-bounty program lists.
type FeedConfig struct {
	Enabled      bool          `yaml:"enabled"`
	URLs         []string      `yaml:"urls"`
	PerFeedLimit int           `yaml:"per_feed_limit"`
	MaxTargets   int           `yaml:"max_targets"`
	Timeout      time.Duration `yaml:"timeout"`
}

type EnumConfig struct {
	Policies     []string      `yaml:"policies"`
	Prefixes     []string      `yaml:"prefixes"`
	MaxPerTarget int           `yaml:"max_per_target"`
	CrtshURL     string        `yaml:"crtsh_url"`
	Resolver     string        `yaml:"resolver"`
	Timeout      time.Duration `yaml:"timeout"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

type ProbeConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	StatusThreshold int           `yaml:"status_threshold"`
}

type CrawlConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxResources int           `yaml:"max_resources"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`

	// Links sharing a URL template kept per page; 0 keeps them all.
	MaxPerTemplate int `yaml:"max_per_template"`
}

type ScanConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	RulesFile string        `yaml:"rules_file"`
}

type OutputConfig struct {
	Dir       string `yaml:"dir"`
	HistoryDB string `yaml:"history_db"` // "" disables history
	Bugcrowd  bool   `yaml:"bugcrowd"`
}

type NotifyConfig struct {
	DiscordWebhook string        `yaml:"-"`
	SlackWebhook   string        `yaml:"-"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxFindings    int           `yaml:"max_findings"`
}

type TriageConfig struct {
	APIKey   string        `yaml:"-"`
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

type LoopConfig struct {
	Interval  time.Duration `yaml:"interval"`
	Jitter    time.Duration `yaml:"jitter"`
	MaxCycles int           `yaml:"max_cycles"` // 0 = forever
}

type NetworkConfig struct {
	ProxyURL           string  `yaml:"proxy_url"`
	InsecureSkipVerify bool    `yaml:"insecure_skip_verify"`
	UserAgent          string  `yaml:"user_agent"`
	RateLimit          float64 `yaml:"rate_limit"`
}

// DefaultPrefixes are the candidate labels of the prefix policy.
var DefaultPrefixes = []string{"api", "dev", "staging", "mail", "www"}

const feedBase = "https://raw.githubusercontent.com/projectdiscovery/public-bugbounty-programs/main/"

// DefaultFeedURLs are public bug-bounty program lists ({"programs":[{"domains":[...]}]}).
var DefaultFeedURLs = []string{
	feedBase + "hackerone_data.json",
	feedBase + "bugcrowd_data.json",
	feedBase + "intigriti_data.json",
	feedBase + "yeswehack_data.json",
	feedBase + "immunefi_data.json",
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Core: CoreConfig{Workers: 10, LogLevel: "info"},
		Targets: TargetsConfig{
			File: "data/targets.txt",
			Feed: FeedConfig{
				URLs:         append([]string(nil), DefaultFeedURLs...),
				PerFeedLimit: 200,
				MaxTargets:   1000,
				Timeout:      20 * time.Second,
			},
		},
		Enum: EnumConfig{
			Policies:     []string{"prefix"},
			Prefixes:     append([]string(nil), DefaultPrefixes...),
			MaxPerTarget: 200,
			CrtshURL:     "https://crt.sh/",
			Resolver:     "1.1.1.1:53",
			Timeout:      30 * time.Second,
			CacheTTL:     6 * time.Hour,
		},
		Probe: ProbeConfig{Timeout: 5 * time.Second, StatusThreshold: 400},
		Crawl: CrawlConfig{Timeout: 10 * time.Second, MaxResources: 100, MaxBodyBytes: 2 << 20, MaxPerTemplate: 3},
		Scan:  ScanConfig{Timeout: 10 * time.Second},
		Output: OutputConfig{
			Dir:       "data/reports",
			HistoryDB: "data/sentinel.db",
			Bugcrowd:  true,
		},
		Notify: NotifyConfig{Timeout: 10 * time.Second, MaxFindings: 10},
		Triage: TriageConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
			Timeout:  30 * time.Second,
		},
		Loop:    LoopConfig{Interval: 10 * time.Second, Jitter: 50 * time.Second},
		Network: NetworkConfig{UserAgent: "Sentinel/1.0"},
	}
}

// Loader re-reads configuration from its sources on every Load, so a loop
// picks up edits to the YAML file or environment between cycles.
type Loader struct {
	// Path is the YAML file; empty falls back to $SENTINEL_CONFIG, then defaults only.
	Path   string
	Flags  *pflag.FlagSet
	Getenv func(string) string
}

func (l *Loader) Load() (Config, error) {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg := Default()

	path := l.Path
	if path == "" {
		path = getenv(EnvConfigFile)
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	loadFromEnv(&cfg, getenv)

	if l.Flags != nil {
		if err := applyFlags(l.Flags, &cfg); err != nil {
			return Config{}, err
		}
	}

	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(errors.ErrInvalidInput, "parse config %s: %v", path, err)
	}
	return nil
}

func loadFromEnv(cfg *Config, getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			*dst = parseInt(v, *dst)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			*dst = parseDuration(v, *dst)
		}
	}
	flag := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			*dst = parseBool(v)
		}
	}
	list := func(key string, dst *[]string) {
		if v := getenv(key); v != "" {
			*dst = splitList(v)
		}
	}

	num("SENTINEL_WORKERS", &cfg.Core.Workers)
	dur("SENTINEL_TIMEOUT", &cfg.Core.Timeout)
	str("SENTINEL_LOG_LEVEL", &cfg.Core.LogLevel)
	flag("SENTINEL_QUIET", &cfg.Core.Quiet)

	str("SENTINEL_TARGETS_FILE", &cfg.Targets.File)
	flag("SENTINEL_FEED_ENABLED", &cfg.Targets.Feed.Enabled)
	list("SENTINEL_FEED_URLS", &cfg.Targets.Feed.URLs)

	list("SENTINEL_ENUM_POLICIES", &cfg.Enum.Policies)
	list("SENTINEL_ENUM_PREFIXES", &cfg.Enum.Prefixes)
	num("SENTINEL_ENUM_MAX_PER_TARGET", &cfg.Enum.MaxPerTarget)
	str("SENTINEL_ENUM_RESOLVER", &cfg.Enum.Resolver)

	dur("SENTINEL_PROBE_TIMEOUT", &cfg.Probe.Timeout)
	num("SENTINEL_PROBE_STATUS_THRESHOLD", &cfg.Probe.StatusThreshold)
	num("SENTINEL_CRAWL_MAX_RESOURCES", &cfg.Crawl.MaxResources)
	num("SENTINEL_CRAWL_MAX_PER_TEMPLATE", &cfg.Crawl.MaxPerTemplate)
	str("SENTINEL_SCAN_RULES_FILE", &cfg.Scan.RulesFile)

	str("SENTINEL_OUTPUT_DIR", &cfg.Output.Dir)
	str("SENTINEL_HISTORY_DB", &cfg.Output.HistoryDB)
	flag("SENTINEL_BUGCROWD", &cfg.Output.Bugcrowd)

	str(EnvDiscordWebhook, &cfg.Notify.DiscordWebhook)
	str(EnvSlackWebhook, &cfg.Notify.SlackWebhook)
	str(EnvOpenAIKey, &cfg.Triage.APIKey)
	str("SENTINEL_TRIAGE_MODEL", &cfg.Triage.Model)

	dur("SENTINEL_LOOP_INTERVAL", &cfg.Loop.Interval)
	dur("SENTINEL_LOOP_JITTER", &cfg.Loop.Jitter)
	num("SENTINEL_LOOP_MAX_CYCLES", &cfg.Loop.MaxCycles)

	str("SENTINEL_PROXY_URL", &cfg.Network.ProxyURL)
	flag("SENTINEL_INSECURE_SKIP_VERIFY", &cfg.Network.InsecureSkipVerify)
}

// normalize clamps out-of-range values.
func normalize(cfg *Config) {
	if cfg.Core.Workers < 1 {
		cfg.Core.Workers = 1
	}
	if cfg.Core.Timeout < 0 {
		cfg.Core.Timeout = 0
	}
	cfg.Core.LogLevel = strings.ToLower(strings.TrimSpace(cfg.Core.LogLevel))

	cfg.Targets.File = strings.TrimSpace(cfg.Targets.File)
	if cfg.Targets.Feed.PerFeedLimit < 1 {
		cfg.Targets.Feed.PerFeedLimit = 1
	}
	if cfg.Targets.Feed.MaxTargets < 1 {
		cfg.Targets.Feed.MaxTargets = 1
	}

	cfg.Enum.Policies = lowerAll(cfg.Enum.Policies)
	cfg.Enum.Prefixes = lowerAll(cfg.Enum.Prefixes)
	if cfg.Enum.MaxPerTarget < 1 {
		cfg.Enum.MaxPerTarget = 1
	}

	d := Default()
	if cfg.Probe.Timeout <= 0 {
		cfg.Probe.Timeout = d.Probe.Timeout
	}
	if cfg.Crawl.Timeout <= 0 {
		cfg.Crawl.Timeout = d.Crawl.Timeout
	}
	if cfg.Crawl.MaxResources < 1 {
		cfg.Crawl.MaxResources = 1
	}
	if cfg.Crawl.MaxPerTemplate < 0 {
		cfg.Crawl.MaxPerTemplate = 0
	}
	if cfg.Scan.Timeout <= 0 {
		cfg.Scan.Timeout = d.Scan.Timeout
	}
	if cfg.Notify.Timeout <= 0 {
		cfg.Notify.Timeout = d.Notify.Timeout
	}
	if cfg.Notify.MaxFindings < 0 {
		cfg.Notify.MaxFindings = 0
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Output.HistoryDB)) {
	case "off", "none", "false":
		cfg.Output.HistoryDB = ""
	}
	if strings.TrimSpace(cfg.Output.Dir) == "" {
		cfg.Output.Dir = d.Output.Dir
	}
	if cfg.Loop.Interval < 0 {
		cfg.Loop.Interval = 0
	}
	if cfg.Loop.Jitter < 0 {
		cfg.Loop.Jitter = 0
	}
	if cfg.Loop.MaxCycles < 0 {
		cfg.Loop.MaxCycles = 0
	}
}

// Validate reports settings that cannot be clamped into something sensible.
func (c Config) Validate() error {
	var errs []error
	if c.Targets.File == "" {
		errs = append(errs, errors.Wrap(errors.ErrInvalidInput, "targets.file is empty"))
	}
	if len(c.Enum.Policies) == 0 {
		errs = append(errs, errors.Wrap(errors.ErrInvalidInput, "enum.policies is empty"))
	}
	if c.Probe.StatusThreshold < 100 || c.Probe.StatusThreshold > 600 {
		errs = append(errs, errors.Wrapf(errors.ErrInvalidInput, "probe.status_threshold %d out of range", c.Probe.StatusThreshold))
	}
	if c.Network.ProxyURL != "" {
		if u, err := url.Parse(c.Network.ProxyURL); err != nil || u.Host == "" {
			errs = append(errs, errors.Wrapf(errors.ErrInvalidInput, "network.proxy_url %q", c.Network.ProxyURL))
		}
	}
	return errors.Join(errs...)
}

// HTTP derives the shared client settings for a component with its own timeout.
func (c Config) HTTP(timeout time.Duration) httpclient.Config {
	h := httpclient.DefaultConfig()
	if timeout > 0 {
		h.Timeout = timeout
	}
	if c.Network.UserAgent != "" {
		h.UserAgent = c.Network.UserAgent
	}
	h.RateLimit = c.Network.RateLimit
	h.ProxyURL = c.Network.ProxyURL
	h.InsecureSkipVerify = c.Network.InsecureSkipVerify
	return h
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// parseDuration accepts Go durations ("90s") or bare seconds ("90").
func parseDuration(s string, def time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
