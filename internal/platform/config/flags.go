// internal/platform/config/flags.go
package config

import (
	"github.com/spf13/pflag"

	"sentinel/internal/platform/errors"
)

// Flag names shared with cmd/sentinel.
const (
	FlagConfig          = "config"
	FlagTargets         = "targets"
	FlagOut             = "out"
	FlagWorkers         = "workers"
	FlagTimeout         = "timeout"
	FlagPolicies        = "policies"
	FlagProbeTimeout    = "probe-timeout"
	FlagStatusThreshold = "status-threshold"
	FlagMaxResources    = "max-resources"
	FlagRules           = "rules"
	FlagHistoryDB       = "history-db"
	FlagFeed            = "feed"
	FlagInsecure        = "insecure"
	FlagProxy           = "proxy"
	FlagInterval        = "interval"
	FlagJitter          = "jitter"
	FlagMaxCycles       = "max-cycles"
	FlagQuiet           = "quiet"
	FlagLogLevel        = "log-level"
)

// BindFlags registers every configurable flag on fs with defaults taken from
// Default(). Only flags the user actually sets override file and env values.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()

	fs.String(FlagConfig, "", "YAML config file (env "+EnvConfigFile+")")
	fs.StringP(FlagTargets, "t", d.Targets.File, "target list file, one domain per line")
	fs.StringP(FlagOut, "o", d.Output.Dir, "report output directory")
	fs.IntP(FlagWorkers, "w", d.Core.Workers, "concurrent workers per phase")
	fs.Duration(FlagTimeout, d.Core.Timeout, "per-cycle timeout (0 = none)")
	fs.StringSlice(FlagPolicies, d.Enum.Policies, "enumeration policies (prefix,crtsh,dns)")
	fs.Duration(FlagProbeTimeout, d.Probe.Timeout, "per-host probe timeout")
	fs.Int(FlagStatusThreshold, d.Probe.StatusThreshold, "hosts answering below this status are live")
	fs.Int(FlagMaxResources, d.Crawl.MaxResources, "max resources collected per host")
	fs.String(FlagRules, d.Scan.RulesFile, "YAML scan rules file (built-in rules when empty)")
	fs.String(FlagHistoryDB, d.Output.HistoryDB, "SQLite run history path (\"off\" disables)")
	fs.Bool(FlagFeed, d.Targets.Feed.Enabled, "regenerate the targets file from public program feeds")
	fs.BoolP(FlagInsecure, "k", d.Network.InsecureSkipVerify, "skip TLS certificate verification")
	fs.String(FlagProxy, d.Network.ProxyURL, "HTTP(S) proxy for outgoing requests")
	fs.Duration(FlagInterval, d.Loop.Interval, "loop: minimum pause between cycles")
	fs.Duration(FlagJitter, d.Loop.Jitter, "loop: random extra pause, up to this value")
	fs.Int(FlagMaxCycles, d.Loop.MaxCycles, "loop: stop after N cycles (0 = forever)")
	fs.BoolP(FlagQuiet, "q", d.Core.Quiet, "disable the interactive console UI")
	fs.String(FlagLogLevel, d.Core.LogLevel, "debug|info|warn|error")
}

// ConfigPath returns --config when set.
func ConfigPath(fs *pflag.FlagSet) string {
	if fs == nil || fs.Lookup(FlagConfig) == nil {
		return ""
	}
	p, _ := fs.GetString(FlagConfig)
	return p
}

func applyFlags(fs *pflag.FlagSet, cfg *Config) error {
	var err error
	set := func(name string, apply func() error) {
		if err != nil || fs.Lookup(name) == nil || !fs.Changed(name) {
			return
		}
		if e := apply(); e != nil {
			err = errors.Wrapf(errors.ErrInvalidInput, "flag --%s: %v", name, e)
		}
	}

	set(FlagTargets, func() (e error) { cfg.Targets.File, e = fs.GetString(FlagTargets); return })
	set(FlagOut, func() (e error) { cfg.Output.Dir, e = fs.GetString(FlagOut); return })
	set(FlagWorkers, func() (e error) { cfg.Core.Workers, e = fs.GetInt(FlagWorkers); return })
	set(FlagTimeout, func() (e error) { cfg.Core.Timeout, e = fs.GetDuration(FlagTimeout); return })
	set(FlagPolicies, func() (e error) { cfg.Enum.Policies, e = fs.GetStringSlice(FlagPolicies); return })
	set(FlagProbeTimeout, func() (e error) { cfg.Probe.Timeout, e = fs.GetDuration(FlagProbeTimeout); return })
	set(FlagStatusThreshold, func() (e error) { cfg.Probe.StatusThreshold, e = fs.GetInt(FlagStatusThreshold); return })
	set(FlagMaxResources, func() (e error) { cfg.Crawl.MaxResources, e = fs.GetInt(FlagMaxResources); return })
	set(FlagRules, func() (e error) { cfg.Scan.RulesFile, e = fs.GetString(FlagRules); return })
	set(FlagHistoryDB, func() (e error) { cfg.Output.HistoryDB, e = fs.GetString(FlagHistoryDB); return })
	set(FlagFeed, func() (e error) { cfg.Targets.Feed.Enabled, e = fs.GetBool(FlagFeed); return })
	set(FlagInsecure, func() (e error) { cfg.Network.InsecureSkipVerify, e = fs.GetBool(FlagInsecure); return })
	set(FlagProxy, func() (e error) { cfg.Network.ProxyURL, e = fs.GetString(FlagProxy); return })
	set(FlagInterval, func() (e error) { cfg.Loop.Interval, e = fs.GetDuration(FlagInterval); return })
	set(FlagJitter, func() (e error) { cfg.Loop.Jitter, e = fs.GetDuration(FlagJitter); return })
	set(FlagMaxCycles, func() (e error) { cfg.Loop.MaxCycles, e = fs.GetInt(FlagMaxCycles); return })
	set(FlagQuiet, func() (e error) { cfg.Core.Quiet, e = fs.GetBool(FlagQuiet); return })
	set(FlagLogLevel, func() (e error) { cfg.Core.LogLevel, e = fs.GetString(FlagLogLevel); return })

	return err
}
