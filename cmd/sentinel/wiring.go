// cmd/sentinel/wiring.go
package main

import (
	"time"

	"sentinel/internal/adapters/crawler"
	"sentinel/internal/adapters/enumerator"
	"sentinel/internal/adapters/notify"
	"sentinel/internal/adapters/output"
	"sentinel/internal/adapters/prober"
	"sentinel/internal/adapters/scanner"
	"sentinel/internal/adapters/storage/sqlite"
	"sentinel/internal/adapters/targets"
	"sentinel/internal/adapters/triage"
	"sentinel/internal/core/domain"
	"sentinel/internal/core/ports"
	"sentinel/internal/core/usecases"
	"sentinel/internal/platform/cache"
	"sentinel/internal/platform/config"
	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/httpclient"
	"sentinel/internal/platform/logx"
	"sentinel/internal/platform/resilience"
	"sentinel/internal/platform/ui"
	"sentinel/internal/platform/urlfilter"
	"sentinel/internal/platform/workerpool"
)

const enumCacheSize = 1024

// sharedDeps outlive a single orchestrator so loop cycles reuse them.
type sharedDeps struct {
	enumCache *cache.LRU[[]domain.Host]
	crtsh     *resilience.Breaker
}

func newSharedDeps(cfg config.Config) *sharedDeps {
	return &sharedDeps{
		enumCache: cache.New[[]domain.Host](enumCacheSize, cfg.Enum.CacheTTL),
		crtsh:     resilience.New(resilience.Options{Threshold: 3, Cooldown: 10 * time.Minute}),
	}
}

// buildOrchestrator composes every adapter from cfg.
func buildOrchestrator(cfg config.Config, shared *sharedDeps, logger logx.Logger, presenter ui.Presenter) (*usecases.Orchestrator, error) {
	if shared == nil {
		shared = newSharedDeps(cfg)
	}
	pool := func(name string) *workerpool.Pool {
		return workerpool.New(workerpool.Config{Workers: cfg.Core.Workers, Name: name, Logger: logger})
	}

	// Targets (+ optional feed regeneration)
	var feed *targets.FeedGenerator
	if cfg.Targets.Feed.Enabled {
		fc, err := httpclient.New(cfg.HTTP(cfg.Targets.Feed.Timeout), logger)
		if err != nil {
			return nil, errors.Wrap(err, "feed client")
		}
		feed = targets.NewFeedGenerator(targets.FeedOptions{
			URLs:         cfg.Targets.Feed.URLs,
			PerFeedLimit: cfg.Targets.Feed.PerFeedLimit,
			MaxTargets:   cfg.Targets.Feed.MaxTargets,
			Client:       fc,
			Logger:       logger,
		})
	}
	src := targets.NewFileSource(targets.Options{Path: cfg.Targets.File, Feed: feed, Logger: logger})

	// Enumerate
	enumClient, err := httpclient.New(cfg.HTTP(cfg.Enum.Timeout), logger)
	if err != nil {
		return nil, errors.Wrap(err, "enumeration client")
	}
	enum, err := enumerator.NewFromNames(cfg.Enum.Policies, enumerator.Deps{
		Prefixes: cfg.Enum.Prefixes,
		CrtshURL: cfg.Enum.CrtshURL,
		Resolver: cfg.Enum.Resolver,
		Timeout:  cfg.Enum.Timeout,
		HTTP:     enumClient,
		Cache:    shared.enumCache,
		Breaker:  shared.crtsh,
		Logger:   logger,
	}, enumerator.Options{MaxPerTarget: cfg.Enum.MaxPerTarget, Pool: pool("enumerate"), Logger: logger})
	if err != nil {
		return nil, err
	}

	// Probe / crawl use plain clients: no retries, per-request timeouts.
	probeClient, err := httpclient.NewStdClient(cfg.HTTP(cfg.Probe.Timeout))
	if err != nil {
		return nil, errors.Wrap(err, "probe client")
	}
	crawlClient, err := httpclient.NewStdClient(cfg.HTTP(cfg.Crawl.Timeout))
	if err != nil {
		return nil, errors.Wrap(err, "crawl client")
	}
	prb := prober.New(prober.Options{
		Client:          probeClient,
		Timeout:         cfg.Probe.Timeout,
		StatusThreshold: cfg.Probe.StatusThreshold,
		UserAgent:       cfg.Network.UserAgent,
		Pool:            pool("probe"),
		Logger:          logger,
	})
	crw := crawler.New(crawler.Options{
		Client:       crawlClient,
		Timeout:      cfg.Crawl.Timeout,
		MaxResources: cfg.Crawl.MaxResources,
		MaxBodyBytes: cfg.Crawl.MaxBodyBytes,
		UserAgent:    cfg.Network.UserAgent,
		Filter: urlfilter.New(urlfilter.Options{
			MaxPerTemplate: cfg.Crawl.MaxPerTemplate,
			Logger:         logger,
		}),
		Pool:   pool("crawl"),
		Logger: logger,
	})

	// Scan
	rules, err := scanner.LoadRules(cfg.Scan.RulesFile)
	if err != nil {
		return nil, err
	}
	scanClient, err := httpclient.New(cfg.HTTP(cfg.Scan.Timeout), logger)
	if err != nil {
		return nil, errors.Wrap(err, "scan client")
	}
	scn, err := scanner.New(scanner.Options{
		Client:  scanClient,
		Rules:   rules,
		Timeout: cfg.Scan.Timeout,
		Pool:    pool("scan"),
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	// Persist: the JSON record first, it is the cycle's location.
	writers := []ports.RecordWriter{output.NewJSONWriter(cfg.Output.Dir, logger)}
	if cfg.Output.Bugcrowd {
		writers = append(writers, output.NewBugcrowdExporter(cfg.Output.Dir, logger))
	}
	if cfg.Output.HistoryDB != "" {
		repo, err := sqlite.Open(cfg.Output.HistoryDB, logger)
		if err != nil {
			// history is optional; the cycle still writes its JSON record
			logger.Warn("history disabled for this cycle", "path", cfg.Output.HistoryDB, "error", err.Error())
		} else {
			writers = append(writers, repo)
		}
	}

	// Notify + triage
	notifyClient, err := httpclient.New(cfg.HTTP(cfg.Notify.Timeout), logger)
	if err != nil {
		closeWriters(writers)
		return nil, errors.Wrap(err, "notify client")
	}
	nopts := notify.Options{Client: notifyClient, Timeout: cfg.Notify.Timeout, MaxFindings: cfg.Notify.MaxFindings, Logger: logger}
	discord, slack := nopts, nopts
	discord.WebhookURL = cfg.Notify.DiscordWebhook
	slack.WebhookURL = cfg.Notify.SlackWebhook

	triageClient, err := httpclient.New(cfg.HTTP(cfg.Triage.Timeout), logger)
	if err != nil {
		closeWriters(writers)
		return nil, errors.Wrap(err, "triage client")
	}
	summarizer := triage.NewOpenAI(triage.Options{
		APIKey:   cfg.Triage.APIKey,
		Endpoint: cfg.Triage.Endpoint,
		Model:    cfg.Triage.Model,
		Timeout:  cfg.Triage.Timeout,
		Client:   triageClient,
		Logger:   logger,
	})

	orch, err := usecases.NewOrchestrator(usecases.OrchestratorOptions{
		Targets:      src,
		Enumerator:   enum,
		Prober:       prb,
		Crawler:      crw,
		Scanner:      scn,
		Summarizer:   summarizer,
		Writers:      writers,
		Notifiers:    []ports.Notifier{notify.NewDiscord(discord), notify.NewSlack(slack)},
		Presenter:    presenter,
		Logger:       logger,
		CycleTimeout: cfg.Core.Timeout,
		Info: ui.CycleInfo{
			TargetsFile: cfg.Targets.File,
			Workers:     cfg.Core.Workers,
			Policies:    cfg.Enum.Policies,
		},
		Loop: &usecases.LoopSettings{
			Interval:  cfg.Loop.Interval,
			Jitter:    cfg.Loop.Jitter,
			MaxCycles: cfg.Loop.MaxCycles,
		},
	})
	if err != nil {
		closeWriters(writers)
		return nil, err
	}
	return orch, nil
}

func closeWriters(ws []ports.RecordWriter) {
	for _, w := range ws {
		if c, ok := w.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}
}
