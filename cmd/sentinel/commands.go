// cmd/sentinel/commands.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"sentinel/internal/adapters/output"
	"sentinel/internal/adapters/storage/sqlite"
	"sentinel/internal/core/domain"
	"sentinel/internal/core/usecases"
	"sentinel/internal/platform/config"
	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/logx"
	"sentinel/internal/platform/ui"
)

// errCycleFailed makes `sentinel run` exit non-zero after a FAILED cycle.
var errCycleFailed = errors.New("cycle failed")

func exitCode(err error) int {
	switch {
	case errors.Is(err, errors.ErrInvalidInput):
		return 2
	default:
		return 1
	}
}

func loadConfig(fs *pflag.FlagSet) (config.Config, error) {
	l := &config.Loader{Path: config.ConfigPath(fs), Flags: fs}
	return l.Load()
}

func newLogger(cfg config.Config) logx.Logger {
	return logx.NewWithLevel(logx.ParseLevel(cfg.Core.LogLevel))
}

func newPresenter(cfg config.Config) ui.Presenter {
	if cfg.Core.Quiet {
		return ui.NewNoopPresenter()
	}
	return ui.NewPTermPresenter()
}

func newRunCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single cycle and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			presenter := newPresenter(cfg)
			if asJSON {
				presenter = ui.NewNoopPresenter()
			}
			defer presenter.Close()

			shared := newSharedDeps(cfg)
			orch, err := buildOrchestrator(cfg, shared, logger, presenter)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := orch.Close(); cerr != nil {
					logger.Warn("close sinks", "error", cerr.Error())
				}
			}()

			res := orch.RunCycle(cmd.Context(), 1)

			out := cmd.OutOrStdout()
			if asJSON {
				if err := output.EncodeRecord(out, res.Record, true); err != nil {
					return err
				}
			} else if cfg.Core.Quiet {
				if err := output.RenderSummary(out, res.Record, res.Location, cfg.Notify.MaxFindings); err != nil {
					return err
				}
			}

			if res.State == domain.StateFailed {
				return errors.Wrap(errCycleFailed, res.Record.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run record as JSON on stdout")
	return cmd
}

func newLoopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "loop",
		Short: "Run cycles forever (or --max-cycles) with a jittered pause",
		Long: `loop re-reads the configuration before every cycle, so edits to the YAML
file or environment apply from the next cycle on. A failed cycle never stops
the loop; SIGINT/SIGTERM finish the current cycle's record and exit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := cmd.Flags()
			cfg, err := loadConfig(fs)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			presenter := newPresenter(cfg)
			defer func() { presenter.Close() }()

			// cfg always holds the configuration of the running cycle.
			shared := newSharedDeps(cfg)
			factory := usecases.FactoryFunc(func(context.Context) (*usecases.Orchestrator, error) {
				c, err := loadConfig(fs)
				if err != nil {
					return nil, err
				}
				logger.SetLevel(logx.ParseLevel(c.Core.LogLevel))
				pres := presenter
				if c.Core.Quiet != cfg.Core.Quiet {
					pres = newPresenter(c)
				}
				orch, err := buildOrchestrator(c, shared, logger, pres)
				if err != nil {
					if pres != presenter {
						pres.Close()
					}
					return nil, err
				}
				if pres != presenter {
					presenter.Close()
					presenter = pres
				}
				cfg = c
				return orch, nil
			})

			sched, err := usecases.NewScheduler(usecases.SchedulerOptions{
				Factory:   factory,
				Interval:  cfg.Loop.Interval,
				Jitter:    cfg.Loop.Jitter,
				MaxCycles: cfg.Loop.MaxCycles,
				Logger:    logger,
				OnCycle: func(n int, res *usecases.CycleResult) {
					if cfg.Core.Quiet {
						_ = output.RenderSummary(cmd.OutOrStdout(), res.Record, res.Location, cfg.Notify.MaxFindings)
					}
				},
			})
			if err != nil {
				return err
			}

			err = sched.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				logger.Info("loop stopped")
				return nil
			}
			return err
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs and finding counts from the history database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.Output.HistoryDB == "" {
				return errors.Wrap(errors.ErrInvalidInput, "history is disabled (output.history_db is empty)")
			}
			if _, err := os.Stat(cfg.Output.HistoryDB); err != nil {
				return errors.Wrapf(err, "history database %s", cfg.Output.HistoryDB)
			}

			repo, err := sqlite.Open(cfg.Output.HistoryDB, newLogger(cfg))
			if err != nil {
				return err
			}
			defer repo.Close()

			ctx := cmd.Context()
			runs, err := repo.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			cats, err := repo.CategoryCounts(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "History: %s\n", cfg.Output.HistoryDB)
			return output.RenderHistory(cmd.OutOrStdout(), runs, cats)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}
