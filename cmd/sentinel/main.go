// cmd/sentinel/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sentinel/internal/platform/config"
)

var (
	// Set with -ldflags at build time.
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := rootContextWithSignals()
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sentinel",
		Short: "Continuous recon and heuristic vulnerability pipeline",
		Long: `Digital Sentinel expands a list of in-scope domains into live hosts,
crawls them, applies detection rules and records every cycle as a JSON run
record (plus optional SQLite history, Bugcrowd export and webhook summaries).

Secrets come only from the environment:
  DISCORD_WEBHOOK_URL, SLACK_WEBHOOK_URL, OPENAI_API_KEY`,
		Example: `  sentinel run -t data/targets.txt
  sentinel loop --interval 30s --jitter 1m
  sentinel history --limit 10
  SENTINEL_CONFIG=sentinel.yaml sentinel loop --max-cycles 5`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.BindFlags(root.PersistentFlags())

	root.AddCommand(newRunCmd(), newLoopCmd(), newHistoryCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sentinel %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// rootContextWithSignals cancels on SIGINT/SIGTERM. The returned cancel
// also stops the signal handler.
func rootContextWithSignals() (context.Context, context.CancelFunc) {
	base, baseCancel := context.WithCancel(context.Background())

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-ch:
			baseCancel()
		case <-base.Done():
		}
	}()

	return base, func() {
		signal.Stop(ch)
		baseCancel()
	}
}
