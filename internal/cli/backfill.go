package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/log-indexer/internal/backfill"
	"github.com/GabrielNunesIT/log-indexer/internal/config"
	"github.com/GabrielNunesIT/log-indexer/internal/indices"
	"github.com/GabrielNunesIT/log-indexer/internal/pipeline"
	"github.com/GabrielNunesIT/log-indexer/internal/sink"
)

// NewBackfillCmd creates the backfill command.
func NewBackfillCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill <path>",
		Short: "Re-ingest archived subscription envelopes",
		Long: `Backfill reads archived CloudWatch subscription envelopes and runs them
through the same normalization pipeline as the HTTP ingest path.

The path may be a directory (walked recursively for .json, .ndjson and
.gz files), a single file, or "-" to read newline-delimited envelopes
from stdin. Events without an id are assigned a deterministic one, so
re-running a backfill overwrites instead of duplicating documents.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(cmd, cfgFile, args[0])
		},
	}

	cmd.Flags().Int("workers", 4, "number of files processed concurrently")
	cmd.Flags().String("since", "", "skip files last modified before this date")
	cmd.Flags().Bool("dry-run", false, "print index actions to stdout instead of indexing")

	return cmd
}

func runBackfill(cmd *cobra.Command, cfgFile *string, path string) error {
	cfg, err := config.Load(*cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := SetupLogging(cfg.LogLevel)

	var since time.Time
	if raw, _ := cmd.Flags().GetString("since"); raw != "" {
		since, err = dateparse.ParseAny(raw)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var dest sink.Sink
	if dryRun {
		dest = sink.NewStdout(log)
	} else {
		var opts []sink.ElasticsearchOption
		if cfg.DeadLetter.Enabled {
			opts = append(opts, sink.WithDeadLetter(sink.NewDeadLetter(cfg.DeadLetter, log)))
		}
		dest = sink.NewElasticsearch(cfg.Elasticsearch, log, opts...)
	}
	if err := dest.Start(ctx); err != nil {
		return fmt.Errorf("starting sink: %w", err)
	}

	if !dryRun {
		mgr, err := indices.NewManager(cfg.Elasticsearch, cfg.Indices, log)
		if err != nil {
			return fmt.Errorf("creating indices manager: %w", err)
		}
		if err := mgr.EnsureTemplate(ctx, false); err != nil {
			return fmt.Errorf("ensuring index template: %w", err)
		}
	}

	pipe := pipeline.New(cfg, dest, nil, log)
	runner := backfill.New(pipe, cfg.Backfill.Workers, since, log)

	sum, runErr := runner.Run(ctx, path)

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	stats, stopErr := dest.Stop(drainCtx)

	fmt.Printf("Files:    %d processed, %d skipped, %d failed\n", sum.Files, sum.Skipped, sum.Failed)
	fmt.Printf("Events:   %d (%d filtered)\n", sum.Events, sum.Filtered)
	fmt.Printf("Indexed:  %d (%d failed)\n", stats.Indexed, stats.Failed)

	if runErr != nil {
		return runErr
	}
	return stopErr
}
