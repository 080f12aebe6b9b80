package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/log-indexer/internal/config"
	"github.com/GabrielNunesIT/log-indexer/internal/indices"
	"github.com/GabrielNunesIT/log-indexer/internal/metrics"
	"github.com/GabrielNunesIT/log-indexer/internal/pipeline"
	"github.com/GabrielNunesIT/log-indexer/internal/server"
	"github.com/GabrielNunesIT/log-indexer/internal/sink"
)

// NewServeCmd creates the serve command.
func NewServeCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP ingest server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, cfgFile)
		},
	}

	cmd.Flags().String("listen", ":8088", "listen address for the ingest API")

	return cmd
}

func runServe(cmd *cobra.Command, cfgFile *string) error {
	cfg, err := config.Load(*cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := SetupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	opts := []sink.ElasticsearchOption{sink.WithMetrics(m)}
	if cfg.DeadLetter.Enabled {
		opts = append(opts, sink.WithDeadLetter(sink.NewDeadLetter(cfg.DeadLetter, log)))
	}
	esSink := sink.NewElasticsearch(cfg.Elasticsearch, log, opts...)
	if err := esSink.Start(ctx); err != nil {
		return fmt.Errorf("starting sink: %w", err)
	}

	mgr, err := indices.NewManager(cfg.Elasticsearch, cfg.Indices, log)
	if err != nil {
		return fmt.Errorf("creating indices manager: %w", err)
	}
	if err := mgr.EnsureTemplate(ctx, false); err != nil {
		return fmt.Errorf("ensuring index template: %w", err)
	}

	pipe := pipeline.New(cfg, esSink, m, log)

	srv := server.New(cfg.Server, pipe, esSink, m, log)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	if *cfgFile != "" {
		startConfigWatcher(ctx, cmd, cfgFile, pipe, log)
	}

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go handleReloads(ctx, sighup, cmd, cfgFile, pipe, log)

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	log.Info("log indexer started", slog.String("listen", cfg.Server.Listen))

	<-ctx.Done()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	log.Info("shutting down")

	if err := srv.Stop(); err != nil {
		log.Error("server shutdown error", slog.Any("error", err))
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	stats, err := esSink.Stop(drainCtx)
	if err != nil {
		return fmt.Errorf("draining sink: %w", err)
	}

	log.Info("log indexer stopped",
		slog.Uint64("indexed", stats.Indexed),
		slog.Uint64("failed", stats.Failed))
	return nil
}

func startConfigWatcher(ctx context.Context, cmd *cobra.Command, cfgFile *string, pipe *pipeline.Pipeline, log *slog.Logger) {
	watcher := config.NewWatcher(*cfgFile, cmd.Flags(), log)
	if err := watcher.Start(ctx); err != nil {
		log.Warn("failed to start config watcher", slog.Any("error", err))
		return
	}

	log.Info("hot-reload enabled", slog.String("config", *cfgFile))

	go func() {
		for {
			select {
			case newCfg := <-watcher.Changes():
				applyConfig(newCfg, pipe)
			case err := <-watcher.Errors():
				log.Error("config watcher error", slog.Any("error", err))
			case <-ctx.Done():
				return
			}
		}
	}()
}

func handleReloads(ctx context.Context, sighup <-chan os.Signal, cmd *cobra.Command, cfgFile *string, pipe *pipeline.Pipeline, log *slog.Logger) {
	for {
		select {
		case <-sighup:
			log.Info("received SIGHUP, reloading config")
			newCfg, err := config.Load(*cfgFile, cmd.Flags())
			if err != nil {
				log.Error("config reload failed", slog.Any("error", err))
				continue
			}
			applyConfig(newCfg, pipe)
		case <-ctx.Done():
			return
		}
	}
}

// applyConfig applies the runtime-changeable settings: log level and
// index prefix. Sink and server settings need a restart.
func applyConfig(cfg *config.Config, pipe *pipeline.Pipeline) {
	SetLogLevel(cfg.LogLevel)
	pipe.Reconfigure(cfg)
}
