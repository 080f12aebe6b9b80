package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/log-indexer/internal/config"
	"github.com/GabrielNunesIT/log-indexer/internal/envelope"
	"github.com/GabrielNunesIT/log-indexer/internal/pipeline"
	"github.com/GabrielNunesIT/log-indexer/internal/sink"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			fmt.Printf("Configuration valid:\n")
			fmt.Printf("  Elasticsearch: %s (%d workers)\n",
				strings.Join(cfg.Elasticsearch.Addresses, ", "), cfg.Elasticsearch.Workers)
			fmt.Printf("  Indices:       %s-* (%d days retention)\n",
				cfg.Indices.Prefix, cfg.Indices.RetentionDays)
			fmt.Printf("  Server:        %s\n", cfg.Server.Listen)
			if cfg.DeadLetter.Enabled {
				fmt.Printf("  Dead letter:   %s\n", cfg.DeadLetter.Path)
			} else {
				fmt.Printf("  Dead letter:   disabled\n")
			}

			if sample, _ := cmd.Flags().GetString("sample"); sample != "" {
				return runSample(cfg, sample)
			}
			return nil
		},
	}

	cmd.Flags().String("sample", "", "run a sample envelope file through the pipeline and print the actions")

	return cmd
}

func runSample(cfg *config.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	msg, err := envelope.DecodeSubscription(data)
	if err != nil {
		return fmt.Errorf("decoding sample: %w", err)
	}

	// Validation output stays on stdout, so discard the pipeline's own logs.
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	out := sink.NewStdout(log)
	if err := out.Start(context.Background()); err != nil {
		return err
	}
	pipe := pipeline.New(cfg, out, nil, log)

	res, err := pipe.Run(context.Background(), "sample", msg.Batch())
	if err != nil {
		return err
	}
	if _, err := out.Stop(context.Background()); err != nil {
		return err
	}

	fmt.Printf("sample: %d events, %d filtered, %d printed\n", res.Events, res.Filtered, res.Enqueued)
	return nil
}
