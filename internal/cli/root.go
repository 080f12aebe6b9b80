package cli

import (
	"github.com/spf13/cobra"
)

// Execute builds and runs the CLI.
func Execute() error {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "log-indexer",
		Short: "Normalizes CloudWatch log events into monthly Elasticsearch indices",
		Long: `log-indexer turns raw CloudWatch Logs subscription batches into
normalized, searchable documents in monthly Elasticsearch indices.

Lambda lifecycle noise (START/END lines) is filtered out, REPORT lines
become metric documents, [ERROR] lines keep their first message line,
and application payloads are parsed as JSON where possible, with a
line-format recovery pass for almost-JSON output.

Serve mode accepts subscription envelopes over HTTP; backfill re-ingests
archived envelopes from disk or stdin. When a config file is specified,
changes are applied without a restart.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		NewServeCmd(&cfgFile),
		NewBackfillCmd(&cfgFile),
		NewIndicesCmd(&cfgFile),
		NewValidateCmd(&cfgFile),
		NewVersionCmd(),
	)

	return rootCmd.Execute()
}
