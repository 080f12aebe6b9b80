package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/log-indexer/internal/config"
	"github.com/GabrielNunesIT/log-indexer/internal/indices"
)

// NewIndicesCmd creates the indices command group.
func NewIndicesCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indices",
		Short: "Manage the monthly indices and their template",
	}

	cmd.AddCommand(newEnsureTemplateCmd(cfgFile))
	cmd.AddCommand(newListCmd(cfgFile))
	cmd.AddCommand(newDeleteStaleCmd(cfgFile))

	return cmd
}

func newEnsureTemplateCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ensure-template",
		Short: "Install the index template for the monthly indices",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager(cmd, cfgFile)
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			if err := mgr.EnsureTemplate(cmd.Context(), force); err != nil {
				return err
			}
			fmt.Printf("template %s is in place\n", mgr.TemplateName())
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "overwrite the template even if it exists")
	return cmd
}

func newListCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the monthly indices",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager(cmd, cfgFile)
			if err != nil {
				return err
			}
			names, err := mgr.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newDeleteStaleCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-stale",
		Short: "Delete monthly indices older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager(cmd, cfgFile)
			if err != nil {
				return err
			}

			asOf := time.Now()
			if raw, _ := cmd.Flags().GetString("as-of"); raw != "" {
				asOf, err = dateparse.ParseAny(raw)
				if err != nil {
					return fmt.Errorf("parsing --as-of: %w", err)
				}
			}

			names, err := mgr.List(cmd.Context())
			if err != nil {
				return err
			}
			stale := mgr.Stale(asOf, names)
			if len(stale) == 0 {
				fmt.Println("nothing to delete")
				return nil
			}

			for _, name := range stale {
				fmt.Println(name)
			}

			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				fmt.Printf("delete these %d indices? [y/N] ", len(stale))
				answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
				answer = strings.ToLower(strings.TrimSpace(answer))
				if answer != "y" && answer != "yes" {
					fmt.Println("aborted")
					return nil
				}
			}

			if err := mgr.Delete(cmd.Context(), stale); err != nil {
				return err
			}
			fmt.Printf("deleted %d indices\n", len(stale))
			return nil
		},
	}
	cmd.Flags().String("as-of", "", "compute staleness as of this date instead of now")
	cmd.Flags().Bool("yes", false, "skip the confirmation prompt")
	return cmd
}

func newManager(cmd *cobra.Command, cfgFile *string) (*indices.Manager, error) {
	cfg, err := config.Load(*cfgFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log := SetupLogging(cfg.LogLevel)
	return indices.NewManager(cfg.Elasticsearch, cfg.Indices, log)
}
