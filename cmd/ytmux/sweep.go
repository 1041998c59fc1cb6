package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iconidentify/ytmux/internal/artifact"
)

func newSweepCmd(opts *globalOptions) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "sweep [--max-age DURATION]",
		Short: "Remove orphaned temporary files left by interrupted downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger()
			cfg, err := opts.loadConfig(logger)
			if err != nil {
				return err
			}
			if maxAge <= 0 {
				maxAge = cfg.Storage.OrphanMaxAge
			}
			// This process cannot see a running server's jobs, so only age
			// separates an orphan from a download still in progress.
			if maxAge <= cfg.Download.JobTimeout {
				return fmt.Errorf("--max-age (%s) must exceed the job timeout (%s)", maxAge, cfg.Download.JobTimeout)
			}

			artifacts, err := artifact.NewManager(cfg.Storage.TempPath, logger)
			if err != nil {
				return err
			}

			removed, err := artifacts.Sweep(maxAge, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d orphaned file(s) from %s\n", removed, artifacts.Dir())
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Remove files older than this (default from config)")
	return cmd
}
