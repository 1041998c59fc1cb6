package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iconidentify/ytmux/internal/progress"
	"github.com/iconidentify/ytmux/internal/service"
)

func newDownloadCmd(opts *globalOptions) *cobra.Command {
	var itag string
	var outputPath string

	cmd := &cobra.Command{
		Use:     "download [URL] --itag ITAG [--output OUTPUT_PATH]",
		Short:   "Download a video encoding with the best audio muxed in",
		Aliases: []string{"dl"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp()
			if err != nil {
				return err
			}

			if outputPath == "" {
				outputPath = service.DeliverableName
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			events, detach := a.hub.Attach(progress.DefaultKey)
			logged := make(chan struct{})
			go func() {
				defer close(logged)
				for ev := range events {
					a.logger.Info("progress", "stage", ev.Stage, "percent", ev.Percent)
				}
			}()

			result, err := a.downloads.Run(ctx, service.DownloadRequest{
				SourceURL:  args[0],
				EncodingID: itag,
			}, func(ctx context.Context, d service.Deliverable) error {
				return writeDeliverable(outputPath, d.Content)
			})

			detach()
			<-logged

			if err != nil {
				return err
			}
			if result.DeliveryErr != nil {
				return result.DeliveryErr
			}

			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d bytes) in %s\n", outputPath, result.Size, result.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&itag, "itag", "", "Video encoding id (see the formats command)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path")
	cmd.MarkFlagRequired("itag")
	return cmd
}

// writeDeliverable copies content to path through a sibling temp file so a
// failed copy never leaves a truncated output behind.
func writeDeliverable(path string, content io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ytmux-*.part")
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
