package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newFormatsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "formats [URL]",
		Short: "List the video-only MP4 encodings of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp()
			if err != nil {
				return err
			}

			encodings, err := a.catalog.Formats(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ITAG\tQUALITY\tCONTAINER\tHEIGHT")
			for _, e := range encodings {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", e.ID, e.QualityLabel, e.Container, e.Height)
			}
			return tw.Flush()
		},
	}
}
