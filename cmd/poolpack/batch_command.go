package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"poolpack/internal/api"
	"poolpack/internal/progress"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var filename string
	var consumer string
	var output string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "batch <resource-id>...",
		Short: "Build an archive from catalog resources and optionally download it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			req := api.BatchRequest{ResourceIDs: api.ResourceIDs(args), Filename: filename}

			final, err := client.Batch(cmd.Context(), req, consumer, func(ev progress.Event) {
				if quiet {
					return
				}
				if line := describeEvent(ev); line != "" {
					fmt.Fprintln(stdout, line)
				}
			})
			if err != nil {
				return wrapDaemonError(err)
			}

			fmt.Fprintf(stdout, "Archive ready: %s\n", final.Filename)
			fmt.Fprintf(stdout, "Retrieve: %s\n", final.URL)
			if strings.TrimSpace(output) == "" {
				return nil
			}

			target := output
			if info, statErr := os.Stat(target); statErr == nil && info.IsDir() {
				target = filepath.Join(target, final.Filename)
			}
			f, err := os.Create(target)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			n, err := client.Download(cmd.Context(), final.URL, f)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				_ = os.Remove(target)
				return wrapDaemonError(err)
			}
			fmt.Fprintf(stdout, "Saved %s (%s)\n", target, formatBytes(n))
			return nil
		},
	}
	cmd.Flags().StringVar(&filename, "filename", "", "Archive download filename")
	cmd.Flags().StringVar(&consumer, "consumer", "", "Consumer id recorded in the usage ledger")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Download the archive to this file or directory")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress lines")
	return cmd
}

func describeEvent(ev progress.Event) string {
	switch ev.Type {
	case progress.TypeStart:
		return fmt.Sprintf("Packaging %d resources", ev.Total)
	case progress.TypeProgress:
		line := fmt.Sprintf("[%d/%d] %s", ev.Current, ev.Total, ev.Item)
		if ev.EtaMs > 0 {
			line += fmt.Sprintf(" (eta %s)", (time.Duration(ev.EtaMs) * time.Millisecond).Round(time.Second))
		}
		return line
	case progress.TypeGenerating:
		return "Finalizing archive"
	default:
		return ""
	}
}
