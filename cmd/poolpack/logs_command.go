package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"poolpack/internal/logging"
	"poolpack/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var grep []string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.CurrentLogName)
			out := cmd.OutOrStdout()
			match := logs.Contains(grep...)
			emit := func(line string) {
				fmt.Fprintln(out, line)
			}

			if follow {
				return logs.Follow(cmd.Context(), path, lines, match, emit)
			}
			res, err := logs.Tail(cmd.Context(), path, logs.Options{Offset: -1, Limit: lines})
			if err != nil {
				return err
			}
			if len(res.Lines) == 0 && res.Offset == 0 {
				fmt.Fprintf(out, "No log output yet at %s\n", path)
				return nil
			}
			for _, line := range res.Lines {
				if match == nil || match(line) {
					emit(line)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringSliceVar(&grep, "grep", nil, "Only show lines containing this text (repeatable)")
	return cmd
}
