package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"poolpack/internal/api"
	"poolpack/internal/daemonctl"
	"poolpack/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, artifact and configuration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}

			reqCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			status, statusErr := client.Status(reqCtx)
			if statusErr != nil && !errors.Is(statusErr, daemonctl.ErrUnreachable) {
				return statusErr
			}

			if asJSON {
				if status == nil {
					status = &api.StatusResponse{Checks: api.FromChecks(preflight.RunAll(reqCtx, cfg))}
				}
				return writeJSON(cmd, status)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			printSection(stdout, "Daemon", colorize)
			switch {
			case status == nil:
				fmt.Fprintln(stdout, renderStatusLine("Poolpack", statusError, "Not running", colorize))
			case !status.Running:
				fmt.Fprintln(stdout, renderStatusLine("Poolpack", statusWarn, "API reachable, daemon stopped", colorize))
			default:
				fmt.Fprintln(stdout, renderStatusLine("Poolpack", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Started", statusInfo, status.StartedAt, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Live artifacts", statusInfo, fmt.Sprintf("%d", status.Artifacts), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Artifact TTL", statusInfo, (time.Duration(status.TTLSeconds)*time.Second).String(), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Ledger", statusInfo, status.LedgerBackend, colorize))
			}
			fmt.Fprintln(stdout)

			printSection(stdout, "Checks", colorize)
			var results []preflight.Result
			if status != nil {
				for _, c := range status.Checks {
					results = append(results, preflight.Result{Name: c.Name, Passed: c.Passed, Detail: c.Detail})
				}
			} else {
				results = preflight.RunAll(reqCtx, cfg)
			}
			for _, line := range checkLines(results, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			printSection(stdout, "Paths", colorize)
			fmt.Fprintln(stdout, renderStatusLine("Artifacts", statusInfo, cfg.Paths.ArtifactDir, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Data", statusInfo, cfg.Paths.DataDir, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Logs", statusInfo, cfg.Paths.LogDir, colorize))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	return cmd
}

func printSection(w io.Writer, title string, colorize bool) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(w, line)
	}
}
