package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newArtifactsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "List live archives held by the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			artifacts, err := client.Artifacts(cmd.Context())
			if err != nil {
				return wrapDaemonError(err)
			}
			if asJSON {
				return writeJSON(cmd, artifacts)
			}
			out := cmd.OutOrStdout()
			if len(artifacts) == 0 {
				fmt.Fprintln(out, "No live artifacts")
				return nil
			}
			rows := make([][]string, 0, len(artifacts))
			for _, a := range artifacts {
				rows = append(rows, []string{
					a.Locator,
					a.Filename,
					strconv.Itoa(a.Entries),
					formatBytes(a.Size),
					(time.Duration(a.AgeSeconds) * time.Second).String(),
					a.ExpiresAt,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Locator", "Filename", "Entries", "Size", "Age", "Expires"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print artifacts as JSON")
	return cmd
}
