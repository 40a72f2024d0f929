package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"poolpack/internal/catalog"
	"poolpack/internal/store"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the resource catalog",
	}
	catalogCmd.AddCommand(newCatalogAddCommand(ctx), newCatalogListCommand(ctx), newCatalogRemoveCommand(ctx))
	return catalogCmd
}

func newCatalogAddCommand(ctx *commandContext) *cobra.Command {
	var res catalog.Resource

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or replace a catalog resource",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				if err := st.UpsertResource(cmd.Context(), res); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved resource %s (%s)\n", strings.TrimSpace(res.ID), res.Label())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&res.ID, "id", "", "Resource id")
	cmd.Flags().StringVar(&res.Title, "title", "", "Resource title")
	cmd.Flags().StringVar(&res.Artist, "artist", "", "Artist name")
	cmd.Flags().StringVar(&res.GroupKey, "group", "", "Archive folder the resource is packaged under")
	cmd.Flags().StringVar(&res.URL, "url", "", "Source URL (http, https, data, or file)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				resources, err := st.ListResources(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resources)
				}
				out := cmd.OutOrStdout()
				if len(resources) == 0 {
					fmt.Fprintln(out, "Catalog is empty")
					return nil
				}
				rows := make([][]string, 0, len(resources))
				for _, r := range resources {
					rows = append(rows, []string{r.ID, r.GroupKey, r.Artist, r.Title, truncateURL(r.URL)})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "Group", "Artist", "Title", "URL"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print resources as JSON")
	return cmd
}

func newCatalogRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a catalog resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				removed, err := st.DeleteResource(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("resource %s not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed resource %s\n", args[0])
				return nil
			})
		},
	}
}

func truncateURL(raw string) string {
	const limit = 48
	if len(raw) <= limit {
		return raw
	}
	return raw[:limit-3] + "..."
}
