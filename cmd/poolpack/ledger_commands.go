package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"poolpack/internal/config"
	"poolpack/internal/ledger"
	"poolpack/internal/store"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect usage records",
	}

	var filter store.UsageFilter
	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent deliveries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			records, err := listUsage(cmd.Context(), ctx, cfg, filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No usage recorded")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, u := range records {
				rows = append(rows, []string{
					u.DeliveredAt.Local().Format(time.DateTime),
					u.ConsumerID,
					u.BatchID,
					u.ResourceID,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Delivered", "Consumer", "Batch", "Resource"}, rows, nil))
			return nil
		},
	}
	listCmd.Flags().StringVar(&filter.ConsumerID, "consumer", "", "Only show this consumer")
	listCmd.Flags().StringVar(&filter.BatchID, "batch", "", "Only show this batch")
	listCmd.Flags().IntVar(&filter.Limit, "limit", 50, "Maximum records to show")
	listCmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")

	ledgerCmd.AddCommand(listCmd)
	return ledgerCmd
}

func listUsage(ctx context.Context, cc *commandContext, cfg *config.Config, filter store.UsageFilter) ([]ledger.Usage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Ledger.Backend)) {
	case "", "sqlite":
		var out []ledger.Usage
		err := cc.withStore(func(st *store.Store) error {
			var err error
			out, err = st.ListUsage(ctx, filter)
			return err
		})
		return out, err
	case "redis":
		sink, err := ledger.NewRedisSink(ctx, cfg.Ledger.RedisURL, cfg.Ledger.RedisStream)
		if err != nil {
			return nil, err
		}
		defer sink.Close()
		records, err := sink.List(ctx, filter.Limit)
		if err != nil {
			return nil, err
		}
		return filterUsage(records, filter), nil
	case "none":
		return nil, fmt.Errorf("usage ledger is disabled (ledger.backend = \"none\")")
	default:
		return nil, fmt.Errorf("unsupported ledger backend %q", cfg.Ledger.Backend)
	}
}

// filterUsage applies consumer and batch filters to records read from a
// backend that cannot filter server side.
func filterUsage(records []ledger.Usage, filter store.UsageFilter) []ledger.Usage {
	consumer := strings.TrimSpace(filter.ConsumerID)
	batch := strings.TrimSpace(filter.BatchID)
	if consumer == "" && batch == "" {
		return records
	}
	out := records[:0]
	for _, u := range records {
		if consumer != "" && u.ConsumerID != consumer {
			continue
		}
		if batch != "" && u.BatchID != batch {
			continue
		}
		out = append(out, u)
	}
	return out
}
