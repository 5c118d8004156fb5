package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"renderhook/internal/history"
	"renderhook/internal/webhook"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var prune bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent webhook deliveries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.History.Path); errors.Is(err, os.ErrNotExist) {
				if cfg.History.Enabled {
					fmt.Fprintln(out, "No deliveries recorded yet")
				} else {
					fmt.Fprintln(out, "Delivery history is disabled (set enabled = true in [history])")
				}
				return nil
			}

			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if prune {
				if cfg.History.RetentionDays <= 0 {
					fmt.Fprintln(out, "Nothing pruned: history.retention_days is 0 (keep forever)")
				} else {
					removed, err := store.PruneRetention(cmd.Context(), cfg.History.RetentionDays, time.Now())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Pruned %d entries older than %d days\n", removed, cfg.History.RetentionDays)
				}
			}

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No deliveries recorded yet")
				return nil
			}

			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.StartedAt.Local().Format("2006-01-02 15:04:05"),
					eventLabel(entry.Event),
					outcomeLabel(entry.Outcome, colorize),
					statusCodeLabel(entry.StatusCode),
					entry.Duration.String(),
					entry.Message,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Time", "Event", "Outcome", "Status", "Duration", "Message"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, summarizeOutcomes(stats))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of deliveries to show (0 for all)")
	cmd.Flags().BoolVar(&prune, "prune", false, "Apply history.retention_days before listing")
	return cmd
}

func outcomeLabel(kind webhook.OutcomeKind, colorize bool) string {
	status := statusError
	if kind == webhook.OutcomeSuccess {
		status = statusOK
	}
	return colorizeText(string(kind), status, colorize)
}

func statusCodeLabel(code int) string {
	if code == 0 {
		return "-"
	}
	return strconv.Itoa(code)
}

// summarizeOutcomes renders per-outcome totals across the whole journal.
func summarizeOutcomes(stats map[webhook.OutcomeKind]int) string {
	kinds := []webhook.OutcomeKind{
		webhook.OutcomeSuccess,
		webhook.OutcomeStatus,
		webhook.OutcomeTransport,
		webhook.OutcomeInternal,
	}
	total := 0
	parts := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		total += stats[kind]
		parts = append(parts, fmt.Sprintf("%s %d", kind, stats[kind]))
	}
	return fmt.Sprintf("Total %d: %s", total, strings.Join(parts, ", "))
}
