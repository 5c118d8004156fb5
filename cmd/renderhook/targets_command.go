package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"renderhook/internal/events"
	"renderhook/internal/webhook"
)

func newTargetsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "Show the webhook URL used for each event",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			targets, err := webhook.TargetsFromConfig(cfg)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(events.All()))
			for _, kind := range events.All() {
				rows = append(rows, []string{eventLabel(kind), http.MethodPut, targets.URL(kind)})
			}

			out := cmd.OutOrStdout()
			if ctx.configExists {
				fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
			} else {
				fmt.Fprintln(out, "Config: defaults (no config file found)")
			}
			fmt.Fprintf(out, "Timeout: %ds  Async: %s\n", cfg.Webhook.RequestTimeout, yesNo(cfg.Webhook.Async))
			fmt.Fprintln(out, renderTable([]string{"Event", "Method", "URL"}, rows, nil))
			return nil
		},
	}
}

func eventLabel(kind events.Kind) string {
	return cases.Title(language.Und).String(kind.String())
}
