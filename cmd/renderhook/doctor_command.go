package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"renderhook/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the webhook endpoint, renderer and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			results := preflight.RunAll(cmd.Context(), cfg)

			for _, line := range renderSectionHeader("renderhook doctor", colorize) {
				fmt.Fprintln(out, line)
			}
			printResults(out, results, colorize)
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}
