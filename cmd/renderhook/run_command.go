package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"renderhook/internal/logging"
	"renderhook/internal/render"
	"renderhook/internal/runctx"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		first   int
		last    int
		timeout int
		noLock  bool
	)

	cmd := &cobra.Command{
		Use:   "run <project> [-- renderer args...]",
		Short: "Render a project and report its lifecycle to the webhook",
		Long: `Launch the configured renderer for a project and send start, progress,
complete, cancel and error notifications as the render advances.

By default the renderer is invoked as "<binary> -b <project> -s <first> -e <last> -a".
Arguments after "--" replace that command line entirely; the first of them is
the binary. Only one run per project file may be active at a time.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			project := args[0]
			var explicit []string
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				if dash != 1 {
					return fmt.Errorf("expected exactly one project before --, got %d", dash)
				}
				explicit = args[dash:]
			} else if len(args) > 1 {
				return fmt.Errorf("unexpected arguments %v (pass renderer arguments after --)", args[1:])
			}

			if !cmd.Flags().Changed("first") {
				first = cfg.Render.FrameStart
			}
			if !cmd.Flags().Changed("last") {
				last = cfg.Render.FrameEnd
			}
			if !cmd.Flags().Changed("timeout") {
				timeout = cfg.Render.Timeout
			}
			if first > last {
				return fmt.Errorf("--first (%d) must not exceed --last (%d)", first, last)
			}

			tracker := render.NewTracker(project, first, last)
			dispatcher, cleanup, err := ctx.openDispatcher(cmd.Context(), tracker, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			runCtx = runctx.WithJob(runCtx, render.ProjectName(project))
			runCtx = runctx.WithRunID(runCtx, uuid.NewString())

			opts := []render.Option{
				render.WithLogger(logging.WithContext(runCtx, logger)),
			}
			if len(explicit) > 0 {
				opts = append(opts, render.WithCommand(explicit))
			}
			if !noLock {
				opts = append(opts, render.WithLock(cfg.LockPath(project)))
			}

			runner, err := render.NewRunner(cfg.Render.Binary, timeout, render.NewHooks(dispatcher), tracker, opts...)
			if err != nil {
				return err
			}
			if err := runner.Run(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s (frames %d-%d)\n", render.ProjectName(project), first, last)
			return nil
		},
	}

	cmd.Flags().IntVar(&first, "first", 0, "First frame (defaults to render.frame_start)")
	cmd.Flags().IntVar(&last, "last", 0, "Last frame (defaults to render.frame_end)")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "Render timeout in seconds, 0 disables (defaults to render.timeout)")
	cmd.Flags().BoolVar(&noLock, "no-lock", false, "Allow concurrent runs of the same project")
	return cmd
}
