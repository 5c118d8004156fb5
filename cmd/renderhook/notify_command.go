package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"renderhook/internal/events"
	"renderhook/internal/render"
	"renderhook/internal/runctx"
)

type notifyOptions struct {
	project      string
	first        int
	current      int
	last         int
	errorMessage string
	fields       []string
	job          string
	strict       bool
}

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	opts := notifyOptions{}

	cmd := &cobra.Command{
		Use:   "notify <event>",
		Short: "Send a single lifecycle notification",
		Long: `Send one notification for a render driven by another tool.

The event is one of start, progress, complete, cancel or error. Frame flags
default to the [render] frame range; --current defaults to --first. Passing
--error with the cancel event reports an error instead, matching how a
cancelled render with a failure message is handled during "renderhook run".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := events.Parse(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			extra, err := parseFields(opts.fields)
			if err != nil {
				return err
			}

			first := cfg.Render.FrameStart
			if cmd.Flags().Changed("first") {
				first = opts.first
			}
			last := cfg.Render.FrameEnd
			if cmd.Flags().Changed("last") {
				last = opts.last
			}
			current := first
			if cmd.Flags().Changed("current") {
				current = opts.current
			}
			if first > last {
				return fmt.Errorf("--first (%d) must not exceed --last (%d)", first, last)
			}
			source := render.Static{Project: opts.project, First: first, Current: current, Last: last}

			recorder := &lastDeliveryRecorder{}
			dispatcher, cleanup, err := ctx.openDispatcher(cmd.Context(), source, recorder)
			if err != nil {
				return err
			}

			job := strings.TrimSpace(opts.job)
			if job == "" {
				job = render.ProjectName(opts.project)
			}
			runCtx := runctx.WithJob(cmd.Context(), job)

			errorMessage := strings.TrimSpace(opts.errorMessage)
			switch kind {
			case events.Cancel:
				render.NewHooks(withExtra(dispatcher, extra)).OnRenderCancelOrError(runCtx, errorMessage)
			case events.Error:
				if errorMessage != "" {
					extra[render.ErrorMessageKey] = errorMessage
				}
				dispatcher.Notify(runCtx, kind, extra)
			default:
				dispatcher.Notify(runCtx, kind, extra)
			}
			cleanup()

			delivery, count := recorder.snapshot()
			if count == 0 {
				return errors.New("notification was not attempted")
			}
			out := cmd.OutOrStdout()
			if delivery.Outcome.Success() {
				fmt.Fprintf(out, "Delivered %s to %s (%d)\n", delivery.Event, delivery.URL, delivery.Outcome.StatusCode)
				return nil
			}
			fmt.Fprintf(out, "Notification %s to %s failed: %s\n", delivery.Event, delivery.URL, delivery.Outcome.Message())
			if opts.strict {
				return fmt.Errorf("webhook delivery failed (%s)", delivery.Outcome.Kind)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "Project file being rendered")
	cmd.Flags().IntVar(&opts.first, "first", 0, "First frame of the job")
	cmd.Flags().IntVar(&opts.current, "current", 0, "Frame currently rendered")
	cmd.Flags().IntVar(&opts.last, "last", 0, "Last frame of the job")
	cmd.Flags().StringVar(&opts.errorMessage, "error", "", "Failure message (turns cancel into error)")
	cmd.Flags().StringArrayVarP(&opts.fields, "field", "f", nil, "Extra payload field as key=value (repeatable; JSON values are decoded)")
	cmd.Flags().StringVar(&opts.job, "job", "", "Job name used in logs (defaults to the project file name)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Exit non-zero when the webhook rejects or misses the notification")
	return cmd
}

// parseFields turns key=value flags into payload fields. Values that parse as
// JSON (numbers, booleans, objects) keep their type; anything else is sent as
// a string.
func parseFields(raw []string) (map[string]any, error) {
	fields := make(map[string]any, len(raw))
	for _, entry := range raw {
		key, value, ok := strings.Cut(entry, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --field %q (expected key=value)", entry)
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			fields[key] = decoded
			continue
		}
		fields[key] = value
	}
	return fields, nil
}

// extraNotifier merges fixed fields into every notification it forwards.
type extraNotifier struct {
	next  render.Notifier
	extra map[string]any
}

func withExtra(next render.Notifier, extra map[string]any) render.Notifier {
	if len(extra) == 0 {
		return next
	}
	return extraNotifier{next: next, extra: extra}
}

func (n extraNotifier) Notify(ctx context.Context, kind events.Kind, extra map[string]any) {
	merged := make(map[string]any, len(n.extra)+len(extra))
	for k, v := range n.extra {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	n.next.Notify(ctx, kind, merged)
}
