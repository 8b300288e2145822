package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/go-drift/present/cmd/present/internal/replay"
)

func newReplayCmd(opts *globalOptions) *cobra.Command {
	var (
		events  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "replay SCRIPT",
		Short: "Run a presentation script and print the resulting stack",
		Long: `Run a presentation script against in-memory controllers and views.

The steps, the final stack and every presented handle are printed. A failed
expect step stops the replay; what was observed up to that point is still
printed and the command exits with code 2.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := replay.Load(args[0])
			if err != nil {
				return err
			}
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			res, runErr := replay.Run(ctx, s, cfg, log.WithName("replay"))
			if res != nil {
				printResult(newRenderer(cmd.OutOrStdout(), opts.noColor), res, events)
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&events, "events", false, "Print the controller events in order")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Abort the replay after this long")
	return cmd
}

func printResult(r *renderer, res *replay.Result, events bool) {
	steps := make([]table.Row, 0, len(res.Steps))
	for _, s := range res.Steps {
		steps = append(steps, table.Row{s.Index, s.Action, s.Detail})
	}
	r.table("Steps", table.Row{"#", "Action", "Detail"}, steps)

	r.stack(res.Stack)

	handles := make([]table.Row, 0, len(res.Handles))
	for _, h := range res.Handles {
		result := "-"
		switch {
		case h.Err != nil:
			result = h.Err.Error()
		case h.Value != nil:
			result = fmt.Sprint(h.Value)
		}
		handles = append(handles, table.Row{h.Alias, fmt.Sprintf("%s#%d", h.Name, h.ID), r.status(h.Status), result})
	}
	r.table("Handles", table.Row{"Alias", "Node", "Status", "Result"}, handles)

	if events {
		fmt.Fprintln(r.out, "Events:")
		for _, e := range res.Events {
			fmt.Fprintf(r.out, "  %s\n", e)
		}
	}
	if len(res.Errors) > 0 {
		r.fail("Errors:")
		for _, e := range res.Errors {
			fmt.Fprintf(r.out, "  %s\n", e)
		}
	}
}
