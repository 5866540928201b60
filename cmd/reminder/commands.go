package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"assetloan-backend/internal/app"
	"assetloan-backend/internal/domain/loan"
	"assetloan-backend/internal/usecase/reminder"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var offset int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Send every reminder that is due today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := reminder.SweepInput{DryRun: dryRun}
			if cmd.Flags().Changed("offset") {
				if offset < -30 || offset > 7 {
					return fmt.Errorf("--offset must be between -30 and 7, got %d", offset)
				}
				in.TestOffset = &offset
			}
			return ctx.withApp(func(a *app.App) error {
				res, err := a.Scheduler.RunSweep(cmd.Context(), in)
				if err != nil {
					return err
				}
				return writeJSON(cmd, res)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report due reminders without sending")
	cmd.Flags().IntVar(&offset, "offset", 0, "Treat every loan as this many days before due")
	return cmd
}

func newTriggerCommand(ctx *commandContext) *cobra.Command {
	var by string

	cmd := &cobra.Command{
		Use:   "trigger <loan-id> <offset-token>",
		Short: "Send one reminder now, e.g. trigger LN-1 3_days",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				res, err := a.Scheduler.TriggerManual(cmd.Context(), args[0], args[1], by)
				if err != nil {
					return err
				}
				return writeJSON(cmd, map[string]any{
					"loanId":      args[0],
					"reminderKey": res.Key,
					"sent":        res.Sent,
				})
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", "cli", "Actor recorded as the requester")
	return cmd
}

func newReplayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <loan-id> <event> [ref]",
		Short: "Re-send the notifications of one event that are still unsent",
		Long: "Re-send the ledger entries of one event that are still sent:false.\n" +
			"Events: submit, approval, warehouse, extend_request, extend_decision,\n" +
			"return_request, return_decision, reminder. The last four and reminder\n" +
			"need the entry id or reminder key as ref.",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := loan.ParseEvent(args[1])
			if err != nil {
				return err
			}
			slot := loan.LedgerSlot{Event: ev}
			if len(args) == 3 {
				slot.Ref = args[2]
			}
			return ctx.withApp(func(a *app.App) error {
				res, err := a.Replayer.Replay(cmd.Context(), args[0], slot)
				if err != nil {
					return err
				}
				return writeJSON(cmd, res)
			})
		},
	}
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
