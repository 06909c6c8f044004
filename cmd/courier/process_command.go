package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"courier/internal/ipc"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Ask the agent to run one replay sweep now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Process()
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, resp.Summary)
				}

				out := cmd.OutOrStdout()
				summary := resp.Summary
				if summary.Handled == 0 {
					if status, statusErr := client.Status(); statusErr == nil && status.Offline {
						fmt.Fprintln(out, "Agent is offline; actions stay queued until the connection returns")
						return nil
					}
					fmt.Fprintln(out, "No pending actions to process")
					return nil
				}

				fmt.Fprintf(out, "Processed %d actions: %d delivered, %d retried, %d failed\n",
					summary.Handled,
					summary.Delivered,
					summary.Retried,
					summary.Failed,
				)
				rows := make([][]string, 0, len(summary.Outcomes))
				for _, outcome := range summary.Outcomes {
					if outcome.Skipped {
						continue
					}
					rows = append(rows, []string{
						outcome.ItemID,
						outcome.ActionType,
						formatStatusLabel(outcome.Status),
						fmt.Sprintf("%d", outcome.Attempts),
						outcome.Error,
					})
				}
				if len(rows) > 0 {
					table := renderTable(
						[]string{"ID", "Action", "Status", "Attempts", "Error"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
					)
					fmt.Fprintln(out, table)
				}
				return nil
			})
		},
	}
}
