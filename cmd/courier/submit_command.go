package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"courier/internal/queueaccess"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var dataPairs []string
	var payloadJSON string

	cmd := &cobra.Command{
		Use:   "submit <action-type>",
		Short: "Queue an action for delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actionType := strings.TrimSpace(args[0])
			if actionType == "" {
				return errors.New("action type must not be empty")
			}

			payload, err := buildPayload(dataPairs, payloadJSON)
			if err != nil {
				return err
			}

			return ctx.withQueue(cmd.Context(), func(session queueaccess.Session) error {
				item, err := session.Access.Submit(cmd.Context(), actionType, payload)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, item)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Queued %s (item %s)\n", item.ActionType, item.ID)
				if session.Direct {
					fmt.Fprintln(out, "Agent not running; the action replays when the agent starts")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVarP(&dataPairs, "data", "d", nil, "Payload field as key=value (repeatable)")
	cmd.Flags().StringVar(&payloadJSON, "payload", "", "Payload as a JSON object")
	return cmd
}

func buildPayload(dataPairs []string, payloadJSON string) (map[string]any, error) {
	payloadJSON = strings.TrimSpace(payloadJSON)
	if payloadJSON != "" && len(dataPairs) > 0 {
		return nil, errors.New("specify only one of --data or --payload")
	}

	if payloadJSON != "" {
		var payload map[string]any
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return nil, fmt.Errorf("parse payload JSON: %w", err)
		}
		return payload, nil
	}

	if len(dataPairs) == 0 {
		return nil, nil
	}
	payload := make(map[string]any, len(dataPairs))
	for _, pair := range dataPairs {
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid data pair %q (want key=value)", pair)
		}
		payload[key] = value
	}
	return payload, nil
}
