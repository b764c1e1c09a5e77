package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alfredjeanlab/unicorns/internal/events"
	"github.com/alfredjeanlab/unicorns/internal/ui"
	"github.com/spf13/cobra"
)

var emitCmd = &cobra.Command{
	Use:   "emit <topic> [json | key=value...]",
	Short: "Emit an event on the served session's bus",
	Long: `Emit an event on the served session's bus.

The payload is either one JSON object or a list of key=value pairs. Values
that parse as JSON keep their type, anything else is sent as a string:

  unicorns emit toggleIndustry industry=Health
  unicorns emit updateYearFilter range=[2015,2020]
  unicorns emit selectItem '{"id":"Stripe"}'
  unicorns emit clearSelectedItem`,
	GroupID: "dashboard",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := args[0]
		payload, err := parseEmitPayload(topic, args[1:])
		if err != nil {
			return err
		}

		var body any
		if payload != nil {
			body = payload
		}
		res, err := dashClient.Emit(context.Background(), topic, body)
		if err != nil {
			return fmt.Errorf("emitting %s: %w", topic, err)
		}
		if jsonOutput {
			return printJSON(res)
		}
		fmt.Printf("%s Emitted %s\n", ui.StatusIcon(res.Failures == 0), ui.RenderCommand(topic))
		if res.Failures > 0 {
			fmt.Printf("  %d handler failure(s); see the server log\n", res.Failures)
		}
		fmt.Println()
		printState(os.Stdout, &res.State)
		return nil
	},
}

// parseEmitPayload builds and validates the payload for topic. The result
// is the canonical JSON encoding of the typed event, or nil when the event
// carries no fields.
func parseEmitPayload(topic string, args []string) (json.RawMessage, error) {
	if !events.IsKnown(topic) {
		return nil, fmt.Errorf("unknown topic %q (known: %s)", topic, strings.Join(events.Topics, ", "))
	}

	var raw []byte
	switch {
	case len(args) == 0:
	case len(args) == 1 && strings.HasPrefix(strings.TrimSpace(args[0]), "{"):
		raw = []byte(args[0])
	default:
		fields := make(map[string]json.RawMessage, len(args))
		for _, arg := range args {
			k, v, ok := strings.Cut(arg, "=")
			if !ok || k == "" {
				return nil, fmt.Errorf("invalid field %q (want key=value)", arg)
			}
			if json.Valid([]byte(v)) {
				fields[k] = json.RawMessage(v)
			} else {
				quoted, _ := json.Marshal(v)
				fields[k] = quoted
			}
		}
		var err error
		if raw, err = json.Marshal(fields); err != nil {
			return nil, fmt.Errorf("encoding payload: %w", err)
		}
	}

	evt, err := events.Decode(topic, raw)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	if string(out) == "{}" {
		return nil, nil
	}
	return out, nil
}
