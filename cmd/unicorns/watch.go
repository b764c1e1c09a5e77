package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alfredjeanlab/unicorns/internal/client"
	"github.com/alfredjeanlab/unicorns/internal/events"
	"github.com/alfredjeanlab/unicorns/internal/ui"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var (
	watchTopics      []string
	watchLastEventID string
	watchNATSURL     string
	watchSubject     string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream frames and bus events from the served session",
	Long: `Stream frames and bus events from the served session.

By default events are read from the server's SSE endpoint. Topic patterns
accept "*" for one segment and ">" for the rest, e.g. --topics 'events.>'.
With --nats the mirrored bus events are read from NATS instead.`,
	GroupID: "dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if watchNATSURL != "" {
			return watchNATS(ctx, watchNATSURL, watchSubject, os.Stdout)
		}
		req := &client.StreamRequest{Topics: watchTopics, LastEventID: watchLastEventID}
		return dashClient.Stream(ctx, req, func(e client.StreamEvent) error {
			printStreamEvent(os.Stdout, e.Topic, e.Data)
			return nil
		})
	},
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchTopics, "topics", nil, "topic patterns to receive (default all)")
	watchCmd.Flags().StringVar(&watchLastEventID, "last-event-id", "", "resume after this event id")
	watchCmd.Flags().StringVar(&watchNATSURL, "nats", os.Getenv("UNICORNS_NATS_URL"), "read mirrored events from this NATS server")
	watchCmd.Flags().StringVar(&watchSubject, "subject", events.SubjectPrefix+">", "NATS subject to subscribe to")
}

// watchNATS prints mirrored bus events until ctx is done.
func watchNATS(ctx context.Context, natsURL, subject string, w io.Writer) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(subject)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			printStreamEvent(w, msg.Topic, msg.Data)
		}
	}
}

// printStreamEvent writes one event as a line of JSON or a short summary.
func printStreamEvent(w io.Writer, topic string, data []byte) {
	if jsonOutput {
		line, err := json.Marshal(struct {
			Topic string          `json:"topic"`
			Data  json.RawMessage `json:"data,omitempty"`
		}{topic, json.RawMessage(data)})
		if err != nil {
			fmt.Fprintf(w, "{\"topic\":%q}\n", topic)
			return
		}
		fmt.Fprintln(w, string(line))
		return
	}
	fmt.Fprintf(w, "%s %s\n", ui.RenderAccent(topic), summarizePayload(data))
}

// summarizePayload shortens large payloads such as frames.
func summarizePayload(data []byte) string {
	const limit = 120
	s := strings.TrimSpace(string(data))
	if len(s) > limit {
		return s[:limit] + ui.RenderMuted("…")
	}
	return s
}
