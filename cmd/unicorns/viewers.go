package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/alfredjeanlab/unicorns/internal/presence"
	"github.com/alfredjeanlab/unicorns/internal/ui"
	"github.com/spf13/cobra"
)

var viewersStale time.Duration

var viewersCmd = &cobra.Command{
	Use:     "viewers",
	Short:   "List clients viewing the served session",
	GroupID: "dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		viewers, err := dashClient.Viewers(context.Background(), viewersStale)
		if err != nil {
			return fmt.Errorf("listing viewers: %w", err)
		}
		if jsonOutput {
			return printJSON(viewers)
		}
		printViewers(os.Stdout, viewers)
		return nil
	},
}

func init() {
	viewersCmd.Flags().DurationVar(&viewersStale, "stale", 15*time.Minute, "hide viewers idle longer than this (0 = show all)")
}

func printViewers(w io.Writer, viewers []presence.Entry) {
	var rows [][]string
	for _, v := range viewers {
		status := ui.StatusIcon(!v.Reaped)
		idle := (time.Duration(v.IdleSecs) * time.Second).String()
		if v.Streams > 0 {
			idle = "streaming"
		}
		rows = append(rows, []string{status, v.Viewer, idle, strconv.FormatInt(v.RequestCount, 10), v.LastRequest})
	}
	ui.Table(w, []string{"", "Viewer", "Idle", "Requests", "Last request"}, rows)
}
