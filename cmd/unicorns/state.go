package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alfredjeanlab/unicorns/internal/client"
	"github.com/alfredjeanlab/unicorns/internal/model"
	"github.com/alfredjeanlab/unicorns/internal/ui"
	"github.com/alfredjeanlab/unicorns/internal/view"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:     "state",
	Short:   "Show the filter state of the served session",
	GroupID: "dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := dashClient.State(context.Background())
		if err != nil {
			return fmt.Errorf("getting state: %w", err)
		}
		if jsonOutput {
			return printJSON(st)
		}
		printState(os.Stdout, st)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:     "search <text>",
	Short:   "Search the network view for a company or investor",
	GroupID: "dashboard",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := dashClient.Search(context.Background(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}
		if jsonOutput {
			return printJSON(res)
		}
		if res.Selected != "" {
			fmt.Printf("%s Selected %s\n", ui.StatusIcon(true), ui.RenderAccent(res.Selected))
		} else {
			fmt.Printf("%s %s\n", ui.StatusIcon(false), res.Feedback)
		}
		return nil
	},
}

var scaleCmd = &cobra.Command{
	Use:     "scale <view> <log|linear>",
	Short:   "Switch the size scale of a view",
	GroupID: "dashboard",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := view.ParseScaleType(args[1])
		if err != nil {
			return err
		}
		f, err := dashClient.SetScale(context.Background(), view.Name(args[0]), t)
		if err != nil {
			return fmt.Errorf("setting scale: %w", err)
		}
		if jsonOutput {
			return printJSON(f)
		}
		fmt.Printf("%s %s now uses a %s scale\n", ui.StatusIcon(true), f.View, f.Scale)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the dashboard server",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := dashClient.Health(context.Background())
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}
		if jsonOutput {
			if err := printJSON(map[string]string{"status": status}); err != nil {
				return err
			}
		} else {
			fmt.Printf("Health: %s\n", status)
		}
		if status != "ok" {
			return fmt.Errorf("unhealthy: %s", status)
		}
		return nil
	},
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printState(w io.Writer, st *client.State) {
	selected := st.Filter.Selected
	if selected == "" {
		selected = ui.RenderMuted("(none)")
	}
	fmt.Fprintf(w, "Session:     %s\n", st.Session)
	fmt.Fprintf(w, "Industries:  %s\n", formatIndustries(st.Filter.Industries))
	fmt.Fprintf(w, "Years:       %d-%d %s\n", st.Filter.Years.Start(), st.Filter.Years.End(),
		ui.RenderMuted(fmt.Sprintf("(of %d-%d)", st.Extent.Start(), st.Extent.End())))
	fmt.Fprintf(w, "Selected:    %s\n", selected)
	if st.Failures > 0 {
		fmt.Fprintf(w, "Failures:    %s\n", ui.Bad.Sprint(st.Failures))
	}
}

// formatIndustries lists the active labels, or a marker for all or none.
func formatIndustries(s model.IndustrySet) string {
	switch len(s) {
	case 0:
		return ui.RenderMuted("(none)")
	case len(model.Industries()):
		return "all"
	}
	labels := make([]string, 0, len(s))
	for _, ind := range s.Ordered() {
		labels = append(labels, string(ind))
	}
	return strings.Join(labels, ", ")
}
