package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mixsense-labs/mixsense/internal/cli/output"
	"github.com/mixsense-labs/mixsense/internal/dataset"
	"github.com/mixsense-labs/mixsense/internal/state"
)

// ListOptions holds options for the list command.
type ListOptions struct {
	Select     string
	JSONOutput bool
}

// sessionInfo is one row of the list output.
type sessionInfo struct {
	Recipe      string `json:"recipe"`
	Temperature string `json:"temperature,omitempty"`
	Session     string `json:"session"`
	Labels      bool   `json:"labels"`
	LastStatus  string `json:"last_status,omitempty"`
	LastRows    int64  `json:"last_rows,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered sessions",
		Long: `List the sessions discovered under the data directory.

Each session is shown with its recipe, optional temperature condition,
whether a label file is present, and the outcome of the most recent
pipeline run that touched it.`,
		Example: `  # List all sessions
  mixsense list

  # List sessions of one recipe
  mixsense list --select EggWhitesWhisking

  # Machine-readable listing
  mixsense list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Select, "select", "s", "", "Comma-separated list of sessions or recipes to list")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Output as JSON")

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	sessions, err := cmdCtx.Engine.Discover()
	if err != nil {
		return fmt.Errorf("failed to discover sessions: %w", err)
	}
	sessions = dataset.Filter(sessions, splitSelectors(opts.Select))

	lastRuns := latestSessionRuns(cmdCtx)

	infos := make([]sessionInfo, 0, len(sessions))
	for _, s := range sessions {
		info := sessionInfo{
			Recipe:      s.Recipe,
			Temperature: s.Temperature,
			Session:     s.Name,
			Labels:      s.HasLabels,
		}
		if sr, ok := lastRuns[s.Key()]; ok {
			info.LastStatus = string(sr.Status)
			info.LastRows = sr.Rows
		}
		infos = append(infos, info)
	}

	if opts.JSONOutput {
		return cmdCtx.Renderer.JSON(infos)
	}

	if len(infos) == 0 {
		cmdCtx.Renderer.Println("No sessions found under " + cmdCtx.Cfg.DataDir)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmdCtx.Renderer.Out())
	t.AppendHeader(table.Row{"Recipe", "Temperature", "Session", "Labels", "Last Run", "Rows"})
	for _, info := range infos {
		labels := "-"
		if info.Labels {
			labels = "yes"
		}
		lastRun := info.LastStatus
		if lastRun == "" {
			lastRun = "-"
		}
		rows := "-"
		if info.LastRows > 0 {
			rows = fmt.Sprintf("%d", info.LastRows)
		}
		t.AppendRow(table.Row{info.Recipe, info.Temperature, info.Session, labels, lastRun, rows})
	}
	if cmdCtx.Renderer.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
	} else {
		t.SetStyle(table.StyleLight)
		t.Render()
	}
	cmdCtx.Renderer.Printf("\n%d session(s)\n", len(infos))

	return nil
}

// latestSessionRuns maps session keys to their record in the most recent run.
func latestSessionRuns(cmdCtx *CommandContext) map[string]state.SessionRun {
	result := make(map[string]state.SessionRun)

	store := cmdCtx.Engine.GetStateStore()
	run, err := store.GetLatestRun(cmdCtx.Cfg.Environment)
	if err != nil || run == nil {
		return result
	}
	sessionRuns, err := store.GetSessionRunsForRun(run.ID)
	if err != nil {
		return result
	}
	for _, sr := range sessionRuns {
		result[sr.Session] = *sr
	}
	return result
}
