package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mixsense-labs/mixsense/internal/cli/output"
	"github.com/mixsense-labs/mixsense/internal/state"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Select     string
	Watch      bool
	JSONOutput bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Preprocess sessions and engineer features",
		Long: `Execute the preprocessing pipeline over recorded sessions.

By default, all discovered sessions are processed. Use --select to limit
the run to specific sessions or whole recipes. Processed CSVs are written
to the processed data directory, mirroring the session tree.`,
		Example: `  # Process all sessions
  mixsense run

  # Process one recipe
  mixsense run --select WhippingCream

  # Process one session, re-running on changes
  mixsense run --select EggWhitesWhisking/Cold/session_01 --watch

  # JSON lines output for CI integration
  mixsense run --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Select, "select", "s", "", "Comma-separated list of sessions or recipes to process")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-run when session files change")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Output as JSON lines for progress tracking")

	return cmd
}

func splitSelectors(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	selectors := splitSelectors(opts.Select)
	ctx := cmd.Context()

	sessions, err := eng.Discover()
	if err != nil {
		return fmt.Errorf("failed to discover sessions: %w", err)
	}
	if !opts.JSONOutput {
		cmdCtx.Renderer.Printf("Found %d sessions\n", len(sessions))
	}

	report := func(run *state.Run, runErr error) {
		reportRun(cmdCtx, opts, run, runErr)
	}

	startTime := time.Now()
	run, runErr := eng.Run(ctx, selectors)
	report(run, runErr)
	if !opts.JSONOutput {
		cmdCtx.Renderer.Printf("Completed in %s\n", time.Since(startTime).Round(time.Millisecond))
	}

	if opts.Watch {
		if watchErr := eng.Watch(ctx, selectors, report); watchErr != nil && ctx.Err() == nil {
			return watchErr
		}
		return nil
	}

	return runErr
}

// reportRun reports one run outcome. Watch mode can fail before a run
// record exists (a broken re-discovery, say), in which case only the
// error is reported.
func reportRun(cmdCtx *CommandContext, opts *RunOptions, run *state.Run, runErr error) {
	if run == nil {
		if runErr != nil {
			cmdCtx.Renderer.Error(fmt.Sprintf("run failed: %v", runErr))
		}
		return
	}
	if opts.JSONOutput {
		reportJSON(cmdCtx, run)
	} else {
		reportText(cmdCtx, run)
	}
}

// reportText prints a human-readable run summary.
func reportText(cmdCtx *CommandContext, run *state.Run) {
	r := cmdCtx.Renderer
	r.Printf("Run %s: %s\n", run.ID, run.Status)
	if run.Error != "" {
		r.Printf("Error: %s\n", run.Error)
	}

	sessionRuns, err := cmdCtx.Engine.GetStateStore().GetSessionRunsForRun(run.ID)
	if err != nil {
		return
	}
	for _, sr := range sessionRuns {
		note := fmt.Sprintf("%d rows, %dms", sr.Rows, sr.IngestMS+sr.ProcessMS)
		if sr.Error != "" {
			note = sr.Error
		}
		r.StatusLine(sr.Session, string(sr.Status), note)
	}
}

// reportJSON emits the run as JSON-lines events.
func reportJSON(cmdCtx *CommandContext, run *state.Run) {
	emitRunEvent(cmdCtx, output.RunEvent{
		Event:       "run_start",
		RunID:       run.ID,
		Environment: run.Environment,
	})

	var successful, failed int
	sessionRuns, err := cmdCtx.Engine.GetStateStore().GetSessionRunsForRun(run.ID)
	if err == nil {
		for _, sr := range sessionRuns {
			switch sr.Status {
			case state.SessionRunStatusSuccess:
				successful++
			case state.SessionRunStatusFailed:
				failed++
			}
			emitRunEvent(cmdCtx, output.RunEvent{
				Event:     "session_complete",
				RunID:     run.ID,
				Session:   sr.Session,
				Status:    string(sr.Status),
				Rows:      sr.Rows,
				IngestMS:  sr.IngestMS,
				ProcessMS: sr.ProcessMS,
				Error:     sr.Error,
			})
		}
	}

	var totalMS int64
	if run.CompletedAt != nil {
		totalMS = run.CompletedAt.Sub(run.StartedAt).Milliseconds()
	}
	emitRunEvent(cmdCtx, output.RunEvent{
		Event:      "run_complete",
		RunID:      run.ID,
		Status:     string(run.Status),
		Total:      len(sessionRuns),
		Successful: successful,
		Failed:     failed,
		TotalMS:    totalMS,
	})
}

// emitRunEvent outputs a run event as a JSON line.
func emitRunEvent(cmdCtx *CommandContext, event output.RunEvent) {
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, _ := json.Marshal(event)
	cmdCtx.Renderer.Println(string(data))
}
