package commands

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// DefaultAction is used when launch is invoked without an argument.
const DefaultAction = "dashboard"

// launchAction describes one launchable workspace tool.
type launchAction struct {
	Message string
	Tool    string // binary inside the virtual environment
	Args    []string
}

// launchActions maps the accepted action names.
var launchActions = map[string]launchAction{
	"dashboard": {
		Message: "Starting Streamlit dashboard...",
		Tool:    "streamlit",
		Args:    []string{"run", "dashboard/app.py"},
	},
	"notebook": {
		Message: "Starting Jupyter notebook...",
		Tool:    "jupyter",
		Args:    []string{"notebook", "--notebook-dir", "notebooks"},
	},
	"lab": {
		Message: "Starting JupyterLab...",
		Tool:    "jupyter",
		Args:    []string{"lab", "--notebook-dir", "notebooks"},
	},
}

// LaunchOptions holds options for the launch command.
type LaunchOptions struct {
	SkipSetup bool
	Exec      bool
}

// NewLaunchCommand creates the launch command.
func NewLaunchCommand() *cobra.Command {
	opts := &LaunchOptions{}

	cmd := &cobra.Command{
		Use:   "launch [dashboard|notebook|lab]",
		Short: "Launch a project workspace tool",
		Long: `Launch one of the project's workspace tools.

Before dispatching, launch prepares the Python environment: the virtual
environment is created if absent and dependencies are installed from the
requirements file. Use --skip-setup to skip this step.

With no argument, launch starts the dashboard. By default only the start
message is printed; pass --exec to actually spawn the external tool from
the virtual environment.`,
		Example: `  # Start the Streamlit dashboard (default action)
  mixsense launch

  # Start Jupyter notebook
  mixsense launch notebook

  # Start JupyterLab and actually spawn the process
  mixsense launch lab --exec`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.SkipSetup, "skip-setup", false, "Skip virtual environment preparation")
	cmd.Flags().BoolVar(&opts.Exec, "exec", false, "Spawn the external tool instead of only printing the start message")

	return cmd
}

func runLaunch(cmd *cobra.Command, args []string, opts *LaunchOptions) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)

	// Environment preparation happens before the action is validated,
	// matching the launcher script this command replaces.
	if !opts.SkipSetup {
		mgr := newPyenvManager(cmdCtx.Cfg, cmdCtx.Logger)
		if err := mgr.Ensure(cmd.Context()); err != nil {
			return err
		}
	}

	action := DefaultAction
	if len(args) > 0 {
		action = args[0]
	}

	a, ok := launchActions[action]
	if !ok {
		printLaunchUsage(cmdCtx)
		return fmt.Errorf("unknown action: %s", action)
	}

	cmdCtx.Renderer.Println(a.Message)

	if !opts.Exec {
		return nil
	}
	return spawnTool(cmd, cmdCtx, a)
}

// printLaunchUsage writes the action usage block to standard output.
func printLaunchUsage(cmdCtx *CommandContext) {
	r := cmdCtx.Renderer
	r.Println("Usage: mixsense launch [dashboard|notebook|lab]")
	r.Println("  dashboard  Start the Streamlit dashboard (default)")
	r.Println("  notebook   Start Jupyter notebook")
	r.Println("  lab        Start JupyterLab")
}

// spawnTool runs the external tool from the virtual environment,
// inheriting standard streams, and blocks until it exits.
func spawnTool(cmd *cobra.Command, cmdCtx *CommandContext, a launchAction) error {
	mgr := newPyenvManager(cmdCtx.Cfg, cmdCtx.Logger)
	bin := mgr.BinPath(a.Tool)
	if _, err := os.Stat(bin); os.IsNotExist(err) {
		return fmt.Errorf("%s not found in virtual environment (looked for %s); run 'mixsense setup' first", a.Tool, bin)
	}

	proc := exec.CommandContext(cmd.Context(), bin, a.Args...)
	proc.Dir = cmdCtx.Cfg.ProjectRoot
	proc.Stdin = os.Stdin
	proc.Stdout = cmd.OutOrStdout()
	proc.Stderr = cmd.ErrOrStderr()

	cmdCtx.Logger.Info("spawning tool", "bin", bin, "args", a.Args)
	if err := proc.Run(); err != nil {
		return fmt.Errorf("%s exited with error: %w", a.Tool, err)
	}
	return nil
}
