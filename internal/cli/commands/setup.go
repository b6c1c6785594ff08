package commands

import (
	"github.com/spf13/cobra"
)

// NewSetupCommand creates the setup command.
func NewSetupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Prepare the Python virtual environment",
		Long: `Prepare the project's Python environment.

Creates the virtual environment directory if it does not exist, then
installs dependencies from the requirements file. Failures of either
step are reported with the underlying command output.`,
		Example: `  # Create venv/ and install requirements.txt
  mixsense setup`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContextWithoutEngine(cmd)
			r := cmdCtx.Renderer

			mgr := newPyenvManager(cmdCtx.Cfg, cmdCtx.Logger)

			if mgr.VenvExists() {
				r.Println("Virtual environment already exists: " + mgr.VenvDir)
			} else {
				r.Println("Creating virtual environment: " + mgr.VenvDir)
			}

			if err := mgr.Ensure(cmd.Context()); err != nil {
				return err
			}

			r.Success("Python environment ready")
			return nil
		},
	}

	return cmd
}
