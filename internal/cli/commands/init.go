package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new mixsense project",
		Long: `Initialize a new mixsense project with the standard directory layout.

This creates:
  - dashboard/ directory for the Streamlit dashboard
  - data/ directory for raw session recordings
  - processed_data/ directory for pipeline output
  - models/ directory for trained model artifacts
  - notebooks/ directory for exploration notebooks
  - src/ and tests/ directories for Python sources
  - requirements.txt, mixsense.yaml and .gitignore`,
		Example: `  # Initialize in current directory
  mixsense init

  # Initialize in a new directory
  mixsense init my-project

  # Force overwrite existing config
  mixsense init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cmdCtx := NewCommandContextWithoutEngine(cmd)
			return runInit(cmdCtx, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(cmdCtx *CommandContext, dir string, force bool) error {
	r := cmdCtx.Renderer

	// Create directory if specified and doesn't exist
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Check if config already exists
	configPath := dir + "/mixsense.yaml"
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("mixsense.yaml already exists. Use --force to overwrite")
	}

	if err := copyTemplate("default", dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	// List created files by group
	files, _ := listTemplateFiles("default")
	groups := groupTemplateFiles(files)

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r.Header(2, name)
		for _, f := range groups[name] {
			r.StatusLine(f, "success", "")
		}
		r.Println("")
	}

	r.Success("mixsense project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Record sessions under data/<recipe>/<session>/")
	r.Println("  2. Run 'mixsense setup' to prepare the Python environment")
	r.Println("  3. Run 'mixsense run' to preprocess sessions")
	r.Println("  4. Run 'mixsense launch' to start the dashboard")

	return nil
}
