package commands

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mixsense-labs/mixsense/internal/cli/config"
	"github.com/mixsense-labs/mixsense/internal/cli/output"
	"github.com/mixsense-labs/mixsense/internal/dataset"
	"github.com/mixsense-labs/mixsense/internal/frame"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Format string // Output format: text, markdown, json
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run a project health check",
		Long: `Analyze the project for potential issues.

The doctor command checks the project layout, the Python environment,
and the recorded sessions, and reports:
- Project summary (recipes, sessions, labeled sessions)
- Health checks grouped by category (Project, Environment, Data)
- Health score (0-100)
- Actionable recommendations`,
		Example: `  # Run health check
  mixsense doctor

  # Output as JSON
  mixsense doctor --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")

	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         ProjectSummary `json:"summary"`
	HealthChecks    []HealthCheck  `json:"health_checks"`
	Score           int            `json:"score"`
	Recommendations []string       `json:"recommendations"`
	IssueCount      int            `json:"issue_count"`
}

// ProjectSummary contains project-level statistics.
type ProjectSummary struct {
	Recipes  int `json:"recipes"`
	Sessions int `json:"sessions"`
	Labeled  int `json:"labeled"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Status     string   `json:"status"` // "pass", "warn", "error"
	IssueCount int      `json:"issue_count"`
	Details    []string `json:"details,omitempty"`
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	// Override renderer if format flag is set
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	sessions, err := dataset.Discover(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to discover sessions: %w", err)
	}

	doctorOutput := buildDoctorOutput(cfg, cmdCtx, sessions)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(doctorOutput)
	case output.ModeMarkdown:
		return renderDoctorMarkdown(r, doctorOutput)
	default:
		return renderDoctorText(r, doctorOutput)
	}
}

func buildDoctorOutput(cfg *config.Config, cmdCtx *CommandContext, sessions []dataset.Session) *DoctorOutput {
	summary := buildProjectSummary(sessions)

	checks := []HealthCheck{
		checkConfigFile(),
		checkDataDir(cfg),
		checkProcessedDir(cfg),
		checkPythonInterpreter(cfg),
		checkVirtualEnv(cfg, cmdCtx),
		checkRequirements(cfg),
		checkSessionsPresent(cfg, sessions),
		checkSessionData(sessions),
		checkSessionLabels(sessions),
	}

	// Sort health checks by group then by name
	sort.Slice(checks, func(i, j int) bool {
		if checks[i].Group != checks[j].Group {
			return checks[i].Group < checks[j].Group
		}
		return checks[i].Name < checks[j].Name
	})

	issueCount := 0
	for _, c := range checks {
		issueCount += c.IssueCount
	}

	return &DoctorOutput{
		Summary:         summary,
		HealthChecks:    checks,
		Score:           calculateHealthScore(checks),
		Recommendations: generateRecommendations(checks),
		IssueCount:      issueCount,
	}
}

func buildProjectSummary(sessions []dataset.Session) ProjectSummary {
	recipes := make(map[string]bool)
	labeled := 0
	for _, s := range sessions {
		recipes[s.Recipe] = true
		if s.HasLabels {
			labeled++
		}
	}
	return ProjectSummary{
		Recipes:  len(recipes),
		Sessions: len(sessions),
		Labeled:  labeled,
	}
}

func checkConfigFile() HealthCheck {
	check := HealthCheck{Name: "Config file", Group: "project", Status: "pass"}
	if config.GetConfigFileUsed() == "" {
		check.Status = "warn"
		check.IssueCount = 1
		check.Details = []string{"no mixsense.yaml found, running on defaults"}
	}
	return check
}

func checkDataDir(cfg *config.Config) HealthCheck {
	check := HealthCheck{Name: "Data directory", Group: "project", Status: "pass"}
	info, err := os.Stat(cfg.DataDir)
	switch {
	case err != nil:
		check.Status = "error"
		check.IssueCount = 1
		check.Details = []string{fmt.Sprintf("%s does not exist", cfg.DataDir)}
	case !info.IsDir():
		check.Status = "error"
		check.IssueCount = 1
		check.Details = []string{fmt.Sprintf("%s is not a directory", cfg.DataDir)}
	}
	return check
}

func checkProcessedDir(cfg *config.Config) HealthCheck {
	check := HealthCheck{Name: "Processed directory", Group: "project", Status: "pass"}
	info, err := os.Stat(cfg.ProcessedDir)
	if err != nil {
		// Created on demand by run, absence is fine.
		return check
	}
	if !info.IsDir() {
		check.Status = "error"
		check.IssueCount = 1
		check.Details = []string{fmt.Sprintf("%s exists but is not a directory", cfg.ProcessedDir)}
	}
	return check
}

func checkPythonInterpreter(cfg *config.Config) HealthCheck {
	check := HealthCheck{Name: "Python interpreter", Group: "environment", Status: "pass"}
	if _, err := exec.LookPath(cfg.Python); err != nil {
		check.Status = "error"
		check.IssueCount = 1
		check.Details = []string{fmt.Sprintf("%s not found on PATH", cfg.Python)}
	}
	return check
}

func checkVirtualEnv(cfg *config.Config, cmdCtx *CommandContext) HealthCheck {
	check := HealthCheck{Name: "Virtual environment", Group: "environment", Status: "pass"}
	mgr := newPyenvManager(cfg, cmdCtx.Logger)
	if !mgr.VenvExists() {
		check.Status = "warn"
		check.IssueCount = 1
		check.Details = []string{fmt.Sprintf("%s does not exist", mgr.VenvDir)}
	}
	return check
}

func checkRequirements(cfg *config.Config) HealthCheck {
	check := HealthCheck{Name: "Requirements file", Group: "environment", Status: "pass"}
	path := cfg.Requirements
	if cfg.ProjectRoot != "" && !filepath.IsAbs(path) {
		path = filepath.Join(cfg.ProjectRoot, path)
	}
	if _, err := os.Stat(path); err != nil {
		check.Status = "warn"
		check.IssueCount = 1
		check.Details = []string{fmt.Sprintf("%s not found", cfg.Requirements)}
	}
	return check
}

func checkSessionsPresent(cfg *config.Config, sessions []dataset.Session) HealthCheck {
	check := HealthCheck{Name: "Sessions discovered", Group: "data", Status: "pass"}
	if len(sessions) == 0 {
		check.Status = "warn"
		check.IssueCount = 1
		check.Details = []string{fmt.Sprintf("no sessions found under %s", cfg.DataDir)}
	}
	return check
}

// checkSessionData verifies each data file parses and carries a Time column.
func checkSessionData(sessions []dataset.Session) HealthCheck {
	check := HealthCheck{Name: "Session data files", Group: "data", Status: "pass"}
	for _, s := range sessions {
		f, err := readSessionFrame(s.DataPath)
		if err != nil {
			check.Details = append(check.Details, fmt.Sprintf("%s: %v", s.Key(), err))
			continue
		}
		if !f.HasColumn(frame.TimeColumn) {
			check.Details = append(check.Details, fmt.Sprintf("%s: missing %s column", s.Key(), frame.TimeColumn))
		}
	}
	if len(check.Details) > 0 {
		check.Status = "error"
		check.IssueCount = len(check.Details)
	}
	return check
}

func checkSessionLabels(sessions []dataset.Session) HealthCheck {
	check := HealthCheck{Name: "Session label files", Group: "data", Status: "pass"}
	for _, s := range sessions {
		if !s.HasLabels {
			continue
		}
		if _, err := dataset.LoadLabels(s.LabelsPath); err != nil {
			check.Details = append(check.Details, fmt.Sprintf("%s: %v", s.Key(), err))
		}
	}
	if len(check.Details) > 0 {
		check.Status = "error"
		check.IssueCount = len(check.Details)
	}
	return check
}

// calculateHealthScore computes a health score from 0-100.
// Errors weigh double; warnings weigh single.
func calculateHealthScore(checks []HealthCheck) int {
	score := 100.0
	for _, check := range checks {
		switch check.Status {
		case "error":
			score -= float64(check.IssueCount) * 10
		case "warn":
			score -= float64(check.IssueCount) * 5
		}
	}
	if score < 0 {
		score = 0
	}
	return int(score)
}

// generateRecommendations creates actionable recommendations based on findings.
func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	seen := make(map[string]bool)

	for _, check := range checks {
		if check.IssueCount == 0 {
			continue
		}
		rec := getRecommendation(check.Name)
		if rec != "" && !seen[rec] {
			recommendations = append(recommendations, rec)
			seen[rec] = true
		}
	}

	if len(recommendations) > 5 {
		recommendations = recommendations[:5]
	}

	return recommendations
}

// getRecommendation returns a recommendation for a specific check.
func getRecommendation(name string) string {
	switch name {
	case "Config file":
		return "Run `mixsense init` or add a mixsense.yaml to the project root"
	case "Data directory":
		return "Create the data directory and record sessions under data/<recipe>/<session>/"
	case "Python interpreter":
		return "Install Python 3 or point the python config key at an existing interpreter"
	case "Virtual environment":
		return "Run `mixsense setup` to create the virtual environment"
	case "Requirements file":
		return "Add a requirements.txt listing the Python dependencies"
	case "Sessions discovered":
		return "Record sessions as data/<recipe>/[<temperature>/]<session>/data.data"
	case "Session data files":
		return "Fix malformed data files; each needs a header row with a Time column"
	case "Session label files":
		return "Fix label files; headers must be Time(Seconds), Length(Seconds), Label(string)"
	default:
		return ""
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	r.Println("")
	r.Header(1, "Project Health Report")
	r.Println("")

	r.Printf("   Recipes: %d | Sessions: %d | Labeled: %d\n",
		out.Summary.Recipes, out.Summary.Sessions, out.Summary.Labeled)
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("   " + titleCaser.String(currentGroup))
			r.Println("   " + strings.Repeat("-", 40))
		}

		note := ""
		if check.IssueCount > 0 {
			note = fmt.Sprintf("%d issue(s)", check.IssueCount)
		}
		r.StatusLine(check.Name, statusMarker(check.Status), note)

		for i, detail := range check.Details {
			if i >= 3 {
				r.Printf("       ... and %d more\n", len(check.Details)-3)
				break
			}
			r.Println("       - " + detail)
		}
	}
	r.Println("")

	r.Printf("   Health Score: %d/100\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Header(2, "Recommendations")
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	r.Println("# Project Health Report")
	r.Println("")

	r.Println("## Summary")
	r.Println("")
	r.Printf("- **Recipes**: %d\n", out.Summary.Recipes)
	r.Printf("- **Sessions**: %d\n", out.Summary.Sessions)
	r.Printf("- **Labeled**: %d\n", out.Summary.Labeled)
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}

		r.Printf("- **[%s]** %s", strings.ToUpper(check.Status), check.Name)
		if check.IssueCount > 0 {
			r.Printf(" (%d issues)", check.IssueCount)
		}
		r.Println("")

		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}

func readSessionFrame(path string) (*frame.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return frame.ReadCSV(f)
}

// statusMarker maps check statuses to StatusLine markers.
func statusMarker(status string) string {
	switch status {
	case "pass":
		return "success"
	case "error":
		return "failed"
	default:
		return "warn"
	}
}
